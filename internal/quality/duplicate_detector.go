package quality

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"

	"github.com/inferloop/qualitygate/pkg/models"
)

const (
	keyNull  = "\x00"
	keyValue = "\x01"
)

// DuplicateDetector finds exact and near-duplicate rows over a key column set
type DuplicateDetector struct {
	config *QualityConfig
	logger *logrus.Logger
}

// NewDuplicateDetector creates a new duplicate detector
func NewDuplicateDetector(config *QualityConfig, logger *logrus.Logger) *DuplicateDetector {
	if config == nil {
		config = DefaultQualityConfig()
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &DuplicateDetector{config: config, logger: logger}
}

type rowGroup struct {
	key  string
	rows []int
}

// Detect returns one duplicate finding per group of identical rows and, when
// enabled, one fuzzy-duplicate finding per group of rows that differ only in
// case or surrounding whitespace. Groups are ordered by their first row.
func (dd *DuplicateDetector) Detect(ds *models.Dataset) []models.Finding {
	n := ds.RowCount()
	if n < 2 {
		return nil
	}

	keyCols := dd.keyColumns(ds)
	exact := groupRows(n, func(row int) string {
		return rowKey(keyCols, row, func(s string) string { return s })
	})

	var findings []models.Finding
	names := columnNames(keyCols)

	duplicated := 0
	for _, g := range exact {
		if len(g.rows) > 1 {
			duplicated += len(g.rows) - 1
		}
	}
	exactSeverity := models.SeverityWarning
	if float64(duplicated)/float64(n) >= dd.config.DuplicateCriticalFraction {
		exactSeverity = models.SeverityCritical
	}

	for _, g := range exact {
		if len(g.rows) < 2 {
			continue
		}
		findings = append(findings, models.Finding{
			Kind:     models.FindingDuplicate,
			Severity: exactSeverity,
			Message: fmt.Sprintf("%d rows share the same values for %s (first row %d)",
				len(g.rows), names, g.rows[0]),
			Metric:   float64(len(g.rows)),
			Fraction: float64(len(g.rows)-1) / float64(n),
			Count:    len(g.rows),
			Rows:     g.rows,
		})
	}

	if dd.config.FuzzyDuplicates {
		findings = append(findings, dd.detectFuzzy(keyCols, exact, n, names)...)
	}

	if len(findings) > 0 {
		dd.logger.WithFields(logrus.Fields{
			"dataset":  ds.Name,
			"findings": len(findings),
			"rows":     n,
		}).Debug("Duplicate rows detected")
	}
	return findings
}

// detectFuzzy groups the exact groups by their normalized key. Each exact
// variant contributes only its first row, so exact pairs never reappear here.
func (dd *DuplicateDetector) detectFuzzy(keyCols []models.Column, exact []rowGroup, n int, names string) []models.Finding {
	// cases.Caser is stateful, so one per call.
	fold := cases.Fold()
	normalize := func(s string) string {
		return fold.String(strings.TrimSpace(s))
	}

	var groups []rowGroup
	index := make(map[string]int)
	for _, g := range exact {
		key := rowKey(keyCols, g.rows[0], normalize)
		if i, ok := index[key]; ok {
			groups[i].rows = append(groups[i].rows, g.rows[0])
			continue
		}
		index[key] = len(groups)
		groups = append(groups, rowGroup{key: key, rows: []int{g.rows[0]}})
	}

	variants := 0
	for _, g := range groups {
		if len(g.rows) > 1 {
			variants += len(g.rows) - 1
		}
	}
	severity := models.SeverityInfo
	if float64(variants)/float64(n) >= dd.config.DuplicateCriticalFraction {
		severity = models.SeverityWarning
	}

	var findings []models.Finding
	for _, g := range groups {
		if len(g.rows) < 2 {
			continue
		}
		findings = append(findings, models.Finding{
			Kind:     models.FindingFuzzyDuplicate,
			Severity: severity,
			Message: fmt.Sprintf("%d distinct rows match on %s after case folding and trimming (first row %d)",
				len(g.rows), names, g.rows[0]),
			Metric:   float64(len(g.rows)),
			Fraction: float64(len(g.rows)-1) / float64(n),
			Count:    len(g.rows),
			Rows:     g.rows,
		})
	}
	return findings
}

// keyColumns resolves the configured key names, ignoring unknown ones.
// An empty result falls back to every column.
func (dd *DuplicateDetector) keyColumns(ds *models.Dataset) []models.Column {
	var cols []models.Column
	for _, name := range dd.config.DuplicateKeyColumns {
		col, ok := ds.Column(name)
		if !ok {
			dd.logger.WithField("column", name).Warn("Unknown duplicate key column ignored")
			continue
		}
		cols = append(cols, col)
	}
	if len(cols) == 0 {
		return ds.Columns
	}
	return cols
}

func groupRows(n int, key func(row int) string) []rowGroup {
	var groups []rowGroup
	index := make(map[string]int, n)
	for row := 0; row < n; row++ {
		k := key(row)
		if i, ok := index[k]; ok {
			groups[i].rows = append(groups[i].rows, row)
			continue
		}
		index[k] = len(groups)
		groups = append(groups, rowGroup{key: k, rows: []int{row}})
	}
	return groups
}

// rowKey encodes a row's key cells. Values are length-prefixed so that null,
// the empty string and values containing any byte never collide.
func rowKey(cols []models.Column, row int, normalize func(string) string) string {
	var b strings.Builder
	for _, col := range cols {
		v := col.Values[row]
		if v.Null {
			b.WriteString(keyNull)
			continue
		}
		s := normalize(v.Raw)
		b.WriteString(keyValue)
		b.WriteString(strconv.Itoa(len(s)))
		b.WriteByte(':')
		b.WriteString(s)
	}
	return b.String()
}

func columnNames(cols []models.Column) string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return strings.Join(names, ", ")
}
