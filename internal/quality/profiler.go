package quality

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	qmath "github.com/inferloop/qualitygate/internal/utils/math"
	"github.com/inferloop/qualitygate/pkg/models"
)

// categoricalDistinctRatio is the distinct/row-count ratio below which short
// string columns are treated as categorical. Nulls count as rows.
const categoricalDistinctRatio = 0.5

// ColumnProfiler computes per-column descriptive statistics and infers types
type ColumnProfiler struct {
	config *QualityConfig
	logger *logrus.Logger
}

// NewColumnProfiler creates a new column profiler
func NewColumnProfiler(config *QualityConfig, logger *logrus.Logger) *ColumnProfiler {
	if config == nil {
		config = DefaultQualityConfig()
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &ColumnProfiler{config: config, logger: logger}
}

// ProfileDataset profiles every column in order
func (cp *ColumnProfiler) ProfileDataset(ds *models.Dataset) ([]*models.ColumnProfile, []models.Finding) {
	profiles := make([]*models.ColumnProfile, len(ds.Columns))
	var findings []models.Finding
	for i, col := range ds.Columns {
		p, fs := cp.Profile(col)
		profiles[i] = p
		findings = append(findings, fs...)
	}
	return profiles, findings
}

// Profile computes the profile of a single column. Degenerate statistics are
// reported as a computation-skipped finding instead of an error.
func (cp *ColumnProfiler) Profile(col models.Column) (*models.ColumnProfile, []models.Finding) {
	nulls := col.NullCount()
	profile := &models.ColumnProfile{
		Name:         col.Name,
		Count:        col.Len(),
		NullCount:    nulls,
		NonNullCount: col.Len() - nulls,
	}

	profile.Type = cp.InferType(col.Values)
	profile.Values = resolve(col.Values, profile.Type)
	profile.DistinctCount = distinctCount(profile.Values)

	var findings []models.Finding
	switch profile.Type {
	case models.TypeNumeric:
		if f := cp.numericStats(profile); f != nil {
			findings = append(findings, *f)
		}
	case models.TypeDatetime:
		cp.datetimeStats(profile)
	case models.TypeCategorical, models.TypeText:
		cp.categoricalStats(profile)
	}

	cp.logger.WithFields(logrus.Fields{
		"column":   col.Name,
		"type":     profile.Type,
		"rows":     profile.Count,
		"nulls":    profile.NullCount,
		"distinct": profile.DistinctCount,
	}).Debug("Column profiled")

	return profile, findings
}

// InferType classifies a column from its non-null values
func (cp *ColumnProfiler) InferType(values []models.Value) models.ColumnType {
	var nonNull, numeric, dates, runes int
	distinct := make(map[string]struct{})

	for _, v := range values {
		if v.Null {
			continue
		}
		nonNull++
		runes += utf8.RuneCountInString(v.Raw)
		distinct[v.Raw] = struct{}{}

		if _, ok := parseNumber(v); ok {
			numeric++
		}
	}
	if nonNull == 0 {
		return models.TypeUnknown
	}

	ratio := cp.config.TypeInferenceRatio
	if float64(numeric)/float64(nonNull) >= ratio {
		return models.TypeNumeric
	}

	for _, v := range values {
		if _, ok := parseTime(v); ok {
			dates++
		}
	}
	if float64(dates)/float64(nonNull) >= ratio {
		return models.TypeDatetime
	}

	avgLen := float64(runes) / float64(nonNull)
	if float64(len(distinct))/float64(len(values)) < categoricalDistinctRatio &&
		avgLen <= float64(cp.config.CategoricalMaxLength) {
		return models.TypeCategorical
	}
	return models.TypeText
}

func (cp *ColumnProfiler) numericStats(p *models.ColumnProfile) *models.Finding {
	nums, _ := p.Numbers()
	if len(nums) == 0 {
		return nil
	}

	min, max := qmath.MinMax(nums)
	mean := stat.Mean(nums, nil)
	var std float64
	if len(nums) >= 2 {
		std = math.Sqrt(stat.Variance(nums, nil))
	}

	if !qmath.IsFinite(mean) || !qmath.IsFinite(std) {
		cp.logger.WithFields(logrus.Fields{
			"column": p.Name,
			"mean":   mean,
			"stddev": std,
		}).Warn("Non-finite statistic, skipping numeric profile")

		return &models.Finding{
			Kind:     models.FindingComputationSkipped,
			Column:   p.Name,
			Severity: models.SeverityWarning,
			Message:  fmt.Sprintf("column %q: non-finite mean or standard deviation, statistics skipped", p.Name),
		}
	}

	p.Min, p.Max, p.Mean = &min, &max, &mean
	if len(nums) >= 2 {
		p.StdDev = &std
	}
	p.Histogram = numericHistogram(nums, cp.config.HistogramBins)
	return nil
}

func (cp *ColumnProfiler) datetimeStats(p *models.ColumnProfile) {
	secs, _ := p.Times()
	if len(secs) == 0 {
		return
	}
	min, max := qmath.MinMax(secs)
	p.Min, p.Max = &min, &max
	p.Histogram = numericHistogram(secs, cp.config.HistogramBins)
}

func (cp *ColumnProfiler) categoricalStats(p *models.ColumnProfile) {
	counts := valueCounts(p.Values)
	if len(counts) == 0 {
		return
	}

	top := counts
	if len(top) > cp.config.TopK {
		top = top[:cp.config.TopK]
	}
	p.TopValues = top

	covered := 0
	for _, vc := range top {
		covered += vc.Count
	}
	p.Histogram = &models.Histogram{
		Categories: top,
		Other:      p.NonNullCount - covered,
	}
}

func numericHistogram(values []float64, bins int) *models.Histogram {
	edges, counts := qmath.EqualWidthBins(values, bins)
	if len(counts) == 0 {
		return nil
	}
	h := &models.Histogram{Bins: make([]models.HistogramBin, len(counts))}
	for i, c := range counts {
		h.Bins[i] = models.HistogramBin{Lower: edges[i], Upper: edges[i+1], Count: c}
	}
	return h
}

// valueCounts tallies non-null cell text, most frequent first with ties in
// first-seen order.
func valueCounts(values []models.TypedValue) []models.ValueCount {
	index := make(map[string]int)
	var counts []models.ValueCount
	for _, tv := range values {
		if tv.IsMissing() {
			continue
		}
		if i, ok := index[tv.Text]; ok {
			counts[i].Count++
			continue
		}
		index[tv.Text] = len(counts)
		counts = append(counts, models.ValueCount{Value: tv.Text, Count: 1})
	}

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	return counts
}

func distinctCount(values []models.TypedValue) int {
	seen := make(map[string]struct{})
	for _, tv := range values {
		switch tv.Kind {
		case models.KindMissing:
			continue
		case models.KindNumeric:
			seen["n:"+strconv.FormatFloat(tv.Number, 'g', -1, 64)] = struct{}{}
		case models.KindDatetime:
			seen["d:"+tv.Time.UTC().Format(time.RFC3339Nano)] = struct{}{}
		default:
			seen["s:"+tv.Text] = struct{}{}
		}
	}
	return len(seen)
}
