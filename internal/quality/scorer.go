package quality

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/qualitygate/pkg/models"
)

// QualityScorer reduces findings into dimension scores and a composite score.
// It is a pure function of its inputs.
type QualityScorer struct {
	config *QualityConfig
	logger *logrus.Logger
}

// NewQualityScorer creates a new quality scorer
func NewQualityScorer(config *QualityConfig, logger *logrus.Logger) *QualityScorer {
	if config == nil {
		config = DefaultQualityConfig()
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &QualityScorer{config: config, logger: logger}
}

// CellCounts summarizes nulls over every cell of a dataset
type CellCounts struct {
	Nulls int
	Total int
}

// CountCells tallies null and total cells across profiles
func CountCells(profiles []*models.ColumnProfile) CellCounts {
	var c CellCounts
	for _, p := range profiles {
		c.Nulls += p.NullCount
		c.Total += p.Count
	}
	return c
}

// Score computes the assessment. Findings are kept in the order given.
func (qs *QualityScorer) Score(findings []models.Finding, cells CellCounts) *models.QualityAssessment {
	assessment := &models.QualityAssessment{
		Dimensions: make([]models.DimensionScore, 0, len(models.Dimensions)),
		Findings:   make([]models.Finding, 0, len(findings)),
	}
	assessment.Findings = append(assessment.Findings, findings...)

	byDimension := make(map[models.Dimension][]models.Finding)
	for _, f := range findings {
		d := f.Kind.Dimension()
		byDimension[d] = append(byDimension[d], f)
	}

	for _, d := range models.Dimensions {
		var score float64
		if d == models.DimensionCompleteness {
			score = qs.completeness(cells)
		} else {
			score = 100 - qs.penalty(byDimension[d])
		}

		ds := models.DimensionScore{
			Dimension: d,
			Score:     clampScore(score),
			Findings:  byDimension[d],
		}
		assessment.Dimensions = append(assessment.Dimensions, ds)
		assessment.Composite += qs.config.DimensionWeights.Weight(d) * ds.Score
	}
	assessment.Composite = clampScore(assessment.Composite)

	qs.logger.WithFields(logrus.Fields{
		"composite": assessment.Composite,
		"findings":  len(findings),
	}).Debug("Quality scored")

	return assessment
}

// completeness is 100 minus the overall null fraction in percent
func (qs *QualityScorer) completeness(cells CellCounts) float64 {
	if cells.Total == 0 {
		return 100
	}
	return 100 - float64(cells.Nulls)*100/float64(cells.Total)
}

// penalty sums fraction x kind weight over findings, in percent, capped at 100
func (qs *QualityScorer) penalty(findings []models.Finding) float64 {
	total := 0.0
	for _, f := range findings {
		total += f.Fraction * qs.config.KindWeight(f.Kind) * 100
	}
	return math.Min(100, total)
}

func clampScore(s float64) float64 {
	if math.IsNaN(s) {
		return 0
	}
	return math.Max(0, math.Min(100, s))
}
