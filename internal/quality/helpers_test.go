package quality

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/qualitygate/pkg/models"
)

func createTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func createTestConfig() *QualityConfig {
	config := DefaultQualityConfig()
	config.Parallelism = 4
	return config
}

func numericColumn(name string, values ...float64) models.Column {
	col := models.Column{Name: name, Values: make([]models.Value, len(values))}
	for i, v := range values {
		col.Values[i] = models.Number(v)
	}
	return col
}

func stringColumn(name string, values ...string) models.Column {
	col := models.Column{Name: name, Values: make([]models.Value, len(values))}
	for i, v := range values {
		col.Values[i] = models.String(v)
	}
	return col
}

func sequence(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func repeat(value string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = value
	}
	return out
}

func emailColumn(rows, nulls int) models.Column {
	col := models.Column{Name: "email", Values: make([]models.Value, rows)}
	for i := range col.Values {
		if i < nulls {
			col.Values[i] = models.Null()
			continue
		}
		col.Values[i] = models.String(fmt.Sprintf("user%d@example.com", i))
	}
	return col
}

func float64Ptr(f float64) *float64 {
	return &f
}
