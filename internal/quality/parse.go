package quality

import (
	"strings"
	"time"

	"github.com/spf13/cast"

	qmath "github.com/inferloop/qualitygate/internal/utils/math"
	"github.com/inferloop/qualitygate/pkg/models"
)

// parseNumber parses a cell as a finite float. NaN and infinities are rejected.
func parseNumber(v models.Value) (float64, bool) {
	if v.Null {
		return 0, false
	}
	f, err := cast.ToFloat64E(strings.TrimSpace(v.Raw))
	if err != nil || !qmath.IsFinite(f) {
		return 0, false
	}
	return f, true
}

// parseTime parses a cell using the date layouts cast understands
// (RFC3339, 2006-01-02, RFC1123 and friends).
func parseTime(v models.Value) (time.Time, bool) {
	if v.Null {
		return time.Time{}, false
	}
	raw := strings.TrimSpace(v.Raw)
	if raw == "" {
		return time.Time{}, false
	}
	t, err := cast.ToTimeE(raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// conforms reports whether a non-null cell can be read as the declared type
func conforms(v models.Value, typ models.ColumnType) bool {
	switch typ {
	case models.TypeNumeric:
		_, ok := parseNumber(v)
		return ok
	case models.TypeDatetime:
		_, ok := parseTime(v)
		return ok
	default:
		return true
	}
}

// resolve tags every cell of a column with its kind under the inferred type.
// Cells that do not parse under a numeric or datetime type become text.
func resolve(values []models.Value, typ models.ColumnType) []models.TypedValue {
	out := make([]models.TypedValue, len(values))
	for i, v := range values {
		if v.Null {
			out[i] = models.TypedValue{Kind: models.KindMissing}
			continue
		}

		switch typ {
		case models.TypeNumeric:
			if f, ok := parseNumber(v); ok {
				out[i] = models.TypedValue{Kind: models.KindNumeric, Number: f, Text: v.Raw}
				continue
			}
		case models.TypeDatetime:
			if t, ok := parseTime(v); ok {
				out[i] = models.TypedValue{Kind: models.KindDatetime, Time: t, Text: v.Raw}
				continue
			}
		case models.TypeCategorical:
			out[i] = models.TypedValue{Kind: models.KindCategorical, Text: v.Raw}
			continue
		}
		out[i] = models.TypedValue{Kind: models.KindText, Text: v.Raw}
	}
	return out
}
