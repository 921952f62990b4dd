package quality

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/inferloop/qualitygate/pkg/errors"
	"github.com/inferloop/qualitygate/pkg/models"
)

// Clone returns a deep copy of the configuration
func (c *QualityConfig) Clone() *QualityConfig {
	clone := *c

	clone.OutlierMethods = append([]OutlierMethod(nil), c.OutlierMethods...)
	clone.DuplicateKeyColumns = append([]string(nil), c.DuplicateKeyColumns...)

	if c.KindWeights != nil {
		clone.KindWeights = make(map[models.FindingKind]float64, len(c.KindWeights))
		for k, v := range c.KindWeights {
			clone.KindWeights[k] = v
		}
	}
	if c.AlertThresholds != nil {
		clone.AlertThresholds = make(map[models.Dimension]models.Threshold, len(c.AlertThresholds))
		for k, v := range c.AlertThresholds {
			clone.AlertThresholds[k] = v
		}
	}
	if c.KindThresholds != nil {
		clone.KindThresholds = make(map[models.FindingKind]models.Threshold, len(c.KindThresholds))
		for k, v := range c.KindThresholds {
			clone.KindThresholds[k] = v
		}
	}

	return &clone
}

// ApplyOverrides returns a copy of c with the given keys replaced. Keys use
// the same names as the configuration file; durations accept strings such as
// "720h". Map-valued options are merged key by key. The result is validated.
func (c *QualityConfig) ApplyOverrides(overrides map[string]interface{}) (*QualityConfig, error) {
	merged := c.Clone()
	if len(overrides) == 0 {
		return merged, nil
	}

	// slices are replaced wholesale; the decoder would otherwise write over
	// the existing elements and keep any tail
	if _, ok := overrides["outlier_methods"]; ok {
		merged.OutlierMethods = nil
	}
	if _, ok := overrides["duplicate_key_columns"]; ok {
		merged.DuplicateKeyColumns = nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           merged,
	})
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeInternal, errors.CodeInternalError, "failed to build config decoder")
	}

	if err := decoder.Decode(overrides); err != nil {
		verrs := errors.NewValidationErrors()
		verrs.Add("config", errors.CodeInvalidConfiguration, fmt.Sprintf("cannot apply overrides: %v", err), nil)
		return nil, errors.NewConfigurationError(verrs)
	}

	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return merged, nil
}
