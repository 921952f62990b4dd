package ingest

import (
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/inferloop/qualitygate/pkg/errors"
	"github.com/inferloop/qualitygate/pkg/models"
)

// LoadSchema reads a YAML (or JSON) schema file mapping column names to rules
func LoadSchema(path string) (models.Schema, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeValidation, errors.CodeFileOpenFailed,
			fmt.Sprintf("failed to open schema: %s", path))
	}
	defer file.Close()

	return ReadSchema(file)
}

// ReadSchema decodes and checks a schema document. Unknown rule keys are rejected.
func ReadSchema(r io.Reader) (models.Schema, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	var schema models.Schema
	if err := decoder.Decode(&schema); err != nil {
		if err == io.EOF {
			return models.Schema{}, nil
		}
		return nil, errors.WrapError(err, errors.ErrorTypeValidation, errors.CodeDecodeFailed, "failed to decode schema")
	}

	if err := ValidateSchema(schema); err != nil {
		return nil, err
	}
	return schema, nil
}

// ValidateSchema checks rule types and bounds
func ValidateSchema(schema models.Schema) error {
	verrs := errors.NewValidationErrors()

	names := make([]string, 0, len(schema))
	for name := range schema {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		rule := schema[name]
		switch rule.Type {
		case "", models.TypeNumeric, models.TypeCategorical, models.TypeDatetime, models.TypeText:
		default:
			verrs.Add(name+".type", errors.CodeInvalidInput, "unknown column type", rule.Type)
		}

		if rule.Min != nil && rule.Max != nil && *rule.Min > *rule.Max {
			verrs.Add(name+".min", errors.CodeOutOfRange, "min exceeds max", *rule.Min)
		}
	}

	if verrs.HasErrors() {
		return errors.WrapError(verrs, errors.ErrorTypeValidation, errors.CodeInvalidInput, verrs.Summary())
	}
	return nil
}
