package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigurationError(t *testing.T) {
	verrs := NewValidationErrors()
	verrs.Add("z_threshold", CodeOutOfRange, "must be positive", -1.0)
	verrs.Add("dimension_weights", CodeWeightsNotNormalized, "must sum to 1.0", 0.9)

	err := NewConfigurationError(verrs)

	assert.True(t, IsConfigurationError(err))
	assert.False(t, IsInputError(err))
	assert.Equal(t, 400, HTTPStatus(err))
	assert.Contains(t, err.Error(), "z_threshold: must be positive")

	var unwrapped *ValidationErrors
	require.True(t, errors.As(err, &unwrapped))
	assert.Equal(t, []string{"z_threshold", "dimension_weights"}, unwrapped.Fields())
}

func TestInputError(t *testing.T) {
	err := fmt.Errorf("assess: %w", NewInputError(CodeInvalidInput, "column \"a\" has 2 rows, expected 3"))

	assert.True(t, IsInputError(err))
	assert.False(t, IsConfigurationError(err))
	assert.Equal(t, 400, HTTPStatus(err))
}

func TestAppErrorIs(t *testing.T) {
	a := NewAppError(ErrorTypeComputation, CodeComputationSkipped, "mean overflowed")
	b := NewComputationError("stddev overflowed")

	assert.True(t, errors.Is(a, b))
	assert.True(t, errors.Is(b, ErrNonFiniteStatistic))
	assert.Equal(t, 500, HTTPStatus(errors.New("plain")))
}
