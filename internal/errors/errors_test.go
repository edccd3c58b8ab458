package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParameterError_NamesField(t *testing.T) {
	err := NewParameterError("market", "volatility", -0.1, "must be non-negative")

	assert.Equal(t, "parameter error: market.volatility (-0.1): must be non-negative", err.Error())
	assert.True(t, Is(err, ErrParameterInvalid))
	assert.False(t, Is(err, ErrConfigInvalid))
}

func TestConfigError_Unwrap(t *testing.T) {
	err := Wrap(NewConfigError("n_simulations", 0, "must be positive"), "validating")

	assert.True(t, Is(err, ErrConfigInvalid))

	var cfgErr *ConfigError
	require.True(t, As(err, &cfgErr))
	assert.Equal(t, "n_simulations", cfgErr.Field)
}

func TestScenarioError_ReportsIndex(t *testing.T) {
	cause := fmt.Errorf("revenue is +Inf")
	err := NewScenarioError(17, "metrics", cause)

	assert.Contains(t, err.Error(), "scenario 17")
	assert.True(t, Is(err, ErrNumerical))
	assert.True(t, Is(err, cause))
}

func TestSerializationError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("permission denied")
	err := NewSerializationError("/root/out.json", "write", cause)

	assert.True(t, Is(err, ErrSerialization))
	assert.True(t, Is(err, cause))
	assert.Contains(t, err.Error(), "/root/out.json")
}

func TestWrap_Nil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "context"))
	assert.NoError(t, Wrapf(nil, "context %d", 1))
}
