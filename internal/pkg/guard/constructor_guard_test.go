package guard_test

import (
	"errors"
	"testing"

	"dispatch/internal/pkg/guard"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConstructorGuard(t *testing.T) {
	t.Run("creates_properly_constructed_guard", func(t *testing.T) {
		g := guard.NewConstructorGuard()

		assert.NotNil(t, g)
		require.NoError(t, g.Validate(errors.New("custom error")))
		require.NoError(t, g.Validate(nil))
	})
}

func TestConstructorGuard_Validate(t *testing.T) {
	t.Run("zero_value_fails_with_custom_error", func(t *testing.T) {
		var g guard.ConstructorGuard
		custom := errors.New("thing not constructed")

		err := g.Validate(custom)

		require.Error(t, err)
		assert.Equal(t, custom, err)
	})

	t.Run("zero_value_fails_with_default_error_when_nil", func(t *testing.T) {
		var g guard.ConstructorGuard

		err := g.Validate(nil)

		require.ErrorIs(t, err, guard.ErrDefaultConstructorGuard)
	})
}
