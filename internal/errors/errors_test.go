package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorBuilderBasics(t *testing.T) {
	t.Parallel()

	base := NewStd("species not found")
	err := New(base).
		Category(CategoryNotFound).
		Context("species_id", 42).
		Component("datastore").
		Build()

	assert.Equal(t, "species not found", err.Error())
	assert.Equal(t, "not-found", err.GetCategory())
	assert.Equal(t, "datastore", err.GetComponent())
	assert.False(t, err.Timestamp.IsZero())

	ctx := err.GetContext()
	require.NotNil(t, ctx)
	assert.Equal(t, 42, ctx["species_id"])

	// The wrapped error must remain reachable through the chain.
	assert.True(t, Is(err, base))
}

func TestNewfFormatsMessage(t *testing.T) {
	t.Parallel()

	err := Newf("kingdom %q is not valid", "Mineralia").Category(CategoryValidation).Build()
	assert.Equal(t, `kingdom "Mineralia" is not valid`, err.Error())
}

func TestEnhancedErrorIsMatchesByCategory(t *testing.T) {
	t.Parallel()

	a := Newf("first").Category(CategoryDatabase).Build()
	b := Newf("second").Category(CategoryDatabase).Build()
	c := Newf("third").Category(CategoryValidation).Build()

	assert.True(t, Is(a, b))
	assert.False(t, Is(a, c))
}

func TestAsUnwrapsEnhancedError(t *testing.T) {
	t.Parallel()

	inner := Newf("db unreachable").Category(CategoryDatabase).Build()
	wrapped := fmt.Errorf("saving species: %w", inner)

	var ee *EnhancedError
	require.True(t, As(wrapped, &ee))
	assert.Equal(t, CategoryDatabase, ee.Category)
}

func TestDefaultsWhenUnset(t *testing.T) {
	t.Parallel()

	err := Newf("plain").Build()
	assert.Equal(t, CategoryGeneric, err.Category)
	assert.Equal(t, ComponentUnknown, err.GetComponent())
	assert.Nil(t, err.GetContext())
}
