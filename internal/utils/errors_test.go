package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapError(t *testing.T) {
	cause := errors.New("underlying failure")
	err := WrapError("reading descriptor", cause)

	require.Error(t, err)
	assert.Equal(t, "reading descriptor: underlying failure", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestWrapErrorNilCause(t *testing.T) {
	assert.NoError(t, WrapError("anything", nil))
}

func TestTreeErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	wrapped := WrapError("outer", WrapError("inner", cause))

	assert.ErrorIs(t, wrapped, cause)

	var te *TreeError
	require.ErrorAs(t, wrapped, &te)
	assert.Equal(t, "outer", te.Context)
}
