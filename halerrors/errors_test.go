package halerrors_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grailbio/hal/halerrors"
)

func TestKindAndMessage(t *testing.T) {
	err := halerrors.E(halerrors.OutOfRange, "index ", 7, " out of range")
	require.Error(t, err)
	assert.True(t, halerrors.Is(halerrors.OutOfRange, err))
	assert.False(t, halerrors.Is(halerrors.CorruptFile, err))
	assert.Contains(t, err.Error(), "out of range")
	assert.Contains(t, err.Error(), "index 7")
}

func TestWrappedCauseSurvives(t *testing.T) {
	cause := errors.New("disk on fire")
	err := halerrors.E(halerrors.IOError, cause, "flushing chunk 3")
	require.Error(t, err)
	assert.True(t, halerrors.Is(halerrors.IOError, err))
	assert.Contains(t, err.Error(), "disk on fire")
	assert.Contains(t, err.Error(), "flushing chunk 3")
}

func TestIsRejectsForeignErrors(t *testing.T) {
	assert.False(t, halerrors.Is(halerrors.IOError, errors.New("plain")))
	assert.False(t, halerrors.Is(halerrors.IOError, nil))
}
