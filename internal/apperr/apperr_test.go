package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfWalksWrapChain(t *testing.T) {
	base := Conflict("slot taken")
	wrapped := fmt.Errorf("book: %w", fmt.Errorf("engine: %w", base))

	assert.Equal(t, KindConflict, KindOf(wrapped))
	assert.True(t, errors.Is(wrapped, base))
}

func TestKindOfUnclassified(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, KindUnknown, KindOf(nil))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(KindTransientStore, "query slots", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "query slots: connection reset", err.Error())
	assert.True(t, IsRetryable(err))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(New(KindTransientStore, "timeout")))
	assert.False(t, IsRetryable(New(KindPermanentStore, "bad schema")))
	assert.False(t, IsRetryable(Conflict("taken")))
	assert.False(t, IsRetryable(nil))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "validation", KindValidation.String())
	assert.Equal(t, "conflict", KindConflict.String())
	assert.Equal(t, "unknown", KindUnknown.String())
	assert.Equal(t, "unknown", Kind(99).String())
}
