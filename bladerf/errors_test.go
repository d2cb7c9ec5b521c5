package bladerf

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCode(t *testing.T) {
	err := Errf("sync recv", CodeTimeout, "deadline after %dms", 500)

	assert.Equal(t, CodeTimeout, ErrorCode(err))
	assert.True(t, IsTimeout(err))
	assert.False(t, IsUnsupported(err))
	assert.Contains(t, err.Error(), "sync recv")
	assert.Contains(t, err.Error(), "timeout")

	// codes survive wrapping
	wrapped := fmt.Errorf("start: %w", err)
	assert.Equal(t, CodeTimeout, ErrorCode(wrapped))
	assert.True(t, IsTimeout(wrapped))
}

func TestErrorCodeFallback(t *testing.T) {
	assert.Equal(t, CodeInternal, ErrorCode(fmt.Errorf("plain failure")))
	assert.False(t, IsUnsupported(fmt.Errorf("plain failure")))
}

func TestIsUnsupported(t *testing.T) {
	err := Errf("set bias tee", CodeUnsupported, "no bias tee on this hardware")
	assert.True(t, IsUnsupported(err))
	assert.Equal(t, "unsupported", CodeUnsupported.String())
}
