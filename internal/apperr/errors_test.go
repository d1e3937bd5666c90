package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Wrap(CodeDependency, cause, "open notification socket")

	require.ErrorIs(t, err, cause)
	assert.Equal(t, CodeDependency, err.Code())
	assert.Contains(t, err.Error(), "connection refused")
}

func TestWrapNilCauseBehavesLikeNew(t *testing.T) {
	err := Wrap(CodeNotFound, nil, "missing")
	assert.Nil(t, err.Unwrap())
	assert.Equal(t, "NOT_FOUND: missing", err.Error())
}

func TestCodeOfThroughFmtWrapping(t *testing.T) {
	base := New(CodeInvalidArgument, "receiver id required")
	wrapped := fmt.Errorf("connecting: %w", base)

	assert.Equal(t, CodeInvalidArgument, CodeOf(wrapped))
	assert.True(t, Is(wrapped, CodeInvalidArgument))
	assert.False(t, Is(wrapped, CodeDependency))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
	assert.Equal(t, Code(""), CodeOf(nil))
}

func TestMetadataForUnknownCodeFallsBackToInternal(t *testing.T) {
	assert.Equal(t, MetadataFor(CodeInternal), MetadataFor(Code("BOGUS")))
	assert.True(t, MetadataFor(CodeDependency).Retryable)
	assert.False(t, MetadataFor(CodeUnauthorized).Retryable)
}

func TestNilErrorAccessors(t *testing.T) {
	var e *Error
	assert.Equal(t, CodeInternal, e.Code())
	assert.Equal(t, "", e.Message())
	assert.Nil(t, e.Unwrap())
}
