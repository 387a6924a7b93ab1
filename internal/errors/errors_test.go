package errors

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorUnwrap(t *testing.T) {
	cause := stderrors.New("disk full")
	err := NewPersistenceError(cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Snapshot write failed", err.Error())
	assert.True(t, err.Retryable)
}

func TestHandlerReturnsUserMessage(t *testing.T) {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), false)

	msg, retryable := h.Handle(context.Background(), NewPersistenceError(stderrors.New("disk full")))
	assert.Equal(t, "Temporary problem saving your request, please try again.", msg)
	assert.True(t, retryable)

	msg, retryable = h.Handle(context.Background(), stderrors.New("something odd"))
	assert.Equal(t, "Something went wrong. Please try again later.", msg)
	assert.False(t, retryable)

	msg, _ = h.Handle(context.Background(), nil)
	assert.Empty(t, msg)
}
