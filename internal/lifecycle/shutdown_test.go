package lifecycle

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteRunsAllHooks(t *testing.T) {
	s := NewShutdown(nil)

	var ran int32
	s.Register("first", func(context.Context) error {
		atomic.AddInt32(&ran, 1)
		return nil
	})
	s.Register("second", func(context.Context) error {
		atomic.AddInt32(&ran, 1)
		return nil
	})

	require.NoError(t, s.Execute(context.Background()))
	assert.Equal(t, int32(2), atomic.LoadInt32(&ran))
}

func TestExecuteCollectsHookErrors(t *testing.T) {
	s := NewShutdown(nil)

	s.Register("ok", func(context.Context) error { return nil })
	s.Register("broken", func(context.Context) error { return errors.New("boom") })

	err := s.Execute(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken: boom")
}

func TestRegisterIgnoresNilHook(t *testing.T) {
	s := NewShutdown(nil)
	s.Register("noop", nil)

	assert.NoError(t, s.Execute(context.Background()))
}
