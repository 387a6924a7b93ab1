package health

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnapshotChecker(t *testing.T) {
	checker := NewSnapshotChecker(filepath.Join(t.TempDir(), "state.enc"), nil)
	assert.NoError(t, checker.HealthCheck(context.Background()))
}

func TestSnapshotCheckerMissingDir(t *testing.T) {
	checker := NewSnapshotChecker(filepath.Join(t.TempDir(), "missing", "state.enc"), nil)
	assert.Error(t, checker.HealthCheck(context.Background()))
}

func TestSnapshotCheckerReportsLastSaveError(t *testing.T) {
	saveErr := errors.New("disk full")
	checker := NewSnapshotChecker(filepath.Join(t.TempDir(), "state.enc"), func() error { return saveErr })

	err := checker.HealthCheck(context.Background())
	assert.ErrorIs(t, err, saveErr)
}

func TestCheckerAggregates(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	checker := NewChecker(log)
	checker.AddCheck("snapshot", NewSnapshotChecker(filepath.Join(t.TempDir(), "state.enc"), nil))
	checker.AddCheck("telegram", NewTelegramChecker(nil))

	results := checker.Check(context.Background())
	assert.Equal(t, "OK", results["snapshot"])
	assert.NotEqual(t, "OK", results["telegram"])
	assert.False(t, Healthy(results))
}
