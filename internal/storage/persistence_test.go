package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guildgate/guildgate-bot/internal/application"
	"github.com/guildgate/guildgate-bot/internal/securebox"
)

func TestLoadMissingFileStartsEmpty(t *testing.T) {
	cipher, err := securebox.New([]byte("secret"))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "nested", "state.enc")
	store := New(path, cipher, testLogger())

	require.NoError(t, store.Load())
	assert.Empty(t, store.Admins())

	// The parent directory is created so the first save can succeed.
	_, err = os.Stat(filepath.Dir(path))
	assert.NoError(t, err)
}

func TestLoadEmptyFileStartsEmpty(t *testing.T) {
	cipher, err := securebox.New([]byte("secret"))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "state.enc")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	store := New(path, cipher, testLogger())
	require.NoError(t, store.Load())
	assert.Empty(t, store.PendingApplications())
}

func TestLoadWrongKeyFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.enc")

	cipher, err := securebox.New([]byte("right key"))
	require.NoError(t, err)

	store := New(path, cipher, testLogger())
	require.NoError(t, store.Load())
	_, err = store.AddAdmin(1, "", "")
	require.NoError(t, err)

	wrongCipher, err := securebox.New([]byte("wrong key"))
	require.NoError(t, err)

	reopened := New(path, wrongCipher, testLogger())
	err = reopened.Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, securebox.ErrDecryptFailed)
}

func TestSnapshotRoundTrip(t *testing.T) {
	cipher, err := securebox.New([]byte("secret"))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "state.enc")

	store := New(path, cipher, testLogger())
	require.NoError(t, store.Load())

	_, err = store.AddAdmin(1, "alice", "Alice")
	require.NoError(t, err)
	_, err = store.Submit(SubmitRequest{
		UserID:       10,
		FullName:     "User",
		Username:     "user10",
		LanguageCode: "fa",
		Responses: []Response{
			{QuestionID: "q1", Question: "Why?", Answer: "Because"},
		},
	})
	require.NoError(t, err)
	_, err = store.Submit(SubmitRequest{UserID: 11, FullName: "Other", Answer: "Plain"})
	require.NoError(t, err)
	_, err = store.Decide(11, false, "too short")
	require.NoError(t, err)
	_, err = store.AddXP(100, 1, 5)
	require.NoError(t, err)
	_, err = store.AddXP(100, 2, 9)
	require.NoError(t, err)
	require.NoError(t, store.AddCup(100, "Cup", "Desc", []string{"A", "B"}))

	reopened := New(path, cipher, testLogger())
	require.NoError(t, reopened.Load())

	assert.Equal(t, store.Admins(), reopened.Admins())
	assert.Equal(t, store.PendingApplications(), reopened.PendingApplications())
	assert.Equal(t, store.Leaderboard(100, 10), reopened.Leaderboard(100, 10))
	assert.Equal(t, store.Cups(100, 10), reopened.Cups(100, 10))

	entry, ok := reopened.Status(11)
	require.True(t, ok)
	assert.Equal(t, application.StatusDenied, entry.Status)
	assert.Equal(t, "too short", entry.Note)

	app, ok := reopened.Application(10)
	require.True(t, ok)
	assert.Equal(t, "user10", app.Username)
	require.Len(t, app.Responses, 1)
	assert.Equal(t, "Why?", app.Responses[0].Question)
}

func TestFailedSaveLeavesFileIntact(t *testing.T) {
	cipher, err := securebox.New([]byte("secret"))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "state.enc")

	store := New(path, cipher, testLogger())
	require.NoError(t, store.Load())
	_, err = store.AddAdmin(1, "", "")
	require.NoError(t, err)

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	// Force a failure after the temp file is fully written but before the
	// rename, the worst moment for a crash.
	store.preRename = func() error { return errors.New("disk gone") }

	_, err = store.AddXP(100, 1, 5)
	require.Error(t, err)

	after, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, before, after, "failed save must leave the snapshot byte-identical")

	_, statErr := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(statErr), "failed save must not leave a temp file behind")

	// Memory keeps the change; the next successful save reconciles.
	assert.Equal(t, []LeaderboardEntry{{UserID: 1, Score: 5}}, store.Leaderboard(100, 1))
	assert.Error(t, store.LastSaveError())

	store.preRename = nil
	_, err = store.AddXP(100, 1, 5)
	require.NoError(t, err)
	assert.NoError(t, store.LastSaveError())

	reopened := New(path, cipher, testLogger())
	require.NoError(t, reopened.Load())
	assert.Equal(t, []LeaderboardEntry{{UserID: 1, Score: 10}}, reopened.Leaderboard(100, 1))
}

func TestLegacyTimestampNormalizedOnLoad(t *testing.T) {
	cipher, err := securebox.New([]byte("secret"))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "state.enc")

	// A snapshot written by an older deployment: naive ISO timestamps and
	// string-keyed tables.
	legacy := []byte(`{
		"admins": ["1"],
		"admin_profiles": {"1": {"username": "alice"}},
		"applications": {"10": {"full_name": "User", "answer": "Answer", "created_at": "2024-05-01T10:20:30.123456"}},
		"application_history": {"10": {"status": "pending", "updated_at": "2024-05-01 10:20:30"}},
		"xp": {"100": {"1": 5}},
		"cups": {"100": [{"title": "Cup", "description": "", "podium": ["A"], "created_at": "2024-04-01T00:00:00"}]}
	}`)

	sealed, err := cipher.Encrypt(legacy)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, sealed, 0o600))

	store := New(path, cipher, testLogger())
	require.NoError(t, store.Load())

	app, ok := store.Application(10)
	require.True(t, ok)
	assert.Equal(t, "2024-05-01T10:20:30Z", app.CreatedAt)

	entry, ok := store.Status(10)
	require.True(t, ok)
	assert.Equal(t, "2024-05-01T10:20:30Z", entry.UpdatedAt)

	cups := store.Cups(100, 1)
	require.Len(t, cups, 1)
	assert.Equal(t, "2024-04-01T00:00:00Z", cups[0].CreatedAt)

	admins := store.Admins()
	require.Len(t, admins, 1)
	assert.Equal(t, int64(1), admins[0].UserID)
	assert.Equal(t, "alice", admins[0].Username)
}
