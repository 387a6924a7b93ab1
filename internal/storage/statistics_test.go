package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guildgate/guildgate-bot/internal/application"
)

func TestStatisticsEmpty(t *testing.T) {
	store := newTestStore(t)

	stats := store.Statistics()
	assert.Zero(t, stats.Pending)
	assert.Zero(t, stats.Total)
	assert.Zero(t, stats.AveragePendingAnswerLength)
	assert.Empty(t, stats.RecentUpdates)
}

func TestStatisticsAggregates(t *testing.T) {
	store := newTestStore(t)

	current := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time {
		current = current.Add(time.Minute)
		return current
	}

	_, err := store.Submit(SubmitRequest{UserID: 1, FullName: "A", Answer: "abcd", LanguageCode: "en"})
	require.NoError(t, err)
	_, err = store.Submit(SubmitRequest{UserID: 2, FullName: "B", Answer: "abcdefgh", LanguageCode: "fa"})
	require.NoError(t, err)
	_, err = store.Submit(SubmitRequest{UserID: 3, FullName: "C", Answer: "xy", LanguageCode: "fa"})
	require.NoError(t, err)

	_, err = store.Decide(3, false, "")
	require.NoError(t, err)

	stats := store.Statistics()

	assert.Equal(t, 2, stats.Pending)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.StatusCounts["pending"])
	assert.Equal(t, 1, stats.StatusCounts["denied"])
	assert.Equal(t, 1, stats.Languages["en"])
	assert.Equal(t, 2, stats.Languages["fa"])
	assert.InDelta(t, 6.0, stats.AveragePendingAnswerLength, 0.001)

	require.NotEmpty(t, stats.RecentUpdates)
	assert.Equal(t, int64(3), stats.RecentUpdates[0].UserID, "latest update first")
	assert.Equal(t, application.StatusDenied, stats.RecentUpdates[0].Status)
}

func TestStatisticsRecentUpdatesCapped(t *testing.T) {
	store := newTestStore(t)

	current := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time {
		current = current.Add(time.Minute)
		return current
	}

	for id := int64(1); id <= 8; id++ {
		_, err := store.Submit(SubmitRequest{UserID: id, FullName: "U", Answer: "a"})
		require.NoError(t, err)
	}

	stats := store.Statistics()
	assert.Len(t, stats.RecentUpdates, recentUpdateLimit)
	assert.Equal(t, int64(8), stats.RecentUpdates[0].UserID)
}
