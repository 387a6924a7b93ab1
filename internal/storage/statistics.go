package storage

import (
	"sort"

	"github.com/guildgate/guildgate-bot/internal/application"
)

const recentUpdateLimit = 5

// RecentUpdate is one row of the statistics recent-activity feed.
type RecentUpdate struct {
	UserID    int64              `json:"user_id"`
	Status    application.Status `json:"status"`
	UpdatedAt string             `json:"updated_at"`
}

// Statistics is a derived, read-only aggregate over the application state.
// It is recomputed on every call; the model mutates rarely compared to how
// often reporting endpoints read it.
type Statistics struct {
	Pending                    int            `json:"pending"`
	Total                      int            `json:"total"`
	StatusCounts               map[string]int `json:"status_counts"`
	Languages                  map[string]int `json:"languages"`
	AveragePendingAnswerLength float64        `json:"average_pending_answer_length"`
	RecentUpdates              []RecentUpdate `json:"recent_updates"`
}

// Statistics computes the aggregate application view.
func (s *Store) Statistics() Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Statistics{
		Pending:      len(s.st.apps),
		Total:        len(s.st.history),
		StatusCounts: make(map[string]int),
		Languages:    make(map[string]int),
	}

	for _, entry := range s.st.history {
		stats.StatusCounts[string(entry.Status)]++
		if entry.LanguageCode != "" {
			stats.Languages[entry.LanguageCode]++
		}
	}

	if len(s.st.apps) > 0 {
		var total int
		for _, app := range s.st.apps {
			total += len([]rune(app.Answer))
		}
		stats.AveragePendingAnswerLength = float64(total) / float64(len(s.st.apps))
	}

	stats.RecentUpdates = s.recentUpdatesLocked(recentUpdateLimit)

	return stats
}

func (s *Store) recentUpdatesLocked(limit int) []RecentUpdate {
	if limit <= 0 || len(s.st.history) == 0 {
		return nil
	}

	updates := make([]RecentUpdate, 0, len(s.st.history))
	for userID, entry := range s.st.history {
		updates = append(updates, RecentUpdate{
			UserID:    userID,
			Status:    entry.Status,
			UpdatedAt: entry.UpdatedAt,
		})
	}

	sort.Slice(updates, func(i, j int) bool {
		ti, iok := ParseTimestamp(updates[i].UpdatedAt)
		tj, jok := ParseTimestamp(updates[j].UpdatedAt)
		if iok && jok && !ti.Equal(tj) {
			return ti.After(tj)
		}
		return updates[i].UserID < updates[j].UserID
	})

	if len(updates) > limit {
		updates = updates[:limit]
	}

	return updates
}
