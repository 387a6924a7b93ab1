// Package storage implements the encrypted single-file state store: admins,
// membership applications with their audit history, per-chat XP and cups.
// Every mutating operation rewrites the whole snapshot on disk before it
// returns, so the file is always a complete, decryptable copy of the state.
package storage

import (
	"sort"
	"strconv"

	"github.com/guildgate/guildgate-bot/internal/application"
)

// AdminProfile describes an admin with optional profile metadata.
type AdminProfile struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username,omitempty"`
	FullName string `json:"full_name,omitempty"`
}

// Response is one question/answer pair of a structured intake submission.
type Response struct {
	QuestionID string `json:"question_id"`
	Question   string `json:"question"`
	Answer     string `json:"answer"`
}

// Application is a pending membership application keyed by user ID.
// Answer carries the legacy free-text form; Responses carries the structured
// multi-step form with Answer holding the flattened summary.
type Application struct {
	UserID       int64      `json:"user_id"`
	FullName     string     `json:"full_name"`
	Username     string     `json:"username,omitempty"`
	Answer       string     `json:"answer"`
	Responses    []Response `json:"responses,omitempty"`
	CreatedAt    string     `json:"created_at"`
	LanguageCode string     `json:"language_code,omitempty"`
}

// HistoryEntry is the durable audit record of a user's application status.
// It survives removal of the pending application and is only ever overwritten
// with a newer status, never deleted.
type HistoryEntry struct {
	Status       application.Status `json:"status"`
	UpdatedAt    string             `json:"updated_at"`
	Note         string             `json:"note,omitempty"`
	LanguageCode string             `json:"language_code,omitempty"`
}

// Cup is an appended trophy record for a chat. Cups are never mutated.
type Cup struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Podium      []string `json:"podium"`
	CreatedAt   string   `json:"created_at"`
}

// LeaderboardEntry is one row of a chat XP leaderboard.
type LeaderboardEntry struct {
	UserID int64 `json:"user_id"`
	Score  int   `json:"score"`
}

// state is the in-memory model guarded by the store mutex.
type state struct {
	admins   []int64
	profiles map[int64]AdminProfile
	apps     map[int64]Application
	history  map[int64]HistoryEntry
	xp       map[int64]map[int64]int
	cups     map[int64][]Cup
}

func newState() state {
	return state{
		profiles: make(map[int64]AdminProfile),
		apps:     make(map[int64]Application),
		history:  make(map[int64]HistoryEntry),
		xp:       make(map[int64]map[int64]int),
		cups:     make(map[int64][]Cup),
	}
}

// document is the serialized snapshot layout. Integer identifiers are written
// as strings so the on-disk format stays stable across JSON decoders.
type document struct {
	Admins        []string                  `json:"admins"`
	AdminProfiles map[string]AdminProfile   `json:"admin_profiles"`
	Applications  map[string]Application    `json:"applications"`
	History       map[string]HistoryEntry   `json:"application_history"`
	XP            map[string]map[string]int `json:"xp"`
	Cups          map[string][]Cup          `json:"cups"`
}

func (s *state) toDocument() document {
	doc := document{
		Admins:        make([]string, 0, len(s.admins)),
		AdminProfiles: make(map[string]AdminProfile, len(s.profiles)),
		Applications:  make(map[string]Application, len(s.apps)),
		History:       make(map[string]HistoryEntry, len(s.history)),
		XP:            make(map[string]map[string]int, len(s.xp)),
		Cups:          make(map[string][]Cup, len(s.cups)),
	}

	for _, id := range s.admins {
		doc.Admins = append(doc.Admins, formatID(id))
	}
	for id, profile := range s.profiles {
		doc.AdminProfiles[formatID(id)] = profile
	}
	for id, app := range s.apps {
		doc.Applications[formatID(id)] = app
	}
	for id, entry := range s.history {
		doc.History[formatID(id)] = entry
	}
	for chatID, scores := range s.xp {
		table := make(map[string]int, len(scores))
		for userID, score := range scores {
			table[formatID(userID)] = score
		}
		doc.XP[formatID(chatID)] = table
	}
	for chatID, cups := range s.cups {
		doc.Cups[formatID(chatID)] = cups
	}

	return doc
}

// toState rebuilds the in-memory model from a decoded snapshot, normalizing
// timestamps so records written by older deployments sort and render the same
// as current ones. Unparseable identifier keys are dropped rather than
// poisoning the whole load.
func (d *document) toState() state {
	st := newState()

	for _, raw := range d.Admins {
		if id, ok := parseID(raw); ok {
			st.admins = append(st.admins, id)
		}
	}
	for raw, profile := range d.AdminProfiles {
		if id, ok := parseID(raw); ok {
			profile.UserID = id
			st.profiles[id] = profile
		}
	}
	for raw, app := range d.Applications {
		if id, ok := parseID(raw); ok {
			app.UserID = id
			app.CreatedAt = NormalizeTimestamp(app.CreatedAt)
			st.apps[id] = app
		}
	}
	for raw, entry := range d.History {
		if id, ok := parseID(raw); ok {
			entry.UpdatedAt = NormalizeTimestamp(entry.UpdatedAt)
			st.history[id] = entry
		}
	}
	for rawChat, scores := range d.XP {
		chatID, ok := parseID(rawChat)
		if !ok {
			continue
		}
		table := make(map[int64]int, len(scores))
		for rawUser, score := range scores {
			if userID, ok := parseID(rawUser); ok {
				table[userID] = score
			}
		}
		st.xp[chatID] = table
	}
	for rawChat, cups := range d.Cups {
		chatID, ok := parseID(rawChat)
		if !ok {
			continue
		}
		normalized := make([]Cup, len(cups))
		for i, cup := range cups {
			cup.CreatedAt = NormalizeTimestamp(cup.CreatedAt)
			normalized[i] = cup
		}
		st.cups[chatID] = normalized
	}

	return st
}

// leaderboard returns the chat scores sorted by score descending. Ties are
// broken by ascending user ID so the ordering is deterministic regardless of
// map iteration order.
func (s *state) leaderboard(chatID int64, limit int) []LeaderboardEntry {
	scores := s.xp[chatID]
	if len(scores) == 0 || limit <= 0 {
		return nil
	}

	entries := make([]LeaderboardEntry, 0, len(scores))
	for userID, score := range scores {
		entries = append(entries, LeaderboardEntry{UserID: userID, Score: score})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].UserID < entries[j].UserID
	})

	if len(entries) > limit {
		entries = entries[:limit]
	}

	return entries
}

// sortApplicationsByCreation orders applications oldest first, falling back
// to user ID when timestamps tie or fail to parse.
func sortApplicationsByCreation(apps []Application) {
	sort.Slice(apps, func(i, j int) bool {
		ti, iok := ParseTimestamp(apps[i].CreatedAt)
		tj, jok := ParseTimestamp(apps[j].CreatedAt)
		if iok && jok && !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return apps[i].UserID < apps[j].UserID
	})
}

// sortCupsByCreationDesc orders cups newest first, preserving append order on
// ties via stable sort.
func sortCupsByCreationDesc(cups []Cup) {
	sort.SliceStable(cups, func(i, j int) bool {
		ti, iok := ParseTimestamp(cups[i].CreatedAt)
		tj, jok := ParseTimestamp(cups[j].CreatedAt)
		if iok && jok {
			return ti.After(tj)
		}
		return iok
	})
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
