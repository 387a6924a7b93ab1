package storage

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/guildgate/guildgate-bot/internal/application"
	"github.com/guildgate/guildgate-bot/internal/securebox"
)

// SubmitResult reports the outcome of a submission attempt. Negative outcomes
// are expected business results, not faults.
type SubmitResult int

const (
	// SubmitAccepted means the application was created.
	SubmitAccepted SubmitResult = iota
	// SubmitDuplicate means a pending application already exists for the user.
	SubmitDuplicate
	// SubmitAlreadyApproved means the user's history shows an approved
	// application, which blocks reapplication.
	SubmitAlreadyApproved
)

// SubmitRequest carries an application submission. Either Answer (legacy
// free-text) or Responses (structured intake) must be set; when Responses is
// set, a flattened summary is derived into Answer.
type SubmitRequest struct {
	UserID       int64
	FullName     string
	Username     string
	Answer       string
	Responses    []Response
	LanguageCode string
}

// Store owns the encrypted snapshot file and the in-memory state it mirrors.
// One mutex serializes every mutation together with its persist, so no two
// operations ever interleave their snapshot writes. Reads take the same lock
// briefly and perform no I/O.
//
// Failed-save discipline: when the snapshot write fails after the in-memory
// mutation was applied, memory keeps the change and the error is returned to
// the caller; the on-disk file is guaranteed untouched (see atomicWrite) and
// the next successful save reconciles disk with memory.
type Store struct {
	mu     sync.Mutex
	path   string
	cipher *securebox.Cipher
	log    *slog.Logger

	st state

	// lastSaveErr remembers the most recent persist failure until a later
	// persist succeeds; health checks surface it.
	lastSaveErr error

	// now and preRename are test seams.
	now       func() time.Time
	preRename func() error
}

// New constructs a Store over the given snapshot path. Call Load before use.
func New(path string, cipher *securebox.Cipher, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}

	return &Store{
		path:   path,
		cipher: cipher,
		log:    log,
		st:     newState(),
		now:    time.Now,
	}
}

// Admins

// AddAdmin promotes a user and merges optional profile metadata. It reports
// whether the admin set changed; profile fields are never overwritten with
// emptier data, so repeated promotions only enrich the record.
func (s *Store) AddAdmin(userID int64, username, fullName string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile := s.st.profiles[userID]
	profile.UserID = userID
	if username != "" {
		profile.Username = username
	}
	if fullName != "" {
		profile.FullName = fullName
	}
	s.st.profiles[userID] = profile

	if s.isAdminLocked(userID) {
		// Metadata-only update still has to reach disk.
		return false, s.persistLocked("add_admin")
	}

	s.st.admins = append(s.st.admins, userID)
	return true, s.persistLocked("add_admin")
}

// RemoveAdmin demotes a user, reporting whether anything changed.
func (s *Store) RemoveAdmin(userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, id := range s.st.admins {
		if id == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, nil
	}

	s.st.admins = append(s.st.admins[:idx], s.st.admins[idx+1:]...)
	delete(s.st.profiles, userID)

	return true, s.persistLocked("remove_admin")
}

// IsAdmin reports whether the user is in the admin set.
func (s *Store) IsAdmin(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.isAdminLocked(userID)
}

// Admins returns the admin records in promotion order.
func (s *Store) Admins() []AdminProfile {
	s.mu.Lock()
	defer s.mu.Unlock()

	admins := make([]AdminProfile, 0, len(s.st.admins))
	for _, id := range s.st.admins {
		profile, ok := s.st.profiles[id]
		if !ok {
			profile = AdminProfile{UserID: id}
		}
		admins = append(admins, profile)
	}

	return admins
}

func (s *Store) isAdminLocked(userID int64) bool {
	for _, id := range s.st.admins {
		if id == userID {
			return true
		}
	}
	return false
}

// Applications

// Submit creates a pending application unless one already exists or the user
// is still approved. The application and its history entry share one
// timestamp.
func (s *Store) Submit(req SubmitRequest) (SubmitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.st.apps[req.UserID]; exists {
		return SubmitDuplicate, nil
	}

	prior := s.st.history[req.UserID].Status
	if prior == application.StatusApproved {
		return SubmitAlreadyApproved, nil
	}

	answer := req.Answer
	if len(req.Responses) > 0 {
		answer = flattenResponses(req.Responses)
	}

	createdAt := FormatTimestamp(s.now())

	s.st.apps[req.UserID] = Application{
		UserID:       req.UserID,
		FullName:     req.FullName,
		Username:     req.Username,
		Answer:       answer,
		Responses:    req.Responses,
		CreatedAt:    createdAt,
		LanguageCode: req.LanguageCode,
	}
	s.st.history[req.UserID] = HistoryEntry{
		Status:       application.StatusPending,
		UpdatedAt:    createdAt,
		LanguageCode: req.LanguageCode,
	}

	application.RecordTransition(prior, application.StatusPending)

	return SubmitAccepted, s.persistLocked("submit")
}

// Withdraw removes the user's pending application and records the withdrawal,
// preserving the language code of the submission. It reports false when no
// pending application exists.
func (s *Store) Withdraw(userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	app, exists := s.st.apps[userID]
	if !exists {
		return false, nil
	}

	delete(s.st.apps, userID)
	s.st.history[userID] = HistoryEntry{
		Status:       application.StatusWithdrawn,
		UpdatedAt:    FormatTimestamp(s.now()),
		LanguageCode: app.LanguageCode,
	}

	application.RecordTransition(application.StatusPending, application.StatusWithdrawn)

	return true, s.persistLocked("withdraw")
}

// PopApplication removes and returns the pending application without writing
// a decision yet. Adapters use it to present the record for a note prompt
// before calling FinalizeDecision.
func (s *Store) PopApplication(userID int64) (Application, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	app, exists := s.st.apps[userID]
	if !exists {
		return Application{}, false, nil
	}

	delete(s.st.apps, userID)

	return app, true, s.persistLocked("pop_application")
}

// FinalizeDecision writes the approval or denial history entry for a user
// whose application was already popped. An empty languageCode keeps whatever
// the history entry already carries.
func (s *Store) FinalizeDecision(userID int64, approve bool, note, languageCode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.recordDecisionLocked(userID, approve, note, languageCode)
}

// Decide pops the pending application and records the decision as one
// operation. It reports false ("nothing to do") when no pending application
// exists; that is not an error and no history is written.
func (s *Store) Decide(userID int64, approve bool, note string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	app, exists := s.st.apps[userID]
	if !exists {
		return false, nil
	}

	delete(s.st.apps, userID)

	return true, s.recordDecisionLocked(userID, approve, note, app.LanguageCode)
}

func (s *Store) recordDecisionLocked(userID int64, approve bool, note, languageCode string) error {
	status := application.StatusDenied
	if approve {
		status = application.StatusApproved
	}

	if languageCode == "" {
		languageCode = s.st.history[userID].LanguageCode
	}

	s.st.history[userID] = HistoryEntry{
		Status:       status,
		UpdatedAt:    FormatTimestamp(s.now()),
		Note:         note,
		LanguageCode: languageCode,
	}

	application.RecordTransition(application.StatusPending, status)

	return s.persistLocked("decide")
}

// HasApplication reports whether a pending application exists for the user.
func (s *Store) HasApplication(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, exists := s.st.apps[userID]
	return exists
}

// Application returns the pending application for the user, if any.
func (s *Store) Application(userID int64) (Application, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	app, exists := s.st.apps[userID]
	return app, exists
}

// PendingApplications returns all pending applications, oldest first.
func (s *Store) PendingApplications() []Application {
	s.mu.Lock()
	defer s.mu.Unlock()

	apps := make([]Application, 0, len(s.st.apps))
	for _, app := range s.st.apps {
		apps = append(apps, app)
	}

	sortApplicationsByCreation(apps)

	return apps
}

// Status returns the user's history entry, if one was ever written.
func (s *Store) Status(userID int64) (HistoryEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.st.history[userID]
	return entry, exists
}

// Engagement ledger

// AddXP accumulates XP for a user in a chat and returns the new total.
// Non-positive amounts change nothing; scores only ever grow.
func (s *Store) AddXP(chatID, userID int64, amount int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	scores := s.st.xp[chatID]
	if scores == nil {
		scores = make(map[int64]int)
		s.st.xp[chatID] = scores
	}

	if amount <= 0 {
		return scores[userID], nil
	}

	scores[userID] += amount
	total := scores[userID]

	return total, s.persistLocked("add_xp")
}

// Leaderboard returns up to limit entries for the chat, best score first.
func (s *Store) Leaderboard(chatID int64, limit int) []LeaderboardEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.st.leaderboard(chatID, limit)
}

// AddCup appends a trophy record for the chat.
func (s *Store) AddCup(chatID int64, title, description string, podium []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cup := Cup{
		Title:       title,
		Description: description,
		Podium:      append([]string(nil), podium...),
		CreatedAt:   FormatTimestamp(s.now()),
	}
	s.st.cups[chatID] = append(s.st.cups[chatID], cup)

	return s.persistLocked("add_cup")
}

// Cups returns up to limit cups for the chat, newest first.
func (s *Store) Cups(chatID int64, limit int) []Cup {
	s.mu.Lock()
	defer s.mu.Unlock()

	cups := s.st.cups[chatID]
	if len(cups) == 0 || limit <= 0 {
		return nil
	}

	ordered := append([]Cup(nil), cups...)
	sortCupsByCreationDesc(ordered)

	if len(ordered) > limit {
		ordered = ordered[:limit]
	}

	return ordered
}

// flattenResponses derives the legacy free-text summary from structured
// intake answers, for display and back-compat with single-answer records.
func flattenResponses(responses []Response) string {
	parts := make([]string, 0, len(responses))
	for _, r := range responses {
		if r.Question != "" {
			parts = append(parts, r.Question+": "+r.Answer)
			continue
		}
		parts = append(parts, r.Answer)
	}
	return strings.Join(parts, "\n")
}
