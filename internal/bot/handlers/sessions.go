package handlers

import (
	"sync"

	"github.com/guildgate/guildgate-bot/internal/storage"
)

// IntakeSession tracks a user's progress through the application questions.
type IntakeSession struct {
	Step      int
	Responses []storage.Response
	Lang      string
}

// ReviewSession tracks a reviewer who was asked for a decision note.
type ReviewSession struct {
	Application storage.Application
	Approve     bool
}

// Sessions holds per-user conversation state. It lives only in memory; a
// restart drops in-flight conversations but never persisted data.
type Sessions struct {
	mu      sync.Mutex
	intake  map[int64]*IntakeSession
	reviews map[int64]*ReviewSession
}

// NewSessions returns an empty session registry.
func NewSessions() *Sessions {
	return &Sessions{
		intake:  make(map[int64]*IntakeSession),
		reviews: make(map[int64]*ReviewSession),
	}
}

// StartIntake opens a fresh intake conversation, replacing any stale one.
func (s *Sessions) StartIntake(userID int64, lang string) *IntakeSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := &IntakeSession{Lang: lang}
	s.intake[userID] = session
	return session
}

// Intake returns the active intake conversation, if any.
func (s *Sessions) Intake(userID int64) (*IntakeSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.intake[userID]
	return session, ok
}

// EndIntake closes the intake conversation and reports whether one existed.
func (s *Sessions) EndIntake(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.intake[userID]
	delete(s.intake, userID)
	return ok
}

// StartReview records that a reviewer owes a note for the given application.
func (s *Sessions) StartReview(reviewerID int64, app storage.Application, approve bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reviews[reviewerID] = &ReviewSession{Application: app, Approve: approve}
}

// Review returns the reviewer's pending note prompt, if any.
func (s *Sessions) Review(reviewerID int64) (*ReviewSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.reviews[reviewerID]
	return session, ok
}

// EndReview closes the reviewer's note prompt.
func (s *Sessions) EndReview(reviewerID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.reviews, reviewerID)
}
