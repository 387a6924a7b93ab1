package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guildgate/guildgate-bot/internal/storage"
)

func TestIntakeSessionLifecycle(t *testing.T) {
	s := NewSessions()

	_, ok := s.Intake(1)
	assert.False(t, ok)

	session := s.StartIntake(1, "fa")
	require.NotNil(t, session)
	assert.Equal(t, "fa", session.Lang)
	assert.Equal(t, 0, session.Step)

	got, ok := s.Intake(1)
	require.True(t, ok)
	assert.Same(t, session, got)

	assert.True(t, s.EndIntake(1))
	assert.False(t, s.EndIntake(1))
}

func TestStartIntakeReplacesStaleSession(t *testing.T) {
	s := NewSessions()

	first := s.StartIntake(1, "en")
	first.Step = 2

	second := s.StartIntake(1, "en")
	assert.Equal(t, 0, second.Step)

	got, ok := s.Intake(1)
	require.True(t, ok)
	assert.Same(t, second, got)
}

func TestReviewSessionLifecycle(t *testing.T) {
	s := NewSessions()

	app := storage.Application{UserID: 7, FullName: "Applicant"}
	s.StartReview(42, app, true)

	review, ok := s.Review(42)
	require.True(t, ok)
	assert.True(t, review.Approve)
	assert.Equal(t, int64(7), review.Application.UserID)

	s.EndReview(42)
	_, ok = s.Review(42)
	assert.False(t, ok)
}
