package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	telebot "gopkg.in/telebot.v3"

	"github.com/guildgate/guildgate-bot/internal/application"
	"github.com/guildgate/guildgate-bot/internal/storage"
)

func TestStatusKey(t *testing.T) {
	assert.Equal(t, "dm.status_pending", statusKey(application.StatusPending))
	assert.Equal(t, "dm.status_approved", statusKey(application.StatusApproved))
	assert.Equal(t, "dm.status_denied", statusKey(application.StatusDenied))
	assert.Equal(t, "dm.status_withdrawn", statusKey(application.StatusWithdrawn))
	assert.Equal(t, "dm.status_none", statusKey(application.StatusNone))
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", displayName(&telebot.User{ID: 1, FirstName: "Ada", LastName: "Lovelace"}))
	assert.Equal(t, "Ada", displayName(&telebot.User{ID: 1, FirstName: "Ada"}))
	assert.Equal(t, "ada", displayName(&telebot.User{ID: 1, Username: "ada"}))
	assert.Equal(t, "1", displayName(&telebot.User{ID: 1}))
}

func TestFormatAdmin(t *testing.T) {
	full := storage.AdminProfile{UserID: 9, Username: "ada", FullName: "Ada Lovelace"}
	assert.Equal(t, "- Ada Lovelace @ada 9", formatAdmin(full))

	bare := storage.AdminProfile{UserID: 9}
	assert.Equal(t, "- 9", formatAdmin(bare))
}
