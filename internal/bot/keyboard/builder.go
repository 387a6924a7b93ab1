package keyboard

import (
	"log/slog"
	"strconv"

	telebot "gopkg.in/telebot.v3"

	"github.com/guildgate/guildgate-bot/internal/i18n"
)

// Callback data prefixes shared between the builder and the router.
const (
	ApplyData         = "apply"
	ReviewApprovePref = "review_approve_"
	ReviewDenyPref    = "review_deny_"
	NoteSkipData      = "note_skip"
)

// Builder creates inline keyboards for the membership flows.
type Builder struct {
	log *slog.Logger
}

// NewBuilder returns a new Builder instance.
func NewBuilder(log *slog.Logger) *Builder {
	if log == nil {
		log = slog.Default()
	}
	return &Builder{log: log}
}

// Welcome builds the private-chat welcome menu with the apply button.
func (b *Builder) Welcome(tr i18n.Translator) *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{}
	markup.InlineKeyboard = [][]telebot.InlineButton{
		{
			{
				Text: tr.T("dm.apply_button"),
				Data: ApplyData,
			},
		},
	}
	return markup
}

// Review builds approve and deny buttons for one pending application.
func (b *Builder) Review(tr i18n.Translator, userID int64) *telebot.ReplyMarkup {
	id := strconv.FormatInt(userID, 10)
	markup := &telebot.ReplyMarkup{}
	markup.InlineKeyboard = [][]telebot.InlineButton{
		{
			{
				Text: tr.T("dm.approve_button"),
				Data: ReviewApprovePref + id,
			},
			{
				Text: tr.T("dm.deny_button"),
				Data: ReviewDenyPref + id,
			},
		},
	}
	return markup
}

// NoteSkip builds the single skip button shown while a reviewer note is awaited.
func (b *Builder) NoteSkip(tr i18n.Translator) *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{}
	markup.InlineKeyboard = [][]telebot.InlineButton{
		{
			{
				Text: tr.T("dm.skip_button"),
				Data: NoteSkipData,
			},
		},
	}
	return markup
}

// ReviewTarget extracts the applicant ID from review callback data.
func ReviewTarget(data, prefix string) (int64, bool) {
	if len(data) <= len(prefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(data[len(prefix):], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
