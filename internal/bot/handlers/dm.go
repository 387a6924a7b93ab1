package handlers

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/guildgate/guildgate-bot/internal/application"
	"github.com/guildgate/guildgate-bot/internal/bot/keyboard"
	apperrors "github.com/guildgate/guildgate-bot/internal/errors"
	"github.com/guildgate/guildgate-bot/internal/i18n"
	"github.com/guildgate/guildgate-bot/internal/ratelimit"
	"github.com/guildgate/guildgate-bot/internal/storage"
	"github.com/guildgate/guildgate-bot/pkg/config"
)

const freeformQuestionID = "motivation"

// DM bundles the private-chat membership flows: the application intake
// conversation, status queries, and the admin review loop.
type DM struct {
	store    *storage.Store
	sessions *Sessions
	kb       *keyboard.Builder
	i18n     *i18n.Manager
	gate     *ratelimit.Gate
	botCfg   config.BotConfig
	intake   config.IntakeConfig
	log      *slog.Logger
}

// NewDM wires the private-chat handlers.
func NewDM(
	store *storage.Store,
	sessions *Sessions,
	kb *keyboard.Builder,
	i18nM *i18n.Manager,
	gate *ratelimit.Gate,
	botCfg config.BotConfig,
	intake config.IntakeConfig,
	log *slog.Logger,
) *DM {
	if log == nil {
		log = slog.Default()
	}

	return &DM{
		store:    store,
		sessions: sessions,
		kb:       kb,
		i18n:     i18nM,
		gate:     gate,
		botCfg:   botCfg,
		intake:   intake,
		log:      log,
	}
}

// Start greets the user and offers the apply button.
func (d *DM) Start() Handler {
	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil || !isPrivate(c) {
			return nil
		}

		tr := d.translator(c)
		return c.Send(tr.T("dm.welcome"), d.kb.Welcome(tr))
	}
}

// Apply handles the inline apply button and opens the intake conversation.
func (d *DM) Apply() CallbackHandler {
	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		_ = c.Respond()
		tr := d.translator(c)
		userID := c.Sender().ID

		if d.gate != nil {
			if allowed, retryAfter := d.gate.AllowSubmit(context.Background(), userID); !allowed {
				return c.Send(tr.Tf("common.rate_limited", retryAfter))
			}
		}

		if d.store.HasApplication(userID) {
			return c.Send(tr.T("dm.application_duplicate"))
		}
		if entry, ok := d.store.Status(userID); ok && entry.Status == application.StatusApproved {
			return c.Send(tr.T("dm.application_already_approved"))
		}

		d.sessions.StartIntake(userID, tr.Lang())

		if err := c.Send(tr.T("dm.application_started")); err != nil {
			return err
		}
		return c.Send(d.questionPrompt(tr, 0))
	}
}

// Conversation consumes plain private-chat text: reviewer notes first, then
// intake answers. Unrelated messages are ignored.
func (d *DM) Conversation() Handler {
	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil || !isPrivate(c) {
			return nil
		}

		senderID := c.Sender().ID
		text := strings.TrimSpace(c.Text())
		if text == "" {
			return nil
		}

		if review, ok := d.sessions.Review(senderID); ok {
			return d.finalize(c, senderID, review, text)
		}

		session, ok := d.sessions.Intake(senderID)
		if !ok {
			return nil
		}

		return d.recordAnswer(c, session, text)
	}
}

// Cancel aborts an in-flight intake conversation.
func (d *DM) Cancel() Handler {
	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil || !isPrivate(c) {
			return nil
		}

		tr := d.translator(c)
		if d.sessions.EndIntake(c.Sender().ID) {
			return c.Send(tr.T("dm.application_cancelled"))
		}
		return c.Send(tr.T("dm.no_application"))
	}
}

// StatusCmd reports the caller's latest application status.
func (d *DM) StatusCmd() Handler {
	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil || !isPrivate(c) {
			return nil
		}

		tr := d.translator(c)
		entry, ok := d.store.Status(c.Sender().ID)
		if !ok {
			return c.Send(tr.T("dm.status_none"))
		}

		msg := tr.T(statusKey(entry.Status))
		if entry.Note != "" {
			msg += "\n" + tr.Tf("dm.status_note", entry.Note)
		}
		return c.Send(msg)
	}
}

// Withdraw retracts the caller's pending application.
func (d *DM) Withdraw() Handler {
	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil || !isPrivate(c) {
			return nil
		}

		tr := d.translator(c)
		userID := c.Sender().ID
		d.sessions.EndIntake(userID)

		changed, err := d.store.Withdraw(userID)
		if err != nil {
			return err
		}
		if !changed {
			return c.Send(tr.T("dm.no_application"))
		}
		return c.Send(tr.T("dm.application_withdrawn"))
	}
}

// Pending lists pending applications with review keyboards. Admin only.
func (d *DM) Pending() Handler {
	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil || !isPrivate(c) {
			return nil
		}

		tr := d.translator(c)
		if !d.isReviewer(c.Sender().ID) {
			return c.Send(tr.T("dm.admin_only"))
		}

		pending := d.store.PendingApplications()
		if len(pending) == 0 {
			return c.Send(tr.T("dm.no_pending"))
		}

		for _, app := range pending {
			text := tr.Tf("dm.application_item", app.FullName, app.UserID, app.CreatedAt, app.Answer)
			if err := c.Send(text, d.kb.Review(tr, app.UserID)); err != nil {
				return err
			}
		}
		return nil
	}
}

// Promote adds an admin. Owner only.
func (d *DM) Promote() Handler {
	return func(c telebot.Context) error {
		return d.manageAdmin(c, true)
	}
}

// Demote removes an admin. Owner only.
func (d *DM) Demote() Handler {
	return func(c telebot.Context) error {
		return d.manageAdmin(c, false)
	}
}

// AdminsCmd lists registered admins. Admin only.
func (d *DM) AdminsCmd() Handler {
	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil || !isPrivate(c) {
			return nil
		}

		tr := d.translator(c)
		if !d.isReviewer(c.Sender().ID) {
			return c.Send(tr.T("dm.admin_only"))
		}

		admins := d.store.Admins()
		if len(admins) == 0 {
			return c.Send(tr.T("dm.no_admins"))
		}

		lines := make([]string, 0, len(admins)+1)
		lines = append(lines, tr.T("dm.admin_list_header"))
		for _, admin := range admins {
			lines = append(lines, formatAdmin(admin))
		}
		return c.Send(strings.Join(lines, "\n"))
	}
}

// Approve handles the approve review button.
func (d *DM) Approve() CallbackHandler {
	return d.review(true, keyboard.ReviewApprovePref)
}

// Deny handles the deny review button.
func (d *DM) Deny() CallbackHandler {
	return d.review(false, keyboard.ReviewDenyPref)
}

// NoteSkip finalizes the pending decision without a reviewer note.
func (d *DM) NoteSkip() CallbackHandler {
	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		_ = c.Respond()
		reviewerID := c.Sender().ID
		review, ok := d.sessions.Review(reviewerID)
		if !ok {
			return nil
		}
		return d.finalize(c, reviewerID, review, "")
	}
}

func (d *DM) review(approve bool, prefix string) CallbackHandler {
	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil || c.Callback() == nil {
			return nil
		}

		_ = c.Respond()
		tr := d.translator(c)
		reviewerID := c.Sender().ID
		if !d.isReviewer(reviewerID) {
			return c.Send(tr.T("dm.admin_only"))
		}

		target, ok := keyboard.ReviewTarget(strings.TrimSpace(c.Callback().Data), prefix)
		if !ok {
			return nil
		}

		app, found, err := d.store.PopApplication(target)
		if err != nil {
			return err
		}
		if !found {
			return c.Send(tr.T("dm.nothing_to_do"))
		}

		d.sessions.StartReview(reviewerID, app, approve)
		return c.Send(tr.T("dm.note_prompt"), d.kb.NoteSkip(tr))
	}
}

func (d *DM) finalize(c telebot.Context, reviewerID int64, review *ReviewSession, note string) error {
	app := review.Application
	if err := d.store.FinalizeDecision(app.UserID, review.Approve, note, app.LanguageCode); err != nil {
		return err
	}
	d.sessions.EndReview(reviewerID)

	tr := d.translator(c)
	adminKey := "dm.decision_denied_admin"
	userKey := "dm.decision_denied_user"
	if review.Approve {
		adminKey = "dm.decision_approved_admin"
		userKey = "dm.decision_approved_user"
	}

	trUser := d.i18n.Translator(app.LanguageCode)
	userMsg := trUser.T(userKey)
	if note != "" {
		userMsg += "\n" + trUser.Tf("dm.status_note", note)
	}

	if err := d.sendWithRetry(c, &telebot.User{ID: app.UserID}, userMsg, nil); err != nil {
		d.log.Warn("failed to notify applicant about decision",
			slog.Int64("user_id", app.UserID), slog.Any("error", err))
	}

	return c.Send(tr.T(adminKey))
}

func (d *DM) recordAnswer(c telebot.Context, session *IntakeSession, text string) error {
	tr := d.i18n.Translator(session.Lang)

	questionID := freeformQuestionID
	question := tr.T("dm.application_question")
	if len(d.intake.Questions) > 0 {
		q := d.intake.Questions[session.Step]
		questionID, question = q.ID, q.Prompt
	}

	session.Responses = append(session.Responses, storage.Response{
		QuestionID: questionID,
		Question:   question,
		Answer:     text,
	})
	session.Step++

	if session.Step < len(d.intake.Questions) {
		return c.Send(d.questionPrompt(tr, session.Step))
	}

	return d.submit(c, session)
}

func (d *DM) submit(c telebot.Context, session *IntakeSession) error {
	sender := c.Sender()
	tr := d.i18n.Translator(session.Lang)

	result, err := d.store.Submit(storage.SubmitRequest{
		UserID:       sender.ID,
		FullName:     displayName(sender),
		Username:     sender.Username,
		Responses:    session.Responses,
		LanguageCode: session.Lang,
	})
	if err != nil {
		return err
	}
	d.sessions.EndIntake(sender.ID)

	switch result {
	case storage.SubmitDuplicate:
		return c.Send(tr.T("dm.application_duplicate"))
	case storage.SubmitAlreadyApproved:
		return c.Send(tr.T("dm.application_already_approved"))
	}

	d.notifyReviewChat(c, sender.ID)
	return c.Send(tr.T("dm.application_received"))
}

func (d *DM) notifyReviewChat(c telebot.Context, userID int64) {
	if d.botCfg.ReviewChatID == 0 {
		return
	}

	app, ok := d.store.Application(userID)
	if !ok {
		return
	}

	tr := d.i18n.Translator(d.botCfg.DefaultLang)
	text := tr.Tf("dm.application_item", app.FullName, app.UserID, app.CreatedAt, app.Answer)
	if err := d.sendWithRetry(c, &telebot.Chat{ID: d.botCfg.ReviewChatID}, text, d.kb.Review(tr, app.UserID)); err != nil {
		d.log.Warn("failed to notify review chat",
			slog.Int64("user_id", app.UserID), slog.Any("error", err))
	}
}

// sendWithRetry delivers out-of-band notifications with backoff; the Telegram
// API drops messages occasionally under load.
func (d *DM) sendWithRetry(c telebot.Context, to telebot.Recipient, text string, markup *telebot.ReplyMarkup) error {
	return apperrors.WithRetry(context.Background(), func() error {
		var err error
		if markup != nil {
			_, err = c.Bot().Send(to, text, markup)
		} else {
			_, err = c.Bot().Send(to, text)
		}
		if err != nil {
			return apperrors.NewTelegramError(err)
		}
		return nil
	})
}

func (d *DM) manageAdmin(c telebot.Context, promote bool) error {
	if c == nil || c.Sender() == nil || !isPrivate(c) {
		return nil
	}

	tr := d.translator(c)
	if c.Sender().ID != d.botCfg.OwnerID {
		return c.Send(tr.T("dm.not_owner"))
	}

	target, err := strconv.ParseInt(strings.TrimSpace(payload(c)), 10, 64)
	if err != nil || target <= 0 {
		return c.Send(tr.T("dm.provide_user_id"))
	}

	if promote {
		added, err := d.store.AddAdmin(target, "", "")
		if err != nil {
			return err
		}
		if !added {
			return c.Send(tr.Tf("dm.already_admin", target))
		}
		return c.Send(tr.Tf("dm.admin_added", target))
	}

	removed, err := d.store.RemoveAdmin(target)
	if err != nil {
		return err
	}
	if !removed {
		return c.Send(tr.Tf("dm.not_admin", target))
	}
	return c.Send(tr.Tf("dm.admin_removed", target))
}

func (d *DM) questionPrompt(tr i18n.Translator, step int) string {
	if len(d.intake.Questions) == 0 {
		return tr.T("dm.application_question")
	}
	return d.intake.Questions[step].Prompt
}

func (d *DM) isReviewer(userID int64) bool {
	return userID == d.botCfg.OwnerID || d.store.IsAdmin(userID)
}

func (d *DM) translator(c telebot.Context) i18n.Translator {
	lang := ""
	if c != nil && c.Sender() != nil {
		lang = c.Sender().LanguageCode
	}
	if lang == "" {
		lang = d.botCfg.DefaultLang
	}
	return d.i18n.Translator(lang)
}

func statusKey(s application.Status) string {
	switch s {
	case application.StatusPending:
		return "dm.status_pending"
	case application.StatusApproved:
		return "dm.status_approved"
	case application.StatusDenied:
		return "dm.status_denied"
	case application.StatusWithdrawn:
		return "dm.status_withdrawn"
	default:
		return "dm.status_none"
	}
}

func formatAdmin(admin storage.AdminProfile) string {
	parts := make([]string, 0, 3)
	if admin.FullName != "" {
		parts = append(parts, admin.FullName)
	}
	if admin.Username != "" {
		parts = append(parts, "@"+admin.Username)
	}
	parts = append(parts, strconv.FormatInt(admin.UserID, 10))
	return "- " + strings.Join(parts, " ")
}

func displayName(u *telebot.User) string {
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name != "" {
		return name
	}
	if u.Username != "" {
		return u.Username
	}
	return strconv.FormatInt(u.ID, 10)
}

func payload(c telebot.Context) string {
	if c.Message() == nil {
		return ""
	}
	return c.Message().Payload
}

func isPrivate(c telebot.Context) bool {
	chat := c.Chat()
	return chat != nil && chat.Type == telebot.ChatPrivate
}
