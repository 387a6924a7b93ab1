package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/guildgate/guildgate-bot/internal/i18n"
	"github.com/guildgate/guildgate-bot/internal/ratelimit"
	"github.com/guildgate/guildgate-bot/internal/storage"
	"github.com/guildgate/guildgate-bot/pkg/config"
	"github.com/guildgate/guildgate-bot/pkg/metrics"
)

// Group bundles the group-chat engagement handlers: message XP, the
// leaderboard, and trophy tracking.
type Group struct {
	store  *storage.Store
	gate   *ratelimit.Gate
	i18n   *i18n.Manager
	xp     config.XPConfig
	cups   config.CupsConfig
	botCfg config.BotConfig
	log    *slog.Logger
}

// NewGroup wires the group-chat handlers.
func NewGroup(
	store *storage.Store,
	gate *ratelimit.Gate,
	i18nM *i18n.Manager,
	xp config.XPConfig,
	cups config.CupsConfig,
	botCfg config.BotConfig,
	log *slog.Logger,
) *Group {
	if log == nil {
		log = slog.Default()
	}

	return &Group{
		store:  store,
		gate:   gate,
		i18n:   i18nM,
		xp:     xp,
		cups:   cups,
		botCfg: botCfg,
		log:    log,
	}
}

// Activity awards XP for ordinary group messages and announces milestones.
func (g *Group) Activity() Handler {
	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil || !isGroup(c) {
			return nil
		}

		userID := c.Sender().ID
		if g.gate != nil {
			if allowed, _ := g.gate.AllowMessage(context.Background(), userID); !allowed {
				// skip the award without replying in the chat
				return nil
			}
		}

		reward := g.xp.MessageReward
		if reward <= 0 {
			return nil
		}

		total, err := g.store.AddXP(c.Chat().ID, userID, reward)
		if err != nil {
			return err
		}
		metrics.RecordXPAwarded(reward)

		if g.isMilestone(total) {
			tr := g.i18n.Translator(g.botCfg.DefaultLang)
			if err := c.Send(tr.Tf("group.xp_updated", displayName(c.Sender()), total)); err != nil {
				g.log.Warn("failed to announce xp milestone",
					slog.Int64("chat_id", c.Chat().ID), slog.Any("error", err))
			}
		}
		return nil
	}
}

// XPCmd renders the chat leaderboard.
func (g *Group) XPCmd() Handler {
	return func(c telebot.Context) error {
		if c == nil || !isGroup(c) {
			return nil
		}

		tr := g.i18n.Translator(g.botCfg.DefaultLang)
		entries := g.store.Leaderboard(c.Chat().ID, g.xp.LeaderboardSize)
		if len(entries) == 0 {
			return c.Send(tr.T("group.no_data"))
		}

		lines := make([]string, 0, len(entries)+1)
		lines = append(lines, tr.T("group.xp_leaderboard_title"))
		for i, entry := range entries {
			lines = append(lines, fmt.Sprintf("%d. %d — %d XP", i+1, entry.UserID, entry.Score))
		}
		return c.Send(strings.Join(lines, "\n"))
	}
}

// CupsCmd renders the chat trophy history, newest first.
func (g *Group) CupsCmd() Handler {
	return func(c telebot.Context) error {
		if c == nil || !isGroup(c) {
			return nil
		}

		tr := g.i18n.Translator(g.botCfg.DefaultLang)
		cups := g.store.Cups(c.Chat().ID, g.cups.ListSize)
		if len(cups) == 0 {
			return c.Send(tr.T("group.no_data"))
		}

		lines := make([]string, 0, len(cups)+1)
		lines = append(lines, tr.T("group.cups_title"))
		for _, cup := range cups {
			lines = append(lines, formatCup(cup))
		}
		return c.Send(strings.Join(lines, "\n"))
	}
}

// AddCup records a trophy from "/add_cup title | description | podium".
// Admin only.
func (g *Group) AddCup() Handler {
	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil || !isGroup(c) {
			return nil
		}

		tr := g.i18n.Translator(g.botCfg.DefaultLang)
		if c.Sender().ID != g.botCfg.OwnerID && !g.store.IsAdmin(c.Sender().ID) {
			return c.Send(tr.T("dm.admin_only"))
		}

		title, description, podium, ok := ParseCupPayload(payload(c))
		if !ok {
			return c.Send(tr.T("group.cup_usage"))
		}

		if err := g.store.AddCup(c.Chat().ID, title, description, podium); err != nil {
			return err
		}
		return c.Send(tr.Tf("group.cup_added", title))
	}
}

func (g *Group) isMilestone(total int) bool {
	if g.xp.MilestoneEvery <= 0 || g.xp.MessageReward <= 0 {
		return false
	}
	return total%(g.xp.MessageReward*g.xp.MilestoneEvery) == 0
}

// ParseCupPayload splits "title | description | first,second,third" into its
// parts. The title is mandatory; description and podium may be empty.
func ParseCupPayload(payload string) (title, description string, podium []string, ok bool) {
	parts := strings.SplitN(payload, "|", 3)
	title = strings.TrimSpace(parts[0])
	if title == "" {
		return "", "", nil, false
	}

	if len(parts) > 1 {
		description = strings.TrimSpace(parts[1])
	}
	if len(parts) > 2 {
		for _, name := range strings.Split(parts[2], ",") {
			if trimmed := strings.TrimSpace(name); trimmed != "" {
				podium = append(podium, trimmed)
			}
		}
	}
	return title, description, podium, true
}

func formatCup(cup storage.Cup) string {
	line := "🏆 " + cup.Title
	if cup.Description != "" {
		line += " — " + cup.Description
	}
	if len(cup.Podium) > 0 {
		line += " (" + strings.Join(cup.Podium, ", ") + ")"
	}
	return line
}

func isGroup(c telebot.Context) bool {
	chat := c.Chat()
	if chat == nil {
		return false
	}
	return chat.Type == telebot.ChatGroup || chat.Type == telebot.ChatSuperGroup
}
