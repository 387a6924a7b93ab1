package bot

import (
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/guildgate/guildgate-bot/internal/bot/handlers"
	"github.com/guildgate/guildgate-bot/internal/bot/keyboard"
	errors "github.com/guildgate/guildgate-bot/internal/errors"
	"github.com/guildgate/guildgate-bot/internal/i18n"
	"github.com/guildgate/guildgate-bot/internal/ratelimit"
	"github.com/guildgate/guildgate-bot/internal/storage"
	"github.com/guildgate/guildgate-bot/pkg/config"
)

// Bot commands.
const (
	CommandStart    = "/start"
	CommandCancel   = "/cancel"
	CommandStatus   = "/status"
	CommandWithdraw = "/withdraw"
	CommandPending  = "/pending"
	CommandPromote  = "/promote"
	CommandDemote   = "/demote"
	CommandAdmins   = "/admins"
	CommandXP       = "/xp"
	CommandCups     = "/cups"
	CommandAddCup   = "/add_cup"
)

// Bot wraps telebot.Bot with the membership and engagement handlers.
type Bot struct {
	telebot    *telebot.Bot
	log        *slog.Logger
	cfg        *config.Config
	router     *Router
	sessions   *handlers.Sessions
	keyboard   *keyboard.Builder
	errHandler *errors.Handler
}

// New builds a telegram bot instance configured according to the application settings.
func New(
	cfg *config.Config,
	store *storage.Store,
	gate *ratelimit.Gate,
	i18nM *i18n.Manager,
	log *slog.Logger,
) (*Bot, error) {
	if log == nil {
		log = slog.Default()
	}

	token, err := cfg.BotToken()
	if err != nil {
		return nil, err
	}

	tb, err := telebot.NewBot(telebot.Settings{
		Token: token,
		Poller: &telebot.LongPoller{
			Timeout: cfg.Bot.PollTimeout,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("initialize telebot: %w", err)
	}

	kb := keyboard.NewBuilder(log)
	router := NewRouter(log)
	errHandler := errors.NewHandler(log, cfg.Sentry.Enabled)
	sessions := handlers.NewSessions()

	b := &Bot{
		telebot:    tb,
		log:        log,
		cfg:        cfg,
		router:     router,
		sessions:   sessions,
		keyboard:   kb,
		errHandler: errHandler,
	}

	dm := handlers.NewDM(store, sessions, kb, i18nM, gate, cfg.Bot, cfg.Intake, log)
	group := handlers.NewGroup(store, gate, i18nM, cfg.XP, cfg.Cups, cfg.Bot, log)
	b.setupRouter(dm, group, i18nM)
	b.registerTelebotHandlers()

	return b, nil
}

// Start runs the telegram bot event loop.
func (b *Bot) Start() {
	if b.telebot != nil {
		b.telebot.Start()
	}
}

// Stop gracefully stops the telegram bot.
func (b *Bot) Stop() {
	if b.telebot == nil {
		return
	}

	if b.log != nil {
		b.log.Info("stopping telegram bot...")
	}

	b.telebot.Stop()
}

// Telebot exposes the underlying telebot.Bot instance for integrations such as health checks.
func (b *Bot) Telebot() *telebot.Bot {
	return b.telebot
}

func (b *Bot) setupRouter(dm *handlers.DM, group *handlers.Group, i18nM *i18n.Manager) {
	b.router.Use(RecoveryMiddleware(b.log, b.errHandler, i18nM))
	b.router.Use(ErrorHandlingMiddleware(b.errHandler, i18nM))
	b.router.Use(LoggingMiddleware(b.log))
	b.router.Use(MetricsMiddleware())

	b.router.RegisterCommand(CommandStart, dm.Start())
	b.router.RegisterCommand(CommandCancel, dm.Cancel())
	b.router.RegisterCommand(CommandStatus, dm.StatusCmd())
	b.router.RegisterCommand(CommandWithdraw, dm.Withdraw())
	b.router.RegisterCommand(CommandPending, dm.Pending())
	b.router.RegisterCommand(CommandPromote, dm.Promote())
	b.router.RegisterCommand(CommandDemote, dm.Demote())
	b.router.RegisterCommand(CommandAdmins, dm.AdminsCmd())
	b.router.RegisterCommand(CommandXP, group.XPCmd())
	b.router.RegisterCommand(CommandCups, group.CupsCmd())
	b.router.RegisterCommand(CommandAddCup, group.AddCup())

	b.router.RegisterCallback(keyboard.ApplyData, dm.Apply())
	b.router.RegisterCallback(keyboard.ReviewApprovePref, dm.Approve())
	b.router.RegisterCallback(keyboard.ReviewDenyPref, dm.Deny())
	b.router.RegisterCallback(keyboard.NoteSkipData, dm.NoteSkip())

	conversation := dm.Conversation()
	activity := group.Activity()
	b.router.SetDefault(func(c telebot.Context) error {
		chat := c.Chat()
		if chat == nil {
			return nil
		}

		switch chat.Type {
		case telebot.ChatPrivate:
			return conversation(c)
		case telebot.ChatGroup, telebot.ChatSuperGroup:
			return activity(c)
		default:
			return nil
		}
	})
}

func (b *Bot) registerTelebotHandlers() {
	if b.telebot == nil || b.router == nil {
		return
	}

	b.telebot.Handle(telebot.OnText, b.router.Route)
	b.telebot.Handle(telebot.OnCallback, b.router.Route)
}
