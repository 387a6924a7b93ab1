package bot

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	telebot "gopkg.in/telebot.v3"

	"github.com/guildgate/guildgate-bot/internal/bot/handlers"
	errors "github.com/guildgate/guildgate-bot/internal/errors"
	"github.com/guildgate/guildgate-bot/internal/i18n"
	"github.com/guildgate/guildgate-bot/pkg/metrics"
)

// RecoveryMiddleware catches panics, reports them via the centralized handler, and notifies the user.
func RecoveryMiddleware(log *slog.Logger, errHandler *errors.Handler, i18nM *i18n.Manager) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("panic recovered in handler", slog.Any("panic", r), slog.String("stack", string(debug.Stack())))

					userMsg := genericErrorText(c, i18nM)
					if errHandler != nil {
						appErr := errors.NewTelegramError(fmt.Errorf("panic recovered: %v", r))
						if msg, _ := errHandler.Handle(context.Background(), appErr); msg != "" {
							userMsg = msg
						}
					}

					if c != nil {
						if sendErr := c.Send(userMsg); sendErr != nil {
							log.Error("failed to notify user about panic", slog.Any("error", sendErr))
						}
					}

					err = nil
				}
			}()

			return next(c)
		}
	}
}

// ErrorHandlingMiddleware centralizes error reporting and user messaging for handler failures.
func ErrorHandlingMiddleware(errHandler *errors.Handler, i18nM *i18n.Manager) handlers.Middleware {
	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			userMsg := genericErrorText(c, i18nM)
			if errHandler != nil {
				if msg, _ := errHandler.Handle(context.Background(), err); msg != "" {
					userMsg = msg
				}
			}

			if c != nil {
				_ = c.Send(userMsg)
			}

			return nil
		}
	}
}

// LoggingMiddleware logs basic telemetry about incoming updates, tagging each
// one with a correlation ID.
func LoggingMiddleware(log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			start := time.Now()
			correlationID := uuid.NewString()

			userID := int64(0)
			if c != nil && c.Sender() != nil {
				userID = c.Sender().ID
			}

			action := updateAction(c)

			log.Info("handling update",
				slog.Int64("user_id", userID),
				slog.String("action", action),
				slog.String("correlation_id", correlationID),
			)
			err := next(c)
			log.Info("handled update",
				slog.Int64("user_id", userID),
				slog.String("action", action),
				slog.String("correlation_id", correlationID),
				slog.Duration("duration", time.Since(start)),
				slog.Any("error", err),
			)

			return err
		}
	}
}

// MetricsMiddleware records per-command counters and latency.
func MetricsMiddleware() handlers.Middleware {
	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			start := time.Now()
			err := next(c)

			status := "ok"
			if err != nil {
				status = "error"
			}
			metrics.RecordCommand(commandLabel(c), status, time.Since(start))

			return err
		}
	}
}

// genericErrorText resolves the localized fallback error message for the
// update's sender.
func genericErrorText(c telebot.Context, i18nM *i18n.Manager) string {
	if i18nM == nil {
		return "Something went wrong. Please try again later."
	}

	lang := ""
	if c != nil && c.Sender() != nil {
		lang = c.Sender().LanguageCode
	}

	return i18nM.Translator(lang).T("common.error")
}

func updateAction(c telebot.Context) string {
	if c == nil {
		return ""
	}
	if cb := c.Callback(); cb != nil {
		return strings.TrimSpace(cb.Data)
	}
	return c.Text()
}

// commandLabel maps an update to a low-cardinality metric label.
func commandLabel(c telebot.Context) string {
	if c == nil {
		return "unknown"
	}

	if cb := c.Callback(); cb != nil {
		data := strings.TrimSpace(cb.Data)
		if idx := strings.LastIndex(data, "_"); idx > 0 {
			if _, err := strconv.ParseInt(data[idx+1:], 10, 64); err == nil {
				data = data[:idx]
			}
		}
		return "callback:" + data
	}

	text := c.Text()
	if strings.HasPrefix(text, "/") {
		cmd := text
		if idx := strings.IndexAny(cmd, " @"); idx > 0 {
			cmd = cmd[:idx]
		}
		return cmd
	}

	return "message"
}
