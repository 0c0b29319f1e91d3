package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/Nazarovdf/saverbot/internal/affordance"
	"github.com/Nazarovdf/saverbot/internal/bot"
	"github.com/Nazarovdf/saverbot/internal/config"
	"github.com/Nazarovdf/saverbot/internal/delivery"
	"github.com/Nazarovdf/saverbot/internal/dispatch"
	"github.com/Nazarovdf/saverbot/internal/handlers/ui"
	"github.com/Nazarovdf/saverbot/internal/lang"
	"github.com/Nazarovdf/saverbot/internal/logutils"
	"github.com/Nazarovdf/saverbot/internal/registry"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const conversationTTL = 10 * time.Minute

type Facade interface {
	HandleURL(ctx context.Context, userID int64, text string, r delivery.Responder) error
	HandleAffordance(ctx context.Context, userID int64, tok affordance.Token, r delivery.Responder) error
}

type Registry interface {
	Touch(ctx context.Context, p registry.Profile) error
	Stats(ctx context.Context) (registry.Stats, error)
	Snapshot(ctx context.Context, limit int) ([]registry.UserRecord, int64, error)
	UserIDs(ctx context.Context) ([]int64, error)
}

type Sweeper interface {
	SweepOrphans(ctx context.Context) int
}

type SessionCounter interface {
	Len() int
}

type JobStats interface {
	Sum(name string, match map[string]string) int64
}

type Deps struct {
	Sender   bot.Sender
	Config   *config.Config
	Facade   Facade
	Pool     *dispatch.Pool
	Registry Registry
	Sweeper  Sweeper
	Sessions SessionCounter
	Stats    JobStats
}

type Router struct {
	Deps
	conversations *ConversationStore
}

func NewRouter(deps Deps) *Router {
	return &Router{Deps: deps, conversations: NewConversationStore()}
}

// Handle processes one update. Anything slow goes to the pool so the
// polling loop is never held up.
func (r *Router) Handle(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		r.handleCallback(ctx, update.CallbackQuery)
		return
	}
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	LoggingMiddleware(update)
	TouchMiddleware(ctx, r.Registry, msg.From)
	r.conversations.Cleanup(conversationTTL)

	userID, chatID := msg.From.ID, msg.Chat.ID

	if msg.IsCommand() {
		r.handleCommand(ctx, msg)
		return
	}

	if conv := r.conversations.Take(chatID); conv != nil && conv.Stage == StageBroadcast && r.Config.IsAdmin(userID) {
		r.startBroadcast(ctx, chatID, msg.MessageID)
		return
	}

	text := strings.TrimSpace(msg.Text)
	switch text {
	case "":
		return
	case lang.Translate("button.help", nil):
		bot.SendMessage(r.Sender, chatID, lang.Translate("help.text", nil), nil)
		return
	case lang.Translate("button.admin_panel", nil):
		r.adminPanel(ctx, userID, chatID)
		return
	}

	responder := bot.NewChatResponder(r.Sender, chatID)
	r.Pool.Go(ctx, func(ctx context.Context) {
		if err := r.Facade.HandleURL(ctx, userID, text, responder); err != nil {
			logutils.Log.WithError(err).WithField("user_id", userID).Debug("Link not delivered")
		}
	})
}

func (r *Router) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	userID, chatID := msg.From.ID, msg.Chat.ID
	command := strings.ToLower(msg.Command())

	switch command {
	case "start":
		bot.SendMessage(r.Sender, chatID, lang.Translate("start.welcome", nil), ui.MainMenuKeyboard(r.Config.IsAdmin(userID)))
	case "help":
		bot.SendMessage(r.Sender, chatID, lang.Translate("help.text", nil), nil)
	case "admin", "stats":
		r.adminPanel(ctx, userID, chatID)
	case "allusers":
		if r.requireAdmin(userID, chatID) {
			r.listUsers(ctx, chatID)
		}
	case "broadcast":
		if r.requireAdmin(userID, chatID) {
			r.promptBroadcast(chatID)
		}
	case "sweep":
		if r.requireAdmin(userID, chatID) {
			r.sweep(ctx, chatID)
		}
	case "cancel":
		r.conversations.Delete(chatID)
		bot.SendMessage(r.Sender, chatID, lang.Translate("admin.cancelled", nil), nil)
	default:
		logutils.Log.WithField("command", command).Warn("Unknown command")
		bot.SendMessage(r.Sender, chatID, lang.Translate("help.text", nil), nil)
	}
}

func (r *Router) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	bot.AnswerCallback(r.Sender, q.ID, "")
	if q.From == nil || q.Message == nil {
		return
	}
	userID, chatID := q.From.ID, q.Message.Chat.ID

	switch q.Data {
	case ui.CallbackAdminUsers:
		if r.requireAdmin(userID, chatID) {
			r.listUsers(ctx, chatID)
		}
		return
	case ui.CallbackAdminBroadcast:
		if r.requireAdmin(userID, chatID) {
			r.promptBroadcast(chatID)
		}
		return
	}

	tok, err := affordance.Decode(q.Data)
	if err != nil {
		logutils.Log.WithError(err).WithField("data", q.Data).Warn("Unknown callback data")
		return
	}

	responder := bot.NewChatResponder(r.Sender, chatID)
	r.Pool.Go(ctx, func(ctx context.Context) {
		if err := r.Facade.HandleAffordance(ctx, userID, tok, responder); err != nil {
			logutils.Log.WithError(err).WithField("user_id", userID).Debug("Affordance not served")
		}
	})
}

func (r *Router) requireAdmin(userID, chatID int64) bool {
	if r.Config.IsAdmin(userID) {
		return true
	}
	bot.SendMessage(r.Sender, chatID, lang.Translate("admin.denied", nil), nil)
	return false
}
