package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Nazarovdf/saverbot/internal/bot"
	"github.com/Nazarovdf/saverbot/internal/handlers/ui"
	"github.com/Nazarovdf/saverbot/internal/jobs"
	"github.com/Nazarovdf/saverbot/internal/lang"
	"github.com/Nazarovdf/saverbot/internal/logutils"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const usersListLimit = 50

func (r *Router) adminPanel(ctx context.Context, userID, chatID int64) {
	if !r.requireAdmin(userID, chatID) {
		return
	}
	stats, err := r.Registry.Stats(ctx)
	if err != nil {
		logutils.Log.WithError(err).Error("Failed to load registry stats")
		bot.SendMessage(r.Sender, chatID, lang.Translate("error.internal", map[string]any{"Platform": "Admin"}), nil)
		return
	}

	data := map[string]any{
		"TotalUsers":     stats.TotalUsers,
		"ActiveToday":    stats.ActiveToday,
		"ActiveWeek":     stats.ActiveWeek,
		"TotalDownloads": stats.TotalDownloads,
		"Average":        fmt.Sprintf("%.1f", stats.Average()),
		"ActiveSessions": 0,
		"JobsOK":         int64(0),
		"JobsFailed":     int64(0),
	}
	if r.Sessions != nil {
		data["ActiveSessions"] = r.Sessions.Len()
	}
	if r.Stats != nil {
		data["JobsOK"] = r.Stats.Sum(jobs.MetricJobs, map[string]string{"outcome": "ok"})
		data["JobsFailed"] = r.Stats.Sum(jobs.MetricJobs, map[string]string{"outcome": "failed"})
	}
	bot.SendMessage(r.Sender, chatID, lang.Translate("admin.panel", data), ui.AdminPanelKeyboard())
}

func (r *Router) listUsers(ctx context.Context, chatID int64) {
	users, total, err := r.Registry.Snapshot(ctx, usersListLimit)
	if err != nil {
		logutils.Log.WithError(err).Error("Failed to list users")
		return
	}
	if len(users) == 0 {
		bot.SendMessage(r.Sender, chatID, lang.Translate("admin.no_users", nil), nil)
		return
	}

	var b strings.Builder
	b.WriteString(lang.Translate("admin.users_header", nil))
	for i, u := range users {
		username := u.Username
		if username == "" {
			username = "N/A"
		}
		b.WriteString("\n")
		b.WriteString(lang.Translate("admin.users_line", map[string]any{
			"Index":     i + 1,
			"Username":  tgbotapi.EscapeText(tgbotapi.ModeHTML, username),
			"FirstName": tgbotapi.EscapeText(tgbotapi.ModeHTML, u.FirstName),
			"Downloads": u.TotalDownloads,
		}))
	}
	if rest := total - int64(len(users)); rest > 0 {
		b.WriteString(lang.Translate("admin.users_more", map[string]any{"Rest": rest}))
	}
	bot.SendMessage(r.Sender, chatID, b.String(), nil)
}

func (r *Router) promptBroadcast(chatID int64) {
	r.conversations.Set(chatID, &Conversation{ChatID: chatID, Stage: StageBroadcast, LastActive: time.Now()})
	bot.SendMessage(r.Sender, chatID, lang.Translate("admin.broadcast_prompt", nil), nil)
}

// startBroadcast copies the admin's message to every registered user on
// the pool and reports the tally when done.
func (r *Router) startBroadcast(ctx context.Context, chatID int64, messageID int) {
	bot.SendMessage(r.Sender, chatID, lang.Translate("admin.broadcast_started", nil), nil)
	r.Pool.Go(ctx, func(ctx context.Context) {
		success, failed := r.broadcast(ctx, chatID, messageID)
		bot.SendMessage(r.Sender, chatID, lang.Translate("admin.broadcast_done", map[string]any{
			"Success": success,
			"Failed":  failed,
		}), nil)
	})
}

func (r *Router) broadcast(ctx context.Context, fromChatID int64, messageID int) (success, failed int) {
	ids, err := r.Registry.UserIDs(ctx)
	if err != nil {
		logutils.Log.WithError(err).Error("Failed to load broadcast recipients")
		return 0, 0
	}
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		if _, err := r.Sender.Request(tgbotapi.NewCopyMessage(id, fromChatID, messageID)); err != nil {
			logutils.Log.WithError(err).WithField("user_id", id).Debug("Broadcast not delivered")
			failed++
			continue
		}
		success++
	}
	logutils.Log.WithFields(map[string]any{
		"success": success,
		"failed":  failed,
	}).Info("Broadcast finished")
	return success, failed
}

func (r *Router) sweep(ctx context.Context, chatID int64) {
	removed := 0
	if r.Sweeper != nil {
		removed = r.Sweeper.SweepOrphans(ctx)
	}
	bot.SendMessage(r.Sender, chatID, lang.Translate("admin.sweep_done", map[string]any{"Removed": removed}), nil)
}
