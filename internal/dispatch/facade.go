package dispatch

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/Nazarovdf/saverbot/internal/affordance"
	"github.com/Nazarovdf/saverbot/internal/core/errors"
	"github.com/Nazarovdf/saverbot/internal/delivery"
	"github.com/Nazarovdf/saverbot/internal/jobs"
	"github.com/Nazarovdf/saverbot/internal/lang"
	"github.com/Nazarovdf/saverbot/internal/logutils"
	"github.com/Nazarovdf/saverbot/internal/platform"
	"github.com/Nazarovdf/saverbot/internal/session"
)

// Runner is the job runner as seen from the facade.
type Runner interface {
	Run(ctx context.Context, job jobs.Job) (delivery.Plan, error)
	YouTubeQuality(ctx context.Context, userID int64, label string) (delivery.Plan, error)
	YouTubeAudioOnly(ctx context.Context, userID int64) (delivery.Plan, error)
	ExtractAudio(ctx context.Context, userID int64) (delivery.Plan, error)
	Caption(userID int64) delivery.Plan
}

type Cleaner interface {
	Release(s *session.Session)
	Remove(paths ...string)
	SweepAsync()
}

// Facade is the entry point for both inbound events: a link and a click on
// an affordance button.
type Facade struct {
	runner   Runner
	sessions *session.Store
	cleaner  Cleaner
	now      func() time.Time
}

func NewFacade(runner Runner, sessions *session.Store, cleaner Cleaner) *Facade {
	return &Facade{runner: runner, sessions: sessions, cleaner: cleaner, now: time.Now}
}

// HandleURL runs one link end to end. The returned error has already been
// reported to the user; it is returned for logging.
func (f *Facade) HandleURL(ctx context.Context, userID int64, text string, r delivery.Responder) error {
	link := strings.TrimSpace(text)
	p, err := ParseLink(link)
	if err != nil {
		f.report(ctx, r, "", err)
		return err
	}

	// The previous session's files go before the new job writes anything.
	placeholder := session.Placeholder(userID, p, f.now())
	f.cleaner.Release(f.sessions.Swap(userID, placeholder))

	logutils.Log.WithFields(map[string]any{
		"user_id":  userID,
		"platform": p,
	}).Info("Handling link")

	loading := f.loading(ctx, r, lang.Translate("loading.platform", map[string]any{"Platform": p.Title()}))
	plan, err := f.runner.Run(ctx, jobs.Job{
		UserID:      userID,
		URL:         link,
		Platform:    p,
		Placeholder: placeholder,
	})
	f.finish(ctx, r, loading, p, plan, err)
	return err
}

// HandleAffordance serves a follow-up click. Tokens offered to another user
// are ignored.
func (f *Facade) HandleAffordance(ctx context.Context, userID int64, tok affordance.Token, r delivery.Responder) error {
	if tok.Owner != 0 && tok.Owner != userID {
		logutils.Log.WithFields(map[string]any{
			"user_id": userID,
			"owner":   tok.Owner,
			"action":  tok.Action.String(),
		}).Debug("Ignoring affordance offered to another user")
		return nil
	}

	p := platform.YouTube
	if cur := f.sessions.Get(userID); cur != nil && cur.Platform != "" {
		p = cur.Platform
	}

	var (
		plan    delivery.Plan
		err     error
		loading *delivery.MessageRef
	)
	switch tok.Action {
	case affordance.ShowCaption:
		plan = f.runner.Caption(userID)
	case affordance.ExtractAudio:
		loading = f.loading(ctx, r, lang.Translate("loading.audio", nil))
		plan, err = f.runner.ExtractAudio(ctx, userID)
	case affordance.Quality:
		loading = f.loading(ctx, r, lang.Translate("loading.platform", map[string]any{"Platform": platform.YouTube.Title()}))
		plan, err = f.runner.YouTubeQuality(ctx, userID, tok.Quality)
	case affordance.AudioOnly:
		loading = f.loading(ctx, r, lang.Translate("loading.audio", nil))
		plan, err = f.runner.YouTubeAudioOnly(ctx, userID)
	default:
		return affordance.ErrMalformed
	}

	f.finish(ctx, r, loading, p, plan, err)
	return err
}

// ParseLink accepts absolute http(s) links to a known platform.
func ParseLink(link string) (platform.Platform, error) {
	u, err := url.Parse(link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", errors.New(errors.KindUnsupportedLink, "parse_link", "not an http link").
			WithDetails(map[string]any{"link": link})
	}
	p, ok := platform.Detect(link)
	if !ok {
		return "", errors.New(errors.KindUnsupportedLink, "detect", "unknown platform").
			WithDetails(map[string]any{"host": u.Host})
	}
	return p, nil
}

func (f *Facade) loading(ctx context.Context, r delivery.Responder, text string) *delivery.MessageRef {
	ref, err := r.SendText(ctx, text, nil)
	if err != nil {
		logutils.Log.WithError(err).Warn("Failed to send loading message")
		return nil
	}
	return &ref
}

func (f *Facade) finish(ctx context.Context, r delivery.Responder, loading *delivery.MessageRef, p platform.Platform, plan delivery.Plan, err error) {
	if loading != nil {
		if derr := r.Delete(ctx, *loading); derr != nil {
			logutils.Log.WithError(derr).Debug("Failed to delete loading message")
		}
	}
	if err != nil {
		f.report(ctx, r, p, err)
		return
	}

	if serr := delivery.Send(ctx, r, plan); serr != nil {
		logutils.Log.WithError(serr).Warn("Delivery incomplete")
	}
	f.cleaner.Remove(plan.ReleaseAfter...)
	f.cleaner.SweepAsync()
}

// report sends exactly one localized message for err. Backend output is
// never shown; it stays in the error's details for the log.
func (f *Facade) report(ctx context.Context, r delivery.Responder, p platform.Platform, err error) {
	kind := errors.KindOf(err)
	if kind == "" {
		kind = errors.KindInternal
	}
	text := lang.Translate("error."+string(kind), map[string]any{"Platform": p.Title()})
	if _, serr := r.SendText(ctx, text, nil); serr != nil {
		logutils.Log.WithError(serr).Warn("Failed to send error message")
	}
}
