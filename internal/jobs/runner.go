package jobs

import (
	"context"
	stderrors "errors"
	"fmt"
	"html"
	"os"
	"time"

	"github.com/Nazarovdf/saverbot/internal/affordance"
	"github.com/Nazarovdf/saverbot/internal/config"
	"github.com/Nazarovdf/saverbot/internal/core/errors"
	"github.com/Nazarovdf/saverbot/internal/delivery"
	"github.com/Nazarovdf/saverbot/internal/extractor"
	"github.com/Nazarovdf/saverbot/internal/lang"
	"github.com/Nazarovdf/saverbot/internal/logutils"
	"github.com/Nazarovdf/saverbot/internal/metrics"
	"github.com/Nazarovdf/saverbot/internal/platform"
	"github.com/Nazarovdf/saverbot/internal/scratch"
	"github.com/Nazarovdf/saverbot/internal/session"
)

const (
	MetricJobs        = "jobs_total"
	MetricJobDuration = "job_duration"
)

// Cleaner is the part of the artifact cleaner the runner drives.
type Cleaner interface {
	Remove(paths ...string)
	RemoveStem(stem scratch.Path)
}

// DownloadCounter is the user registry's counter.
type DownloadCounter interface {
	Increment(ctx context.Context, userID int64) error
}

type Options struct {
	Timeout           time.Duration
	DocumentThreshold int64
	CaptionLimit      int
}

// Job is one fetch attempt. Placeholder is the session the attempt is
// allowed to replace on commit; any other stored value means it was superseded.
type Job struct {
	UserID      int64
	URL         string
	Platform    platform.Platform
	Selector    string
	Placeholder *session.Session
	// FollowUp jobs act on an existing session, which survives their failure.
	FollowUp bool
}

type Runner struct {
	extractor extractor.Extractor
	sessions  *session.Store
	area      *scratch.Area
	cleaner   Cleaner
	counter   DownloadCounter
	metrics   metrics.Recorder
	opts      Options
	now       func() time.Time
}

func NewRunner(
	ext extractor.Extractor,
	sessions *session.Store,
	area *scratch.Area,
	cleaner Cleaner,
	counter DownloadCounter,
	rec metrics.Recorder,
	opts Options,
) *Runner {
	if opts.DocumentThreshold <= 0 {
		opts.DocumentThreshold = config.DefaultDocumentThreshold
	}
	if opts.CaptionLimit <= 0 {
		opts.CaptionLimit = config.DefaultCaptionLimit
	}
	if rec == nil {
		rec = metrics.NoOpMetrics{}
	}
	return &Runner{
		extractor: ext,
		sessions:  sessions,
		area:      area,
		cleaner:   cleaner,
		counter:   counter,
		metrics:   rec,
		opts:      opts,
		now:       time.Now,
	}
}

// Run routes a fresh link to its platform operation. For YouTube this is
// the probe step; the download happens on a later quality choice.
func (r *Runner) Run(ctx context.Context, job Job) (delivery.Plan, error) {
	switch job.Platform {
	case platform.Instagram:
		return r.Instagram(ctx, job)
	case platform.YouTube:
		return r.ProbeYouTube(ctx, job)
	default:
		return r.Stream(ctx, job)
	}
}

func (r *Runner) Instagram(ctx context.Context, job Job) (delivery.Plan, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	start := r.now()

	dest := r.area.Allocate(job.UserID, string(platform.Instagram))
	post, err := r.extractor.FetchPost(ctx, job.URL, dest.String())
	if err != nil {
		return delivery.Plan{}, r.fail(job, dest, "instagram", start, err)
	}
	dir := post.Dir
	if dir == "" {
		dir = dest.String()
	}

	caption := truncateCaption(post.Caption, r.opts.CaptionLimit)
	if caption == "" {
		caption = lang.Translate("instagram.default_caption", nil)
	}
	next := &session.Session{
		UserID:    job.UserID,
		Platform:  platform.Instagram,
		Caption:   caption,
		CreatedAt: r.now(),
	}

	var plan delivery.Plan
	switch {
	case len(post.Videos) > 0:
		for i, v := range post.Videos {
			item := delivery.Item{Kind: delivery.Video, Path: v}
			if i == 0 {
				item.Affordances = []affordance.Token{
					{Action: affordance.ExtractAudio, Owner: job.UserID},
					{Action: affordance.ShowCaption, Owner: job.UserID},
				}
			}
			plan.Items = append(plan.Items, item)
		}
		for _, p := range post.Photos {
			plan.Items = append(plan.Items, delivery.Item{Kind: delivery.Photo, Path: p})
		}
		next.ArtifactPath = post.Videos[0]
		next.ContainerPath = dir

	case len(post.Photos) == 1:
		plan.Items = []delivery.Item{{
			Kind:        delivery.Photo,
			Path:        post.Photos[0],
			Text:        html.EscapeString(caption),
			Affordances: []affordance.Token{{Action: affordance.ShowCaption, Owner: job.UserID}},
		}}
		plan.ReleaseAfter = []string{dir}

	default:
		n := len(post.Photos)
		for i, p := range post.Photos {
			item := delivery.Item{Kind: delivery.Photo, Path: p, Label: fmt.Sprintf("%d/%d", i+1, n)}
			if i == 0 {
				item.Affordances = []affordance.Token{{Action: affordance.ShowCaption, Owner: job.UserID}}
			}
			plan.Items = append(plan.Items, item)
		}
		plan.ReleaseAfter = []string{dir}
	}

	r.commit(job, next, &plan)
	r.succeed(ctx, job, "instagram", start)
	return plan, nil
}

// Stream fetches a single file: TikTok, Pinterest, and YouTube at the
// default or a chosen quality.
func (r *Runner) Stream(ctx context.Context, job Job) (delivery.Plan, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	start := r.now()

	dest := r.area.Allocate(job.UserID, string(job.Platform))
	path, err := r.extractor.FetchStream(ctx, job.URL, dest, job.Selector)
	if err != nil {
		return delivery.Plan{}, r.fail(job, dest, "stream", start, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return delivery.Plan{}, r.fail(job, dest, "stream", start,
			errors.Wrap(err, errors.KindIO, "stream", "downloaded file is not readable"))
	}

	next := &session.Session{UserID: job.UserID, Platform: job.Platform, CreatedAt: r.now()}
	var plan delivery.Plan

	if extractor.IsPhoto(path) {
		plan.Items = []delivery.Item{{Kind: delivery.Photo, Path: path}}
		plan.ReleaseAfter = []string{path}
	} else {
		item := delivery.Item{
			Kind:        delivery.Video,
			Path:        path,
			Affordances: []affordance.Token{{Action: affordance.ExtractAudio, Owner: job.UserID}},
		}
		if info.Size() > r.opts.DocumentThreshold {
			item.Kind = delivery.Document
			item.Text = lang.Translate("delivery.document", map[string]any{
				"Platform": job.Platform.Title(),
				"SizeMB":   fmt.Sprintf("%.1f", float64(info.Size())/(1024*1024)),
			})
		}
		plan.Items = []delivery.Item{item}
		next.ArtifactPath = path
	}

	r.commit(job, next, &plan)
	r.succeed(ctx, job, "stream", start)
	return plan, nil
}

// ProbeYouTube caches the quality table on the session and offers it as a
// keyboard. An empty table falls back to the default download.
func (r *Runner) ProbeYouTube(ctx context.Context, job Job) (delivery.Plan, error) {
	probeCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	start := r.now()

	probe, err := r.extractor.ProbeFormats(probeCtx, job.URL)
	if err != nil {
		return delivery.Plan{}, r.fail(job, "", "probe", start, err)
	}
	if len(probe.Qualities) == 0 {
		logutils.Log.WithField("user_id", job.UserID).Info("No qualities found, using default format")
		return r.Stream(ctx, job)
	}

	title := probe.Title
	if title == "" {
		title = "video"
	}
	next := &session.Session{
		UserID:     job.UserID,
		Platform:   platform.YouTube,
		SourceURL:  job.URL,
		Title:      title,
		QualityMap: probe.Qualities,
		CreatedAt:  r.now(),
	}

	var affs []affordance.Token
	for _, label := range extractor.SortLabels(probe.Qualities) {
		affs = append(affs, affordance.Token{Action: affordance.Quality, Quality: label, Owner: job.UserID})
	}
	affs = append(affs, affordance.Token{Action: affordance.AudioOnly, Owner: job.UserID})

	plan := delivery.Plan{Items: []delivery.Item{{
		Kind:        delivery.Text,
		Text:        lang.Translate("youtube.choose_quality", map[string]any{"Title": html.EscapeString(title)}),
		Affordances: affs,
	}}}

	r.commit(job, next, &plan)
	r.record(job, "probe", "ok", start)
	return plan, nil
}

// YouTubeQuality downloads the pending probe's source at the chosen label.
func (r *Runner) YouTubeQuality(ctx context.Context, userID int64, label string) (delivery.Plan, error) {
	cur := r.sessions.Get(userID)
	if !cur.PendingProbe() {
		return delivery.Plan{}, errors.New(errors.KindSessionExpired, "youtube_quality", "no pending quality choice")
	}
	selector, ok := cur.Selector(label)
	if !ok {
		return delivery.Plan{}, errors.New(errors.KindSessionExpired, "youtube_quality", "quality is not offered").
			WithDetails(map[string]any{"label": label})
	}
	return r.Stream(ctx, Job{
		UserID:      userID,
		URL:         cur.SourceURL,
		Platform:    platform.YouTube,
		Selector:    selector,
		Placeholder: cur,
		FollowUp:    true,
	})
}

// YouTubeAudioOnly pulls only the audio of the pending probe's source.
func (r *Runner) YouTubeAudioOnly(ctx context.Context, userID int64) (delivery.Plan, error) {
	cur := r.sessions.Get(userID)
	if !cur.PendingProbe() {
		return delivery.Plan{}, errors.New(errors.KindSessionExpired, "youtube_audio", "no pending quality choice")
	}
	job := Job{UserID: userID, URL: cur.SourceURL, Platform: platform.YouTube, Placeholder: cur, FollowUp: true}
	plan, err := r.audio(ctx, job, cur.SourceURL, "youtube_audio")
	if err != nil {
		return plan, err
	}
	r.sessions.CompareAndSwap(userID, cur, cur.WithoutProbe())
	return plan, nil
}

// ExtractAudio turns the session's video into an mp3. On success the video
// is consumed: the session keeps only its caption.
func (r *Runner) ExtractAudio(ctx context.Context, userID int64) (delivery.Plan, error) {
	cur := r.sessions.Get(userID)
	if !cur.HasArtifact() {
		return delivery.Plan{}, errors.New(errors.KindSessionExpired, "extract_audio", "no artifact in session")
	}
	if _, err := os.Stat(cur.ArtifactPath); err != nil {
		return delivery.Plan{}, errors.Wrap(err, errors.KindSessionExpired, "extract_audio", "artifact is gone")
	}

	job := Job{UserID: userID, URL: cur.ArtifactPath, Platform: cur.Platform, Placeholder: cur, FollowUp: true}
	plan, err := r.audio(ctx, job, cur.ArtifactPath, "extract_audio")
	if err != nil {
		return plan, err
	}
	if r.sessions.CompareAndSwap(userID, cur, cur.WithoutArtifacts()) {
		plan.ReleaseAfter = append(plan.ReleaseAfter, cur.Paths()...)
	}
	return plan, nil
}

// Caption renders the caption cached on the user's session.
func (r *Runner) Caption(userID int64) delivery.Plan {
	text := lang.Translate("caption.empty", nil)
	if cur := r.sessions.Get(userID); cur != nil && cur.Caption != "" {
		text = lang.Translate("caption.show", map[string]any{"Caption": html.EscapeString(cur.Caption)})
	}
	return delivery.Plan{Items: []delivery.Item{{Kind: delivery.Text, Text: text}}}
}

func (r *Runner) audio(ctx context.Context, job Job, source, op string) (delivery.Plan, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	start := r.now()

	dest := r.area.Allocate(job.UserID, "audio")
	out, err := r.extractor.ExtractAudio(ctx, source, dest)
	if err != nil {
		return delivery.Plan{}, r.fail(job, dest, op, start, err)
	}
	plan := delivery.Plan{
		Items:        []delivery.Item{{Kind: delivery.Audio, Path: out}},
		ReleaseAfter: []string{out},
	}
	r.succeed(ctx, job, op, start)
	return plan, nil
}

// commit installs next if the job still owns the user's slot. A superseded
// job still delivers, but nothing it produced stays reachable.
func (r *Runner) commit(job Job, next *session.Session, plan *delivery.Plan) {
	if r.sessions.CompareAndSwap(job.UserID, job.Placeholder, next) {
		return
	}
	logutils.Log.WithFields(map[string]any{
		"user_id":  job.UserID,
		"platform": job.Platform,
	}).Info("Session superseded while job was running")
	plan.StripAffordances()
	plan.ReleaseAfter = append(plan.ReleaseAfter, next.Paths()...)
}

func (r *Runner) succeed(ctx context.Context, job Job, op string, start time.Time) {
	if r.counter != nil {
		if err := r.counter.Increment(context.WithoutCancel(ctx), job.UserID); err != nil {
			logutils.Log.WithError(err).WithField("user_id", job.UserID).Warn("Failed to increment download counter")
		}
	}
	r.record(job, op, "ok", start)
}

// fail removes whatever the attempt wrote and, for a fresh link, frees the
// user's slot. The returned error always carries a domain kind.
func (r *Runner) fail(job Job, stem scratch.Path, op string, start time.Time, err error) error {
	if stem != "" {
		r.cleaner.RemoveStem(stem)
	}
	if !job.FollowUp {
		r.sessions.CompareAndSwap(job.UserID, job.Placeholder, nil)
	}

	derr := toDomain(op, err)
	logutils.Log.WithError(derr).WithFields(map[string]any{
		"user_id":  job.UserID,
		"platform": job.Platform,
		"kind":     errors.KindOf(derr),
	}).Warn("Job failed")
	r.record(job, op, "failed", start)
	return derr
}

func (r *Runner) record(job Job, op, outcome string, start time.Time) {
	r.metrics.IncrementCounter(MetricJobs, map[string]string{
		"platform":  string(job.Platform),
		"operation": op,
		"outcome":   outcome,
	})
	r.metrics.RecordDuration(MetricJobDuration, r.now().Sub(start), map[string]string{
		"platform": string(job.Platform),
	})
	if outcome == "ok" {
		logutils.Log.WithFields(map[string]any{
			"user_id":   job.UserID,
			"platform":  job.Platform,
			"operation": op,
		}).Info("Job finished")
	}
}

func (r *Runner) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.opts.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.opts.Timeout)
}

func toDomain(op string, err error) error {
	var de *errors.Error
	if stderrors.As(err, &de) {
		return err
	}
	if errors.KindOf(err) == errors.KindTimeout {
		return errors.Wrap(err, errors.KindTimeout, op, "timed out")
	}
	return errors.Wrap(err, errors.KindInternal, op, "unexpected failure")
}

func truncateCaption(caption string, limit int) string {
	runes := []rune(caption)
	if len(runes) <= limit {
		return caption
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}
