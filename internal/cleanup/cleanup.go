package cleanup

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Nazarovdf/saverbot/internal/logutils"
	"github.com/Nazarovdf/saverbot/internal/scratch"
	"github.com/Nazarovdf/saverbot/internal/session"
)

// Sessions is the view of the session store the cleaner needs.
type Sessions interface {
	LivePaths() map[string]struct{}
	Expire(ttl time.Duration, now time.Time) []*session.Session
}

// Cleaner removes scratch artifacts. It never returns errors to callers:
// failures are logged and the periodic sweep picks up what was missed.
type Cleaner struct {
	root       string
	sessions   Sessions
	orphanAge  time.Duration
	sessionTTL time.Duration
	now        func() time.Time

	ch      chan struct{}
	sweepMu sync.Mutex
	wg      sync.WaitGroup
	mu      sync.Mutex
	closed  bool
}

func New(root string, sessions Sessions, orphanAge, sessionTTL time.Duration) *Cleaner {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	c := &Cleaner{
		root:       root,
		sessions:   sessions,
		orphanAge:  orphanAge,
		sessionTTL: sessionTTL,
		now:        time.Now,
		ch:         make(chan struct{}, 1),
	}
	c.wg.Add(1)
	go c.worker()
	return c
}

// Release removes every path the session owns.
func (c *Cleaner) Release(s *session.Session) {
	if s == nil {
		return
	}
	c.Remove(s.Paths()...)
}

// Remove deletes files or whole directories, tolerating ones already gone.
func (c *Cleaner) Remove(paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if !c.inRoot(p) {
			logutils.Log.WithField("path", p).Warn("Refusing to remove path outside scratch root")
			continue
		}
		if err := os.RemoveAll(p); err != nil {
			logutils.Log.WithError(err).WithField("path", p).Warn("Failed to remove artifact")
			continue
		}
		logutils.Log.WithField("path", p).Debug("Artifact removed")
	}
}

// RemoveStem deletes the stem itself (a directory) and every stem.* file,
// which covers yt-dlp's .part and per-format leftovers.
func (c *Cleaner) RemoveStem(stem scratch.Path) {
	matches, err := filepath.Glob(stem.String() + ".*")
	if err != nil {
		logutils.Log.WithError(err).WithField("stem", stem.String()).Warn("Failed to glob artifacts")
	}
	c.Remove(append(matches, stem.String())...)
}

// SweepOrphans removes scratch entries that no live session references and
// that are older than the orphan age. It returns how many were removed.
func (c *Cleaner) SweepOrphans(ctx context.Context) int {
	c.sweepMu.Lock()
	defer c.sweepMu.Unlock()

	now := c.now()
	for _, s := range c.sessions.Expire(c.sessionTTL, now) {
		logutils.Log.WithField("user_id", s.UserID).Debug("Session expired")
		c.Release(s)
	}

	entries, err := os.ReadDir(c.root)
	if err != nil {
		logutils.Log.WithError(err).WithField("root", c.root).Warn("Failed to read scratch root")
		return 0
	}

	live := make(map[string]struct{})
	for p := range c.sessions.LivePaths() {
		if top := scratch.TopLevel(c.root, p); top != "" {
			live[top] = struct{}{}
		}
	}

	removed := 0
	for _, e := range entries {
		if ctx.Err() != nil {
			break
		}
		name := e.Name()
		if !scratch.Owns(name) {
			continue
		}
		if _, ok := live[name]; ok {
			continue
		}
		info, err := e.Info()
		if err != nil || now.Sub(info.ModTime()) < c.orphanAge {
			continue
		}
		path := filepath.Join(c.root, name)
		if err := os.RemoveAll(path); err != nil {
			logutils.Log.WithError(err).WithField("path", path).Warn("Failed to remove orphan")
			continue
		}
		removed++
	}

	if removed > 0 {
		logutils.Log.WithField("removed", removed).Info("Orphan sweep finished")
	}
	return removed
}

// SweepAsync asks the background worker for a sweep. Requests made while
// one is already pending are merged.
func (c *Cleaner) SweepAsync() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.ch <- struct{}{}:
	default:
	}
}

func (c *Cleaner) worker() {
	defer c.wg.Done()
	for range c.ch {
		c.SweepOrphans(context.Background())
	}
}

// StartPeriodicSweep runs SweepOrphans on a ticker until ctx is done.
func (c *Cleaner) StartPeriodicSweep(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logutils.Log.WithField("interval", interval).Info("Starting periodic orphan sweep")

	for {
		select {
		case <-ctx.Done():
			logutils.Log.Info("Stopping periodic orphan sweep")
			return
		case <-ticker.C:
			c.SweepOrphans(ctx)
		}
	}
}

// Close stops the background worker after any pending sweep.
func (c *Cleaner) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.ch)
	}
	c.mu.Unlock()
	c.wg.Wait()
}

func (c *Cleaner) inRoot(p string) bool {
	abs, err := filepath.Abs(p)
	if err != nil {
		return false
	}
	return scratch.TopLevel(c.root, abs) != ""
}
