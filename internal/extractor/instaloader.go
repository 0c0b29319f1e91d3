package extractor

import (
	"context"
	"net/url"
	"os"
	"strings"

	"github.com/Nazarovdf/saverbot/internal/core/errors"
	"github.com/Nazarovdf/saverbot/internal/logutils"
)

var postMarkers = map[string]bool{"p": true, "reel": true, "reels": true, "tv": true}

// Instaloader fetches Instagram posts into a directory of their own.
type Instaloader struct {
	exec     Executor
	binary   string
	resolver Resolver
	minSize  int64
}

type Resolver interface {
	Resolve(ctx context.Context, rawURL string) (string, error)
}

func NewInstaloader(exec Executor, binary string, resolver Resolver, minSize int64) *Instaloader {
	if binary == "" {
		binary = "instaloader"
	}
	return &Instaloader{exec: exec, binary: binary, resolver: resolver, minSize: minSize}
}

func (i *Instaloader) FetchPost(ctx context.Context, rawURL, destDir string) (*Post, error) {
	code, ok := Shortcode(rawURL)
	if !ok && i.resolver != nil {
		// Share and short links only carry the shortcode after their redirect.
		resolved, err := i.resolver.Resolve(ctx, rawURL)
		if err != nil {
			logutils.Log.WithError(err).WithField("url", rawURL).Warn("Failed to expand share link")
		} else {
			code, ok = Shortcode(resolved)
		}
	}
	if !ok {
		return nil, errors.New(errors.KindUnsupported, "fetch_post", "no post shortcode in link").
			WithDetails(map[string]any{"url": rawURL})
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, errors.Wrap(err, errors.KindIO, "fetch_post", "cannot create post directory")
	}

	args := []string{
		"--quiet",
		"--no-video-thumbnails",
		"--no-metadata-json",
		"--no-compress-json",
		"--no-profile-pic",
		"--dirname-pattern", destDir,
		"--", "-" + code,
	}
	if _, err := i.exec.Execute(ctx, i.binary, args...); err != nil {
		return nil, Classify("fetch_post", err, "")
	}

	return ReadPost(destDir, i.minSize)
}

// Shortcode extracts the post id from /p/<code>/, /reel/<code>/ and friends.
func Shortcode(rawURL string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", false
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	// /share/reel/<id>/ carries a share id, not a shortcode.
	if strings.EqualFold(parts[0], "share") {
		return "", false
	}
	for idx := 0; idx+1 < len(parts); idx++ {
		if postMarkers[strings.ToLower(parts[idx])] && parts[idx+1] != "" {
			return parts[idx+1], true
		}
	}
	return "", false
}
