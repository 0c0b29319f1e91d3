package extractor

import (
	"context"
	"strings"
	"time"

	"github.com/Nazarovdf/saverbot/internal/core/errors"
	"github.com/Nazarovdf/saverbot/internal/logutils"
	"github.com/Nazarovdf/saverbot/internal/scratch"
	"github.com/lrstanley/go-ytdlp"
)

const (
	// DefaultFormat is used when the user did not pick a rendition.
	DefaultFormat = "bestvideo[ext=mp4][height<=1080]+bestaudio[ext=m4a]/best[ext=mp4]/best"
	chosenSuffix  = "+bestaudio/best[ext=m4a]/best"
	updateTimeout = 3 * time.Minute
)

// SelectorFormat expands a probed selector into the full fetch expression.
func SelectorFormat(selector string) string {
	if selector == "" {
		return DefaultFormat
	}
	return selector + chosenSuffix
}

type YtDlp struct {
	binary  string
	proxy   string
	bitrate string
	minSize int64
}

func NewYtDlp(binary, proxy, bitrate string, minSize int64) *YtDlp {
	if bitrate == "" {
		bitrate = "192k"
	}
	return &YtDlp{binary: binary, proxy: proxy, bitrate: bitrate, minSize: minSize}
}

func (y *YtDlp) command() *ytdlp.Command {
	cmd := ytdlp.New().NoWarnings().NoPlaylist()
	if y.binary != "" {
		cmd = cmd.SetExecutable(y.binary)
	}
	if y.proxy != "" {
		cmd = cmd.Proxy(y.proxy)
	}
	return cmd
}

func (y *YtDlp) FetchStream(ctx context.Context, url string, dest scratch.Path, selector string) (string, error) {
	format := SelectorFormat(selector)
	logutils.Log.WithFields(map[string]any{
		"url":    url,
		"format": format,
		"dest":   dest.String(),
	}).Debug("Fetching stream with yt-dlp")

	res, err := y.command().
		Format(format).
		MergeOutputFormat("mp4").
		Output(dest.String() + ".%(ext)s").
		Run(ctx, url)
	if err != nil {
		return "", Classify("fetch_stream", err, stderrOf(res))
	}
	return resolveOutput("fetch_stream", dest, y.minSize)
}

func (y *YtDlp) ProbeFormats(ctx context.Context, url string) (*Probe, error) {
	res, err := y.command().
		SkipDownload().
		DumpSingleJSON().
		Run(ctx, url)
	if err != nil {
		return nil, Classify("probe_formats", err, stderrOf(res))
	}

	info, err := parseProbeJSON(res.Stdout)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindUnsupported, "probe_formats", "unreadable format list")
	}
	return &Probe{
		Title:     strings.TrimSpace(info.Title),
		Qualities: FilterFormats(info.Formats),
	}, nil
}

// ExtractAudio downloads only the audio of a remote URL as mp3.
func (y *YtDlp) ExtractAudio(ctx context.Context, url string, dest scratch.Path) (string, error) {
	res, err := y.command().
		Format("bestaudio/best").
		ExtractAudio().
		AudioFormat("mp3").
		AudioQuality(y.bitrate).
		Output(dest.String() + ".%(ext)s").
		Run(ctx, url)
	if err != nil {
		return "", Classify("extract_audio", err, stderrOf(res))
	}
	path := dest.WithExt(".mp3")
	if err := checkArtifact("extract_audio", path, y.minSize); err != nil {
		return "", err
	}
	return path, nil
}

// RunUpdate asks yt-dlp to update itself. Failures are only logged.
func (y *YtDlp) RunUpdate(ctx context.Context) {
	updateCtx, cancel := context.WithTimeout(ctx, updateTimeout)
	defer cancel()

	res, err := y.command().Update(updateCtx)
	if err != nil {
		if updateCtx.Err() != nil {
			logutils.Log.WithError(err).Warn("yt-dlp update timed out or was canceled")
			return
		}
		logutils.Log.WithError(err).WithFields(map[string]any{
			"output": stderrOf(res),
			"binary": y.binary,
		}).Warn("yt-dlp update failed")
		return
	}

	logutils.Log.WithFields(map[string]any{
		"binary": y.binary,
		"output": strings.TrimSpace(res.Stdout),
	}).Info("yt-dlp update check completed successfully")
}

func stderrOf(res *ytdlp.Result) string {
	if res == nil {
		return ""
	}
	return res.Stderr
}
