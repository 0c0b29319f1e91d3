package extractor

import (
	"context"
	"os"
	"strings"

	"github.com/Nazarovdf/saverbot/internal/core/errors"
	"github.com/Nazarovdf/saverbot/internal/scratch"
)

// FFmpeg turns a local video into mp3 after checking it has an audio stream.
type FFmpeg struct {
	exec    Executor
	ffmpeg  string
	ffprobe string
	bitrate string
	minSize int64
}

func NewFFmpeg(exec Executor, ffmpeg, ffprobe, bitrate string, minSize int64) *FFmpeg {
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	if ffprobe == "" {
		ffprobe = "ffprobe"
	}
	if bitrate == "" {
		bitrate = "192k"
	}
	return &FFmpeg{exec: exec, ffmpeg: ffmpeg, ffprobe: ffprobe, bitrate: bitrate, minSize: minSize}
}

func (f *FFmpeg) HasAudio(ctx context.Context, src string) (bool, error) {
	out, err := f.exec.Execute(ctx, f.ffprobe,
		"-v", "error",
		"-select_streams", "a",
		"-show_entries", "stream=index",
		"-of", "csv=p=0",
		src,
	)
	if err != nil {
		if ctx.Err() != nil {
			return false, Classify("probe_audio", err, "")
		}
		return false, errors.Wrap(err, errors.KindCorrupt, "probe_audio", "ffprobe could not read source")
	}
	return strings.TrimSpace(string(out)) != "", nil
}

func (f *FFmpeg) ExtractAudio(ctx context.Context, src string, dest scratch.Path) (string, error) {
	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return "", errors.Wrap(err, errors.KindNotFound, "extract_audio", "source video is gone")
		}
		return "", errors.Wrap(err, errors.KindIO, "extract_audio", "cannot stat source")
	}

	hasAudio, err := f.HasAudio(ctx, src)
	if err != nil {
		return "", err
	}
	if !hasAudio {
		return "", errors.New(errors.KindNoAudioTrack, "extract_audio", "source has no audio stream")
	}

	out := dest.WithExt(".mp3")
	_, err = f.exec.Execute(ctx, f.ffmpeg,
		"-y",
		"-v", "error",
		"-i", src,
		"-vn",
		"-c:a", "libmp3lame",
		"-b:a", f.bitrate,
		out,
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", Classify("extract_audio", err, "")
		}
		kind := errors.KindCorrupt
		if strings.Contains(strings.ToLower(err.Error()), "does not contain any stream") {
			kind = errors.KindNoAudioTrack
		}
		return "", errors.Wrap(err, kind, "extract_audio", "ffmpeg transcode failed")
	}

	if err := checkArtifact("extract_audio", out, f.minSize); err != nil {
		return "", err
	}
	return out, nil
}
