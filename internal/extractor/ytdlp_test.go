package extractor

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"

	"github.com/Nazarovdf/saverbot/internal/config"
	domain "github.com/Nazarovdf/saverbot/internal/core/errors"
	"github.com/Nazarovdf/saverbot/internal/scratch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubYtDlp writes a shell script standing in for yt-dlp. The script saves
// its arguments, one per line, then runs body.
func stubYtDlp(t *testing.T, body string) (binary, argsFile string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stub requires a POSIX shell")
	}
	dir := t.TempDir()
	binary = filepath.Join(dir, "yt-dlp")
	argsFile = filepath.Join(dir, "args.txt")
	script := "#!/bin/sh\nprintf '%s\\n' \"$@\" > '" + argsFile + "'\n" + body + "\n"
	require.NoError(t, os.WriteFile(binary, []byte(script), 0o755))
	return binary, argsFile
}

func readArgs(t *testing.T, argsFile string) []string {
	t.Helper()
	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func writeZeros(path string, size int) string {
	return "dd if=/dev/zero of='" + path + "' bs=" + strconv.Itoa(size) + " count=1 2>/dev/null"
}

func newTestArea(t *testing.T) *scratch.Area {
	t.Helper()
	area, err := scratch.NewArea(t.TempDir())
	require.NoError(t, err)
	return area
}

func TestYtDlpFetchStream(t *testing.T) {
	area := newTestArea(t)
	dest := area.Allocate(1, "tiktok")

	t.Run("default format", func(t *testing.T) {
		bin, args := stubYtDlp(t, writeZeros(dest.WithExt(".mp4"), 4096))
		y := NewYtDlp(bin, "", "", config.DefaultMinViableSize)

		got, err := y.FetchStream(context.Background(), "https://www.tiktok.com/@u/video/1", dest, "")
		require.NoError(t, err)
		assert.Equal(t, dest.WithExt(".mp4"), got)

		a := readArgs(t, args)
		assert.Equal(t, DefaultFormat, argAfter(a, "--format"))
		assert.Equal(t, dest.String()+".%(ext)s", argAfter(a, "--output"))
		assert.Equal(t, "mp4", argAfter(a, "--merge-output-format"))
		assert.Equal(t, "https://www.tiktok.com/@u/video/1", a[len(a)-1])
	})

	t.Run("chosen selector", func(t *testing.T) {
		chosen := area.Allocate(1, "youtube")
		bin, args := stubYtDlp(t, writeZeros(chosen.WithExt(".mp4"), 4096))
		y := NewYtDlp(bin, "", "", config.DefaultMinViableSize)

		_, err := y.FetchStream(context.Background(), "https://youtu.be/abc", chosen, "f2")
		require.NoError(t, err)
		assert.Equal(t, "f2"+chosenSuffix, argAfter(readArgs(t, args), "--format"))
	})

	t.Run("proxy", func(t *testing.T) {
		proxied := area.Allocate(1, "pinterest")
		bin, args := stubYtDlp(t, writeZeros(proxied.WithExt(".mp4"), 4096))
		y := NewYtDlp(bin, "socks5://127.0.0.1:1080", "", config.DefaultMinViableSize)

		_, err := y.FetchStream(context.Background(), "https://pin.it/x", proxied, "")
		require.NoError(t, err)
		assert.Equal(t, "socks5://127.0.0.1:1080", argAfter(readArgs(t, args), "--proxy"))
	})

	t.Run("unsupported url", func(t *testing.T) {
		failed := area.Allocate(1, "tiktok")
		bin, _ := stubYtDlp(t, "echo 'ERROR: Unsupported URL: https://example.com' >&2\nexit 1")
		y := NewYtDlp(bin, "", "", config.DefaultMinViableSize)

		_, err := y.FetchStream(context.Background(), "https://example.com", failed, "")
		assert.Equal(t, domain.KindUnsupported, domain.KindOf(err))
	})

	t.Run("undersized output", func(t *testing.T) {
		tiny := area.Allocate(1, "tiktok")
		bin, _ := stubYtDlp(t, writeZeros(tiny.WithExt(".mp4"), 10))
		y := NewYtDlp(bin, "", "", config.DefaultMinViableSize)

		_, err := y.FetchStream(context.Background(), "https://www.tiktok.com/@u/video/2", tiny, "")
		assert.Equal(t, domain.KindCorrupt, domain.KindOf(err))
	})
}

func TestYtDlpProbeFormats(t *testing.T) {
	body := `cat <<'JSON'
{"title":"  Never Gonna  ","formats":[
 {"format_id":"140","vcodec":"none","acodec":"mp4a.40.2"},
 {"format_id":"160","vcodec":"avc1","acodec":"none","height":144},
 {"format_id":"18","vcodec":"avc1","acodec":"mp4a.40.2","height":360},
 {"format_id":"243","vcodec":"vp9","acodec":"none","height":360},
 {"format_id":"136","vcodec":"avc1","acodec":"none","height":720},
 {"format_id":"sb0","vcodec":"none","acodec":"none","height":45}
]}
JSON`
	bin, args := stubYtDlp(t, body)
	y := NewYtDlp(bin, "", "", config.DefaultMinViableSize)

	res, err := y.ProbeFormats(context.Background(), "https://youtu.be/abc")
	require.NoError(t, err)
	assert.Equal(t, "Never Gonna", res.Title)
	assert.Equal(t, map[string]string{"144p": "160", "360p": "18", "720p": "136"}, res.Qualities)

	a := readArgs(t, args)
	assert.Contains(t, a, "--dump-single-json")
	assert.Contains(t, a, "--skip-download")

	t.Run("unreadable output", func(t *testing.T) {
		bin, _ := stubYtDlp(t, "echo 'not json'")
		_, err := NewYtDlp(bin, "", "", config.DefaultMinViableSize).ProbeFormats(context.Background(), "https://youtu.be/abc")
		assert.Equal(t, domain.KindUnsupported, domain.KindOf(err))
	})

	t.Run("private video", func(t *testing.T) {
		bin, _ := stubYtDlp(t, "echo 'ERROR: [youtube] abc: Private video' >&2\nexit 1")
		_, err := NewYtDlp(bin, "", "", config.DefaultMinViableSize).ProbeFormats(context.Background(), "https://youtu.be/abc")
		assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
	})
}

func TestYtDlpExtractAudio(t *testing.T) {
	area := newTestArea(t)

	t.Run("mp3 written", func(t *testing.T) {
		dest := area.Allocate(3, "audio")
		bin, args := stubYtDlp(t, writeZeros(dest.WithExt(".mp3"), 2048))
		y := NewYtDlp(bin, "", "128k", config.DefaultMinViableSize)

		got, err := y.ExtractAudio(context.Background(), "https://youtu.be/abc", dest)
		require.NoError(t, err)
		assert.Equal(t, dest.WithExt(".mp3"), got)

		a := readArgs(t, args)
		assert.Contains(t, a, "--extract-audio")
		assert.Equal(t, "mp3", argAfter(a, "--audio-format"))
		assert.Equal(t, "128k", argAfter(a, "--audio-quality"))
		assert.Equal(t, dest.String()+".%(ext)s", argAfter(a, "--output"))
	})

	for _, stderr := range []string{
		"ERROR: Postprocessing: WARNING: unable to obtain file audio codec with ffprobe",
		"ERROR: Postprocessing: Output file #0 does not contain any stream",
	} {
		t.Run(stderr, func(t *testing.T) {
			dest := area.Allocate(3, "audio")
			bin, _ := stubYtDlp(t, "echo '"+stderr+"' >&2\nexit 1")
			y := NewYtDlp(bin, "", "", config.DefaultMinViableSize)

			_, err := y.ExtractAudio(context.Background(), "https://youtu.be/silent", dest)
			assert.Equal(t, domain.KindNoAudioTrack, domain.KindOf(err))
		})
	}
}

func TestYtDlpRunUpdate(t *testing.T) {
	t.Run("up to date", func(t *testing.T) {
		bin, args := stubYtDlp(t, "echo 'yt-dlp is up to date (stable@2025.06.30)'")
		NewYtDlp(bin, "", "", config.DefaultMinViableSize).RunUpdate(context.Background())
		assert.Contains(t, readArgs(t, args), "--update")
	})

	t.Run("failure is only logged", func(t *testing.T) {
		bin, args := stubYtDlp(t, "echo 'ERROR: Unable to write to yt-dlp' >&2\nexit 1")
		NewYtDlp(bin, "", "", config.DefaultMinViableSize).RunUpdate(context.Background())
		assert.Contains(t, readArgs(t, args), "--update")
	})
}
