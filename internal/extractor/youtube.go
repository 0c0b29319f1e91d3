package extractor

import (
	"context"
	"strconv"
	"strings"

	"github.com/kkdai/youtube/v2"
)

// YouTubeProber lists renditions through the YouTube player API directly,
// without spawning yt-dlp. Itags are valid yt-dlp format selectors.
type YouTubeProber struct {
	client *youtube.Client
}

func NewYouTubeProber() *YouTubeProber {
	return &YouTubeProber{client: &youtube.Client{}}
}

func (p *YouTubeProber) ProbeFormats(ctx context.Context, url string) (*Probe, error) {
	video, err := p.client.GetVideoContext(ctx, url)
	if err != nil {
		return nil, Classify("probe_formats", err, "")
	}

	formats := make([]Format, 0, len(video.Formats))
	for _, f := range video.Formats {
		formats = append(formats, fromYouTubeFormat(f))
	}
	return &Probe{
		Title:     strings.TrimSpace(video.Title),
		Qualities: FilterFormats(formats),
	}, nil
}

func fromYouTubeFormat(f youtube.Format) Format {
	out := Format{
		ID:     strconv.Itoa(f.ItagNo),
		Height: f.Height,
		Vcodec: "none",
		Acodec: "none",
	}
	mime := strings.ToLower(f.MimeType)
	if strings.HasPrefix(mime, "video/") {
		out.Vcodec = mime
	}
	if f.AudioChannels > 0 || strings.HasPrefix(mime, "audio/") {
		out.Acodec = mime
	}
	return out
}

// ChainProber asks each prober in turn and returns the first non-empty table.
type ChainProber []Prober

func (c ChainProber) ProbeFormats(ctx context.Context, url string) (*Probe, error) {
	var (
		firstErr error
		fallback *Probe
	)
	for _, p := range c {
		probe, err := p.ProbeFormats(ctx, url)
		if err == nil {
			if len(probe.Qualities) > 0 {
				return probe, nil
			}
			if fallback == nil {
				fallback = probe
			}
			continue
		}
		if firstErr == nil {
			firstErr = err
		}
		if ctx.Err() != nil {
			break
		}
	}
	if fallback != nil {
		return fallback, nil
	}
	return nil, firstErr
}
