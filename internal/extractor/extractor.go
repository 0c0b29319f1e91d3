package extractor

import (
	"context"
	"strings"
	"time"

	"github.com/Nazarovdf/saverbot/internal/config"
	"github.com/Nazarovdf/saverbot/internal/scratch"
)

// Post is what an Instagram fetch left in its directory, in backend order.
type Post struct {
	Dir     string
	Videos  []string
	Photos  []string
	Caption string
}

func (p *Post) Empty() bool {
	return len(p.Videos) == 0 && len(p.Photos) == 0
}

// Probe is the quality table of a stream-style source.
type Probe struct {
	Title     string
	Qualities map[string]string
}

type PostFetcher interface {
	FetchPost(ctx context.Context, url, destDir string) (*Post, error)
}

type StreamFetcher interface {
	FetchStream(ctx context.Context, url string, dest scratch.Path, selector string) (string, error)
}

type Prober interface {
	ProbeFormats(ctx context.Context, url string) (*Probe, error)
}

type AudioExtractor interface {
	ExtractAudio(ctx context.Context, source string, dest scratch.Path) (string, error)
}

// Extractor is everything the job runner needs from the media backends.
// Every failure is a *errors.Error carrying one of the fetch kinds.
type Extractor interface {
	PostFetcher
	StreamFetcher
	Prober
	AudioExtractor
}

type Options struct {
	YtDlpBinary       string
	InstaloaderBinary string
	FFmpegBinary      string
	FFprobeBinary     string
	Proxy             string
	AudioBitrate      string
	MinViableSize     int64
	ResolveTimeout    time.Duration
}

// Service routes each operation to the backend that handles it.
type Service struct {
	posts  PostFetcher
	ytdlp  *YtDlp
	prober Prober
	ffmpeg *FFmpeg
}

func New(opts Options) *Service {
	if opts.MinViableSize <= 0 {
		opts.MinViableSize = config.DefaultMinViableSize
	}
	if opts.ResolveTimeout <= 0 {
		opts.ResolveTimeout = 15 * time.Second
	}
	exec := NewOSExecutor()
	ytdlp := NewYtDlp(opts.YtDlpBinary, opts.Proxy, opts.AudioBitrate, opts.MinViableSize)
	resolver := NewLinkResolver(opts.ResolveTimeout, opts.Proxy)

	return &Service{
		posts:  NewInstaloader(exec, opts.InstaloaderBinary, resolver, opts.MinViableSize),
		ytdlp:  ytdlp,
		prober: ChainProber{ytdlp, NewYouTubeProber()},
		ffmpeg: NewFFmpeg(exec, opts.FFmpegBinary, opts.FFprobeBinary, opts.AudioBitrate, opts.MinViableSize),
	}
}

func (s *Service) FetchPost(ctx context.Context, url, destDir string) (*Post, error) {
	return s.posts.FetchPost(ctx, url, destDir)
}

func (s *Service) FetchStream(ctx context.Context, url string, dest scratch.Path, selector string) (string, error) {
	return s.ytdlp.FetchStream(ctx, url, dest, selector)
}

func (s *Service) ProbeFormats(ctx context.Context, url string) (*Probe, error) {
	return s.prober.ProbeFormats(ctx, url)
}

// ExtractAudio transcodes a local file, or pulls only the audio of a remote URL.
func (s *Service) ExtractAudio(ctx context.Context, source string, dest scratch.Path) (string, error) {
	if isRemote(source) {
		return s.ytdlp.ExtractAudio(ctx, source, dest)
	}
	return s.ffmpeg.ExtractAudio(ctx, source, dest)
}

func (s *Service) RunUpdate(ctx context.Context) {
	s.ytdlp.RunUpdate(ctx)
}

func isRemote(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
