package testutils

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/Nazarovdf/saverbot/internal/extractor"
	"github.com/Nazarovdf/saverbot/internal/scratch"
)

// StreamCall records one FetchStream invocation.
type StreamCall struct {
	URL      string
	Dest     scratch.Path
	Selector string
}

// FakeExtractor implements extractor.Extractor. Each operation runs the
// matching func when set and otherwise writes a small valid file.
type FakeExtractor struct {
	PostFn   func(ctx context.Context, url, destDir string) (*extractor.Post, error)
	StreamFn func(ctx context.Context, url string, dest scratch.Path, selector string) (string, error)
	ProbeFn  func(ctx context.Context, url string) (*extractor.Probe, error)
	AudioFn  func(ctx context.Context, source string, dest scratch.Path) (string, error)

	mu           sync.Mutex
	StreamCalls  []StreamCall
	AudioSources []string
	PostURLs     []string
	ProbeURLs    []string
}

func (f *FakeExtractor) FetchPost(ctx context.Context, url, destDir string) (*extractor.Post, error) {
	f.mu.Lock()
	f.PostURLs = append(f.PostURLs, url)
	f.mu.Unlock()

	if f.PostFn != nil {
		return f.PostFn(ctx, url, destDir)
	}
	video := filepath.Join(destDir, "1.mp4")
	if err := WriteDataFile(video, 4096); err != nil {
		return nil, err
	}
	return &extractor.Post{Dir: destDir, Videos: []string{video}}, nil
}

func (f *FakeExtractor) FetchStream(ctx context.Context, url string, dest scratch.Path, selector string) (string, error) {
	f.mu.Lock()
	f.StreamCalls = append(f.StreamCalls, StreamCall{URL: url, Dest: dest, Selector: selector})
	f.mu.Unlock()

	if f.StreamFn != nil {
		return f.StreamFn(ctx, url, dest, selector)
	}
	out := dest.WithExt(".mp4")
	if err := WriteDataFile(out, 4096); err != nil {
		return "", err
	}
	return out, nil
}

func (f *FakeExtractor) ProbeFormats(ctx context.Context, url string) (*extractor.Probe, error) {
	f.mu.Lock()
	f.ProbeURLs = append(f.ProbeURLs, url)
	f.mu.Unlock()

	if f.ProbeFn != nil {
		return f.ProbeFn(ctx, url)
	}
	return &extractor.Probe{Title: "video", Qualities: map[string]string{}}, nil
}

func (f *FakeExtractor) ExtractAudio(ctx context.Context, source string, dest scratch.Path) (string, error) {
	f.mu.Lock()
	f.AudioSources = append(f.AudioSources, source)
	f.mu.Unlock()

	if f.AudioFn != nil {
		return f.AudioFn(ctx, source, dest)
	}
	out := dest.WithExt(".mp3")
	if err := WriteDataFile(out, 2048); err != nil {
		return "", err
	}
	return out, nil
}

func (f *FakeExtractor) Streams() []StreamCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]StreamCall(nil), f.StreamCalls...)
}
