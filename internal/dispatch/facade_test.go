package dispatch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Nazarovdf/saverbot/internal/affordance"
	"github.com/Nazarovdf/saverbot/internal/cleanup"
	"github.com/Nazarovdf/saverbot/internal/core/errors"
	"github.com/Nazarovdf/saverbot/internal/delivery"
	"github.com/Nazarovdf/saverbot/internal/extractor"
	"github.com/Nazarovdf/saverbot/internal/jobs"
	"github.com/Nazarovdf/saverbot/internal/lang"
	"github.com/Nazarovdf/saverbot/internal/platform"
	"github.com/Nazarovdf/saverbot/internal/scratch"
	"github.com/Nazarovdf/saverbot/internal/session"
	"github.com/Nazarovdf/saverbot/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	facade *Facade
	fake   *testutils.FakeExtractor
	store  *session.Store
	area   *scratch.Area
	resp   *testutils.RecordingResponder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	area, err := scratch.NewArea(t.TempDir())
	require.NoError(t, err)
	store := session.NewStore()
	cl := cleanup.New(area.Root(), store, time.Hour, 0)
	t.Cleanup(cl.Close)

	fake := &testutils.FakeExtractor{}
	runner := jobs.NewRunner(fake, store, area, cl, testutils.TestRegistry(t), nil, jobs.Options{})
	return &fixture{
		facade: NewFacade(runner, store, cl),
		fake:   fake,
		store:  store,
		area:   area,
		resp:   &testutils.RecordingResponder{ChatID: 42},
	}
}

func count(texts []string, want string) int {
	n := 0
	for _, s := range texts {
		if s == want {
			n++
		}
	}
	return n
}

func TestParseLink(t *testing.T) {
	tests := []struct {
		link string
		want platform.Platform
		ok   bool
	}{
		{"https://www.tiktok.com/@u/video/123", platform.TikTok, true},
		{"HTTPS://YOUTU.BE/abc", platform.YouTube, true},
		{"https://pin.it/xyz", platform.Pinterest, true},
		{"https://www.instagram.com/p/abc/", platform.Instagram, true},
		{"www.tiktok.com/@u/video/123", "", false},
		{"ftp://tiktok.com/x", "", false},
		{"https://example.com/video", "", false},
		{"hello there", "", false},
	}
	for _, tt := range tests {
		got, err := ParseLink(tt.link)
		if !tt.ok {
			assert.Equal(t, errors.KindUnsupportedLink, errors.KindOf(err), tt.link)
			continue
		}
		require.NoError(t, err, tt.link)
		assert.Equal(t, tt.want, got, tt.link)
	}
}

func TestHandleURLUnsupportedLink(t *testing.T) {
	f := newFixture(t)
	err := f.facade.HandleURL(context.Background(), 42, "https://example.com/x", f.resp)

	assert.Equal(t, errors.KindUnsupportedLink, errors.KindOf(err))
	assert.Equal(t, []string{lang.Translate("error.unsupported_link", nil)}, f.resp.Texts())
	assert.Nil(t, f.store.Get(42))
}

func TestTikTokEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.facade.HandleURL(ctx, 42, "https://www.tiktok.com/@u/video/123", f.resp))

	media := f.resp.Media()
	require.Len(t, media, 1)
	assert.Equal(t, delivery.Video, media[0].Kind)
	assert.Equal(t, []affordance.Token{{Action: affordance.ExtractAudio, Owner: 42}}, media[0].Affordances)
	assert.Len(t, f.resp.Deleted(), 1, "loading message is removed")

	video := f.store.Get(42).ArtifactPath
	testutils.AssertFileExists(t, video)

	require.NoError(t, f.facade.HandleAffordance(ctx, 42, affordance.Token{Action: affordance.ExtractAudio, Owner: 42}, f.resp))

	media = f.resp.Media()
	require.Len(t, media, 2)
	assert.Equal(t, delivery.Audio, media[1].Kind)
	testutils.AssertFileNotExists(t, video)
	testutils.AssertFileNotExists(t, media[1].Path)
}

func TestSecondURLReleasesFirstSessionBeforeJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.facade.HandleURL(ctx, 42, "https://www.tiktok.com/@u/video/1", f.resp))
	first := f.store.Get(42).ArtifactPath
	testutils.AssertFileExists(t, first)

	var existedAtStart bool
	f.fake.StreamFn = func(_ context.Context, _ string, dest scratch.Path, _ string) (string, error) {
		_, err := os.Stat(first)
		existedAtStart = err == nil
		return testutils.CreateTestDataFile(t, dest.WithExt(".mp4"), 4096), nil
	}
	require.NoError(t, f.facade.HandleURL(ctx, 42, "https://www.tiktok.com/@u/video/2", f.resp))

	assert.False(t, existedAtStart, "first artifact must be gone before the second job starts")
	assert.NotEqual(t, first, f.store.Get(42).ArtifactPath)
}

func TestYouTubeEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fake.ProbeFn = func(context.Context, string) (*extractor.Probe, error) {
		return &extractor.Probe{Title: "T", Qualities: map[string]string{"360p": "f1", "720p": "f2"}}, nil
	}

	require.NoError(t, f.facade.HandleURL(ctx, 42, "https://youtu.be/abc", f.resp))
	items := f.resp.Items()
	keyboard := items[len(items)-1]
	assert.Equal(t, lang.Translate("youtube.choose_quality", map[string]any{"Title": "T"}), keyboard.Text)
	require.Len(t, keyboard.Affordances, 3)

	s := f.store.Get(42)
	assert.Equal(t, "https://youtu.be/abc", s.SourceURL)
	assert.Equal(t, map[string]string{"360p": "f1", "720p": "f2"}, s.QualityMap)

	require.NoError(t, f.facade.HandleAffordance(ctx, 42, keyboard.Affordances[0], f.resp))
	streams := f.fake.Streams()
	require.Len(t, streams, 1)
	assert.Equal(t, "f2", streams[0].Selector)
	assert.Len(t, f.resp.Media(), 1)
}

func TestAffordanceFromAnotherUserIsIgnored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.facade.HandleURL(ctx, 42, "https://www.tiktok.com/@u/video/1", f.resp))
	before := len(f.resp.Items())

	other := &testutils.RecordingResponder{ChatID: 7}
	require.NoError(t, f.facade.HandleAffordance(ctx, 7, affordance.Token{Action: affordance.ExtractAudio, Owner: 42}, other))

	assert.Empty(t, other.Items())
	assert.Len(t, f.resp.Items(), before)
	assert.Empty(t, f.fake.AudioSources)
}

func TestFailureSendsOneLocalizedMessage(t *testing.T) {
	f := newFixture(t)
	f.fake.StreamFn = func(context.Context, string, scratch.Path, string) (string, error) {
		return "", errors.New(errors.KindNotFound, "fetch_stream", "media not found").
			WithDetails(map[string]any{"output": "ERROR: [TikTok] 123: Video unavailable"})
	}

	err := f.facade.HandleURL(context.Background(), 42, "https://www.tiktok.com/@u/video/123", f.resp)
	assert.Equal(t, errors.KindNotFound, errors.KindOf(err))

	want := lang.Translate("error.not_found", map[string]any{"Platform": "TikTok"})
	texts := f.resp.Texts()
	assert.Equal(t, 1, count(texts, want))
	for _, s := range texts {
		assert.NotContains(t, s, "Video unavailable")
	}
	assert.Empty(t, f.resp.Media())
	assert.Nil(t, f.store.Get(42))
}

func TestNoAudioTrackIsDistinct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fake.AudioFn = func(context.Context, string, scratch.Path) (string, error) {
		return "", errors.New(errors.KindNoAudioTrack, "extract_audio", "no audio stream")
	}
	require.NoError(t, f.facade.HandleURL(ctx, 42, "https://www.tiktok.com/@u/video/1", f.resp))

	err := f.facade.HandleAffordance(ctx, 42, affordance.Token{Action: affordance.ExtractAudio, Owner: 42}, f.resp)
	assert.Equal(t, errors.KindNoAudioTrack, errors.KindOf(err))
	texts := f.resp.Texts()
	assert.Equal(t, lang.Translate("error.no_audio_track", nil), texts[len(texts)-1])
}

func TestCarouselFolderDeletedAfterLastPhoto(t *testing.T) {
	f := newFixture(t)
	f.fake.PostFn = func(_ context.Context, _ string, dir string) (*extractor.Post, error) {
		post := &extractor.Post{Dir: dir, Caption: "cap"}
		for _, name := range []string{"1.jpg", "2.jpg", "3.jpg"} {
			post.Photos = append(post.Photos, testutils.CreateTestDataFile(t, filepath.Join(dir, name), 2048))
		}
		return post, nil
	}
	f.resp.OnMedia = func(item delivery.Item) {
		testutils.AssertFileExists(t, item.Path)
	}

	require.NoError(t, f.facade.HandleURL(context.Background(), 42, "https://www.instagram.com/p/abc/", f.resp))

	media := f.resp.Media()
	require.Len(t, media, 3)
	testutils.AssertFileNotExists(t, filepath.Dir(media[0].Path))

	require.NoError(t, f.facade.HandleAffordance(context.Background(), 42, affordance.Token{Action: affordance.ShowCaption, Owner: 42}, f.resp))
	texts := f.resp.Texts()
	assert.Equal(t, lang.Translate("caption.show", map[string]any{"Caption": "cap"}), texts[len(texts)-1])
}

func TestQualityWithoutProbeIsExpired(t *testing.T) {
	f := newFixture(t)
	err := f.facade.HandleAffordance(context.Background(), 42, affordance.Token{Action: affordance.Quality, Quality: "720p", Owner: 42}, f.resp)
	assert.Equal(t, errors.KindSessionExpired, errors.KindOf(err))
	texts := f.resp.Texts()
	assert.Equal(t, lang.Translate("error.session_expired", nil), texts[len(texts)-1])
}
