package extractor

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Nazarovdf/saverbot/internal/core/errors"
	"github.com/Nazarovdf/saverbot/internal/scratch"
)

var (
	videoExts = map[string]bool{".mp4": true, ".mov": true, ".webm": true, ".mkv": true, ".m4v": true}
	photoExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".heic": true}
)

func IsVideo(path string) bool { return videoExts[strings.ToLower(filepath.Ext(path))] }

func IsPhoto(path string) bool { return photoExts[strings.ToLower(filepath.Ext(path))] }

// ReadPost sorts the files of a post directory into videos, photos and caption.
// Media below minSize is ignored; if that leaves nothing but something was
// there, the post is corrupt.
func ReadPost(dir string, minSize int64) (*Post, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(err, errors.KindNotFound, "read_post", "post directory missing")
		}
		return nil, errors.Wrap(err, errors.KindIO, "read_post", "cannot read post directory")
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Slice(names, func(i, j int) bool { return naturalLess(names[i], names[j]) })

	post := &Post{Dir: dir}
	skipped := 0
	for _, name := range names {
		path := filepath.Join(dir, name)
		switch {
		case IsVideo(name) || IsPhoto(name):
			if checkArtifact("read_post", path, minSize) != nil {
				skipped++
				continue
			}
			if IsVideo(name) {
				post.Videos = append(post.Videos, path)
			} else {
				post.Photos = append(post.Photos, path)
			}
		case strings.EqualFold(filepath.Ext(name), ".txt") && post.Caption == "":
			if data, err := os.ReadFile(path); err == nil {
				post.Caption = strings.TrimSpace(string(data))
			}
		}
	}

	if post.Empty() {
		if skipped > 0 {
			return nil, errors.New(errors.KindCorrupt, "read_post", "every media file is below the size floor")
		}
		return nil, errors.New(errors.KindNotFound, "read_post", "post has no media")
	}
	return post, nil
}

// checkArtifact fails when path is missing or smaller than minSize.
func checkArtifact(op, path string, minSize int64) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Wrap(err, errors.KindNotFound, op, "output file missing")
		}
		return errors.Wrap(err, errors.KindIO, op, "cannot stat output")
	}
	if info.IsDir() {
		return errors.New(errors.KindCorrupt, op, "output is a directory")
	}
	if info.Size() < minSize {
		return errors.New(errors.KindCorrupt, op, "output below minimum size").WithDetails(map[string]any{
			"path": path,
			"size": info.Size(),
		})
	}
	return nil
}

// resolveOutput finds the finished file yt-dlp wrote for dest, skipping
// partial downloads and per-format intermediates.
func resolveOutput(op string, dest scratch.Path, minSize int64) (string, error) {
	matches, err := filepath.Glob(dest.String() + ".*")
	if err != nil {
		return "", errors.Wrap(err, errors.KindIO, op, "glob output")
	}
	sort.Strings(matches)

	base := dest.String()
	for _, m := range matches {
		rest := strings.TrimPrefix(m, base)
		if strings.Count(rest, ".") != 1 {
			continue
		}
		if err := checkArtifact(op, m, minSize); err != nil {
			return "", err
		}
		return m, nil
	}
	return "", errors.New(errors.KindNotFound, op, "backend produced no file")
}

// naturalLess orders "x_2.jpg" before "x_10.jpg".
func naturalLess(a, b string) bool {
	for a != "" && b != "" {
		da, db := leadingDigits(a), leadingDigits(b)
		if da != "" && db != "" {
			na, nb := strings.TrimLeft(da, "0"), strings.TrimLeft(db, "0")
			if len(na) != len(nb) {
				return len(na) < len(nb)
			}
			if na != nb {
				return na < nb
			}
			a, b = a[len(da):], b[len(db):]
			continue
		}
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		a, b = a[1:], b[1:]
	}
	return len(a) < len(b)
}

func leadingDigits(s string) string {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i]
}
