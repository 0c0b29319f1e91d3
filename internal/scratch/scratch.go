package scratch

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const (
	namePrefix = "sv"
	tokenLen   = 12
	dirMode    = 0o755
)

var ownedName = regexp.MustCompile(`^sv-[a-z]+-\d+-[0-9a-f]{12}`)

// Area is the scratch root every download attempt writes under.
type Area struct {
	root string
}

func NewArea(root string) (*Area, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve scratch root: %w", err)
	}
	if err := os.MkdirAll(abs, dirMode); err != nil {
		return nil, fmt.Errorf("create scratch root: %w", err)
	}
	return &Area{root: abs}, nil
}

func (a *Area) Root() string { return a.root }

// Allocate returns a fresh path stem unique to this attempt.
// Extractors append their own extension or use it as a directory.
func (a *Area) Allocate(userID int64, tag string) Path {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")[:tokenLen]
	name := fmt.Sprintf("%s-%s-%d-%s", namePrefix, tag, userID, token)
	return Path(filepath.Join(a.root, name))
}

// Path is an extension-less location inside the scratch root.
type Path string

func (p Path) String() string { return string(p) }

func (p Path) Name() string { return filepath.Base(string(p)) }

// WithExt is the stem with the given extension (".mp3", ".mp4").
func (p Path) WithExt(ext string) string { return string(p) + ext }

// Owns reports whether a directory entry name was produced by Allocate.
func Owns(name string) bool {
	return ownedName.MatchString(name)
}

// TopLevel returns the first path element of p below root, or "" when p is outside root.
func TopLevel(root, p string) string {
	rel, err := filepath.Rel(root, p)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return ""
	}
	if i := strings.IndexRune(rel, filepath.Separator); i >= 0 {
		return rel[:i]
	}
	return rel
}
