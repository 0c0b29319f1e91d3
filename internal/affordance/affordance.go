package affordance

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Action is a follow-up the user can trigger on a delivered item.
type Action int

const (
	ExtractAudio Action = iota + 1
	ShowCaption
	Quality
	AudioOnly
)

// Telegram caps callback data at 64 bytes.
const maxDataLen = 64

var codes = map[Action]string{
	ExtractAudio: "ea",
	ShowCaption:  "sc",
	Quality:      "yq",
	AudioOnly:    "ym",
}

var ErrMalformed = errors.New("malformed affordance token")

// Token is attached to an outbound message and comes back on click.
// Owner is the user the affordance was offered to.
type Token struct {
	Action  Action
	Quality string
	Owner   int64
}

func (a Action) String() string {
	switch a {
	case ExtractAudio:
		return "extract_audio"
	case ShowCaption:
		return "show_caption"
	case Quality:
		return "quality"
	case AudioOnly:
		return "audio_only"
	default:
		return "unknown"
	}
}

func Encode(t Token) (string, error) {
	code, ok := codes[t.Action]
	if !ok {
		return "", fmt.Errorf("%w: unknown action %d", ErrMalformed, t.Action)
	}
	var data string
	if t.Action == Quality {
		if t.Quality == "" || strings.Contains(t.Quality, ":") {
			return "", fmt.Errorf("%w: bad quality label %q", ErrMalformed, t.Quality)
		}
		data = code + ":" + t.Quality + ":" + strconv.FormatInt(t.Owner, 10)
	} else {
		data = code + ":" + strconv.FormatInt(t.Owner, 10)
	}
	if len(data) > maxDataLen {
		return "", fmt.Errorf("%w: %d bytes", ErrMalformed, len(data))
	}
	return data, nil
}

func Decode(data string) (Token, error) {
	parts := strings.Split(data, ":")
	if len(parts) < 2 {
		return Token{}, ErrMalformed
	}

	var action Action
	for a, code := range codes {
		if code == parts[0] {
			action = a
			break
		}
	}
	if action == 0 {
		return Token{}, fmt.Errorf("%w: unknown code %q", ErrMalformed, parts[0])
	}

	t := Token{Action: action}
	ownerPart := parts[1]
	switch {
	case action == Quality && len(parts) == 3 && parts[1] != "":
		t.Quality = parts[1]
		ownerPart = parts[2]
	case action != Quality && len(parts) == 2:
	default:
		return Token{}, ErrMalformed
	}

	owner, err := strconv.ParseInt(ownerPart, 10, 64)
	if err != nil {
		return Token{}, fmt.Errorf("%w: owner %q", ErrMalformed, ownerPart)
	}
	t.Owner = owner
	return t, nil
}
