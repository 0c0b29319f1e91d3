package platform

import "strings"

type Platform string

const (
	Instagram Platform = "instagram"
	TikTok    Platform = "tiktok"
	Pinterest Platform = "pinterest"
	YouTube   Platform = "youtube"
)

type rule struct {
	platform Platform
	markers  []string
}

// Order matters: the first rule with a matching marker wins.
var rules = []rule{
	{Instagram, []string{"instagram.com", "instagr.am"}},
	{TikTok, []string{"tiktok.com"}},
	{Pinterest, []string{"pinterest.com", "pin.it"}},
	{YouTube, []string{"youtube.com", "youtu.be"}},
}

// Detect maps a link to the platform whose host marker it contains.
func Detect(url string) (Platform, bool) {
	lower := strings.ToLower(url)
	for _, r := range rules {
		for _, m := range r.markers {
			if strings.Contains(lower, m) {
				return r.platform, true
			}
		}
	}
	return "", false
}

// Title is the display name used in user-facing messages.
func (p Platform) Title() string {
	switch p {
	case Instagram:
		return "Instagram"
	case TikTok:
		return "TikTok"
	case Pinterest:
		return "Pinterest"
	case YouTube:
		return "YouTube"
	default:
		return string(p)
	}
}
