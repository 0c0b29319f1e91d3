package extractor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// MinHeight is the lowest rendition offered as a quality choice.
const MinHeight = 144

// Format is one rendition as reported by a prober backend.
// An empty codec means the backend did not say.
type Format struct {
	ID     string `json:"format_id"`
	Vcodec string `json:"vcodec"`
	Acodec string `json:"acodec"`
	Height int    `json:"height"`
	Ext    string `json:"ext"`
}

func (f Format) hasVideo() bool { return f.Vcodec != "none" }

func (f Format) hasAudio() bool { return f.Acodec != "none" }

// FilterFormats builds the label -> selector table. A rendition qualifies
// when it has video at MinHeight or above and audio, either its own or a
// separate audio-only rendition the fetch selector can merge in. The first
// selector seen for a label wins.
func FilterFormats(formats []Format) map[string]string {
	mergeable := false
	for _, f := range formats {
		if !f.hasVideo() && f.hasAudio() && f.Acodec != "" {
			mergeable = true
			break
		}
	}

	out := make(map[string]string)
	for _, f := range formats {
		if f.ID == "" || !f.hasVideo() || f.Height < MinHeight {
			continue
		}
		if !f.hasAudio() && !mergeable {
			continue
		}
		label := fmt.Sprintf("%dp", f.Height)
		if _, seen := out[label]; !seen {
			out[label] = f.ID
		}
	}
	return out
}

// SortLabels orders quality labels by height, highest first.
func SortLabels(qualities map[string]string) []string {
	labels := make([]string, 0, len(qualities))
	for l := range qualities {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool {
		hi, hj := labelHeight(labels[i]), labelHeight(labels[j])
		if hi != hj {
			return hi > hj
		}
		return labels[i] < labels[j]
	})
	return labels
}

func labelHeight(label string) int {
	n, err := strconv.Atoi(strings.TrimSuffix(label, "p"))
	if err != nil {
		return 0
	}
	return n
}

type probeInfo struct {
	Title   string   `json:"title"`
	Formats []Format `json:"formats"`
}

// parseProbeJSON reads the info object out of yt-dlp stdout, ignoring any
// non-JSON lines around it.
func parseProbeJSON(stdout string) (*probeInfo, error) {
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := bytes.TrimSpace([]byte(lines[i]))
		if len(line) == 0 || line[0] != '{' {
			continue
		}
		var info probeInfo
		if err := json.Unmarshal(line, &info); err != nil {
			return nil, fmt.Errorf("parse yt-dlp json: %w", err)
		}
		return &info, nil
	}
	return nil, fmt.Errorf("no json object in yt-dlp output")
}
