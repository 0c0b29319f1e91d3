package delivery

import (
	"context"

	"github.com/Nazarovdf/saverbot/internal/affordance"
	"github.com/Nazarovdf/saverbot/internal/logutils"
)

type Kind int

const (
	Text Kind = iota
	Video
	Photo
	Audio
	Document
)

func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case Video:
		return "video"
	case Photo:
		return "photo"
	case Audio:
		return "audio"
	case Document:
		return "document"
	default:
		return "unknown"
	}
}

// Item is one outbound message. Text is the body for Text items and the
// caption otherwise; Label is a short position marker such as "2/5".
type Item struct {
	Kind        Kind
	Path        string
	Text        string
	Label       string
	Affordances []affordance.Token
}

// Plan is what a finished job hands to the transport. Paths in ReleaseAfter
// are removed once every item has been attempted.
type Plan struct {
	Items        []Item
	ReleaseAfter []string
}

// StripAffordances drops every follow-up action, used when the job's session
// was superseded before it could be committed.
func (p *Plan) StripAffordances() {
	for i := range p.Items {
		p.Items[i].Affordances = nil
	}
}

type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Responder is the outbound capability the core needs from the chat transport.
type Responder interface {
	SendText(ctx context.Context, text string, affordances []affordance.Token) (MessageRef, error)
	EditText(ctx context.Context, ref MessageRef, text string) error
	Delete(ctx context.Context, ref MessageRef) error
	SendMedia(ctx context.Context, item Item) error
}

// Send delivers items in order. A failed item does not stop the rest; the
// first error is returned.
func Send(ctx context.Context, r Responder, plan Plan) error {
	var firstErr error
	for i, item := range plan.Items {
		var err error
		if item.Kind == Text {
			_, err = r.SendText(ctx, item.Text, item.Affordances)
		} else {
			err = r.SendMedia(ctx, item)
		}
		if err != nil {
			logutils.Log.WithError(err).WithFields(map[string]any{
				"index": i,
				"kind":  item.Kind.String(),
				"path":  item.Path,
			}).Warn("Failed to deliver item")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
