package testutils

import (
	"context"
	"sync"

	"github.com/Nazarovdf/saverbot/internal/affordance"
	"github.com/Nazarovdf/saverbot/internal/delivery"
)

// RecordingResponder implements delivery.Responder in memory.
type RecordingResponder struct {
	ChatID int64

	// MediaErr, if set, is returned by SendMedia.
	MediaErr error
	// OnMedia runs for each media item before it is recorded.
	OnMedia func(item delivery.Item)

	mu      sync.Mutex
	nextID  int
	sent    []delivery.Item
	edited  []string
	deleted []delivery.MessageRef
}

func (r *RecordingResponder) SendText(_ context.Context, text string, affs []affordance.Token) (delivery.MessageRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.sent = append(r.sent, delivery.Item{Kind: delivery.Text, Text: text, Affordances: affs})
	return delivery.MessageRef{ChatID: r.ChatID, MessageID: r.nextID}, nil
}

func (r *RecordingResponder) EditText(_ context.Context, _ delivery.MessageRef, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.edited = append(r.edited, text)
	return nil
}

func (r *RecordingResponder) Delete(_ context.Context, ref delivery.MessageRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, ref)
	return nil
}

func (r *RecordingResponder) SendMedia(_ context.Context, item delivery.Item) error {
	if r.OnMedia != nil {
		r.OnMedia(item)
	}
	if r.MediaErr != nil {
		return r.MediaErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.sent = append(r.sent, item)
	return nil
}

// Items returns every delivered item, text and media, in order.
func (r *RecordingResponder) Items() []delivery.Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]delivery.Item(nil), r.sent...)
}

// Texts returns the bodies of the text messages only.
func (r *RecordingResponder) Texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, it := range r.sent {
		if it.Kind == delivery.Text {
			out = append(out, it.Text)
		}
	}
	return out
}

func (r *RecordingResponder) Media() []delivery.Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []delivery.Item
	for _, it := range r.sent {
		if it.Kind != delivery.Text {
			out = append(out, it)
		}
	}
	return out
}

func (r *RecordingResponder) Deleted() []delivery.MessageRef {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]delivery.MessageRef(nil), r.deleted...)
}
