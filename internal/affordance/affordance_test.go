package affordance

import (
	"errors"
	"strings"
	"testing"
)

func TestEncodeDecode(t *testing.T) {
	tests := []struct {
		name  string
		token Token
		data  string
	}{
		{"extract audio", Token{Action: ExtractAudio, Owner: 42}, "ea:42"},
		{"caption", Token{Action: ShowCaption, Owner: 42}, "sc:42"},
		{"quality", Token{Action: Quality, Quality: "720p", Owner: 123456789}, "yq:720p:123456789"},
		{"audio only", Token{Action: AudioOnly, Owner: 9}, "ym:9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Encode(tt.token)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if data != tt.data {
				t.Errorf("Encode() = %q, want %q", data, tt.data)
			}
			got, err := Decode(data)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if got != tt.token {
				t.Errorf("Decode() = %+v, want %+v", got, tt.token)
			}
		})
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	for _, data := range []string{"", "ea", "zz:1", "ea:abc", "yq:1", "yq::1", "sc:1:2", "delete_movie:5"} {
		if _, err := Decode(data); !errors.Is(err, ErrMalformed) {
			t.Errorf("Decode(%q) error = %v, want ErrMalformed", data, err)
		}
	}
}

func TestEncodeRejectsOversizedOrInvalid(t *testing.T) {
	if _, err := Encode(Token{Action: Quality, Quality: strings.Repeat("9", 70), Owner: 1}); err == nil {
		t.Error("expected oversized token to be rejected")
	}
	if _, err := Encode(Token{Action: Quality, Owner: 1}); err == nil {
		t.Error("expected empty quality to be rejected")
	}
	if _, err := Encode(Token{Action: Action(99)}); err == nil {
		t.Error("expected unknown action to be rejected")
	}
}
