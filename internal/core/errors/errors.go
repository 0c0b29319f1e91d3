package errors

import (
	"context"
	stderrors "errors"
	"fmt"
)

// Kind классифицирует сбой так, чтобы пользователю можно было показать одно сообщение.
type Kind string

const (
	KindUnsupportedLink Kind = "unsupported_link"
	KindNotFound        Kind = "not_found"
	KindUnsupported     Kind = "unsupported"
	KindTimeout         Kind = "timeout"
	KindIO              Kind = "io"
	KindCorrupt         Kind = "corrupt"
	KindNoAudioTrack    Kind = "no_audio_track"
	KindSessionExpired  Kind = "session_expired"
	KindInternal        Kind = "internal"
)

// Error is the domain error returned across package boundaries.
// Raw backend output goes into Details and is only ever logged.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Details map[string]any
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s: %v", e.Kind, e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if stderrors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

func (e *Error) WithDetails(details map[string]any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any, len(details))
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

func Wrap(err error, kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Cause: err}
}

// KindOf returns the kind of the first *Error in err's chain.
// Deadline errors without a domain wrapper are reported as timeouts.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var de *Error
	if stderrors.As(err, &de) {
		return de.Kind
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindInternal
}
