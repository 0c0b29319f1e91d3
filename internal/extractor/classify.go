package extractor

import (
	"context"
	stderrors "errors"
	"os/exec"
	"strings"

	"github.com/Nazarovdf/saverbot/internal/core/errors"
)

type marker struct {
	kind    errors.Kind
	needles []string
}

// Checked in order; backend messages often mention several symptoms.
var markers = []marker{
	{errors.KindTimeout, []string{
		"timed out", "timeout", "connection reset", "temporary failure in name resolution",
		"network is unreachable", "connection refused",
	}},
	{errors.KindIO, []string{"no space left", "permission denied", "read-only file system", "disk quota"}},
	{errors.KindUnsupported, []string{
		"unsupported url", "requested format is not available", "no video formats found",
		"drm protected", "is not a valid url",
	}},
	{errors.KindNoAudioTrack, []string{"unable to obtain file audio codec", "does not contain any stream"}},
	{errors.KindNotFound, []string{
		"private", "unavailable", "404", "not found", "login required", "log in",
		"sign in", "does not exist", "has been removed", "no longer available",
	}},
}

// Classify turns a backend failure into a domain error. Unrecognised
// failures are reported as not found; the raw text only goes to Details.
func Classify(op string, err error, output string) *errors.Error {
	if err == nil {
		return nil
	}
	var de *errors.Error
	if stderrors.As(err, &de) {
		return de
	}

	var ee *ExecError
	if output == "" && stderrors.As(err, &ee) {
		output = ee.Stderr
	}
	details := map[string]any{"output": truncate(output, 2000)}

	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(err, errors.KindTimeout, op, "backend timed out").WithDetails(details)
	}
	if stderrors.Is(err, exec.ErrNotFound) {
		return errors.Wrap(err, errors.KindInternal, op, "backend binary not found").WithDetails(details)
	}

	haystack := strings.ToLower(output + "\n" + err.Error())
	for _, m := range markers {
		for _, n := range m.needles {
			if strings.Contains(haystack, n) {
				return errors.Wrap(err, m.kind, op, n).WithDetails(details)
			}
		}
	}
	return errors.Wrap(err, errors.KindNotFound, op, "backend failed").WithDetails(details)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
