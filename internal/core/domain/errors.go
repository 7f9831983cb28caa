package domain

import (
	"context"
	"errors"
	"fmt"
)

// Pipeline stages, used to tag failures so callers can tell where a request died.
const (
	StageIncidents = "incidents"
	StageRoute     = "route"
	StageDecode    = "decode"
)

// Upstream names.
const (
	UpstreamTraffic = "traffic"
	UpstreamRouter  = "router"
)

// ErrNoPayload is returned when no routing payload has been recorded yet.
var ErrNoPayload = errors.New("no routing payload recorded")

// ValidationError reports an inbound request that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// UpstreamError reports a failed call to the traffic provider or routing engine.
// StatusCode is zero when the call never produced an HTTP response.
type UpstreamError struct {
	Upstream   string
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: request failed with status code %d: %s", e.Upstream, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: request failed: %v", e.Upstream, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Transport reports whether the upstream was unreachable rather than answering with an error status.
func (e *UpstreamError) Transport() bool { return e.StatusCode == 0 }

// Timeout reports whether the failure was a deadline expiry.
func (e *UpstreamError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(e.Err, &te) && te.Timeout()
}

// ResponseShapeError reports an upstream response missing the fields we rely on.
type ResponseShapeError struct {
	Upstream string
	Path     string
	Err      error
}

func (e *ResponseShapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: unexpected response shape at %s: %v", e.Upstream, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: unexpected response shape: missing %s", e.Upstream, e.Path)
}

func (e *ResponseShapeError) Unwrap() error { return e.Err }

// DecodeError reports a malformed encoded polyline.
type DecodeError struct {
	Offset int
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("polyline: decode at byte %d: %s", e.Offset, e.Reason)
}

// EncodingError reports a polyline that cannot be reinterpreted as latin-1 bytes.
type EncodingError struct {
	Offset int
	Rune   rune
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("polyline: character %q at offset %d is not latin-1 representable", e.Rune, e.Offset)
}

// StageError tags an error with the pipeline stage that produced it.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return e.Stage + ": " + e.Err.Error() }

func (e *StageError) Unwrap() error { return e.Err }

// StageOf returns the pipeline stage recorded on err, or "" if none.
func StageOf(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
