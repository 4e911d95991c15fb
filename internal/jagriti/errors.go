package jagriti

import (
	"errors"
	"fmt"
)

// CaptchaError reports that the portal answered with an anti-automation
// challenge instead of data. Never retried: the challenge cannot be passed
// without human intervention.
type CaptchaError struct {
	Marker string
}

func (e *CaptchaError) Error() string {
	return fmt.Sprintf("upstream returned a captcha page (marker=%q)", e.Marker)
}

// ValidationError reports a 4xx from the portal for input we should have
// rejected before calling it.
type ValidationError struct {
	StatusCode int
	Message    string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("upstream rejected request (status=%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("upstream rejected request (status=%d)", e.StatusCode)
}

// NotFoundError reports that a reference-data lookup matched nothing.
type NotFoundError struct {
	Entity string
	Value  string
}

func (e *NotFoundError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("%s not found: %s", e.Entity, e.Value)
	}
	return fmt.Sprintf("%s not found", e.Entity)
}

// TimeoutError reports that the call (including retries) ran out of time.
type TimeoutError struct {
	Attempts int
	Err      error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("upstream request timed out after %d attempt(s)", e.Attempts)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// UpstreamError covers every remaining failure mode: non-2xx statuses,
// transport faults, and bodies that are neither captcha pages nor valid
// payloads. Detail is for logs only and must never reach API callers.
type UpstreamError struct {
	StatusCode int
	Detail     string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("upstream error (status=%d): %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("upstream error: %s", e.Detail)
}

// Retryable reports whether err is worth another round trip: transport
// timeouts and 5xx responses only. Captcha, validation, and not-found
// failures are deterministic and never retried.
func Retryable(err error) bool {
	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		return true
	}
	var upstreamErr *UpstreamError
	if errors.As(err, &upstreamErr) {
		return upstreamErr.StatusCode == 0 || upstreamErr.StatusCode >= 500
	}
	return false
}
