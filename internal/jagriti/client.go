package jagriti

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/VISHAAL-KUMAR-A/Lexi/internal/metrics"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3
	defaultBackoff    = 500 * time.Millisecond
	maxBackoff        = 8 * time.Second

	// maxDetailBytes bounds how much upstream body is kept on an error for
	// logging. The API layer never echoes it to callers.
	maxDetailBytes = 512
)

// defaultCaptchaMarkers keeps challenge detection on for clients built
// without WithCaptchaMarkers. Deployments override the set via configuration.
var defaultCaptchaMarkers = []string{
	"captcha",
	"verify you are human",
	"security check",
	"recaptcha",
	"cloudflare",
}

type Option func(*Client)

// Client talks to the e-Jagriti portal's internal service endpoints.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	markers    []string
	maxRetries int
	backoff    time.Duration
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
}

func NewClient(baseURL string, options ...Option) (*Client, error) {
	parsedBaseURL, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse jagriti base url: %w", err)
	}
	if parsedBaseURL.Scheme == "" || parsedBaseURL.Host == "" {
		return nil, fmt.Errorf("jagriti base url must include scheme and host")
	}

	client := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    parsedBaseURL,
		markers:    append([]string(nil), defaultCaptchaMarkers...),
		maxRetries: defaultMaxRetries,
		backoff:    defaultBackoff,
		now:        time.Now,
		sleep:      sleepContext,
	}

	for _, option := range options {
		option(client)
	}

	return client, nil
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(client *Client) {
		if httpClient != nil {
			client.httpClient = httpClient
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(client *Client) {
		if timeout > 0 {
			client.httpClient.Timeout = timeout
		}
	}
}

func WithMaxRetries(maxRetries int) Option {
	return func(client *Client) {
		if maxRetries >= 0 {
			client.maxRetries = maxRetries
		}
	}
}

// WithCaptchaMarkers replaces the challenge-detection marker set. Markers are
// matched case-insensitively against the whole response body.
func WithCaptchaMarkers(markers []string) Option {
	return func(client *Client) {
		client.markers = client.markers[:0]
		for _, marker := range markers {
			normalized := strings.ToLower(strings.TrimSpace(marker))
			if normalized == "" {
				continue
			}
			client.markers = append(client.markers, normalized)
		}
	}
}

func WithBackoff(backoff time.Duration) Option {
	return func(client *Client) {
		if backoff > 0 {
			client.backoff = backoff
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(client *Client) {
		if now != nil {
			client.now = now
		}
	}
}

func withSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(client *Client) {
		if sleep != nil {
			client.sleep = sleep
		}
	}
}

// do issues one logical call: build request, send, classify, retry timeouts
// and 5xx with exponential backoff under an overall deadline. A non-nil body
// is sent as JSON. The returned bytes are the raw response body of the first
// successful attempt.
func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, body any) ([]byte, error) {
	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		payload = encoded
	}

	// One request cannot retry forever: every attempt shares a deadline
	// derived from the per-call timeout.
	deadline := c.httpClient.Timeout * time.Duration(c.maxRetries+1)
	if deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, deadline)
		defer cancel()
	}

	label := endpointLabel(endpoint)
	attempts := c.maxRetries + 1

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			metrics.RecordUpstreamRetry(label)
			if err := c.sleep(ctx, backoffDelay(c.backoff, attempt-1)); err != nil {
				if errors.Is(err, context.Canceled) {
					// Caller went away mid-backoff; not a timeout.
					return nil, err
				}
				return nil, &TimeoutError{Attempts: attempt, Err: lastErr}
			}
		}

		responseBody, err := c.send(ctx, method, endpoint, query, payload, label)
		if err == nil {
			return responseBody, nil
		}
		lastErr = err

		if !Retryable(err) {
			return nil, err
		}
		if ctx.Err() != nil {
			break
		}
	}

	var timeoutErr *TimeoutError
	if errors.As(lastErr, &timeoutErr) {
		return nil, &TimeoutError{Attempts: attempts, Err: timeoutErr.Err}
	}
	return nil, lastErr
}

func (c *Client) send(ctx context.Context, method, endpoint string, query url.Values, payload []byte, label string) ([]byte, error) {
	requestURL := c.baseURL.ResolveReference(&url.URL{Path: endpoint})
	if len(query) > 0 {
		requestURL.RawQuery = query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL.String(), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	metrics.RecordUpstreamRequest(label)
	started := c.now()

	rawResponse, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordUpstreamFailure(label)
		if isTimeout(err) {
			metrics.RecordUpstreamTimeout(label)
			return nil, &TimeoutError{Attempts: 1, Err: err}
		}
		if ctx.Err() != nil {
			// Caller went away; propagate cancellation untouched.
			return nil, ctx.Err()
		}
		return nil, &UpstreamError{Detail: sanitizeDetail(err.Error())}
	}
	defer rawResponse.Body.Close()

	responseBody, err := io.ReadAll(rawResponse.Body)
	if err != nil {
		metrics.RecordUpstreamFailure(label)
		return nil, &UpstreamError{StatusCode: rawResponse.StatusCode, Detail: sanitizeDetail(err.Error())}
	}

	// A challenge page can arrive with any status, including 200, and is not
	// parseable as a result payload. Check before anything else.
	if marker, found := c.detectCaptcha(responseBody); found {
		metrics.RecordCaptchaDetected(label)
		return nil, &CaptchaError{Marker: marker}
	}

	switch {
	case rawResponse.StatusCode == http.StatusNotFound:
		metrics.RecordUpstreamFailure(label)
		return nil, &NotFoundError{Entity: "resource"}
	case rawResponse.StatusCode >= http.StatusInternalServerError:
		metrics.RecordUpstreamFailure(label)
		return nil, &UpstreamError{StatusCode: rawResponse.StatusCode, Detail: sanitizeDetail(string(responseBody))}
	case rawResponse.StatusCode >= http.StatusBadRequest:
		metrics.RecordUpstreamFailure(label)
		return nil, &ValidationError{StatusCode: rawResponse.StatusCode, Message: sanitizeDetail(string(responseBody))}
	}

	metrics.RecordUpstreamSuccess(label, c.now().Sub(started))
	return responseBody, nil
}

func (c *Client) detectCaptcha(body []byte) (string, bool) {
	if len(c.markers) == 0 || len(body) == 0 {
		return "", false
	}
	content := strings.ToLower(string(body))
	for _, marker := range c.markers {
		if strings.Contains(content, marker) {
			return marker, true
		}
	}
	return "", false
}

func backoffDelay(base time.Duration, retry int) time.Duration {
	delay := base << retry
	if delay > maxBackoff || delay <= 0 {
		return maxBackoff
	}
	return delay
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func sanitizeDetail(raw string) string {
	detail := strings.TrimSpace(raw)
	if len(detail) > maxDetailBytes {
		detail = detail[:maxDetailBytes]
	}
	return detail
}

func endpointLabel(endpoint string) string {
	trimmed := strings.Trim(endpoint, "/")
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	if trimmed == "" {
		return "unknown"
	}
	return trimmed
}
