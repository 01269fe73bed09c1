// Package dispatch builds and executes the outbound upstream HTTP
// request described in spec.md §4.6: per-family auth injection, outbound
// proxy selection, bounded retry with exponential backoff and jitter,
// and a circuit breaker that additionally trips a channel out of the
// retry loop after sustained upstream failure. Grounded on the
// teacher's internal/proxy/core.go request-building pattern and on
// nghyane-llm-mux's internal/resilience retry/breaker idiom.
package dispatch

import (
	"bytes"
	"context"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"chatproxy/internal/apperrors"
	"chatproxy/internal/channel"
	"chatproxy/internal/family"
	"chatproxy/internal/httpclient"
	"chatproxy/internal/logger"
)

// Dispatcher owns the shared client factory and one circuit breaker per
// channel id; it is safe for concurrent use across requests.
type Dispatcher struct {
	clients *httpclient.Factory
	log     *logger.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

func New(clients *httpclient.Factory, log *logger.Logger) *Dispatcher {
	return &Dispatcher{clients: clients, log: log, breakers: make(map[string]*gobreaker.CircuitBreaker)}
}

func (d *Dispatcher) breakerFor(ch *channel.Channel) *gobreaker.CircuitBreaker {
	d.mu.Lock()
	defer d.mu.Unlock()
	if b, ok := d.breakers[ch.ID]; ok {
		return b
	}
	b := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        ch.ID,
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	d.breakers[ch.ID] = b
	return b
}

// Result is a buffered unary upstream response.
type Result struct {
	Status int
	Header http.Header
	Body   []byte
}

// StreamResult is an open streaming upstream response; the caller must
// Close Body once done reading.
type StreamResult struct {
	Status int
	Header http.Header
	Body   io.ReadCloser
}

// Dispatch performs a unary (non-streaming) upstream call, applying the
// full bounded-retry policy of spec.md §4.6.
func (d *Dispatcher) Dispatch(ctx context.Context, ch *channel.Channel, codec family.Codec, model string, body []byte) (*Result, error) {
	cb := d.breakerFor(ch)
	v, err := cb.Execute(func() (interface{}, error) {
		return d.dispatchWithRetry(ctx, ch, codec, model, body, false)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, apperrors.NewUpstreamNetwork(err)
		}
		return nil, err
	}
	return v.(*Result), nil
}

// DispatchStream performs a streaming upstream call. The retry policy
// applies only up to the first response byte; once headers are
// received and the body is handed back, the caller owns it and no
// further retry happens.
func (d *Dispatcher) DispatchStream(ctx context.Context, ch *channel.Channel, codec family.Codec, model string, body []byte) (*StreamResult, error) {
	cb := d.breakerFor(ch)
	v, err := cb.Execute(func() (interface{}, error) {
		return d.dispatchWithRetry(ctx, ch, codec, model, body, true)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, apperrors.NewUpstreamNetwork(err)
		}
		return nil, err
	}
	if r, ok := v.(*StreamResult); ok {
		return r, nil
	}
	res := v.(*Result)
	return &StreamResult{Status: res.Status, Header: res.Header, Body: io.NopCloser(bytes.NewReader(res.Body))}, nil
}

func (d *Dispatcher) dispatchWithRetry(ctx context.Context, ch *channel.Channel, codec family.Codec, model string, body []byte, stream bool) (any, error) {
	client, err := d.clients.ClientFor(ch.Proxy)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}

	deadline := time.Now().Add(ch.Timeout())
	var lastErr error

	for attempt := 0; attempt <= ch.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := backoff(attempt, time.Until(deadline))
			if wait <= 0 {
				break
			}
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, apperrors.NewUpstreamTimeout(ctx.Err())
			}
		}

		var attemptCtx context.Context
		var cancel context.CancelFunc
		if stream {
			// A streaming attempt must still respect ch.Timeout() for
			// connect+headers, but the deadline must not keep running once
			// headers arrive and the body starts streaming back to the
			// client. Use a cancelable context plus a timer that we stop as
			// soon as client.Do returns, instead of WithDeadline, so the
			// bound only covers time-to-first-byte. On success the context
			// is left open so the returned body stays readable; it ends
			// with ctx.
			attemptCtx, cancel = context.WithCancel(ctx)
		} else {
			attemptCtx, cancel = context.WithDeadline(ctx, deadline)
		}
		keepOpen := false
		defer func() {
			if !keepOpen {
				cancel()
			}
		}()

		req, err := d.buildRequest(attemptCtx, ch, codec, model, body, stream)
		if err != nil {
			return nil, apperrors.NewInternal(err)
		}

		var headerTimer *time.Timer
		if stream {
			headerTimer = time.AfterFunc(time.Until(deadline), cancel)
		}
		resp, err := client.Do(req)
		if headerTimer != nil {
			headerTimer.Stop()
		}
		if err != nil {
			lastErr = err
			if attempt < ch.MaxRetries && time.Now().Before(deadline) {
				d.log.Debugf("upstream attempt %d for channel %s failed, retrying: %v", attempt, ch.ID, err)
				continue
			}
			if ctxErr := attemptCtx.Err(); ctxErr != nil {
				return nil, apperrors.NewUpstreamTimeout(ctxErr)
			}
			return nil, apperrors.NewUpstreamNetwork(err)
		}

		if stream {
			if resp.StatusCode >= 500 || (resp.StatusCode == 429 && !retryAfterExceedsBudget(resp, deadline)) {
				upstreamBody, _ := io.ReadAll(resp.Body)
				resp.Body.Close()
				lastErr = apperrors.NewUpstreamError(resp.StatusCode, string(upstreamBody))
				if attempt < ch.MaxRetries && time.Now().Before(deadline) {
					d.log.Debugf("upstream attempt %d for channel %s returned %d, retrying", attempt, ch.ID, resp.StatusCode)
					continue
				}
				return nil, lastErr
			}
			keepOpen = true
			return &StreamResult{Status: resp.StatusCode, Header: resp.Header, Body: resp.Body}, nil
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, apperrors.NewUpstreamNetwork(err)
		}

		if resp.StatusCode >= 500 || (resp.StatusCode == 429 && !retryAfterExceedsBudget(resp, deadline)) {
			lastErr = apperrors.NewUpstreamError(resp.StatusCode, string(respBody))
			if attempt < ch.MaxRetries && time.Now().Before(deadline) {
				continue
			}
			return nil, lastErr
		}
		if resp.StatusCode >= 400 {
			return nil, apperrors.NewUpstreamError(resp.StatusCode, string(respBody))
		}

		return &Result{Status: resp.StatusCode, Header: resp.Header, Body: respBody}, nil
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, apperrors.NewUpstreamTimeout(context.DeadlineExceeded)
}

// FetchModelList implements the upstream fetch half of spec.md §4.7's
// model-list aggregator: a plain GET against the channel family's
// listing endpoint, with the channel's own auth injected.
func (d *Dispatcher) FetchModelList(ctx context.Context, ch *channel.Channel, codec family.Codec) ([]byte, error) {
	client, err := d.clients.ClientFor(ch.Proxy)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}

	u, err := url.Parse(ch.BaseURL + codec.ModelListPath())
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}
	placement := codec.InjectAuth(ch.Credential)
	if len(placement.QueryParams) > 0 {
		q := u.Query()
		for k, v := range placement.QueryParams {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}

	ctx, cancel := context.WithTimeout(ctx, ch.Timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}
	for k, v := range placement.Headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, apperrors.NewUpstreamNetwork(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewUpstreamNetwork(err)
	}
	if resp.StatusCode >= 400 {
		return nil, apperrors.NewUpstreamError(resp.StatusCode, string(body))
	}
	return body, nil
}

func (d *Dispatcher) buildRequest(ctx context.Context, ch *channel.Channel, codec family.Codec, model string, body []byte, stream bool) (*http.Request, error) {
	path := codec.ChatPath(model, stream)
	target := ch.BaseURL + path

	u, err := url.Parse(target)
	if err != nil {
		return nil, err
	}

	placement := codec.InjectAuth(ch.Credential)
	if len(placement.QueryParams) > 0 {
		q := u.Query()
		for k, v := range placement.QueryParams {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}
	if stream && codec.Family() == "gemini" {
		q := u.Query()
		q.Set("alt", "sse")
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if id := family.RequestID(ctx); id != "" {
		// Correlates the upstream call with our own request log, the
		// way nghyane-llm-mux's copilot provider stamps outbound calls
		// with an X-Request-Id header.
		req.Header.Set("X-Request-Id", id)
	}
	for k, v := range placement.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

func retryAfterExceedsBudget(resp *http.Response, deadline time.Time) bool {
	ra := resp.Header.Get("Retry-After")
	if ra == "" {
		return false
	}
	if secs, err := time.ParseDuration(ra + "s"); err == nil {
		return time.Now().Add(secs).After(deadline)
	}
	return false
}

// backoff implements exponential backoff with full jitter, capped by
// the remaining timeout budget.
func backoff(attempt int, remaining time.Duration) time.Duration {
	if remaining <= 0 {
		return 0
	}
	base := 200 * time.Millisecond
	capped := base << uint(attempt-1)
	if capped > 10*time.Second {
		capped = 10 * time.Second
	}
	if capped > remaining {
		capped = remaining
	}
	return time.Duration(rand.Int63n(int64(capped) + 1))
}
