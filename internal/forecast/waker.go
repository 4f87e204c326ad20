// Package forecast pings the forecasting service so it is warm by the time a
// freshly authenticated user asks for a prediction.
package forecast

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/pennywise/pennywise/backend/go-services/pkg/logger"
	"github.com/pennywise/pennywise/backend/go-services/pkg/metrics"
)

const DefaultTimeout = 60 * time.Second

// Waker fires a best-effort wake-up. Wake must return immediately.
type Waker interface {
	Wake()
}

// NoopWaker is used when no forecast URL is configured.
type NoopWaker struct{}

func (NoopWaker) Wake() {}

// HTTPWaker issues GET <url> in a detached goroutine. Failures are logged and
// dropped; there is no retry.
type HTTPWaker struct {
	client  *http.Client
	url     string
	timeout time.Duration
	wg      sync.WaitGroup
}

// HTTPWakerOption configures HTTPWaker.
type HTTPWakerOption func(*HTTPWaker)

// WithClient sets the HTTP client.
func WithClient(c *http.Client) HTTPWakerOption {
	return func(w *HTTPWaker) {
		w.client = c
	}
}

// WithTimeout bounds a single ping (default 60s).
func WithTimeout(d time.Duration) HTTPWakerOption {
	return func(w *HTTPWaker) {
		if d > 0 {
			w.timeout = d
		}
	}
}

func NewHTTPWaker(url string, opts ...HTTPWakerOption) *HTTPWaker {
	w := &HTTPWaker{
		client:  &http.Client{},
		url:     url,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// New returns an HTTPWaker for url, or a NoopWaker when url is empty.
func New(url string, timeout time.Duration) Waker {
	if url == "" {
		return NoopWaker{}
	}
	return NewHTTPWaker(url, WithTimeout(timeout))
}

func (w *HTTPWaker) Wake() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		// detached from the request so the caller's cancellation does not abort it
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		defer cancel()
		if err := w.ping(ctx); err != nil {
			metrics.ForecastWake.WithLabelValues("failure").Inc()
			logger.Warnf("forecast wake-up failed: %v", err)
			return
		}
		metrics.ForecastWake.WithLabelValues("success").Inc()
		logger.Debugf("forecast wake-up sent to %s", w.url)
	}()
}

// Wait blocks until in-flight pings finish.
func (w *HTTPWaker) Wait() {
	w.wg.Wait()
}

func (w *HTTPWaker) ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.url, nil)
	if err != nil {
		return err
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("forecast endpoint returned %d", resp.StatusCode)
	}
	return nil
}
