package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// HTTPSink buffers records and POSTs them as one JSON array on Close.
type HTTPSink struct {
	ctx         context.Context
	url         string
	client      *http.Client
	maxRetries  int
	backoffBase time.Duration
	records     []any
}

// NewHTTPSink creates a new HTTP sink. ctx bounds the delivery on Close.
func NewHTTPSink(ctx context.Context, endpoint string, maxRetries int, backoffBase time.Duration) (*HTTPSink, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("%w: URL required for HTTP sink", ErrOpenSink)
	}
	u, err := url.Parse(endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid URL %q", ErrOpenSink, endpoint)
	}
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &HTTPSink{
		ctx:         ctx,
		url:         endpoint,
		maxRetries:  maxRetries,
		backoffBase: backoffBase,
		records:     []any{},
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Write buffers a record.
func (hs *HTTPSink) Write(record any) error {
	hs.records = append(hs.records, record)
	return nil
}

// Close delivers the buffered records, retrying with exponential backoff on
// transport errors and non-2xx responses.
func (hs *HTTPSink) Close() error {
	defer hs.client.CloseIdleConnections()

	data, err := json.Marshal(hs.records)
	if err != nil {
		return fmt.Errorf("%w: marshal error: %v", ErrWriteSink, err)
	}

	var lastErr error
	for attempt := 0; attempt <= hs.maxRetries; attempt++ {
		if attempt > 0 {
			if err := hs.sleep(hs.backoffBase * time.Duration(1<<(attempt-1))); err != nil {
				return err
			}
		}

		req, err := http.NewRequestWithContext(hs.ctx, http.MethodPost, hs.url, bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("%w: create request: %v", ErrWriteSink, err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := hs.client.Do(req)
		if err != nil {
			if ctxErr := hs.ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			lastErr = fmt.Errorf("%w: http request failed: %v", ErrWriteSink, err)
			continue
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		lastErr = fmt.Errorf("%w: http error status %d", ErrWriteSink, resp.StatusCode)
	}

	return lastErr
}

func (hs *HTTPSink) sleep(d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-hs.ctx.Done():
		return hs.ctx.Err()
	case <-t.C:
		return nil
	}
}
