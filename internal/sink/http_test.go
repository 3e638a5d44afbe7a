package sink

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPSink_PostsArrayOnClose(t *testing.T) {
	var received []map[string]any
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	hs, err := NewHTTPSink(context.Background(), server.URL, 3, 10*time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, hs.Write(map[string]any{"timestamp": 0}))
	require.NoError(t, hs.Write(map[string]any{"timestamp": 5}))
	assert.Zero(t, calls.Load(), "nothing is sent before Close")

	require.NoError(t, hs.Close())
	assert.EqualValues(t, 1, calls.Load())
	assert.Len(t, received, 2)
}

func TestHTTPSink_Retry(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	hs, err := NewHTTPSink(context.Background(), server.URL, 3, 5*time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, hs.Close())
	assert.EqualValues(t, 3, attempts.Load())
}

func TestHTTPSink_MaxRetriesExceeded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	hs, err := NewHTTPSink(context.Background(), server.URL, 2, 5*time.Millisecond)
	require.NoError(t, err)

	err = hs.Close()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrWriteSink))
}

func TestHTTPSink_CanceledContextStopsRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	hs, err := NewHTTPSink(ctx, server.URL, 5, time.Second)
	require.NoError(t, err)
	cancel()

	assert.ErrorIs(t, hs.Close(), context.Canceled)
}

func TestNewHTTPSink_RejectsBadURL(t *testing.T) {
	for _, u := range []string{"", "ftp://x", "not a url"} {
		_, err := NewHTTPSink(context.Background(), u, 0, 0)
		assert.ErrorIs(t, err, ErrOpenSink, u)
	}
}
