package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pageload-etl/internal/config"
	"pageload-etl/internal/model"
	"pageload-etl/internal/report"
	"pageload-etl/internal/sink"
)

// chromedriver-style capture: message is a JSON string, the first request is
// the blank data: page that precedes navigation.
const capture = `[
  {"level":"INFO","timestamp":1000,"message":"{\"message\":{\"method\":\"Network.requestWillBeSent\",\"params\":{\"request\":{\"url\":\"data:,\"}}},\"webview\":\"w\"}"},
  {"level":"INFO","timestamp":"oops","message":"{}"},
  {"level":"INFO","timestamp":1300,"message":"{\"message\":{\"method\":\"Page.loadEventFired\",\"params\":{}},\"webview\":\"w\"}"},
  {"level":"INFO","timestamp":1100,"message":"{\"message\":{\"method\":\"Network.requestWillBeSent\",\"params\":{\"request\":{\"url\":\"https://example.com/\"}}},\"webview\":\"w\"}"},
  {"level":"INFO","timestamp":1150,"message":"{\"message\":{\"method\":\"Network.responseReceived\",\"params\":{}},\"webview\":\"w\"}"}
]`

type recordingWriter struct {
	records []any
}

func (w *recordingWriter) Write(record any) error {
	w.records = append(w.records, record)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

type failingWriter struct{}

func (failingWriter) Write(any) error { return sink.ErrWriteSink }
func (failingWriter) Close() error    { return nil }

func entryTimestamps(t *testing.T, records []any) []float64 {
	t.Helper()
	out := make([]float64, 0, len(records))
	for _, r := range records {
		e, ok := r.(model.Entry)
		require.True(t, ok, "unexpected record type %T", r)
		ts, ok := e.Timestamp()
		require.True(t, ok)
		out = append(out, ts)
	}
	return out
}

func TestRun_NormalizesChromedriverCapture(t *testing.T) {
	cfg := config.Default()
	cfg.PageURL = "https://example.com"

	w := &recordingWriter{}
	rep := report.NewReport()
	require.NoError(t, Run(context.Background(), strings.NewReader(capture), w, cfg, rep))

	assert.Equal(t, []float64{0, 50, 200}, entryTimestamps(t, w.records))

	assert.Equal(t, 5, rep.TotalEntries)
	assert.Equal(t, 0, rep.DecodeFailed)
	assert.Equal(t, 5, rep.Expanded)
	assert.Equal(t, 1, rep.InvalidTimestamp)
	assert.True(t, rep.AnchorFound)
	assert.Equal(t, 1, rep.Trimmed)
	assert.Equal(t, 1100.0, rep.Offset)
	assert.Equal(t, 3, rep.Retained)
	assert.Equal(t, 3, rep.WrittenOK)
	assert.Equal(t, "example.com", rep.PageHost)
	assert.Equal(t, 1, rep.ByMethod["Network.requestWillBeSent"])
	assert.Equal(t, 1, rep.ByMethod["Page.loadEventFired"])
}

func TestRun_WithoutExpansionFindsNoAnchor(t *testing.T) {
	cfg := config.Default()
	cfg.PageURL = "https://example.com"
	cfg.ExpandMessages = false

	w := &recordingWriter{}
	rep := report.NewReport()
	require.NoError(t, Run(context.Background(), strings.NewReader(capture), w, cfg, rep))

	assert.False(t, rep.AnchorFound)
	assert.Equal(t, []float64{0, 100, 150, 300}, entryTimestamps(t, w.records))
}

func TestRun_FilterMethods(t *testing.T) {
	cfg := config.Default()
	cfg.PageURL = "https://example.com"
	cfg.FilterMethods = []string{"Network."}

	w := &recordingWriter{}
	rep := report.NewReport()
	require.NoError(t, Run(context.Background(), strings.NewReader(capture), w, cfg, rep))

	assert.Equal(t, []float64{0, 50}, entryTimestamps(t, w.records))
	assert.Equal(t, 3, rep.Retained)
	assert.Equal(t, 1, rep.Filtered)
	assert.Equal(t, 2, rep.WrittenOK)
}

func TestRun_WriteError(t *testing.T) {
	cfg := config.Default()
	err := Run(context.Background(), strings.NewReader(`[{"timestamp":1}]`), failingWriter{}, cfg, report.NewReport())
	assert.True(t, errors.Is(err, sink.ErrWriteSink))
}

func TestRun_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Run(ctx, strings.NewReader(`[{"timestamp":1},{"timestamp":2}]`), &recordingWriter{}, config.Default(), report.NewReport())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_BadInput(t *testing.T) {
	err := Run(context.Background(), strings.NewReader("garbage"), &recordingWriter{}, config.Default(), report.NewReport())
	assert.Error(t, err)
}
