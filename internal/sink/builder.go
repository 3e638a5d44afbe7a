package sink

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"pageload-etl/internal/config"
)

// Build constructs a sink based on config. stdout defaults to os.Stdout.
func Build(ctx context.Context, cfg config.Config, stdout io.Writer) (Writer, error) {
	if stdout == nil {
		stdout = os.Stdout
	}

	switch strings.ToLower(cfg.OutputType) {
	case "", "stdout":
		return NewArraySink(nopCloser{stdout}), nil
	case "file":
		if cfg.OutputPath == "" {
			return nil, fmt.Errorf("%w: output path required for file sink", ErrOpenSink)
		}
		f, err := os.Create(cfg.OutputPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrOpenSink, err)
		}
		return NewArraySink(f), nil
	case "jsonl":
		if cfg.OutputPath == "" || cfg.OutputPath == "-" {
			return NewJSONLSink(nopCloser{stdout}), nil
		}
		f, err := os.Create(cfg.OutputPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrOpenSink, err)
		}
		return NewJSONLSink(f), nil
	case "http", "webhook":
		return NewHTTPSink(ctx, cfg.OutputPath, cfg.SinkMaxRetries, time.Duration(cfg.SinkBackoffBaseMS)*time.Millisecond)
	default:
		return nil, fmt.Errorf("%w: unknown output type %q", ErrOpenSink, cfg.OutputType)
	}
}

type nopCloser struct {
	w io.Writer
}

func (n nopCloser) Write(p []byte) (int, error) { return n.w.Write(p) }
func (n nopCloser) Close() error                { return nil }
