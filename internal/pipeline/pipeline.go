// Package pipeline runs a capture through decode, expand, normalize and
// filter, and hands the result to a sink.
package pipeline

import (
	"context"
	"fmt"
	"io"

	"pageload-etl/internal/config"
	"pageload-etl/internal/logger"
	"pageload-etl/internal/model"
	"pageload-etl/internal/report"
	"pageload-etl/internal/sink"
	"pageload-etl/internal/source"
	"pageload-etl/internal/stages"
)

// Process normalizes already-decoded entries and records what happened in
// rep. The returned entries are the ones that should be emitted.
func Process(ctx context.Context, entries []model.Entry, cfg config.Config, rep *report.Report) []model.Entry {
	rep.PageURL = cfg.PageURL
	rep.PageHost = stages.PageHost(cfg.PageURL)

	if cfg.ExpandMessages {
		rep.Expanded = stages.ExpandMessages(entries)
	}

	normalized, stats := stages.NormalizeWithStats(entries, cfg.PageURL)
	rep.AddStats(stats)
	rep.Retained = len(normalized)

	kept := stages.NewFilterStage(cfg).Keep(normalized)
	rep.Filtered = len(normalized) - len(kept)

	if !stats.AnchorFound && len(normalized) > 0 {
		logger.WarnContext(ctx, "page-load request not found, keeping all entries",
			"page_host", rep.PageHost,
			"entries", len(normalized),
		)
	}
	logger.DebugContext(ctx, "normalized capture",
		"page_host", rep.PageHost,
		"invalid_timestamp", stats.Invalid,
		"trimmed", stats.Trimmed,
		"retained", rep.Retained,
		"filtered", rep.Filtered,
	)

	return kept
}

// Run reads a capture from r, processes it and writes the result to w.
// w is not closed.
func Run(ctx context.Context, r io.Reader, w sink.Writer, cfg config.Config, rep *report.Report) error {
	res, err := source.Read(r)
	if err != nil {
		return fmt.Errorf("read capture: %w", err)
	}
	rep.TotalEntries = res.Total()
	rep.DecodeFailed = res.Failed

	for _, e := range Process(ctx, res.Entries, cfg, rep) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.Write(e); err != nil {
			return fmt.Errorf("write entry: %w", err)
		}
		rep.WrittenOK++
		if method, ok := e.Method(); ok {
			rep.AddMethod(method)
		}
	}

	logger.InfoContext(ctx, "capture processed",
		"total", rep.TotalEntries,
		"written", rep.WrittenOK,
		"anchor_found", rep.AnchorFound,
	)
	return nil
}
