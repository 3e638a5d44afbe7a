package stages

import (
	"strings"

	"pageload-etl/internal/config"
	"pageload-etl/internal/model"
)

// FilterStage keeps entries whose DevTools method starts with one of the
// configured prefixes.
type FilterStage struct {
	prefixes []string
}

// NewFilterStage constructs a FilterStage from config.
func NewFilterStage(cfg config.Config) *FilterStage {
	return &FilterStage{prefixes: buildPrefixes(cfg.FilterMethods)}
}

// Apply returns true when the entry should be written.
func (f *FilterStage) Apply(e model.Entry) bool {
	if len(f.prefixes) == 0 {
		return true
	}
	method, ok := e.Method()
	if !ok {
		return false
	}
	for _, p := range f.prefixes {
		if strings.HasPrefix(method, p) {
			return true
		}
	}
	return false
}

// Keep returns the entries that pass the filter, preserving order.
func (f *FilterStage) Keep(entries []model.Entry) []model.Entry {
	if len(f.prefixes) == 0 {
		return entries
	}
	out := make([]model.Entry, 0, len(entries))
	for _, e := range entries {
		if f.Apply(e) {
			out = append(out, e)
		}
	}
	return out
}

func buildPrefixes(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
