package stages

import (
	"net/url"
	"slices"
	"strings"

	"pageload-etl/internal/model"
)

// MethodRequestWillBeSent is the DevTools event emitted when the browser
// issues a request.
const MethodRequestWillBeSent = "Network.requestWillBeSent"

// Stats describes what a Normalize call did to its input.
type Stats struct {
	Invalid     int     `json:"invalid_timestamp"`
	Trimmed     int     `json:"trimmed"`
	AnchorIndex int     `json:"anchor_index"`
	AnchorFound bool    `json:"anchor_found"`
	Offset      float64 `json:"offset"`
}

// Normalize drops entries without a usable timestamp, sorts the rest,
// trims everything before the page-load request for pageURL and rebases
// timestamps so the first entry reads zero. Surviving entries are mutated.
func Normalize(entries []model.Entry, pageURL string) []model.Entry {
	out, _ := NormalizeWithStats(entries, pageURL)
	return out
}

// NormalizeWithStats is Normalize plus counters for reporting.
func NormalizeWithStats(entries []model.Entry, pageURL string) ([]model.Entry, Stats) {
	var stats Stats

	type timed struct {
		entry model.Entry
		ts    float64
	}

	valid := make([]timed, 0, len(entries))
	for _, e := range entries {
		ts, ok := e.Timestamp()
		if !ok {
			stats.Invalid++
			continue
		}
		valid = append(valid, timed{entry: e, ts: ts})
	}

	// equal timestamps keep input order
	slices.SortStableFunc(valid, func(a, b timed) int {
		switch {
		case a.ts < b.ts:
			return -1
		case a.ts > b.ts:
			return 1
		}
		return 0
	})

	sorted := make([]model.Entry, len(valid))
	for i, v := range valid {
		sorted[i] = v.entry
	}

	host := PageHost(pageURL)
	start := PageStart(sorted, host)
	stats.AnchorIndex = start
	stats.AnchorFound = start > 0 || (len(sorted) > 0 && IsPageLoadLine(sorted[0], host))
	stats.Trimmed = start

	lines := sorted[start:]
	if len(lines) == 0 {
		return []model.Entry{}, stats
	}

	offset := valid[start].ts
	stats.Offset = offset
	for i, e := range lines {
		e.SetTimestamp(valid[start+i].ts - offset)
	}

	return lines, stats
}

// PageHost returns the host (with port, if any) of pageURL, or "" when it
// cannot be parsed.
func PageHost(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	return u.Host
}

// PageStart returns the index of the first page-load line for host, or 0.
func PageStart(entries []model.Entry, host string) int {
	for i, e := range entries {
		if IsPageLoadLine(e, host) {
			return i
		}
	}
	return 0
}

// IsPageLoadLine reports whether e is the browser's request for a page on
// host. Malformed entries are never page-load lines.
func IsPageLoadLine(e model.Entry, host string) bool {
	if host == "" {
		return false
	}

	method, ok := e.Method()
	if !ok || method != MethodRequestWillBeSent {
		return false
	}

	raw, ok := e.RequestURL()
	if !ok {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, host)
}
