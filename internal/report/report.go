package report

import (
	"encoding/json"
	"io"
	"os"

	"pageload-etl/internal/stages"
)

// Report aggregates statistics for one normalized capture.
type Report struct {
	PageURL          string         `json:"page_url"`
	PageHost         string         `json:"page_host"`
	TotalEntries     int            `json:"total_entries"`
	DecodeFailed     int            `json:"decode_failed"`
	Expanded         int            `json:"expanded"`
	InvalidTimestamp int            `json:"invalid_timestamp"`
	AnchorFound      bool           `json:"anchor_found"`
	AnchorIndex      int            `json:"anchor_index"`
	Trimmed          int            `json:"trimmed"`
	Offset           float64        `json:"offset"`
	Retained         int            `json:"retained"`
	Filtered         int            `json:"filtered"`
	WrittenOK        int            `json:"written_ok"`
	ByMethod         map[string]int `json:"by_method"`
}

// NewReport initializes a Report with maps ready to use.
func NewReport() *Report {
	return &Report{
		ByMethod: make(map[string]int),
	}
}

// AddStats copies normalizer counters into the report.
func (r *Report) AddStats(s stages.Stats) {
	r.InvalidTimestamp = s.Invalid
	r.AnchorFound = s.AnchorFound
	r.AnchorIndex = s.AnchorIndex
	r.Trimmed = s.Trimmed
	r.Offset = s.Offset
}

// AddMethod increments the count for a DevTools method.
func (r *Report) AddMethod(method string) {
	if method == "" {
		return
	}
	r.ByMethod[method]++
}

// Encode writes the report as indented JSON.
func (r *Report) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteJSON writes the report to a JSON file at the given path.
func (r *Report) WriteJSON(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return r.Encode(f)
}
