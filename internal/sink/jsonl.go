package sink

import (
	"encoding/json"
	"fmt"
	"io"
)

// JSONLSink writes one JSON document per line as records arrive.
type JSONLSink struct {
	w   io.WriteCloser
	enc *json.Encoder
}

func NewJSONLSink(w io.WriteCloser) *JSONLSink {
	return &JSONLSink{
		w:   w,
		enc: json.NewEncoder(w),
	}
}

func (s *JSONLSink) Write(record any) error {
	if err := s.enc.Encode(record); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteSink, err)
	}
	return nil
}

func (s *JSONLSink) Close() error {
	return s.w.Close()
}

// ArraySink buffers records and writes them as one indented JSON array on
// Close, matching the shape of the input capture.
type ArraySink struct {
	w       io.WriteCloser
	records []any
}

func NewArraySink(w io.WriteCloser) *ArraySink {
	return &ArraySink{w: w, records: []any{}}
}

func (s *ArraySink) Write(record any) error {
	s.records = append(s.records, record)
	return nil
}

func (s *ArraySink) Close() error {
	enc := json.NewEncoder(s.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.records); err != nil {
		s.w.Close()
		return fmt.Errorf("%w: %v", ErrWriteSink, err)
	}
	return s.w.Close()
}
