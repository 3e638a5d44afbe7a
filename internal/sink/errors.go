package sink

import "errors"

var (
	ErrOpenSink  = errors.New("open sink")
	ErrWriteSink = errors.New("write sink")
)

// Writer receives normalized entries in order. Close flushes anything
// buffered and releases the destination.
type Writer interface {
	Write(record any) error
	Close() error
}
