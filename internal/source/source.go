// Package source decodes captured browser logs into entries.
package source

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/buger/jsonparser"

	"pageload-etl/internal/model"
)

// ErrFormat is returned when the input is neither a JSON array nor JSONL.
var ErrFormat = errors.New("unrecognised capture format")

const maxLineBytes = 16 * 1024 * 1024

// Result holds decoded entries and how many records could not be decoded.
type Result struct {
	Entries []model.Entry
	Failed  int
}

// Total is the number of records seen, decoded or not.
func (r Result) Total() int {
	return len(r.Entries) + r.Failed
}

// Open returns stdin for "" or "-", otherwise the named file.
func Open(path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

// Read decodes a capture. A leading '[' selects JSON array mode, where the
// whole document must be a valid array; otherwise the input is read as
// JSONL. Elements or lines that are not JSON objects are counted as failed.
func Read(r io.Reader) (Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Result{}, err
	}

	trimmed := bytes.TrimLeft(data, " \t\r\n")
	switch {
	case len(trimmed) == 0:
		return Result{Entries: []model.Entry{}}, nil
	case trimmed[0] == '[':
		return readArray(trimmed)
	case trimmed[0] == '{':
		return readLines(trimmed)
	default:
		return Result{}, ErrFormat
	}
}

func readArray(data []byte) (Result, error) {
	if !json.Valid(data) {
		return Result{}, fmt.Errorf("%w: invalid JSON array", ErrFormat)
	}

	res := Result{Entries: []model.Entry{}}
	var decodeErr error

	_, err := jsonparser.ArrayEach(data, func(value []byte, dataType jsonparser.ValueType, _ int, err error) {
		if err != nil {
			decodeErr = err
			return
		}
		if dataType != jsonparser.Object {
			res.Failed++
			return
		}
		e, err := decodeEntry(value)
		if err != nil {
			res.Failed++
			return
		}
		res.Entries = append(res.Entries, e)
	})
	if err == nil {
		err = decodeErr
	}
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return res, nil
}

func readLines(data []byte) (Result, error) {
	res := Result{Entries: []model.Entry{}}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		e, err := decodeEntry(line)
		if err != nil {
			res.Failed++
			continue
		}
		res.Entries = append(res.Entries, e)
	}
	if err := scanner.Err(); err != nil {
		return Result{}, err
	}
	return res, nil
}

// decodeEntry keeps numbers as json.Number so passthrough fields round-trip
// without float rounding.
func decodeEntry(raw []byte) (model.Entry, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var e model.Entry
	if err := dec.Decode(&e); err != nil {
		return nil, err
	}
	if e == nil {
		return nil, errors.New("null entry")
	}
	return e, nil
}
