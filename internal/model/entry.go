package model

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Entry is one captured browser log record. Only timestamp and the nested
// DevTools message are interpreted; every other field is passed through.
type Entry map[string]any

// Timestamp returns the entry's timestamp when it is a finite number or a
// string holding one.
func (e Entry) Timestamp() (float64, bool) {
	v, ok := e["timestamp"]
	if !ok {
		return 0, false
	}

	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// SetTimestamp overwrites the timestamp field in place.
func (e Entry) SetTimestamp(ts float64) {
	e["timestamp"] = ts
}

// Method returns message.message.method.
func (e Entry) Method() (string, bool) {
	inner, ok := e.devtools()
	if !ok {
		return "", false
	}
	s, ok := inner["method"].(string)
	return s, ok
}

// RequestURL returns message.message.params.request.url.
func (e Entry) RequestURL() (string, bool) {
	inner, ok := e.devtools()
	if !ok {
		return "", false
	}
	params, ok := inner["params"].(map[string]any)
	if !ok {
		return "", false
	}
	req, ok := params["request"].(map[string]any)
	if !ok {
		return "", false
	}
	s, ok := req["url"].(string)
	return s, ok
}

// devtools returns the nested message.message object.
func (e Entry) devtools() (map[string]any, bool) {
	outer, ok := e["message"].(map[string]any)
	if !ok {
		return nil, false
	}
	inner, ok := outer["message"].(map[string]any)
	return inner, ok
}
