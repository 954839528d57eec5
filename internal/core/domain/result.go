package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Sentinel values written to the output instead of data.
const (
	ResultNoCases      = "no results — manual check needed"
	ResultNoDocuments  = "no suitable documents found"
	ResultAPIError     = "API error during processing"
	ResultRetry        = "network error — retry needed"
	ResultInvalidInput = "invalid INN provided"
)

// Result is the terminal value of a key, one field per output column.
//
// A single-field result is stored as a bare JSON string so results caches
// written by older tooling (key -> string) stay readable.
type Result []string

// SingleResult wraps one value.
func SingleResult(v string) Result {
	return Result{v}
}

// FillResult returns a result with n copies of v.
func FillResult(n int, v string) Result {
	r := make(Result, n)
	for i := range r {
		r[i] = v
	}
	return r
}

// Field returns the i-th field or "" if the result is shorter.
func (r Result) Field(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	return r[i]
}

// MarshalJSON leaves & < > unescaped; court file URLs carry query strings.
func (r Result) MarshalJSON() ([]byte, error) {
	var v any = []string(r)
	if len(r) == 1 {
		v = r[0]
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func (r *Result) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty result")
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = Result{s}
		return nil
	case '[':
		var fields []FlexString
		if err := json.Unmarshal(data, &fields); err != nil {
			return err
		}
		out := make(Result, len(fields))
		for i, f := range fields {
			out[i] = f.String()
		}
		*r = out
		return nil
	default:
		return fmt.Errorf("unsupported result shape: %.20s", data)
	}
}
