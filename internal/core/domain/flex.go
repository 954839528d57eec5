package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// FlexString accepts a JSON string, number, bool or null. The upstream APIs
// are not consistent about quoting INNs, sums and counters. Objects and arrays
// are flattened with fmt so substring checks still see their contents.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return err
	}
	switch t := v.(type) {
	case json.Number:
		*f = FlexString(t.String())
	default:
		*f = FlexString(fmt.Sprint(t))
	}
	return nil
}

func (f FlexString) String() string {
	return string(f)
}

// Int parses the value as an integer.
func (f FlexString) Int() (int, error) {
	return strconv.Atoi(string(f))
}

// Float parses the value as a float.
func (f FlexString) Float() (float64, error) {
	return strconv.ParseFloat(string(f), 64)
}
