package apicloud

import (
	"bytes"
	"cmp"
	"encoding/json"
	"slices"
	"strconv"

	"github.com/samber/lo"
)

// List decodes a JSON array, null, or an object keyed by position. The API
// returns all three for "no results" depending on the endpoint.
type List[T any] []T

func (l *List[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		*l = nil
		return nil
	}
	switch data[0] {
	case '[':
		var items []T
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*l = items
	case '{':
		var byKey map[string]T
		if err := json.Unmarshal(data, &byKey); err != nil {
			return err
		}
		keys := sortKeys(lo.Keys(byKey))
		items := make([]T, 0, len(keys))
		for _, k := range keys {
			items = append(items, byKey[k])
		}
		*l = items
	default:
		*l = nil
	}
	return nil
}

// sortKeys orders position keys numerically so "10" follows "9". Keys that
// are not all integers keep string order.
func sortKeys(keys []string) []string {
	pos := make(map[string]int, len(keys))
	for _, k := range keys {
		n, err := strconv.Atoi(k)
		if err != nil {
			slices.Sort(keys)
			return keys
		}
		pos[k] = n
	}
	slices.SortFunc(keys, func(a, b string) int { return cmp.Compare(pos[a], pos[b]) })
	return keys
}
