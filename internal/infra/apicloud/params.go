package apicloud

import (
	"net/url"
	"strings"
)

// params is an ordered query. The search endpoint pairs each participant
// with the participantType that follows it, so insertion order is kept on
// the wire.
type params [][2]string

func (p params) add(key, value string) params {
	return append(p, [2]string{key, value})
}

func (p params) encode() string {
	var b strings.Builder
	for i, kv := range p {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(kv[0]))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(kv[1]))
	}
	return b.String()
}

// get returns the first value of key.
func (p params) get(key string) string {
	for _, kv := range p {
		if kv[0] == key {
			return kv[1]
		}
	}
	return ""
}
