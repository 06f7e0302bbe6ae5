package httpx

import (
	"strings"

	"dqx0.com/go/tinyhttp/httpx/internal/http1"
)

// Header is an ordered list of response header fields. Lookups ignore
// case; serialization keeps insertion order and the names as given.
type Header []http1.Field

func (h Header) Get(key string) string {
	if i := h.index(key); i >= 0 {
		return h[i].Value
	}
	return ""
}

func (h Header) Has(key string) bool {
	return h.index(key) >= 0
}

// Set replaces the first field named key in place, dropping any later
// duplicates, or appends a new field.
func (h *Header) Set(key, value string) {
	i := h.index(key)
	if i < 0 {
		h.Add(key, value)
		return
	}
	(*h)[i].Value = value
	rest := (*h)[:i+1]
	for _, f := range (*h)[i+1:] {
		if !strings.EqualFold(f.Name, key) {
			rest = append(rest, f)
		}
	}
	*h = rest
}

func (h *Header) Add(key, value string) {
	*h = append(*h, http1.Field{Name: key, Value: value})
}

func (h *Header) Del(key string) {
	out := (*h)[:0]
	for _, f := range *h {
		if !strings.EqualFold(f.Name, key) {
			out = append(out, f)
		}
	}
	*h = out
}

func (h Header) index(key string) int {
	for i, f := range h {
		if strings.EqualFold(f.Name, key) {
			return i
		}
	}
	return -1
}
