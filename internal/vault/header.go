package vault

import (
	"strconv"
	"strings"
	"time"
)

// delimiter marks the start and end of an artifact's header block.
const delimiter = "---"

// Header holds an artifact's key/value metadata block. Order is preserved
// so that Write round-trips a file's header without reshuffling it, the
// same way the source's dynamic key/value scanner works — just typed.
type Header struct {
	order  []string
	fields map[string]string
}

// NewHeader returns an empty header.
func NewHeader() *Header {
	return &Header{fields: make(map[string]string)}
}

// Get returns the raw value for key and whether it was present.
func (h *Header) Get(key string) (string, bool) {
	if h == nil || h.fields == nil {
		return "", false
	}
	v, ok := h.fields[key]
	return v, ok
}

// Set assigns key to value, preserving first-seen order.
func (h *Header) Set(key, value string) {
	if h.fields == nil {
		h.fields = make(map[string]string)
	}
	if _, ok := h.fields[key]; !ok {
		h.order = append(h.order, key)
	}
	h.fields[key] = value
}

// Del removes key from the header.
func (h *Header) Del(key string) {
	if _, ok := h.fields[key]; !ok {
		return
	}
	delete(h.fields, key)
	for i, k := range h.order {
		if k == key {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

// Has reports whether key is present.
func (h *Header) Has(key string) bool {
	_, ok := h.Get(key)
	return ok
}

// Keys returns the header's keys in insertion order.
func (h *Header) Keys() []string {
	out := make([]string, len(h.order))
	copy(out, h.order)
	return out
}

// Confidence returns the parsed confidence value. An unparseable or absent
// value returns (0, false) — callers that need the "treat as 0" default
// per the planner's failure matrix should ignore the bool.
func (h *Header) Confidence() (float64, bool) {
	raw, ok := h.Get("confidence")
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// SetConfidence writes the confidence field with a stable formatting.
func (h *Header) SetConfidence(v float64) {
	h.Set("confidence", strconv.FormatFloat(v, 'f', 2, 64))
}

// Created parses the created field as an RFC3339 (ISO-8601) timestamp.
func (h *Header) Created() (time.Time, bool) {
	raw, ok := h.Get("created")
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// SizeBytes parses the size_bytes field.
func (h *Header) SizeBytes() (int, bool) {
	raw, ok := h.Get("size_bytes")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	return n, true
}

// Extracted reports the boolean extracted field.
func (h *Header) Extracted() bool {
	raw, _ := h.Get("extracted")
	return strings.EqualFold(strings.TrimSpace(raw), "true")
}

// Clone returns a deep copy of the header.
func (h *Header) Clone() *Header {
	cp := NewHeader()
	for _, k := range h.order {
		cp.Set(k, h.fields[k])
	}
	return cp
}

// ParseArtifact splits raw content into a header and body. A missing or
// malformed header is tolerated: the whole content becomes the body and an
// empty header is returned (invariant: parsers never raise on this).
func ParseArtifact(content string) (*Header, string) {
	h := NewHeader()

	if !strings.HasPrefix(content, delimiter) {
		return h, content
	}

	// First line must be exactly the delimiter (allow trailing \r).
	nl := strings.IndexByte(content, '\n')
	if nl < 0 {
		return h, content
	}
	firstLine := strings.TrimRight(content[:nl], "\r")
	if firstLine != delimiter {
		return h, content
	}

	rest := content[nl+1:]
	closeIdx := -1
	lines := strings.Split(rest, "\n")
	bodyStart := 0
	for i, line := range lines {
		trimmed := strings.TrimRight(line, "\r")
		if trimmed == delimiter {
			closeIdx = i
			break
		}
	}
	if closeIdx < 0 {
		// No closing delimiter — treat entire content as body.
		return NewHeader(), content
	}

	for _, line := range lines[:closeIdx] {
		trimmed := strings.TrimRight(line, "\r")
		if strings.TrimSpace(trimmed) == "" {
			continue
		}
		idx := strings.Index(trimmed, ":")
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(trimmed[:idx])
		val := strings.TrimSpace(trimmed[idx+1:])
		val = unquote(val)
		if key != "" {
			h.Set(key, val)
		}
	}

	bodyStart = closeIdx + 1
	body := ""
	if bodyStart < len(lines) {
		body = strings.Join(lines[bodyStart:], "\n")
		body = strings.TrimPrefix(body, "\n")
	}
	return h, body
}

// RenderArtifact serializes a header and body back into artifact text.
func RenderArtifact(h *Header, body string) string {
	var b strings.Builder
	if h != nil && len(h.order) > 0 {
		b.WriteString(delimiter)
		b.WriteByte('\n')
		for _, k := range h.order {
			b.WriteString(k)
			b.WriteString(": ")
			b.WriteString(quoteIfNeeded(h.fields[k]))
			b.WriteByte('\n')
		}
		b.WriteString(delimiter)
		b.WriteByte('\n')
	}
	b.WriteString(body)
	return b.String()
}

func unquote(v string) string {
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		return v[1 : len(v)-1]
	}
	return v
}

func quoteIfNeeded(v string) string {
	if v == "" {
		return v
	}
	if strings.ContainsAny(v, ":#\"") || strings.TrimSpace(v) != v {
		return strconv.Quote(v)
	}
	return v
}
