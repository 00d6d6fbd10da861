package headers

import (
	"bytes"
	"errors"
	"strings"
)

// Field is one header line as received, name case preserved.
type Field struct {
	Name  string
	Value string
}

// Headers is an ordered sequence of header fields. Order is preserved so
// that serializing and re-parsing a header block yields the same fields
// in the same positions; duplicate-field policy belongs to the caller.
type Headers struct {
	fields []Field
}

// New returns an empty header set.
func New() *Headers {
	return &Headers{}
}

// Add appends a field, keeping arrival order.
func (h *Headers) Add(name, value string) {
	h.fields = append(h.fields, Field{Name: name, Value: value})
}

// Set replaces every field matching name (case-insensitive) with a single
// field, or appends one if none matched.
func (h *Headers) Set(name, value string) {
	kept := h.fields[:0]
	replaced := false
	for _, f := range h.fields {
		if strings.EqualFold(f.Name, name) {
			if !replaced {
				kept = append(kept, Field{Name: name, Value: value})
				replaced = true
			}
			continue
		}
		kept = append(kept, f)
	}
	if !replaced {
		kept = append(kept, Field{Name: name, Value: value})
	}
	h.fields = kept
}

// Get returns the value for name, case-insensitive. Duplicate fields are
// joined with commas in arrival order. Returns "" if absent.
func (h *Headers) Get(name string) string {
	var vals []string
	for _, f := range h.fields {
		if strings.EqualFold(f.Name, name) {
			vals = append(vals, f.Value)
		}
	}
	return strings.Join(vals, ",")
}

// Has reports whether any field matches name, case-insensitive.
func (h *Headers) Has(name string) bool {
	for _, f := range h.fields {
		if strings.EqualFold(f.Name, name) {
			return true
		}
	}
	return false
}

// Fields returns the fields in order. The slice is owned by h.
func (h *Headers) Fields() []Field {
	return h.fields
}

// Len returns the number of fields.
func (h *Headers) Len() int {
	return len(h.fields)
}

var crlf = []byte("\r\n")

// Parse consumes at most one header line from data.
// It returns n (bytes consumed), done (true iff an empty line was found), and err.
// Behavior:
// - If no CRLF is found, returns (0, false, nil) and consumes nothing.
// - If CRLF is at the start ("\r\n"), returns (2, true, nil) indicating end of headers.
// - Otherwise parses a single "Name: value" line. Whitespace around name and value
//   is trimmed, but there must be no whitespace immediately before the colon.
func (h *Headers) Parse(data []byte) (n int, done bool, err error) {
	idx := bytes.Index(data, crlf)
	if idx == -1 {
		return 0, false, nil
	}
	// If the line is empty, we are done with headers.
	if idx == 0 { // starts with CRLF
		return 2, true, nil
	}

	line := data[:idx]
	// Split on the first ':' only (values can contain ':').
	colon := bytes.IndexByte(line, ':')
	if colon == -1 {
		return 0, false, errors.New("invalid header: missing colon")
	}
	// Enforce no whitespace between name and colon.
	if colon > 0 {
		prev := line[colon-1]
		if prev == ' ' || prev == '\t' {
			return 0, false, errors.New("invalid header: space before colon")
		}
	}

	name := strings.TrimSpace(string(line[:colon]))
	value := strings.TrimSpace(string(line[colon+1:]))
	if name == "" {
		return 0, false, errors.New("invalid header: empty name")
	}

	// Validate name characters (letters, digits, and '-').
	for i := 0; i < len(name); i++ {
		c := name[i]
		if !(c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '-') {
			return 0, false, errors.New("invalid header: invalid character in name")
		}
	}

	h.Add(name, value)

	// Consume exactly this line and its CRLF, not beyond.
	return idx + 2, false, nil
}
