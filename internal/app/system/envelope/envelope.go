// Package envelope normalizes the backend's list responses into a single
// page-of-items shape.
//
// The backend answers list calls in several shapes: a bare JSON array,
// an object with a "data" array, or an object holding the items under some
// other key. Pagination fields may use camelCase or PascalCase names, or be
// missing entirely. Normalize accepts all of these.
package envelope

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Envelope is one page of a backend collection.
//
// HasMeta is false when the response carried no pagination object at all
// (a bare array) or when the envelope was synthesized after a failure.
type Envelope[T any] struct {
	Items           []T
	CurrentPage     int
	TotalPages      int
	TotalCount      int
	PageSize        int
	HasPreviousPage bool
	HasNextPage     bool
	HasMeta         bool
}

// Len returns the number of items on the page.
func (e Envelope[T]) Len() int { return len(e.Items) }

// Empty returns a page with no items and no pagination metadata.
func Empty[T any](perPage int) Envelope[T] {
	if perPage < 1 {
		perPage = 1
	}
	return Envelope[T]{
		Items:       []T{},
		CurrentPage: 1,
		TotalPages:  1,
		PageSize:    perPage,
	}
}

// ParseError reports a list response that could not be normalized.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return "envelope: " + e.Reason + ": " + e.Err.Error()
	}
	return "envelope: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

// Normalize decodes raw into an Envelope.
//
// Item precedence: a bare array; else the "data" key when it holds an
// array; else the first array-valued key in document order. Pagination
// fields are read under camelCase first, then PascalCase. Missing fields
// default to page 1, a total count equal to the number of items, and a
// page size of perPage. A missing total page count is derived as
// ceil(totalCount/pageSize).
func Normalize[T any](raw []byte, perPage int) (Envelope[T], error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Envelope[T]{}, &ParseError{Reason: "empty body"}
	}

	switch raw[0] {
	case '[':
		var items []T
		if err := json.Unmarshal(raw, &items); err != nil {
			return Envelope[T]{}, &ParseError{Reason: "decode array", Err: err}
		}
		env := Empty[T](perPage)
		if items != nil {
			env.Items = items
		}
		env.TotalCount = len(env.Items)
		return env, nil
	case '{':
	default:
		return Envelope[T]{}, &ParseError{Reason: "unexpected root value"}
	}

	fields, order, err := decodeObject(raw)
	if err != nil {
		return Envelope[T]{}, err
	}

	itemsRaw := pickItems(fields, order)
	items := []T{}
	if itemsRaw != nil {
		if err := json.Unmarshal(itemsRaw, &items); err != nil {
			return Envelope[T]{}, &ParseError{Reason: "decode items", Err: err}
		}
		if items == nil {
			items = []T{}
		}
	}

	env := Envelope[T]{
		Items:           items,
		CurrentPage:     intField(fields, "currentPage", 1),
		TotalCount:      intField(fields, "totalCount", len(items)),
		PageSize:        intField(fields, "pageSize", perPage),
		HasPreviousPage: boolField(fields, "hasPreviousPage"),
		HasNextPage:     boolField(fields, "hasNextPage"),
		HasMeta:         true,
	}
	env.TotalPages = intField(fields, "totalPages", TotalPagesFor(env.TotalCount, env.PageSize))
	return env, nil
}

// Fix re-derives the navigation flags from the page counters and clamps
// counters the backend sent out of range.
func (e Envelope[T]) Fix() Envelope[T] {
	if e.CurrentPage < 1 {
		e.CurrentPage = 1
	}
	if e.PageSize < 1 {
		e.PageSize = 1
	}
	if e.TotalCount < 0 {
		e.TotalCount = 0
	}
	if e.TotalPages < 1 {
		e.TotalPages = 1
	}
	e.HasPreviousPage = e.CurrentPage > 1
	e.HasNextPage = e.CurrentPage < e.TotalPages
	return e
}

// TotalPagesFor returns ceil(count/size), never less than 1.
func TotalPagesFor(count, size int) int {
	if size <= 0 || count <= 0 {
		return 1
	}
	return (count + size - 1) / size
}

// decodeObject reads the top-level members of a JSON object, remembering
// the order keys appeared in.
func decodeObject(raw []byte) (map[string]json.RawMessage, []string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	if _, err := dec.Token(); err != nil {
		return nil, nil, &ParseError{Reason: "decode object", Err: err}
	}
	fields := make(map[string]json.RawMessage)
	var order []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, &ParseError{Reason: "decode key", Err: err}
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, &ParseError{Reason: fmt.Sprintf("unexpected key token %v", tok)}
		}
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, nil, &ParseError{Reason: "decode value of " + key, Err: err}
		}
		if _, seen := fields[key]; !seen {
			order = append(order, key)
		}
		fields[key] = v
	}
	if _, err := dec.Token(); err != nil && err != io.EOF {
		return nil, nil, &ParseError{Reason: "decode object end", Err: err}
	}
	return fields, order, nil
}

func isArray(v json.RawMessage) bool {
	v = bytes.TrimSpace(v)
	return len(v) > 0 && v[0] == '['
}

func pickItems(fields map[string]json.RawMessage, order []string) json.RawMessage {
	if v, ok := fields["data"]; ok && isArray(v) {
		return v
	}
	for _, k := range order {
		if isArray(fields[k]) {
			return fields[k]
		}
	}
	return nil
}

// lookup returns the camelCase field, falling back to PascalCase.
func lookup(fields map[string]json.RawMessage, camel string) (json.RawMessage, bool) {
	if v, ok := fields[camel]; ok && !isNull(v) {
		return v, true
	}
	pascal := strings.ToUpper(camel[:1]) + camel[1:]
	if v, ok := fields[pascal]; ok && !isNull(v) {
		return v, true
	}
	return nil, false
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

func intField(fields map[string]json.RawMessage, name string, def int) int {
	v, ok := lookup(fields, name)
	if !ok {
		return def
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err == nil {
		if i, err := n.Int64(); err == nil {
			return int(i)
		}
		if f, err := n.Float64(); err == nil {
			return int(f)
		}
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i
		}
	}
	return def
}

func boolField(fields map[string]json.RawMessage, name string) bool {
	v, ok := lookup(fields, name)
	if !ok {
		return false
	}
	var b bool
	if err := json.Unmarshal(v, &b); err == nil {
		return b
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		b, _ = strconv.ParseBool(s)
		return b
	}
	return false
}
