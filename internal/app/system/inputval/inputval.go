// internal/app/system/inputval/inputval.go
package inputval

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// emailPattern is the loose shape check the console applies before the
// backend sees an address: something@something.something, no whitespace.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IsValidEmail reports whether s looks like an email address.
func IsValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// FieldError is one failed rule.
type FieldError struct {
	Field   string
	Message string
}

// Result collects at most one message per field, in the order the rules
// ran. A field that already failed skips its remaining rules.
type Result struct {
	Errors []FieldError
}

// HasErrors reports whether any rule failed.
func (r *Result) HasErrors() bool { return len(r.Errors) > 0 }

// First returns the first message, or "".
func (r *Result) First() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].Message
}

// All joins every message with "; ".
func (r *Result) All() string {
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

// Map returns the messages keyed by field.
func (r *Result) Map() map[string]string {
	m := make(map[string]string, len(r.Errors))
	for _, e := range r.Errors {
		m[e.Field] = e.Message
	}
	return m
}

func (r *Result) failed(field string) bool {
	for _, e := range r.Errors {
		if e.Field == field {
			return true
		}
	}
	return false
}

func (r *Result) check(field string, ok bool, msg string) bool {
	if r.failed(field) {
		return false
	}
	if !ok {
		r.Errors = append(r.Errors, FieldError{Field: field, Message: msg})
	}
	return ok
}

// Required fails when value is blank after trimming.
func (r *Result) Required(field, value, msg string) bool {
	return r.check(field, strings.TrimSpace(value) != "", msg)
}

// MinLen fails when value has fewer than n characters.
func (r *Result) MinLen(field, value string, n int, msg string) bool {
	return r.check(field, utf8.RuneCountInString(value) >= n, msg)
}

// Email fails when value is not shaped like an email address.
func (r *Result) Email(field, value, msg string) bool {
	return r.check(field, IsValidEmail(value), msg)
}

// Match fails when value differs from want.
func (r *Result) Match(field, value, want, msg string) bool {
	return r.check(field, value == want, msg)
}
