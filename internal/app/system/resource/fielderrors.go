package resource

// FieldErrors maps a form field name to its message. SubmitKey holds a
// form-level error.
type FieldErrors map[string]string

// HasErrors reports whether any field has a message.
func (fe FieldErrors) HasErrors() bool {
	for _, msg := range fe {
		if msg != "" {
			return true
		}
	}
	return false
}

// Get returns the message for field, or "".
func (fe FieldErrors) Get(field string) string {
	if fe == nil {
		return ""
	}
	return fe[field]
}

// Clone returns a copy that is safe to hand to a template.
func (fe FieldErrors) Clone() FieldErrors {
	out := make(FieldErrors, len(fe))
	for k, v := range fe {
		out[k] = v
	}
	return out
}
