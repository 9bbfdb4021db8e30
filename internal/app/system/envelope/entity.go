package envelope

import (
	"bytes"
	"encoding/json"
)

// Member decodes the object held under the first of keys that is present
// and not null. ok is false when none of the keys is present.
func Member[T any](raw []byte, keys ...string) (v T, ok bool, err error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return v, false, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return v, false, &ParseError{Reason: "decode object", Err: err}
	}
	for _, k := range keys {
		m, present := fields[k]
		if !present || isNull(m) {
			continue
		}
		if err := json.Unmarshal(m, &v); err != nil {
			return v, false, &ParseError{Reason: "decode " + k, Err: err}
		}
		return v, true, nil
	}
	return v, false, nil
}

// Entity decodes a single-record response. The record may sit under
// "data" or "result", or be the root object itself.
func Entity[T any](raw []byte) (T, error) {
	v, ok, err := Member[T](raw, "data", "result")
	if err != nil || ok {
		return v, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return v, &ParseError{Reason: "expected an object"}
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, &ParseError{Reason: "decode object", Err: err}
	}
	return v, nil
}
