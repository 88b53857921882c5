package search

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// Record is one search hit as returned by the backend. The shape is open
// ended, so fields are read lazily from the raw JSON object.
type Record struct {
	raw []byte
}

// NewRecord wraps a raw JSON object.
func NewRecord(raw []byte) Record {
	return Record{raw: raw}
}

// ParseRecord wraps a JSON object given as a string.
func ParseRecord(raw string) Record {
	return Record{raw: []byte(raw)}
}

// Raw returns the underlying JSON bytes.
func (r Record) Raw() []byte {
	return r.raw
}

// Get returns the gjson result for path.
func (r Record) Get(path string) gjson.Result {
	return gjson.GetBytes(r.raw, path)
}

// Has reports whether path is present, including an explicit null.
func (r Record) Has(path string) bool {
	return r.Get(path).Exists()
}

// String returns the value at path as text, or "" when absent or null.
func (r Record) String(path string) string {
	res := r.Get(path)
	if !res.Exists() || res.Type == gjson.Null {
		return ""
	}
	return res.String()
}

// OptionalString returns nil when path is absent or null.
func (r Record) OptionalString(path string) *string {
	res := r.Get(path)
	if !res.Exists() || res.Type == gjson.Null {
		return nil
	}
	s := res.String()
	return &s
}

// Value returns the JSON value at path as is, or nil when absent or null.
func (r Record) Value(path string) json.RawMessage {
	res := r.Get(path)
	if !res.Exists() || res.Type == gjson.Null {
		return nil
	}
	return json.RawMessage(res.Raw)
}

// Records returns the elements of the array at path. Anything that is not an
// array yields nil.
func (r Record) Records(path string) []Record {
	res := r.Get(path)
	if !res.IsArray() {
		return nil
	}
	items := res.Array()
	out := make([]Record, 0, len(items))
	for _, item := range items {
		out = append(out, ParseRecord(item.Raw))
	}
	return out
}

// Len returns the length of the array at path, or 0 when it is not an array.
func (r Record) Len(path string) int {
	res := r.Get(path)
	if !res.IsArray() {
		return 0
	}
	return len(res.Array())
}

// ParseHits extracts the records of a search response body. It fails with
// ErrDecode when the body is not valid JSON or carries no hits array.
func ParseHits(body []byte) ([]Record, error) {
	if !gjson.ValidBytes(body) {
		return nil, ErrDecode
	}
	hits := gjson.GetBytes(body, "hits")
	if !hits.IsArray() {
		return nil, ErrDecode
	}

	items := hits.Array()
	out := make([]Record, 0, len(items))
	for _, item := range items {
		if !item.IsObject() {
			continue
		}
		out = append(out, ParseRecord(item.Raw))
	}
	return out, nil
}
