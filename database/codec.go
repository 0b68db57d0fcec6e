package database

import (
	"strings"

	"github.com/goccy/go-json"
)

// Sub-documents are always stored as JSON objects, never as null.
func encodeDocument[M ~map[string]V, V any](m M) (string, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Untyped numbers decode as json.Number so large integers keep their value.
func decodeDocument(doc string, v any) error {
	dec := json.NewDecoder(strings.NewReader(doc))
	dec.UseNumber()
	return dec.Decode(v)
}
