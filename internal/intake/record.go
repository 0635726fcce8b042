// Package intake turns serialized client snapshots into reconcile records and
// keeps them in one of several snapshot stores.
package intake

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"clerk/internal/reconcile"
)

// ErrMalformedRecord is returned when a snapshot is not a flat JSON object of
// field values. No partial record accompanies it.
var ErrMalformedRecord = errors.New("malformed client record")

// ParseRecord decodes a flat JSON object into a ClientRecord. String values
// are kept verbatim, booleans and numbers keep their literal text and null
// marks a field that was not collected.
func ParseRecord(data []byte) (reconcile.ClientRecord, error) {
	fields, err := ParseFields(data)
	if err != nil {
		return reconcile.ClientRecord{}, err
	}
	return reconcile.NewClientRecord(fields), nil
}

// ParseFields is ParseRecord without the final conversion.
func ParseFields(data []byte) (map[string]string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrMalformedRecord)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}
	return FlattenValues(raw)
}

// FlattenValues converts raw JSON values to strings using ParseRecord's rules.
func FlattenValues(raw map[string]json.RawMessage) (map[string]string, error) {
	fields := make(map[string]string, len(raw))
	for key, value := range raw {
		if key == "" {
			return nil, fmt.Errorf("%w: empty field key", ErrMalformedRecord)
		}
		v := bytes.TrimSpace(value)
		switch {
		case len(v) == 0:
			return nil, fmt.Errorf("%w: field %q has no value", ErrMalformedRecord, key)
		case bytes.Equal(v, []byte("null")):
			continue
		case v[0] == '"':
			var s string
			if err := json.Unmarshal(v, &s); err != nil {
				return nil, fmt.Errorf("%w: field %q: %w", ErrMalformedRecord, key, err)
			}
			fields[key] = s
		case v[0] == '{' || v[0] == '[':
			return nil, fmt.Errorf("%w: field %q is not a scalar", ErrMalformedRecord, key)
		default:
			fields[key] = string(v)
		}
	}
	return fields, nil
}

// ClientIDFromName derives a client id from a snapshot file name, keeping the
// segment after the last underscore: "client_data_42.json" yields "42".
// Names without an underscore yield the base name without extension.
func ClientIDFromName(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if i := strings.LastIndex(base, "_"); i >= 0 && i < len(base)-1 {
		return base[i+1:]
	}
	return base
}

// NumericClientID parses ClientIDFromName as an integer.
func NumericClientID(name string) (int, error) {
	id := ClientIDFromName(name)
	n, err := strconv.Atoi(id)
	if err != nil {
		return 0, fmt.Errorf("client id %q is not numeric: %w", id, err)
	}
	return n, nil
}
