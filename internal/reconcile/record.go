package reconcile

import "sort"

// ClientRecord is one immutable snapshot of extracted client fields. A key
// missing from the record means the field was not collected.
type ClientRecord struct {
	values map[FieldKey]string
}

// NewClientRecord copies fields into a new record. The caller's map may be
// reused or mutated afterwards.
func NewClientRecord(fields map[string]string) ClientRecord {
	values := make(map[FieldKey]string, len(fields))
	for k, v := range fields {
		values[ParseFieldKey(k)] = v
	}
	return ClientRecord{values: values}
}

// Value returns the raw value for key and whether it was collected.
func (r ClientRecord) Value(key FieldKey) (string, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Len returns the number of collected fields.
func (r ClientRecord) Len() int {
	return len(r.values)
}

// Keys returns the collected keys ordered by their string form.
func (r ClientRecord) Keys() []FieldKey {
	keys := make([]FieldKey, 0, len(r.values))
	for k := range r.values {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
	return keys
}

// Fields returns a copy of the record as a plain string map.
func (r ClientRecord) Fields() map[string]string {
	out := make(map[string]string, len(r.values))
	for k, v := range r.values {
		out[k.String()] = v
	}
	return out
}
