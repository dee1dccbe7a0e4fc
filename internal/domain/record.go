package domain

// Record is a single dashboard entity: a user, a vehicle, a violation, or a
// fine. Records are schemaless beyond the key - attributes are scalar string
// fields so every collection shares one shape.
//
// Records stored in a collection are never mutated in place. Updates produce
// a merged copy; readers holding a snapshot keep seeing the old record.
type Record struct {
	// Key uniquely identifies the record within its collection.
	Key string `json:"key"`

	// Fields holds the domain attributes (plate number, owner name, fine
	// amount, ...). May be nil for a bare record.
	Fields map[string]string `json:"fields,omitempty"`
}

// Clone returns a deep copy of the record.
// Used on ingest so callers cannot alias store-owned state.
func (r Record) Clone() Record {
	out := Record{Key: r.Key}
	if r.Fields != nil {
		out.Fields = make(map[string]string, len(r.Fields))
		for k, v := range r.Fields {
			out.Fields[k] = v
		}
	}
	return out
}

// Field returns the named attribute, or "" if absent.
func (r Record) Field(name string) string {
	return r.Fields[name]
}

// Merge returns a copy of the record with the patch applied on top.
// Patch fields overwrite or add; fields absent from the patch are kept.
// The receiver is not modified.
func (r Record) Merge(patch map[string]string) Record {
	out := r.Clone()
	if len(patch) == 0 {
		return out
	}
	if out.Fields == nil {
		out.Fields = make(map[string]string, len(patch))
	}
	for k, v := range patch {
		out.Fields[k] = v
	}
	return out
}
