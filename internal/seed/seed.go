// Package seed loads dashboard data from CUE files: collections of records
// and an initial notification log, validated before anything touches the
// store.
//
// A seed directory holds one or more .cue files of the shape:
//
//	records: {
//		users: [
//			{key: "u1", name: "Ada Lovelace", role: "admin"},
//		]
//		vehicles: [
//			{key: "v1", plate: "AB-123", owner: "u1"},
//		]
//	}
//	notifications: [
//		{title: "Vehicle registered", category: "info", source: "registry"},
//	]
//
// Notifications are listed oldest-first; applying them pushes in order, so
// the last listed entry ends up most recent.
package seed

import (
	"fmt"

	"cuelang.org/go/cue"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roadwatch/roadwatch/internal/domain"
	"github.com/roadwatch/roadwatch/internal/store"
)

// Data is the validated content of a seed directory.
type Data struct {
	// Collections in the field order of the CUE source.
	Collections []NamedCollection

	// Notifications oldest-first, as listed.
	Notifications []domain.Notification
}

// NamedCollection pairs a collection name with its seed records.
type NamedCollection struct {
	Name    string
	Records []domain.Record
}

// Apply feeds the seed data into the store: every record is added and every
// notification pushed, in seed order. Returns the first store rejection
// (e.g. a collection missing from the store's registration).
func (d *Data) Apply(st *store.Store) error {
	for _, col := range d.Collections {
		for _, rec := range col.Records {
			if err := st.AddRecord(col.Name, rec); err != nil {
				return fmt.Errorf("seed %s/%s: %w", col.Name, rec.Key, err)
			}
		}
	}
	for _, n := range d.Notifications {
		st.PushNotification(n)
	}
	return nil
}

// RecordCount returns the total number of seed records across collections.
func (d *Data) RecordCount() int {
	total := 0
	for _, col := range d.Collections {
		total += len(col.Records)
	}
	return total
}

// compileRecords parses the "records" struct: one field per collection, each
// a list of record structs with a required "key" and string attributes.
func compileRecords(v cue.Value, seen map[string]map[string]bool) ([]NamedCollection, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out []NamedCollection
	for iter.Next() {
		name := iter.Label()
		records, err := compileCollection(name, iter.Value(), seen)
		if err != nil {
			return nil, err
		}
		out = append(out, NamedCollection{Name: name, Records: records})
	}
	return out, nil
}

func compileCollection(name string, v cue.Value, seen map[string]map[string]bool) ([]domain.Record, error) {
	list, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	keys := seen[name]
	if keys == nil {
		keys = make(map[string]bool)
		seen[name] = keys
	}

	var records []domain.Record
	for list.Next() {
		rec, err := compileRecord(name, list.Value())
		if err != nil {
			return nil, err
		}
		if keys[rec.Key] {
			return nil, &SeedError{
				Field:   "key",
				Message: fmt.Sprintf("duplicate key %q in collection %q", rec.Key, name),
				Pos:     list.Value().Pos(),
			}
		}
		keys[rec.Key] = true
		records = append(records, rec)
	}
	return records, nil
}

func compileRecord(collection string, v cue.Value) (domain.Record, error) {
	keyVal := v.LookupPath(cue.ParsePath("key"))
	if !keyVal.Exists() {
		return domain.Record{}, &SeedError{
			Field:   "key",
			Message: fmt.Sprintf("record in collection %q is missing a key", collection),
			Pos:     v.Pos(),
		}
	}
	key, err := keyVal.String()
	if err != nil {
		return domain.Record{}, formatCUEError(err)
	}

	rec := domain.Record{Key: key}

	iter, err := v.Fields()
	if err != nil {
		return domain.Record{}, formatCUEError(err)
	}
	for iter.Next() {
		name := iter.Label()
		if name == "key" {
			continue
		}
		val, err := iter.Value().String()
		if err != nil {
			return domain.Record{}, &SeedError{
				Field:   name,
				Message: fmt.Sprintf("record field %q must be a string", name),
				Pos:     iter.Value().Pos(),
			}
		}
		if rec.Fields == nil {
			rec.Fields = make(map[string]string)
		}
		rec.Fields[name] = val
	}
	return rec, nil
}

// compileNotifications parses the "notifications" list.
func compileNotifications(v cue.Value) ([]domain.Notification, error) {
	list, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out []domain.Notification
	for list.Next() {
		n, err := compileNotification(list.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func compileNotification(v cue.Value) (domain.Notification, error) {
	title, err := stringField(v, "title")
	if err != nil {
		return domain.Notification{}, err
	}
	if title == "" {
		return domain.Notification{}, &SeedError{
			Field:   "title",
			Message: "notification title is required",
			Pos:     v.Pos(),
		}
	}

	rawCategory, err := stringField(v, "category")
	if err != nil {
		return domain.Notification{}, err
	}
	category, ok := domain.ParseCategory(rawCategory)
	if !ok {
		return domain.Notification{}, &SeedError{
			Field:   "category",
			Message: fmt.Sprintf("unknown category %q (want success, warning, error, or info)", rawCategory),
			Pos:     v.Pos(),
		}
	}

	source, err := stringField(v, "source")
	if err != nil {
		return domain.Notification{}, err
	}

	return domain.Notification{
		Title:    title,
		Category: category,
		Source:   source,
	}, nil
}

// stringField returns the named string field, or "" when absent.
func stringField(v cue.Value, name string) (string, error) {
	fieldVal := v.LookupPath(cue.ParsePath(name))
	if !fieldVal.Exists() {
		return "", nil
	}
	s, err := fieldVal.String()
	if err != nil {
		return "", &SeedError{
			Field:   name,
			Message: fmt.Sprintf("field %q must be a string", name),
			Pos:     fieldVal.Pos(),
		}
	}
	return s, nil
}

// SeedError is a validation error with CUE position info.
type SeedError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *SeedError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := cueerrors.Positions(firstErr)
	if len(positions) > 0 {
		return &SeedError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
