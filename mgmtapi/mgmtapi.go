// Copyright 2016 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package mgmtapi defines the core abstractions of the management REST
// API engine: generic records, the persistence contract they live
// behind, collection descriptors, and the collaborator interfaces for
// tagging and asynchronous tasks.
//
// The engine itself never hard-codes knowledge of any particular
// resource type.  Every collection exposed at /api/<name> is described
// by an immutable Descriptor built at process start (see the registry
// package), and every stored object is a Record: a numeric id plus an
// attribute dictionary.  Components such as the filter evaluator and
// the serializer consult the descriptor to learn which attributes
// exist, what type they have, and which computed (virtual) attributes
// and associations are available.
//
// All of the types in this package are either immutable after boot
// (Descriptor, Registry) or owned by a single request's call stack;
// none of them require locking by callers.
package mgmtapi

import "time"

// Record is a single stored resource: a numeric primary key plus a
// free-form attribute dictionary.  Attribute values are restricted to
// the JSON-representable types plus time.Time for date and datetime
// attributes.
type Record struct {
	// ID is the canonical numeric primary key.  It is unique within
	// a collection and never reused.
	ID uint64

	// Attrs holds the physical attributes of the record.  The "name"
	// attribute, when present, additionally serves as a secondary
	// lookup key.
	Attrs map[string]interface{}
}

// Attr returns a named physical attribute, with a flag indicating
// whether it is set at all.
func (r *Record) Attr(name string) (interface{}, bool) {
	v, ok := r.Attrs[name]
	return v, ok
}

// Name returns the record's "name" attribute, or empty string if it
// has none.
func (r *Record) Name() string {
	if s, ok := r.Attrs["name"].(string); ok {
		return s
	}
	return ""
}

// StringAttr returns a named attribute coerced to string, or empty
// string if absent or not a string.
func (r *Record) StringAttr(name string) string {
	if s, ok := r.Attrs[name].(string); ok {
		return s
	}
	return ""
}

// IDAttr returns a named attribute coerced to a numeric id.  Storage
// backends may hand back ids as uint64, int, int64, or float64
// depending on the decoding path; this flattens them.
func (r *Record) IDAttr(name string) (uint64, bool) {
	switch v := r.Attrs[name].(type) {
	case uint64:
		return v, true
	case int64:
		if v >= 0 {
			return uint64(v), true
		}
	case int:
		if v >= 0 {
			return uint64(v), true
		}
	case float64:
		if v >= 0 {
			return uint64(v), true
		}
	}
	return 0, false
}

// TimeAttr returns a named attribute as a time, accepting both native
// time.Time values and RFC 3339 strings.
func (r *Record) TimeAttr(name string) (time.Time, bool) {
	switch v := r.Attrs[name].(type) {
	case time.Time:
		return v, true
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t, true
		}
		if t, err := time.Parse("2006-01-02", v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Clone returns a deep-enough copy of the record for serialization:
// the attribute map is copied, attribute values are shared.
func (r *Record) Clone() *Record {
	attrs := make(map[string]interface{}, len(r.Attrs))
	for k, v := range r.Attrs {
		attrs[k] = v
	}
	return &Record{ID: r.ID, Attrs: attrs}
}

// Storage is the persistence contract the engine consumes.  Implemented
// by the memory and postgres packages.  Implementations must be safe
// for concurrent use; every method is a complete, atomic operation.
type Storage interface {
	// List returns every record in a collection, in unspecified
	// order.  An unknown collection returns an empty list, not an
	// error; the router validates collection names before storage
	// is consulted.
	List(collection string) ([]*Record, error)

	// Find returns the record with the given id, or ErrNotFound.
	Find(collection string, id uint64) (*Record, error)

	// FindByName returns the record whose "name" attribute matches,
	// or ErrNotFound.  Names are not guaranteed unique; the first
	// match in id order wins.
	FindByName(collection, name string) (*Record, error)

	// Create inserts a new record, assigning the next id in the
	// collection's sequence, and returns it.
	Create(collection string, attrs map[string]interface{}) (*Record, error)

	// Update merges the given attributes into an existing record
	// and returns the updated record.  A nil attribute value
	// deletes the attribute.
	Update(collection string, id uint64, attrs map[string]interface{}) (*Record, error)

	// Delete removes a record, or returns ErrNotFound.
	Delete(collection string, id uint64) error
}

// Tagger is the classification collaborator.  Tags are identified by
// full paths of the form /managed/<category>/<name>; assignment state
// is tracked per (collection, record id) pair.
type Tagger interface {
	// ResolveTag maps a category and tag name to a full tag path,
	// or returns ErrNotFound if the category or tag does not exist.
	ResolveTag(category, name string) (string, error)

	// Assign adds a tag path to a resource.  Returns true if the
	// tag was newly assigned, false if it was already present.
	Assign(collection string, id uint64, path string) (bool, error)

	// Unassign removes a tag path from a resource.  Returns true if
	// the tag was present, false if it was not (which is not an
	// error).
	Unassign(collection string, id uint64, path string) (bool, error)

	// Tags lists the tag paths assigned to a resource, sorted.
	Tags(collection string, id uint64) ([]string, error)
}

// TaskQueue is the asynchronous work collaborator.  Enqueue records a
// task and returns immediately; the caller reports the task's id and
// href and never waits for completion.
type TaskQueue interface {
	// Enqueue creates a task record in the "tasks" collection with
	// state "Queued" and returns it.  name identifies the operation
	// ("VM id:42 name:'aa' refreshing") and message is the initial
	// human-readable status.
	Enqueue(name, message string) (*Record, error)
}
