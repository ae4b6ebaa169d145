// Copyright 2016 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package mgmtapi

import (
	"strings"
)

// RefKind distinguishes the identifier forms a resource reference can
// carry.
type RefKind int

// The reference kinds.
const (
	RefByID RefKind = iota
	RefByName
	RefByHref
)

// ResourceRef is a polymorphic resource identifier extracted from a
// bulk action item or an action payload.  Exactly one of the three
// lookup forms is active.  When a payload supplies several forms at
// once, id wins over href, and href wins over name; name is only used
// when it is the sole identifier given.
type ResourceRef struct {
	Kind RefKind
	ID   uint64
	Name string
	Href string
}

// ExtractRef pulls a resource reference out of an action item's
// attribute map.  Returns ErrNoResourceIdentifier when none of id,
// href, or name is present.
func ExtractRef(item map[string]interface{}) (ResourceRef, error) {
	if v, ok := item["id"]; ok {
		id, err := coerceID(v)
		if err != nil {
			// A malformed id is still an id reference; resolution
			// will fail with the id's textual form.
			return ResourceRef{Kind: RefByID, Name: stringify(v)}, nil
		}
		return ResourceRef{Kind: RefByID, ID: id, Name: stringify(v)}, nil
	}
	if href, ok := item["href"].(string); ok && href != "" {
		return ResourceRef{Kind: RefByHref, Href: href}, nil
	}
	if name, ok := item["name"].(string); ok && name != "" {
		return ResourceRef{Kind: RefByName, Name: name}, nil
	}
	return ResourceRef{}, ErrNoResourceIdentifier
}

// Resolve looks the reference up in one collection.  The returned
// error is always a NotFoundError carrying the lookup key actually
// used, so bulk callers can report per-item failures verbatim.
func (ref ResourceRef) Resolve(store Storage, collection string) (*Record, error) {
	typeName := TypeName(collection)
	switch ref.Kind {
	case RefByID:
		if ref.ID == 0 {
			return nil, NotFoundError{Type: typeName, Field: "id", Value: ref.Name}
		}
		r, err := store.Find(collection, ref.ID)
		if err != nil {
			return nil, NotFoundError{Type: typeName, Field: "id", Value: ref.Name}
		}
		return r, nil
	case RefByName:
		r, err := store.FindByName(collection, ref.Name)
		if err != nil {
			return nil, NotFoundError{Type: typeName, Field: "name", Value: ref.Name}
		}
		return r, nil
	case RefByHref:
		id, ok := idFromHref(ref.Href, collection)
		if !ok {
			return nil, NotFoundError{Type: typeName, Field: "href", Value: ref.Href}
		}
		r, err := store.Find(collection, id)
		if err != nil {
			return nil, NotFoundError{Type: typeName, Field: "href", Value: ref.Href}
		}
		return r, nil
	}
	return nil, NotFoundError{Type: typeName, Field: "id", Value: ""}
}

// idFromHref extracts the trailing id from an href of the form
// .../api/<collection>/<id>, requiring the collection segment to
// match.
func idFromHref(href, collection string) (uint64, bool) {
	parts := strings.Split(strings.TrimSuffix(href, "/"), "/")
	if len(parts) < 2 || parts[len(parts)-2] != collection {
		return 0, false
	}
	id, err := ParseID(parts[len(parts)-1])
	if err != nil {
		return 0, false
	}
	return id, true
}

// AsID coerces a decoded JSON value (number or id string, bare or
// compressed) into a numeric id.
func AsID(v interface{}) (uint64, bool) {
	id, err := coerceID(v)
	return id, err == nil
}

func coerceID(v interface{}) (uint64, error) {
	switch id := v.(type) {
	case float64:
		if id > 0 {
			return uint64(id), nil
		}
	case int:
		if id > 0 {
			return uint64(id), nil
		}
	case int64:
		if id > 0 {
			return uint64(id), nil
		}
	case uint64:
		if id > 0 {
			return id, nil
		}
	case string:
		return ParseID(id)
	}
	return 0, ErrNotFound
}

func stringify(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return trimFloat(s)
	default:
		return ""
	}
}

func trimFloat(f float64) string {
	if f == float64(uint64(f)) {
		return CompressID(uint64(f))
	}
	return ""
}
