// Copyright 2016 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package mgmtapi

import (
	"errors"
	"fmt"
)

// ErrNotFound is the sentinel storage backends return when a record
// does not exist.  The engine wraps it into the richer NotFoundError
// before it reaches a response.
var ErrNotFound = errors.New("record not found")

// ErrNoResourceIdentifier is returned when a bulk action item carries
// neither an id, a name, nor an href.
var ErrNoResourceIdentifier = errors.New("Must specify a resource id, name, or href")

// NotFoundError reports a failed lookup in the message format the API
// exposes: "Couldn't find Service with 'id'=0".
type NotFoundError struct {
	// Type is the domain model name, e.g. "Service".
	Type string

	// Field is the lookup key used: "id", "name", or "href".
	Field string

	// Value is the value that failed to resolve.
	Value string
}

func (err NotFoundError) Error() string {
	return fmt.Sprintf("Couldn't find %s with '%s'=%s", err.Type, err.Field, err.Value)
}

// ValidationError reports a cross-field validation failure on a create
// or edit payload.  The whole item fails atomically.
type ValidationError struct {
	Message string
}

func (err ValidationError) Error() string {
	return "Validation failed: " + err.Message
}

// InUseError reports a delete that would violate a referential
// constraint, e.g. removing a generic object definition that still has
// instances.
type InUseError struct {
	Message string
}

func (err InUseError) Error() string {
	return err.Message
}
