// Copyright 2016 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package mgmtapi

import (
	"fmt"
	"strings"
)

// AttrType describes the declared type of a physical attribute.  The
// filter evaluator uses it to pick a comparison strategy, and the
// datetime-specific operator restrictions key off it.
type AttrType int

// The supported attribute types.
const (
	StringAttr AttrType = iota
	IntegerAttr
	FloatAttr
	BooleanAttr
	DateAttr
	DateTimeAttr
)

// Scope identifies which of the four URL shapes an action is
// registered against.  The same action name may carry different
// authorization identifiers at different scopes.
type Scope int

// The four action scopes.
const (
	CollectionScope Scope = iota
	ResourceScope
	SubcollectionScope
	SubresourceScope
)

func (s Scope) String() string {
	switch s {
	case CollectionScope:
		return "collection"
	case ResourceScope:
		return "resource"
	case SubcollectionScope:
		return "subcollection"
	case SubresourceScope:
		return "subresource"
	}
	return fmt.Sprintf("scope(%d)", int(s))
}

// ActionSpec registers a single named action at a single scope.
type ActionSpec struct {
	// Name is the value of the "action" field in a POST body
	// ("edit", "retire", ...).
	Name string

	// Scope is the URL shape this registration applies to.
	Scope Scope

	// Identifier is the authorization identifier a caller must hold.
	Identifier string

	// Async marks actions that enqueue a task and return a task
	// handle rather than completing synchronously.
	Async bool
}

// VirtualAttr computes the value of a virtual attribute for one
// record.  Implementations must be pure: no mutation of the record or
// of any shared state.  They may consult storage to follow
// associations.
type VirtualAttr func(r *Record, store Storage) interface{}

// Association describes a one-hop link to another collection, used by
// filter expressions of the form "assoc.attr".
type Association struct {
	// Collection is the target collection name.
	Collection string

	// Key is the foreign-key attribute on this record, e.g.
	// "host_id".
	Key string
}

// Subcollection describes a nested collection exposed at
// /api/<collection>/:id/<name>.  Exactly one of ForeignKey or
// MemberKey is set: ForeignKey names a scalar parent-id attribute on
// the child ("service_id"), MemberKey names a list-of-parent-ids
// attribute for many-to-many memberships ("policy_profile_ids").
// Collection is empty for the synthetic "tags" subcollection, which is
// backed by the Tagger rather than storage.
type Subcollection struct {
	Name       string
	Collection string
	ForeignKey string
	MemberKey  string

	// Filterable permits filter[] parameters on this subcollection.
	Filterable bool
}

// Validator checks cross-field constraints on a create or edit
// payload.  A non-nil return fails the whole item with a 400 and
// never leaves partial state.
type Validator func(attrs map[string]interface{}, store Storage) error

// DeleteCheck vetoes deletion of a record that other records still
// reference.  A non-nil return fails the delete with a 400.
type DeleteCheck func(r *Record, store Storage) error

// Descriptor is the immutable per-collection metadata record.  One
// Descriptor exists per exposed collection, created at boot by the
// registry package and never mutated afterward.
type Descriptor struct {
	// Name is the collection name as it appears in URLs ("vms").
	Name string

	// Description is a human-readable title for OPTIONS output.
	Description string

	// Attributes maps each physical attribute to its type.  "id" is
	// implicit and must not appear here.
	Attributes map[string]AttrType

	// DefaultAttributes lists the physical attributes rendered when
	// a resource is fully expanded without an explicit attributes=
	// selection.  Empty means all physical attributes.
	DefaultAttributes []string

	// Virtual maps virtual attribute names to their compute
	// functions.
	Virtual map[string]VirtualAttr

	// Unsortable marks virtual attributes that have no stable
	// ordering key; sort_by on one of these is a 400.
	Unsortable map[string]bool

	// Associations maps association names ("host") to their
	// targets, for one-hop filter traversal.
	Associations map[string]Association

	// Subcollections maps subcollection names to their descriptors.
	Subcollections map[string]Subcollection

	// Actions lists every registered action across all scopes.
	Actions []ActionSpec

	// ReadIdentifier is the authorization identifier required for
	// GET access to this collection and its resources.
	ReadIdentifier string

	// ByName permits addressing a resource as /api/<name>/<name> in
	// addition to numeric and compressed ids.
	ByName bool

	// OwnerKey, when set, names an attribute holding the owning
	// user's id.  Read access is then scoped to the caller's own
	// records unless the caller holds AdminIdentifier.
	OwnerKey        string
	AdminIdentifier string

	// Validate, when set, runs against create and edit payloads.
	Validate Validator

	// CheckDelete, when set, runs before any delete.
	CheckDelete DeleteCheck
}

// Action finds the registration for an action name at a scope.
func (d *Descriptor) Action(name string, scope Scope) (ActionSpec, bool) {
	for _, a := range d.Actions {
		if a.Name == name && a.Scope == scope {
			return a, true
		}
	}
	return ActionSpec{}, false
}

// ActionsAt lists the actions registered at a scope, in registration
// order.
func (d *Descriptor) ActionsAt(scope Scope) []ActionSpec {
	var out []ActionSpec
	for _, a := range d.Actions {
		if a.Scope == scope {
			out = append(out, a)
		}
	}
	return out
}

// HasAttribute reports whether name is a physical or virtual attribute
// of this collection ("id" always is).
func (d *Descriptor) HasAttribute(name string) bool {
	if name == "id" || name == "href_slug" {
		return true
	}
	if _, ok := d.Attributes[name]; ok {
		return true
	}
	_, ok := d.Virtual[name]
	return ok
}

// TypeName derives the domain model name used in error messages from a
// collection name: "services" becomes "Service",
// "generic_object_definitions" becomes "GenericObjectDefinition".
func TypeName(collection string) string {
	singular := collection
	switch {
	case strings.HasSuffix(collection, "ies"):
		singular = collection[:len(collection)-3] + "y"
	case strings.HasSuffix(collection, "sses"):
		singular = collection[:len(collection)-2]
	case strings.HasSuffix(collection, "s"):
		singular = collection[:len(collection)-1]
	}
	words := strings.Split(singular, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		if w == "vm" {
			words[i] = "Vm"
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, "")
}

// Registry is the process-wide set of collection descriptors, built
// once at boot and read-only afterward.
type Registry struct {
	collections map[string]*Descriptor
	names       []string
}

// NewRegistry builds a registry from a list of descriptors.
func NewRegistry(descriptors []*Descriptor) *Registry {
	reg := &Registry{collections: make(map[string]*Descriptor)}
	for _, d := range descriptors {
		reg.collections[d.Name] = d
		reg.names = append(reg.names, d.Name)
	}
	return reg
}

// Collection looks up a descriptor by collection name.
func (reg *Registry) Collection(name string) (*Descriptor, bool) {
	d, ok := reg.collections[name]
	return d, ok
}

// Names returns the registered collection names in registration order.
func (reg *Registry) Names() []string {
	return reg.names
}
