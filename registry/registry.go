// Copyright 2016 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package registry builds the process-wide collection descriptor table
// at boot.  Every collection the API exposes is declared here: its
// attributes and their types, virtual attributes, associations,
// subcollections, and the action table mapping each {action, scope}
// pair to the authorization identifier a caller must hold.
//
// The table is static.  Nothing in the engine reflects over domain
// types at runtime; adding a collection means adding a descriptor
// function in this package.
package registry

import (
	"fmt"
	"strings"

	"github.com/diffeo/go-mgmtapi/mgmtapi"
)

// New builds the full descriptor table.
func New() *mgmtapi.Registry {
	return mgmtapi.NewRegistry([]*mgmtapi.Descriptor{
		providers(),
		vms(),
		hosts(),
		services(),
		serviceTemplates(),
		serviceDialogs(),
		serviceOrders(),
		serviceRequests(),
		users(),
		policies(),
		policyProfiles(),
		genericObjectDefinitions(),
		genericObjects(),
		customAttributes(),
		tasks(),
	})
}

// singular derives the identifier stem from a collection name:
// "policies" becomes "policy", "vms" becomes "vm".
func singular(collection string) string {
	switch {
	case strings.HasSuffix(collection, "ies"):
		return collection[:len(collection)-3] + "y"
	case strings.HasSuffix(collection, "s"):
		return collection[:len(collection)-1]
	}
	return collection
}

// ident composes an authorization identifier from a collection and an
// action suffix: ident("vms", "start") is "vm_start".
func ident(collection, action string) string {
	return fmt.Sprintf("%s_%s", singular(collection), action)
}

// readIdent is the identifier guarding GET access to a collection.
func readIdent(collection string) string {
	return ident(collection, "show_list")
}

// crudActions registers create at collection scope and edit/delete at
// both collection and resource scope, the baseline action set shared
// by every writable collection.
func crudActions(collection string) []mgmtapi.ActionSpec {
	return []mgmtapi.ActionSpec{
		{Name: "create", Scope: mgmtapi.CollectionScope, Identifier: ident(collection, "create")},
		{Name: "edit", Scope: mgmtapi.CollectionScope, Identifier: ident(collection, "edit")},
		{Name: "delete", Scope: mgmtapi.CollectionScope, Identifier: ident(collection, "delete")},
		{Name: "edit", Scope: mgmtapi.ResourceScope, Identifier: ident(collection, "edit")},
		{Name: "delete", Scope: mgmtapi.ResourceScope, Identifier: ident(collection, "delete")},
	}
}

// tagActions registers assign/unassign on the tags subcollection.
func tagActions(collection string) []mgmtapi.ActionSpec {
	return []mgmtapi.ActionSpec{
		{Name: "assign", Scope: mgmtapi.SubcollectionScope, Identifier: ident(collection, "tag_assign")},
		{Name: "unassign", Scope: mgmtapi.SubcollectionScope, Identifier: ident(collection, "tag_unassign")},
	}
}

// customAttrActions registers the add/edit/delete actions on the
// custom_attributes subcollection.
func customAttrActions(collection string) []mgmtapi.ActionSpec {
	var out []mgmtapi.ActionSpec
	for _, name := range []string{"add", "edit", "delete"} {
		out = append(out, mgmtapi.ActionSpec{
			Name:       name,
			Scope:      mgmtapi.SubcollectionScope,
			Identifier: ident(collection, "custom_attribute_"+name),
		})
	}
	return out
}

// tagsSub is the synthetic tags subcollection, backed by the tagging
// service rather than storage.
func tagsSub() mgmtapi.Subcollection {
	return mgmtapi.Subcollection{Name: "tags"}
}

// requireName fails a create or edit whose merged attributes leave the
// name blank.
func requireName(attrs map[string]interface{}, store mgmtapi.Storage) error {
	if s, ok := attrs["name"].(string); !ok || s == "" {
		return mgmtapi.ValidationError{Message: "Name can't be blank"}
	}
	return nil
}

// concat joins several action lists in registration order.
func concat(lists ...[]mgmtapi.ActionSpec) []mgmtapi.ActionSpec {
	var out []mgmtapi.ActionSpec
	for _, list := range lists {
		out = append(out, list...)
	}
	return out
}

// timestamps are carried by every collection.
func timestamps(attrs map[string]mgmtapi.AttrType) map[string]mgmtapi.AttrType {
	attrs["created_at"] = mgmtapi.DateTimeAttr
	attrs["updated_at"] = mgmtapi.DateTimeAttr
	return attrs
}
