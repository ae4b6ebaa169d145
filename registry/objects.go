// Copyright 2016 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package registry

import (
	"fmt"

	"github.com/diffeo/go-mgmtapi/mgmtapi"
)

func genericObjectDefinitions() *mgmtapi.Descriptor {
	return &mgmtapi.Descriptor{
		Name:        "generic_object_definitions",
		Description: "Generic Object Definitions",
		Attributes: timestamps(map[string]mgmtapi.AttrType{
			"name":        mgmtapi.StringAttr,
			"description": mgmtapi.StringAttr,
			"properties":  mgmtapi.StringAttr,
		}),
		Virtual: map[string]mgmtapi.VirtualAttr{
			"generic_objects_count": countChildren("generic_objects", "generic_object_definition_id"),
		},
		Subcollections: map[string]mgmtapi.Subcollection{
			"generic_objects": {
				Name:       "generic_objects",
				Collection: "generic_objects",
				ForeignKey: "generic_object_definition_id",
			},
		},
		Actions: concat(crudActions("generic_object_definitions"),
			definitionPropertyActions()),
		ReadIdentifier: readIdent("generic_object_definitions"),
		ByName:         true,
		Validate:       validateDefinition,
		CheckDelete:    definitionNotInUse,
	}
}

// definitionPropertyActions are the add/remove pairs that mutate a
// definition's properties hash in place.
func definitionPropertyActions() []mgmtapi.ActionSpec {
	var out []mgmtapi.ActionSpec
	for _, name := range []string{
		"add_attributes", "remove_attributes",
		"add_associations", "remove_associations",
		"add_methods", "remove_methods",
	} {
		out = append(out, mgmtapi.ActionSpec{
			Name:       name,
			Scope:      mgmtapi.ResourceScope,
			Identifier: ident("generic_object_definitions", "edit"),
		})
	}
	return out
}

// validateDefinition checks the name and the declared attribute types
// in the properties hash.
func validateDefinition(attrs map[string]interface{}, store mgmtapi.Storage) error {
	if err := requireName(attrs, store); err != nil {
		return err
	}
	_, err := mgmtapi.ExtractObjectDefProperties(attrs["properties"])
	return err
}

// definitionNotInUse vetoes deleting a definition that still has
// instances.
func definitionNotInUse(r *mgmtapi.Record, store mgmtapi.Storage) error {
	objects, err := store.List("generic_objects")
	if err != nil {
		return err
	}
	for _, object := range objects {
		if id, ok := object.IDAttr("generic_object_definition_id"); ok && id == r.ID {
			return mgmtapi.InUseError{
				Message: fmt.Sprintf("Definition %s is in use by generic objects", r.Name()),
			}
		}
	}
	return nil
}

func genericObjects() *mgmtapi.Descriptor {
	return &mgmtapi.Descriptor{
		Name:        "generic_objects",
		Description: "Generic Objects",
		Attributes: timestamps(map[string]mgmtapi.AttrType{
			"name":                         mgmtapi.StringAttr,
			"uid":                          mgmtapi.StringAttr,
			"generic_object_definition_id": mgmtapi.IntegerAttr,
		}),
		Associations: map[string]mgmtapi.Association{
			"generic_object_definition": {
				Collection: "generic_object_definitions",
				Key:        "generic_object_definition_id",
			},
		},
		Actions:        crudActions("generic_objects"),
		ReadIdentifier: readIdent("generic_objects"),
		Validate:       requireName,
	}
}

// customAttributes is an internal collection backing the
// custom_attributes subcollection of vms and providers.
func customAttributes() *mgmtapi.Descriptor {
	return &mgmtapi.Descriptor{
		Name:        "custom_attributes",
		Description: "Custom Attributes",
		Attributes: timestamps(map[string]mgmtapi.AttrType{
			"name":        mgmtapi.StringAttr,
			"value":       mgmtapi.StringAttr,
			"section":     mgmtapi.StringAttr,
			"vm_id":       mgmtapi.IntegerAttr,
			"provider_id": mgmtapi.IntegerAttr,
		}),
		ReadIdentifier: readIdent("custom_attributes"),
	}
}

// tasks is the read-mostly collection exposing asynchronous task
// state.  Records are created by the task queue, never via POST.
func tasks() *mgmtapi.Descriptor {
	return &mgmtapi.Descriptor{
		Name:        "tasks",
		Description: "Tasks",
		Attributes: timestamps(map[string]mgmtapi.AttrType{
			"name":    mgmtapi.StringAttr,
			"state":   mgmtapi.StringAttr,
			"status":  mgmtapi.StringAttr,
			"message": mgmtapi.StringAttr,
			"uid":     mgmtapi.StringAttr,
		}),
		Actions: []mgmtapi.ActionSpec{
			{Name: "delete", Scope: mgmtapi.ResourceScope, Identifier: ident("tasks", "delete")},
			{Name: "delete", Scope: mgmtapi.CollectionScope, Identifier: ident("tasks", "delete")},
		},
		ReadIdentifier: readIdent("tasks"),
	}
}
