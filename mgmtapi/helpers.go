// Copyright 2016 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package mgmtapi

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// PatchOp is one entry in a PATCH request that uses the operation-list
// form rather than a bare attribute hash.
type PatchOp struct {
	// Action is one of "add", "edit", or "remove".
	Action string

	// Path names the attribute the operation applies to.
	Path string

	// Value is the new attribute value; ignored for "remove".
	Value interface{}
}

// ExtractPatchOps coerces a decoded JSON array into a list of patch
// operations.  Unknown actions fail the whole request.
func ExtractPatchOps(raw []interface{}) ([]PatchOp, error) {
	ops := make([]PatchOp, 0, len(raw))
	for _, item := range raw {
		var op PatchOp
		config := mapstructure.DecoderConfig{Result: &op}
		decoder, err := mapstructure.NewDecoder(&config)
		if err != nil {
			return nil, err
		}
		if err := decoder.Decode(item); err != nil {
			return nil, err
		}
		switch op.Action {
		case "add", "edit", "remove":
		default:
			return nil, fmt.Errorf("Invalid patch action %q", op.Action)
		}
		if op.Path == "" {
			return nil, fmt.Errorf("Must specify a path for a patch operation")
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// ObjectDefProperties is the typed form of a generic object
// definition's "properties" hash.
type ObjectDefProperties struct {
	// Attributes maps attribute names to type names; see
	// ValidObjectAttrTypes.
	Attributes map[string]string

	// Associations maps association names to collection names.
	Associations map[string]string

	// Methods lists the exposed method names.
	Methods []string
}

// ValidObjectAttrTypes enumerates the attribute types a generic object
// definition may declare.
var ValidObjectAttrTypes = map[string]bool{
	"string":   true,
	"integer":  true,
	"float":    true,
	"boolean":  true,
	"datetime": true,
}

// ExtractObjectDefProperties coerces a decoded "properties" value into
// its typed form and validates the declared attribute types.  This is
// the cross-field validation that guards generic object definition
// create and edit.
func ExtractObjectDefProperties(raw interface{}) (ObjectDefProperties, error) {
	var props ObjectDefProperties
	if raw == nil {
		return props, nil
	}
	config := mapstructure.DecoderConfig{Result: &props}
	decoder, err := mapstructure.NewDecoder(&config)
	if err != nil {
		return props, err
	}
	if err := decoder.Decode(raw); err != nil {
		return props, ValidationError{Message: fmt.Sprintf("malformed properties: %v", err)}
	}
	for attr, typ := range props.Attributes {
		if !ValidObjectAttrTypes[typ] {
			return props, ValidationError{
				Message: fmt.Sprintf("Properties attributes %s is not a valid attribute type, %q", attr, typ),
			}
		}
	}
	return props, nil
}
