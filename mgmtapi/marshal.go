// Copyright 2016 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package mgmtapi

import (
	"fmt"
)

// MarshalText returns a string representing an attribute type.
func (t AttrType) MarshalText() ([]byte, error) {
	switch t {
	case StringAttr:
		return []byte("string"), nil
	case IntegerAttr:
		return []byte("integer"), nil
	case FloatAttr:
		return []byte("float"), nil
	case BooleanAttr:
		return []byte("boolean"), nil
	case DateAttr:
		return []byte("date"), nil
	case DateTimeAttr:
		return []byte("datetime"), nil
	default:
		return nil, fmt.Errorf("invalid attribute type (marshal, %+v)", t)
	}
}

// UnmarshalText populates an attribute type from a string.
func (t *AttrType) UnmarshalText(text []byte) error {
	switch string(text) {
	case "string":
		*t = StringAttr
	case "integer":
		*t = IntegerAttr
	case "float":
		*t = FloatAttr
	case "boolean":
		*t = BooleanAttr
	case "date":
		*t = DateAttr
	case "datetime":
		*t = DateTimeAttr
	default:
		return fmt.Errorf("invalid attribute type (unmarshal, %+v)", string(text))
	}
	return nil
}
