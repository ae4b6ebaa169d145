// Copyright 2016 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package filter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/diffeo/go-mgmtapi/mgmtapi"
)

// Evaluator validates and applies filter expressions against records
// of a specific collection.  The registry resolves attribute types of
// association targets; the store resolves the association hop itself.
type Evaluator struct {
	Registry *mgmtapi.Registry
	Store    mgmtapi.Storage
}

// Validate checks every condition in the expression against the
// collection descriptor: the attribute must exist (directly or one
// association hop away), and datetime attributes only accept the
// =, < and > operators.
func (ev Evaluator) Validate(expr *Expression, desc *mgmtapi.Descriptor) error {
	if expr == nil {
		return nil
	}
	for _, cond := range expr.Conditions {
		target := desc
		if cond.Assoc != "" {
			assoc, ok := desc.Associations[cond.Assoc]
			if !ok {
				return ParseError{Message: "Must filter on valid attributes for resource"}
			}
			target, ok = ev.Registry.Collection(assoc.Collection)
			if !ok {
				return ParseError{Message: "Must filter on valid attributes for resource"}
			}
		}
		if !filterableAttr(target, cond.Attr) {
			return ParseError{Message: "Must filter on valid attributes for resource"}
		}
		switch target.Attributes[cond.Attr] {
		case mgmtapi.DateTimeAttr:
			if cond.Op != OpLt && cond.Op != OpGt && cond.Op != OpEq {
				return ParseError{
					Message: fmt.Sprintf("Unsupported operator for datetime: %s", cond.Op),
				}
			}
			if !cond.Null {
				if _, err := parseTimeValue(cond.Value); err != nil {
					return err
				}
			}
		case mgmtapi.DateAttr:
			if !cond.Null {
				if _, err := parseTimeValue(cond.Value); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Match reports whether a record satisfies the full expression.
func (ev Evaluator) Match(expr *Expression, desc *mgmtapi.Descriptor, rec *mgmtapi.Record) (bool, error) {
	if expr == nil {
		return true, nil
	}
	for _, group := range expr.groups() {
		all := true
		for _, cond := range group {
			ok, err := ev.matchCondition(cond, desc, rec)
			if err != nil {
				return false, err
			}
			if !ok {
				all = false
				break
			}
		}
		if all {
			return true, nil
		}
	}
	return false, nil
}

// MatchUnion reports whether a record satisfies any of the conditions
// participating in the expression's top-level OR.  The count of these
// matches across a collection is what subquery_count reports.
func (ev Evaluator) MatchUnion(expr *Expression, desc *mgmtapi.Descriptor, rec *mgmtapi.Record) (bool, error) {
	if expr == nil {
		return true, nil
	}
	for _, cond := range expr.unionConditions() {
		ok, err := ev.matchCondition(cond, desc, rec)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (ev Evaluator) matchCondition(cond Condition, desc *mgmtapi.Descriptor, rec *mgmtapi.Record) (bool, error) {
	target := desc
	if cond.Assoc != "" {
		assoc, ok := desc.Associations[cond.Assoc]
		if !ok {
			return false, ParseError{Message: "Must filter on valid attributes for resource"}
		}
		target, ok = ev.Registry.Collection(assoc.Collection)
		if !ok {
			return false, ParseError{Message: "Must filter on valid attributes for resource"}
		}
		id, ok := rec.IDAttr(assoc.Key)
		if !ok {
			return cond.Null && cond.Op == OpEq, nil
		}
		hop, err := ev.Store.Find(assoc.Collection, id)
		if err != nil {
			if err == mgmtapi.ErrNotFound {
				return cond.Null && cond.Op == OpEq, nil
			}
			return false, err
		}
		rec = hop
	}
	return ev.compare(cond, target, rec)
}

func (ev Evaluator) compare(cond Condition, desc *mgmtapi.Descriptor, rec *mgmtapi.Record) (bool, error) {
	// Identifier fields accept the compressed region-prefixed form.
	if cond.Attr == "id" || strings.HasSuffix(cond.Attr, "_id") {
		return ev.compareID(cond, rec)
	}

	var value interface{}
	var present bool
	if virtual, ok := desc.Virtual[cond.Attr]; ok {
		value = virtual(rec, ev.Store)
		present = value != nil
	} else {
		value, present = rec.Attr(cond.Attr)
		if value == nil {
			present = false
		}
	}

	if cond.Null {
		switch cond.Op {
		case OpEq:
			return !present, nil
		case OpNe:
			return present, nil
		}
		return false, nil
	}
	if !present {
		return cond.Op == OpNe, nil
	}

	switch desc.Attributes[cond.Attr] {
	case mgmtapi.IntegerAttr, mgmtapi.FloatAttr:
		want, err := strconv.ParseFloat(cond.Value, 64)
		if err != nil {
			return false, ParseError{
				Message: "Must filter on valid attributes for resource",
			}
		}
		have, ok := toFloat(value)
		if !ok {
			return cond.Op == OpNe, nil
		}
		return compareFloats(have, want, cond.Op), nil
	case mgmtapi.BooleanAttr:
		want, err := strconv.ParseBool(cond.Value)
		if err != nil {
			return false, ParseError{
				Message: "Must filter on valid attributes for resource",
			}
		}
		have, ok := value.(bool)
		if !ok {
			return cond.Op == OpNe, nil
		}
		switch cond.Op {
		case OpEq:
			return have == want, nil
		case OpNe:
			return have != want, nil
		}
		return false, nil
	case mgmtapi.DateAttr, mgmtapi.DateTimeAttr:
		want, err := parseTimeValue(cond.Value)
		if err != nil {
			return false, err
		}
		have, ok := rec.TimeAttr(cond.Attr)
		if !ok {
			return cond.Op == OpNe, nil
		}
		return compareTimes(have, want, cond.Op), nil
	}

	have := stringValue(value)
	switch cond.Op {
	case OpEq:
		return have == cond.Value, nil
	case OpNe:
		return have != cond.Value, nil
	case OpMatch:
		return wildcardMatch(cond.Value, have), nil
	case OpLt:
		return have < cond.Value, nil
	case OpLe:
		return have <= cond.Value, nil
	case OpGt:
		return have > cond.Value, nil
	case OpGe:
		return have >= cond.Value, nil
	}
	return false, nil
}

func (ev Evaluator) compareID(cond Condition, rec *mgmtapi.Record) (bool, error) {
	var have uint64
	var ok bool
	if cond.Attr == "id" {
		have, ok = rec.ID, true
	} else {
		have, ok = rec.IDAttr(cond.Attr)
	}
	if cond.Null {
		switch cond.Op {
		case OpEq:
			return !ok, nil
		case OpNe:
			return ok, nil
		}
		return false, nil
	}
	want, err := mgmtapi.ParseID(cond.Value)
	if err != nil {
		return false, ParseError{Message: "Must filter on valid attributes for resource"}
	}
	if !ok {
		return cond.Op == OpNe, nil
	}
	switch cond.Op {
	case OpEq, OpMatch:
		return have == want, nil
	case OpNe:
		return have != want, nil
	case OpLt:
		return have < want, nil
	case OpLe:
		return have <= want, nil
	case OpGt:
		return have > want, nil
	case OpGe:
		return have >= want, nil
	}
	return false, nil
}

func filterableAttr(desc *mgmtapi.Descriptor, attr string) bool {
	if desc.HasAttribute(attr) {
		return true
	}
	_, ok := desc.Virtual[attr]
	return ok
}

var timeFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimeValue(s string) (time.Time, error) {
	for _, format := range timeFormats {
		if when, err := time.Parse(format, s); err == nil {
			return when, nil
		}
	}
	return time.Time{}, ParseError{
		Message: fmt.Sprintf("Bad format for datetime: %s", s),
	}
}

func compareFloats(have, want float64, op Op) bool {
	switch op {
	case OpEq, OpMatch:
		return have == want
	case OpNe:
		return have != want
	case OpLt:
		return have < want
	case OpLe:
		return have <= want
	case OpGt:
		return have > want
	case OpGe:
		return have >= want
	}
	return false
}

func compareTimes(have, want time.Time, op Op) bool {
	switch op {
	case OpEq:
		return have.Equal(want)
	case OpNe:
		return !have.Equal(want)
	case OpLt:
		return have.Before(want)
	case OpLe:
		return !have.After(want)
	case OpGt:
		return have.After(want)
	case OpGe:
		return !have.Before(want)
	}
	return false
}

func wildcardMatch(pattern, s string) bool {
	quoted := regexp.QuoteMeta(pattern)
	quoted = strings.Replace(quoted, "%", ".*", -1)
	quoted = strings.Replace(quoted, `\*`, ".*", -1)
	re, err := regexp.Compile("^" + quoted + "$")
	if err != nil {
		return false
	}
	return re.MatchString(s)
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	}
	return 0, false
}

func stringValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprintf("%v", value)
}
