// Copyright 2016 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package filter parses and evaluates the textual filter expressions
// accepted via filter[] query parameters, e.g. "name='aa%'" or
// "host.name=foo" or "or id > 5".
//
// An expression is a flat sequence of conditions.  Conditions are
// AND-joined in the order supplied unless a condition's source string
// begins with the literal prefix "or ", which joins it at the top
// level with OR.  There is no grouping syntax: "a", "or b", "c"
// evaluates as (a) OR (b AND c).
//
// Expressions are immutable once parsed, so they may be cached and
// shared across requests.
package filter

import (
	"regexp"
	"strings"
)

// Op is a comparison operator.
type Op int

// The comparison operators.  Match is selected automatically when a
// compared value contains a % or * wildcard.
const (
	OpEq Op = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpMatch
)

func (op Op) String() string {
	switch op {
	case OpEq:
		return "="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	case OpMatch:
		return "="
	}
	return "?"
}

// Condition is a single field comparison.
type Condition struct {
	// Field is the full field reference as supplied, possibly
	// association-qualified ("host.name").
	Field string

	// Assoc and Attr are the split form of Field: Assoc is empty
	// for a direct attribute.
	Assoc string
	Attr  string

	// Op is the comparison operator.
	Op Op

	// Value is the comparison value with any quotes stripped.
	Value string

	// Null is set when the value is the case-insensitive keyword
	// NULL or NIL.
	Null bool

	// Or joins this condition to the expression with OR instead of
	// the default AND.
	Or bool
}

// Expression is a parsed filter: an ordered condition list plus a flag
// recording whether any OR join is present (which controls whether
// subquery_count is reported).
type Expression struct {
	Conditions []Condition
	HasOr      bool
}

// ParseError reports an unparseable filter string.
type ParseError struct {
	Message string
}

func (err ParseError) Error() string {
	return err.Message
}

var conditionRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_.]*)\s*(<=|>=|!=|=|<|>)\s*(.+)$`)

// Parse builds an expression from the raw filter[] parameter values,
// in order.  Returns nil for an empty list.
func Parse(filters []string) (*Expression, error) {
	if len(filters) == 0 {
		return nil, nil
	}
	expr := &Expression{}
	for _, raw := range filters {
		s := strings.TrimSpace(raw)
		or := false
		if strings.HasPrefix(strings.ToLower(s), "or ") {
			or = true
			s = strings.TrimSpace(s[3:])
		}
		m := conditionRe.FindStringSubmatch(s)
		if m == nil {
			return nil, ParseError{Message: "Unsupported filter expression " + raw}
		}
		cond := Condition{Field: m[1], Or: or}
		switch m[2] {
		case "=":
			cond.Op = OpEq
		case "!=":
			cond.Op = OpNe
		case "<":
			cond.Op = OpLt
		case "<=":
			cond.Op = OpLe
		case ">":
			cond.Op = OpGt
		case ">=":
			cond.Op = OpGe
		}

		value := strings.TrimSpace(m[3])
		unquoted, quoted := unquote(value)
		cond.Value = unquoted
		if !quoted && isNullKeyword(unquoted) {
			cond.Null = true
		}
		if cond.Op == OpEq && strings.ContainsAny(cond.Value, "%*") {
			cond.Op = OpMatch
		}

		parts := strings.Split(cond.Field, ".")
		switch len(parts) {
		case 1:
			cond.Attr = parts[0]
		case 2:
			cond.Assoc, cond.Attr = parts[0], parts[1]
		default:
			return nil, ParseError{
				Message: "Filtering of attributes with more than one association away is not supported",
			}
		}

		if cond.Or {
			expr.HasOr = true
		}
		expr.Conditions = append(expr.Conditions, cond)
	}
	return expr, nil
}

// groups splits the condition list into AND-groups: each OR-joined
// condition starts a new group, and the expression matches when any
// group fully matches.
func (e *Expression) groups() [][]Condition {
	var out [][]Condition
	var current []Condition
	for _, cond := range e.Conditions {
		if cond.Or && len(current) > 0 {
			out = append(out, current)
			current = nil
		}
		current = append(current, cond)
	}
	if len(current) > 0 {
		out = append(out, current)
	}
	return out
}

// unionConditions lists the conditions participating in the top-level
// OR: the first condition plus every OR-joined condition.  The union
// of their individual matches is what subquery_count reports.
func (e *Expression) unionConditions() []Condition {
	var out []Condition
	for i, cond := range e.Conditions {
		if i == 0 || cond.Or {
			out = append(out, cond)
		}
	}
	return out
}

func unquote(s string) (string, bool) {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1], true
		}
	}
	return s, false
}

func isNullKeyword(s string) bool {
	switch strings.ToLower(s) {
	case "null", "nil":
		return true
	}
	return false
}
