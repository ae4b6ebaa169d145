// Copyright 2016 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package mgmtapi

import (
	"fmt"
	"strconv"
	"strings"
)

// Record ids embed a replication region number in their high digits:
// id = region*10^12 + short.  The "compressed" form writes the two
// halves separated by an "r", so 1000000000042 compresses to "1r42".
// Region-0 ids have no compressed form distinct from their decimal
// rendering.  Compressed ids are accepted interchangeably with plain
// ids in URLs, filter values, and action payloads, optionally quoted.

const regionDivisor = 1000000000000

// RegionBase returns the first id in a region's number space.  Storage
// backends start their id sequences here.
func RegionBase(region uint64) uint64 {
	return region * regionDivisor
}

// CompressID renders an id in compressed form.
func CompressID(id uint64) string {
	region := id / regionDivisor
	short := id % regionDivisor
	if region == 0 {
		return strconv.FormatUint(short, 10)
	}
	return fmt.Sprintf("%dr%d", region, short)
}

// ParseID parses an id in any accepted form: plain decimal, compressed
// "<region>r<short>", or either of those wrapped in single or double
// quotes.
func ParseID(s string) (uint64, error) {
	s = unquote(s)
	if s == "" {
		return 0, fmt.Errorf("invalid resource id %q", s)
	}
	if i := strings.IndexByte(s, 'r'); i > 0 {
		region, err := strconv.ParseUint(s[:i], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid resource id %q", s)
		}
		short, err := strconv.ParseUint(s[i+1:], 10, 64)
		if err != nil || short >= regionDivisor {
			return 0, fmt.Errorf("invalid resource id %q", s)
		}
		return region*regionDivisor + short, nil
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid resource id %q", s)
	}
	return id, nil
}

// LooksLikeID reports whether a string is parseable as an id in any
// accepted form, without reporting the parse error.
func LooksLikeID(s string) bool {
	_, err := ParseID(s)
	return err == nil
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
