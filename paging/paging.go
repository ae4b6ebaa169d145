// Copyright 2016 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package paging implements the sorting and windowing applied to
// collection queries: the offset, limit, sort_by, sort_order, and
// sort_options query parameters, and the pagination links reported
// alongside a partial page.
package paging

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/diffeo/go-mgmtapi/mgmtapi"
)

// Request is the decoded paging and sorting portion of a query.
type Request struct {
	// Offset is the index of the first record returned.
	Offset int

	// Limit bounds the page size; zero means no explicit paging
	// was requested.
	Limit int

	// Limited records whether the client asked for paging at all.
	// Pagination links and the pages count only appear when set.
	Limited bool

	// SortBy lists sort attributes in priority order.
	SortBy []string

	// Descending reverses the sort direction.
	Descending bool

	// IgnoreCase folds case when sorting string attributes.
	IgnoreCase bool
}

// ParseError reports an invalid paging or sorting parameter.
type ParseError struct {
	Message string
}

func (err ParseError) Error() string {
	return err.Message
}

// ParseRequest decodes the paging parameters.  A requested limit above
// maxLimit is clamped to maxLimit; a missing limit with maxLimit set
// still caps the result window at maxLimit.
func ParseRequest(params url.Values, maxLimit int) (req Request, err error) {
	if raw := params.Get("offset"); raw != "" {
		req.Offset, err = strconv.Atoi(raw)
		if err != nil || req.Offset < 0 {
			return req, ParseError{Message: fmt.Sprintf("Invalid offset %s specified", raw)}
		}
		req.Limited = true
	}
	if raw := params.Get("limit"); raw != "" {
		req.Limit, err = strconv.Atoi(raw)
		if err != nil || req.Limit < 0 {
			return req, ParseError{Message: fmt.Sprintf("Invalid limit %s specified", raw)}
		}
		req.Limited = true
	}
	if maxLimit > 0 && (req.Limit == 0 || req.Limit > maxLimit) {
		req.Limit = maxLimit
	}
	for _, raw := range params["sort_by"] {
		for _, attr := range strings.Split(raw, ",") {
			attr = strings.TrimSpace(attr)
			if attr != "" {
				req.SortBy = append(req.SortBy, attr)
			}
		}
	}
	switch strings.ToLower(params.Get("sort_order")) {
	case "", "asc", "ascending":
	case "desc", "descending":
		req.Descending = true
	default:
		return req, ParseError{
			Message: fmt.Sprintf("Invalid sort_order %s specified", params.Get("sort_order")),
		}
	}
	for _, raw := range params["sort_options"] {
		for _, option := range strings.Split(raw, ",") {
			if strings.TrimSpace(option) == "ignore_case" {
				req.IgnoreCase = true
			}
		}
	}
	return req, nil
}

// Sort orders records in place according to the request.  Sorting by
// an attribute the descriptor does not know and sorting by one it
// marks unsortable fail with distinct messages.
func (req Request) Sort(records []*mgmtapi.Record, desc *mgmtapi.Descriptor, store mgmtapi.Storage) error {
	if len(req.SortBy) == 0 {
		return nil
	}
	for _, attr := range req.SortBy {
		if !sortableAttr(desc, attr) {
			return ParseError{
				Message: fmt.Sprintf("%s is not a valid attribute", attr),
			}
		}
		if desc.Unsortable[attr] {
			return ParseError{
				Message: fmt.Sprintf("%s cannot be sorted by %s", mgmtapi.TypeName(desc.Name), attr),
			}
		}
	}
	var sortErr error
	sort.SliceStable(records, func(i, j int) bool {
		for _, attr := range req.SortBy {
			cmp, err := req.compareAttr(records[i], records[j], attr, desc, store)
			if err != nil && sortErr == nil {
				sortErr = err
			}
			if cmp != 0 {
				if req.Descending {
					return cmp > 0
				}
				return cmp < 0
			}
		}
		return false
	})
	return sortErr
}

// Page returns the window of records selected by offset and limit.
func (req Request) Page(records []*mgmtapi.Record) []*mgmtapi.Record {
	start := req.Offset
	if start > len(records) {
		start = len(records)
	}
	end := len(records)
	if req.Limit > 0 && start+req.Limit < end {
		end = start + req.Limit
	}
	return records[start:end]
}

// Pages returns the total page count for a filtered record count, or
// zero when no paging applies.
func (req Request) Pages(subcount int) int {
	if !req.Limited || req.Limit <= 0 {
		return 0
	}
	pages := subcount / req.Limit
	if subcount%req.Limit != 0 || pages == 0 {
		pages++
	}
	return pages
}

func (req Request) compareAttr(a, b *mgmtapi.Record, attr string, desc *mgmtapi.Descriptor, store mgmtapi.Storage) (int, error) {
	av := sortValue(a, attr, desc, store)
	bv := sortValue(b, attr, desc, store)
	if av == nil || bv == nil {
		switch {
		case av == nil && bv == nil:
			return 0, nil
		case av == nil:
			return -1, nil
		default:
			return 1, nil
		}
	}
	if af, ok := toFloat(av); ok {
		if bf, ok := toFloat(bv); ok {
			switch {
			case af < bf:
				return -1, nil
			case af > bf:
				return 1, nil
			}
			return 0, nil
		}
	}
	as, bs := fmt.Sprintf("%v", av), fmt.Sprintf("%v", bv)
	if req.IgnoreCase {
		as, bs = strings.ToLower(as), strings.ToLower(bs)
	}
	return strings.Compare(as, bs), nil
}

func sortValue(rec *mgmtapi.Record, attr string, desc *mgmtapi.Descriptor, store mgmtapi.Storage) interface{} {
	if attr == "id" {
		return rec.ID
	}
	if virtual, ok := desc.Virtual[attr]; ok {
		return virtual(rec, store)
	}
	value, _ := rec.Attr(attr)
	return value
}

func sortableAttr(desc *mgmtapi.Descriptor, attr string) bool {
	if desc.HasAttribute(attr) {
		return true
	}
	_, ok := desc.Virtual[attr]
	return ok
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
