// Copyright 2016 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"strings"

	"github.com/diffeo/go-mgmtapi/filter"
	"github.com/diffeo/go-mgmtapi/mgmtapi"
	"github.com/diffeo/go-mgmtapi/paging"
	"github.com/diffeo/go-mgmtapi/restdata"
)

// queryResult is the output of the collection query pipeline: the
// selected page of records plus the counts and links that describe the
// whole filtered set.
type queryResult struct {
	Records       []*mgmtapi.Record
	Subcount      int
	SubqueryCount *int
	Pages         int
	Links         *restdata.Links
}

// runQuery applies the full GET pipeline to a candidate record list:
// ownership scoping, tag scoping, filtering, sorting, and paging, in
// that order.  filterable is false for subcollections that reject
// filter[] parameters.
func (api *restAPI) runQuery(ctx *context, desc *mgmtapi.Descriptor, records []*mgmtapi.Record, filterable bool) (*queryResult, error) {
	records = api.scopeRecords(ctx, desc, records)

	if byTag := ctx.QueryParams.Get("by_tag"); byTag != "" {
		scoped, err := api.scopeByTag(desc, records, byTag)
		if err != nil {
			return nil, err
		}
		records = scoped
	}

	rawFilters := ctx.QueryParams["filter[]"]
	if len(rawFilters) > 0 && !filterable {
		return nil, restdata.ErrBadRequest{
			Err: filter.ParseError{
				Message: "Filtering is not supported on " + ctx.Sub.Name + " subcollection",
			},
		}
	}

	expr, err := api.parseFilters(rawFilters)
	if err != nil {
		return nil, restdata.ErrBadRequest{Err: err}
	}
	ev := filter.Evaluator{Registry: api.Registry, Store: api.Store}
	if err := ev.Validate(expr, desc); err != nil {
		return nil, restdata.ErrBadRequest{Err: err}
	}

	var filtered []*mgmtapi.Record
	for _, rec := range records {
		ok, err := ev.Match(expr, desc, rec)
		if err != nil {
			return nil, restdata.ErrBadRequest{Err: err}
		}
		if ok {
			filtered = append(filtered, rec)
		}
	}

	result := &queryResult{Subcount: len(filtered)}

	// An OR filter additionally reports how many records match the
	// union of the OR'd conditions, before the other conditions
	// narrow the set.
	if expr != nil && expr.HasOr {
		union := 0
		for _, rec := range records {
			ok, err := ev.MatchUnion(expr, desc, rec)
			if err != nil {
				return nil, restdata.ErrBadRequest{Err: err}
			}
			if ok {
				union++
			}
		}
		result.SubqueryCount = &union
	}

	page, err := paging.ParseRequest(ctx.QueryParams, api.MaxPageSize)
	if err != nil {
		return nil, restdata.ErrBadRequest{Err: err}
	}
	if err := page.Sort(filtered, desc, api.Store); err != nil {
		return nil, restdata.ErrBadRequest{Err: err}
	}
	result.Records = page.Page(filtered)
	result.Pages = page.Pages(result.Subcount)
	if links := page.BuildLinks(ctx.URL, result.Subcount); links != nil {
		result.Links = &restdata.Links{
			Self:     links.Self,
			First:    links.First,
			Previous: links.Previous,
			Next:     links.Next,
			Last:     links.Last,
		}
	}
	return result, nil
}

// parseFilters runs the filter strings through the shared LRU cache,
// keyed by the joined raw values.
func (api *restAPI) parseFilters(rawFilters []string) (*filter.Expression, error) {
	if len(rawFilters) == 0 {
		return nil, nil
	}
	key := strings.Join(rawFilters, "\n")
	return api.filters.Get(key, func(string) (*filter.Expression, error) {
		return filter.Parse(rawFilters)
	})
}

// scopeRecords narrows a record list to the caller's own records for
// collections that carry an owner key, unless the caller holds the
// elevated identifier.
func (api *restAPI) scopeRecords(ctx *context, desc *mgmtapi.Descriptor, records []*mgmtapi.Record) []*mgmtapi.Record {
	if desc.OwnerKey == "" || ctx.Identity.Allows(desc.AdminIdentifier) {
		return records
	}
	var scoped []*mgmtapi.Record
	for _, rec := range records {
		if owner, ok := rec.IDAttr(desc.OwnerKey); ok && owner == ctx.Identity.UserID {
			scoped = append(scoped, rec)
		}
	}
	return scoped
}

// scopeByTag keeps only records carrying the named tag.  The tag may be
// given as a full path or as "<category>/<name>".
func (api *restAPI) scopeByTag(desc *mgmtapi.Descriptor, records []*mgmtapi.Record, path string) ([]*mgmtapi.Record, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/managed/" + path
	}
	var scoped []*mgmtapi.Record
	for _, rec := range records {
		tags, err := api.Tags.Tags(desc.Name, rec.ID)
		if err != nil {
			return nil, err
		}
		for _, tag := range tags {
			if tag == path {
				scoped = append(scoped, rec)
				break
			}
		}
	}
	return scoped, nil
}
