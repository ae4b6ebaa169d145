// Copyright 2016 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"fmt"
	"strings"
	"time"

	"github.com/diffeo/go-mgmtapi/mgmtapi"
	"github.com/diffeo/go-mgmtapi/restdata"
)

// renderOptions is the decoded serialization portion of a query: the
// expand, attributes, and hide parameters.
type renderOptions struct {
	// ExpandResources renders full resources in collection envelopes
	// instead of slim id/href references.
	ExpandResources bool

	// ExpandSubs names subcollections to render inline on each
	// resource.
	ExpandSubs map[string]bool

	// Attrs is the explicit attribute selection, empty for the
	// default rendering.
	Attrs []string

	// ActionsRequested is set when "actions" appears in the attribute
	// selection.
	ActionsRequested bool

	// Hide drops the resource list from collection envelopes.
	Hide bool
}

func parseRenderOptions(ctx *context, desc *mgmtapi.Descriptor) (opts renderOptions, err error) {
	for _, value := range splitParam(ctx.QueryParams["expand"]) {
		if value == "resources" {
			opts.ExpandResources = true
			continue
		}
		if _, ok := desc.Subcollections[value]; ok {
			if opts.ExpandSubs == nil {
				opts.ExpandSubs = make(map[string]bool)
			}
			opts.ExpandSubs[value] = true
			continue
		}
		return opts, restdata.ErrBadRequest{
			Err: fmt.Errorf("Invalid expansion specified: %s", value),
		}
	}

	var invalid []string
	for _, attr := range splitParam(ctx.QueryParams["attributes"]) {
		switch {
		case attr == "actions":
			opts.ActionsRequested = true
		case desc.HasAttribute(attr):
			opts.Attrs = append(opts.Attrs, attr)
		default:
			if _, ok := desc.Subcollections[attr]; ok {
				opts.Attrs = append(opts.Attrs, attr)
			} else {
				invalid = append(invalid, attr)
			}
		}
	}
	if len(invalid) > 0 {
		return opts, restdata.ErrBadRequest{
			Err: fmt.Errorf("Invalid attributes specified: %s", strings.Join(invalid, ",")),
		}
	}

	// Inline subcollection expansion walks the physical record; it
	// cannot combine with computed attributes.
	if len(opts.ExpandSubs) > 0 {
		for _, attr := range opts.Attrs {
			if _, ok := desc.Virtual[attr]; ok {
				for sub := range opts.ExpandSubs {
					return opts, restdata.ErrBadRequest{
						Err: fmt.Errorf("Cannot expand subcollection %s by name and virtual attribute", sub),
					}
				}
			}
		}
	}

	for _, value := range splitParam(ctx.QueryParams["hide"]) {
		if value == "resources" {
			opts.Hide = true
		}
	}
	return opts, nil
}

// includeActions decides whether a resource rendering carries its
// actions array.  The default rendering does; an explicit attribute
// selection suppresses it as soon as any virtual attribute is involved,
// unless "actions" itself was requested.
func (opts renderOptions) includeActions(desc *mgmtapi.Descriptor) bool {
	if opts.ActionsRequested {
		return true
	}
	if len(opts.Attrs) == 0 {
		return true
	}
	for _, attr := range opts.Attrs {
		if _, ok := desc.Virtual[attr]; ok {
			return false
		}
	}
	return true
}

// renderSlim is the default collection-member rendering: the id and
// href reference and nothing else.
func renderSlim(desc *mgmtapi.Descriptor, rec *mgmtapi.Record) map[string]interface{} {
	return map[string]interface{}{
		"id":   mgmtapi.CompressID(rec.ID),
		"href": resourceHref(desc.Name, rec.ID),
	}
}

// renderResource produces the full representation of one record.
// withActions additionally attaches the resource-scope actions the
// caller may dispatch; it is only set on single-resource GETs.
func (api *restAPI) renderResource(ctx *context, desc *mgmtapi.Descriptor, rec *mgmtapi.Record, opts renderOptions, withActions bool) (map[string]interface{}, error) {
	out := map[string]interface{}{
		"id":   mgmtapi.CompressID(rec.ID),
		"href": resourceHref(desc.Name, rec.ID),
	}

	if len(opts.Attrs) > 0 || opts.ActionsRequested {
		for _, attr := range opts.Attrs {
			value, err := api.renderAttr(desc, rec, attr)
			if err != nil {
				return nil, err
			}
			out[attr] = value
		}
	} else {
		names := desc.DefaultAttributes
		if len(names) == 0 {
			for name := range desc.Attributes {
				names = append(names, name)
			}
		}
		for _, name := range names {
			if value, ok := rec.Attr(name); ok {
				out[name] = formatValue(value)
			}
		}
	}

	for sub := range opts.ExpandSubs {
		value, err := api.renderAttr(desc, rec, sub)
		if err != nil {
			return nil, err
		}
		out[sub] = value
	}

	if withActions && opts.includeActions(desc) {
		out["actions"] = api.actionLinks(ctx, desc.ActionsAt(mgmtapi.ResourceScope), resourceHref(desc.Name, rec.ID))
	}
	return out, nil
}

// renderAttr resolves one explicitly selected attribute: physical,
// virtual, href_slug, or a nested subcollection.
func (api *restAPI) renderAttr(desc *mgmtapi.Descriptor, rec *mgmtapi.Record, attr string) (interface{}, error) {
	if attr == "id" {
		return mgmtapi.CompressID(rec.ID), nil
	}
	if attr == "href_slug" {
		return hrefSlug(desc.Name, rec.ID), nil
	}
	if virtual, ok := desc.Virtual[attr]; ok {
		return formatValue(virtual(rec, api.Store)), nil
	}
	if _, ok := desc.Attributes[attr]; ok {
		value, _ := rec.Attr(attr)
		return formatValue(value), nil
	}
	if sub, ok := desc.Subcollections[attr]; ok {
		return api.renderSubList(desc, rec, sub)
	}
	value, _ := rec.Attr(attr)
	return formatValue(value), nil
}

// renderSubList renders a subcollection inline on its parent resource.
// An empty subcollection renders as an empty list, never null.
func (api *restAPI) renderSubList(desc *mgmtapi.Descriptor, parent *mgmtapi.Record, sub mgmtapi.Subcollection) (interface{}, error) {
	out := []map[string]interface{}{}

	if sub.Collection == "" {
		tags, err := api.Tags.Tags(desc.Name, parent.ID)
		if err != nil {
			return nil, err
		}
		for _, path := range tags {
			out = append(out, map[string]interface{}{"name": path})
		}
		return out, nil
	}

	children, err := api.subRecords(sub, parent)
	if err != nil {
		return nil, err
	}
	subDesc, _ := api.Registry.Collection(sub.Collection)
	for _, child := range children {
		item := map[string]interface{}{
			"id":   mgmtapi.CompressID(child.ID),
			"href": resourceHref(sub.Collection, child.ID),
		}
		for name := range subDesc.Attributes {
			if value, ok := child.Attr(name); ok {
				item[name] = formatValue(value)
			}
		}
		out = append(out, item)
	}
	return out, nil
}

// subRecords lists the storage-backed children of a parent record,
// following either the scalar foreign key or the member-id list.
func (api *restAPI) subRecords(sub mgmtapi.Subcollection, parent *mgmtapi.Record) ([]*mgmtapi.Record, error) {
	all, err := api.Store.List(sub.Collection)
	if err != nil {
		return nil, err
	}
	var out []*mgmtapi.Record
	for _, rec := range all {
		if api.belongsTo(rec, sub, parent) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// actionLinks filters an action list down to the ones the caller may
// dispatch, rendered as POST links against one href.
func (api *restAPI) actionLinks(ctx *context, specs []mgmtapi.ActionSpec, href string) []restdata.ActionLink {
	var out []restdata.ActionLink
	for _, spec := range specs {
		if ctx.Identity.Allows(spec.Identifier) {
			out = append(out, restdata.ActionLink{
				Name:   spec.Name,
				Method: "post",
				Href:   href,
			})
		}
	}
	return out
}

// formatValue normalizes attribute values for the wire: times become
// RFC 3339 strings in UTC.
func formatValue(value interface{}) interface{} {
	if t, ok := value.(time.Time); ok {
		return t.UTC().Format(time.RFC3339)
	}
	return value
}
