// Copyright 2015-2016 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"errors"
	"fmt"
	"sort"

	"github.com/diffeo/go-mgmtapi/mgmtapi"
	"github.com/diffeo/go-mgmtapi/restdata"
)

// RootGet answers the API entry point: the name of the service and the
// collections it exposes.
func (api *restAPI) RootGet(ctx *context) (interface{}, error) {
	collections := []map[string]interface{}{}
	for _, name := range api.Registry.Names() {
		desc, _ := api.Registry.Collection(name)
		collections = append(collections, map[string]interface{}{
			"name":        name,
			"href":        collectionHref(name),
			"description": desc.Description,
		})
	}
	return map[string]interface{}{
		"name":        "API",
		"description": "REST Management API",
		"collections": collections,
	}, nil
}

// CollectionGet answers GET /api/<collection>.
func (api *restAPI) CollectionGet(ctx *context) (interface{}, error) {
	if err := api.authorizeRead(ctx); err != nil {
		return nil, err
	}
	if err := checkCollectionClass(ctx); err != nil {
		return nil, err
	}
	if err := checkProviderClass(ctx); err != nil {
		return nil, err
	}
	opts, err := parseRenderOptions(ctx, ctx.Desc)
	if err != nil {
		return nil, err
	}
	records, err := api.Store.List(ctx.Desc.Name)
	if err != nil {
		return nil, err
	}
	result, err := api.runQuery(ctx, ctx.Desc, records, true)
	if err != nil {
		return nil, err
	}
	specs := ctx.Desc.ActionsAt(mgmtapi.CollectionScope)
	return api.renderEnvelope(ctx, ctx.Desc, result, opts, collectionHref(ctx.Desc.Name), specs)
}

// ResourceGet answers GET /api/<collection>/<id> with the full
// representation of one resource.
func (api *restAPI) ResourceGet(ctx *context) (interface{}, error) {
	if err := api.authorizeRead(ctx); err != nil {
		return nil, err
	}
	opts, err := parseRenderOptions(ctx, ctx.Desc)
	if err != nil {
		return nil, err
	}
	rec, err := api.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return api.renderResource(ctx, ctx.Desc, rec, opts, true)
}

// ResourcePut replaces attributes of one resource.  It is the verb
// form of the "edit" action and checks the same identifier.
func (api *restAPI) ResourcePut(ctx *context, attrs map[string]interface{}) (interface{}, error) {
	if _, err := api.authorizeAction(ctx, "edit", mgmtapi.ResourceScope); err != nil {
		return nil, err
	}
	rec, err := api.resolve(ctx)
	if err != nil {
		return nil, err
	}
	updated, err := api.applyEdit(ctx.Desc, rec, attrs)
	if err != nil {
		return nil, err
	}
	return api.renderResource(ctx, ctx.Desc, updated, renderOptions{}, false)
}

// ResourcePatch applies a partial update: either a bare attribute hash
// like PUT, or a list of add/edit/remove operations applied in order.
func (api *restAPI) ResourcePatch(ctx *context, body interface{}) (interface{}, error) {
	if _, err := api.authorizeAction(ctx, "edit", mgmtapi.ResourceScope); err != nil {
		return nil, err
	}
	rec, err := api.resolve(ctx)
	if err != nil {
		return nil, err
	}

	var attrs map[string]interface{}
	switch payload := body.(type) {
	case map[string]interface{}:
		attrs = payload
	case []interface{}:
		ops, err := mgmtapi.ExtractPatchOps(payload)
		if err != nil {
			return nil, restdata.ErrBadRequest{Err: err}
		}
		attrs = make(map[string]interface{})
		for _, op := range ops {
			if op.Action == "remove" {
				attrs[op.Path] = nil
			} else {
				attrs[op.Path] = op.Value
			}
		}
	default:
		return nil, restdata.ErrBadRequest{Err: errors.New("Invalid input format")}
	}

	updated, err := api.applyEdit(ctx.Desc, rec, attrs)
	if err != nil {
		return nil, err
	}
	return api.renderResource(ctx, ctx.Desc, updated, renderOptions{}, false)
}

// ResourceDelete is the verb form of the "delete" action.  Success is
// a bodiless 204.
func (api *restAPI) ResourceDelete(ctx *context) (interface{}, error) {
	if _, err := api.authorizeAction(ctx, "delete", mgmtapi.ResourceScope); err != nil {
		return nil, err
	}
	rec, err := api.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if err := api.deleteRecord(ctx.Desc, rec); err != nil {
		return nil, err
	}
	return responseNoContent{}, nil
}

// CollectionOptions answers OPTIONS with collection metadata.  It runs
// without any credential.
func (api *restAPI) CollectionOptions(ctx *context) (interface{}, error) {
	desc := ctx.Desc
	out := restdata.Options{
		Name:        desc.Name,
		Description: desc.Description,
		Actions:     make(map[string][]string),
	}
	for name := range desc.Attributes {
		out.Attributes = append(out.Attributes, name)
	}
	sort.Strings(out.Attributes)
	for name := range desc.Virtual {
		out.VirtualAttributes = append(out.VirtualAttributes, name)
	}
	sort.Strings(out.VirtualAttributes)
	for name := range desc.Subcollections {
		out.Subcollections = append(out.Subcollections, name)
	}
	sort.Strings(out.Subcollections)
	for _, spec := range desc.Actions {
		scope := spec.Scope.String()
		out.Actions[scope] = append(out.Actions[scope], spec.Name)
	}
	return out, nil
}

// renderEnvelope assembles the Collection response for a completed
// query.
func (api *restAPI) renderEnvelope(ctx *context, desc *mgmtapi.Descriptor, result *queryResult, opts renderOptions, href string, specs []mgmtapi.ActionSpec) (interface{}, error) {
	envelope := restdata.Collection{
		Name:          desc.Name,
		Count:         len(result.Records),
		Subcount:      result.Subcount,
		SubqueryCount: result.SubqueryCount,
		Pages:         result.Pages,
		Links:         result.Links,
	}
	envelope.Actions = api.actionLinks(ctx, specs, href)

	if opts.Hide {
		return envelope, nil
	}

	expanded := opts.ExpandResources || len(opts.Attrs) > 0 || len(opts.ExpandSubs) > 0
	resources := []map[string]interface{}{}
	for _, rec := range result.Records {
		if expanded {
			item, err := api.renderResource(ctx, desc, rec, opts, false)
			if err != nil {
				return nil, err
			}
			resources = append(resources, item)
		} else {
			resources = append(resources, renderSlim(desc, rec))
		}
	}
	envelope.Resources = &resources
	return envelope, nil
}

// applyEdit validates and stores an attribute change against one
// record.
func (api *restAPI) applyEdit(desc *mgmtapi.Descriptor, rec *mgmtapi.Record, attrs map[string]interface{}) (*mgmtapi.Record, error) {
	attrs = scrubAttrs(attrs)
	if desc.Validate != nil {
		merged := rec.Clone().Attrs
		for k, v := range attrs {
			if v == nil {
				delete(merged, k)
			} else {
				merged[k] = v
			}
		}
		if err := desc.Validate(merged, api.Store); err != nil {
			return nil, err
		}
	}
	return api.Store.Update(desc.Name, rec.ID, attrs)
}

// deleteRecord runs the collection's referential check and removes the
// record.
func (api *restAPI) deleteRecord(desc *mgmtapi.Descriptor, rec *mgmtapi.Record) error {
	if desc.CheckDelete != nil {
		if err := desc.CheckDelete(rec, api.Store); err != nil {
			return err
		}
	}
	return api.Store.Delete(desc.Name, rec.ID)
}

// scrubAttrs drops the envelope fields that ride along in action and
// edit payloads but are not attributes.
func scrubAttrs(attrs map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(attrs))
	for k, v := range attrs {
		switch k {
		case "action", "href", "id", "resource", "resources":
		default:
			out[k] = v
		}
	}
	return out
}

// checkCollectionClass validates the collection_class parameter.  The
// only class any collection exposes is its own.
func checkCollectionClass(ctx *context) error {
	class := ctx.QueryParams.Get("collection_class")
	if class == "" || class == mgmtapi.TypeName(ctx.Desc.Name) {
		return nil
	}
	return restdata.ErrBadRequest{
		Err: fmt.Errorf("Invalid collection_class %s specified for the %s collection", class, ctx.Desc.Name),
	}
}

// checkProviderClass validates the provider_class parameter on the
// providers collection.  Only the base class is exposed.
func checkProviderClass(ctx *context) error {
	if ctx.Desc.Name != "providers" {
		return nil
	}
	if class := ctx.QueryParams.Get("provider_class"); class != "" && class != "provider" {
		return restdata.ErrBadRequest{
			Err: fmt.Errorf("Invalid provider_class %s specified", class),
		}
	}
	return nil
}
