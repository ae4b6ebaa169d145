// Copyright 2016 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"errors"
	"fmt"

	"github.com/diffeo/go-mgmtapi/mgmtapi"
	"github.com/diffeo/go-mgmtapi/restdata"
)

// Action dispatch.  A POST body names an action and one or more
// targets.  The bulk form ("resources": [...]) always answers 200 with
// one result per input item, in input order; a failed item never
// affects its neighbors.  The single form reports hard failures as
// HTTP errors, but business rejections (a vm that is already running)
// are still a 200 with success false.

var errNoAction = errors.New("Must specify an action")

// CollectionPost dispatches an action against a whole collection.  A
// body with no action field is an implicit create.
func (api *restAPI) CollectionPost(ctx *context, body map[string]interface{}) (interface{}, error) {
	if body == nil {
		return nil, restdata.ErrBadRequest{Err: errNoAction}
	}
	name := stringField(body, "action")
	if name == "" {
		name = "create"
	}
	spec, err := api.authorizeAction(ctx, name, mgmtapi.CollectionScope)
	if err != nil {
		return nil, err
	}

	items, bulk := actionItems(body)
	results := make([]restdata.ActionResult, 0, len(items))
	for _, item := range items {
		result, err := api.performCollectionItem(ctx, spec, item)
		if err != nil {
			if !bulk {
				return nil, err
			}
			result = restdata.ActionResult{Success: false, Message: err.Error()}
		}
		results = append(results, result)
	}
	if !bulk {
		return results[0], nil
	}
	return restdata.ActionResults{Results: results}, nil
}

// ResourcePost dispatches an action against the resource named in the
// URL.
func (api *restAPI) ResourcePost(ctx *context, body map[string]interface{}) (interface{}, error) {
	var name string
	if body != nil {
		name = stringField(body, "action")
	}
	if name == "" {
		return nil, restdata.ErrBadRequest{Err: errNoAction}
	}
	spec, err := api.authorizeAction(ctx, name, mgmtapi.ResourceScope)
	if err != nil {
		return nil, err
	}
	rec, err := api.resolve(ctx)
	if err != nil {
		return nil, err
	}
	payload := body
	if wrapped, ok := body["resource"].(map[string]interface{}); ok {
		payload = wrapped
	}
	result, err := api.performAction(ctx, spec, ctx.Desc, rec, payload)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// performCollectionItem handles one item of a collection-scope
// dispatch: create takes the item as attributes, everything else takes
// it as a resource reference plus action payload.
func (api *restAPI) performCollectionItem(ctx *context, spec mgmtapi.ActionSpec, item map[string]interface{}) (restdata.ActionResult, error) {
	if spec.Name == "create" {
		return api.performCreate(ctx, ctx.Desc, item)
	}
	ref, err := mgmtapi.ExtractRef(item)
	if err != nil {
		return restdata.ActionResult{}, restdata.ErrBadRequest{Err: err}
	}
	rec, err := ref.Resolve(api.Store, ctx.Desc.Name)
	if err != nil {
		return restdata.ActionResult{}, err
	}
	if err := api.checkOwnership(ctx, rec); err != nil {
		return restdata.ActionResult{}, err
	}
	return api.performAction(ctx, spec, ctx.Desc, rec, item)
}

// performAction runs one action against one resolved record.
func (api *restAPI) performAction(ctx *context, spec mgmtapi.ActionSpec, desc *mgmtapi.Descriptor, rec *mgmtapi.Record, payload map[string]interface{}) (restdata.ActionResult, error) {
	switch spec.Name {
	case "edit":
		updated, err := api.applyEdit(desc, rec, payload)
		if err != nil {
			return restdata.ActionResult{}, err
		}
		return restdata.ActionResult{
			Success: true,
			Message: fmt.Sprintf("%s id: %s updating", desc.Name, mgmtapi.CompressID(updated.ID)),
			Href:    resourceHref(desc.Name, updated.ID),
		}, nil
	case "delete":
		if err := api.deleteRecord(desc, rec); err != nil {
			return restdata.ActionResult{}, err
		}
		return restdata.ActionResult{
			Success: true,
			Message: fmt.Sprintf("%s id: %s deleting", desc.Name, mgmtapi.CompressID(rec.ID)),
		}, nil
	case "start", "stop", "suspend", "scan", "retire", "refresh":
		return api.performLifecycle(ctx, spec, desc, rec)
	case "approve", "deny", "cancel":
		return api.performApproval(ctx, spec, desc, rec, payload)
	case "order":
		if desc.Name == "service_orders" {
			return api.orderCart(ctx, rec)
		}
		return api.orderTemplate(ctx, rec)
	case "clear":
		return api.clearCart(ctx, rec)
	case "add_attributes", "remove_attributes",
		"add_associations", "remove_associations",
		"add_methods", "remove_methods":
		return api.editDefinitionProperties(ctx, spec, desc, rec, payload)
	}
	return restdata.ActionResult{}, restdata.ErrBadRequest{
		Err: fmt.Errorf("Unsupported Action %s for the %s %s specified", spec.Name, desc.Name, spec.Scope),
	}
}

// performCreate validates and inserts a new record.
func (api *restAPI) performCreate(ctx *context, desc *mgmtapi.Descriptor, item map[string]interface{}) (restdata.ActionResult, error) {
	attrs := scrubAttrs(item)
	if desc.Validate != nil {
		if err := desc.Validate(attrs, api.Store); err != nil {
			return restdata.ActionResult{}, err
		}
	}
	rec, err := api.Store.Create(desc.Name, attrs)
	if err != nil {
		return restdata.ActionResult{}, err
	}
	return restdata.ActionResult{
		Success: true,
		Message: fmt.Sprintf("%s id: %s created", desc.Name, mgmtapi.CompressID(rec.ID)),
		Href:    resourceHref(desc.Name, rec.ID),
	}, nil
}

// actionItems normalizes the three POST body shapes.  The second
// return is true for the bulk "resources" form.
func actionItems(body map[string]interface{}) ([]map[string]interface{}, bool) {
	if raw, ok := body["resources"].([]interface{}); ok {
		items := make([]map[string]interface{}, 0, len(raw))
		for _, entry := range raw {
			item, _ := entry.(map[string]interface{})
			if item == nil {
				item = map[string]interface{}{}
			}
			items = append(items, item)
		}
		return items, true
	}
	if item, ok := body["resource"].(map[string]interface{}); ok {
		return []map[string]interface{}{item}, false
	}
	return []map[string]interface{}{body}, false
}
