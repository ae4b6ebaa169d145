// Copyright 2016 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"fmt"
	"strings"

	"github.com/diffeo/go-mgmtapi/mgmtapi"
	"github.com/diffeo/go-mgmtapi/restdata"
)

// Subcollection handlers.  Three families of subcollections exist: the
// synthetic tags subcollection backed by the tagging service, scalar
// foreign-key children (a provider's vms), and member-list many-to-many
// children (a policy profile's policies).

// SubcollectionGet answers GET /api/<collection>/<id>/<sub>.
func (api *restAPI) SubcollectionGet(ctx *context) (interface{}, error) {
	if err := api.authorizeSubRead(ctx); err != nil {
		return nil, err
	}
	parent, err := api.resolve(ctx)
	if err != nil {
		return nil, err
	}

	if ctx.Sub.Collection == "" {
		return api.renderTagList(ctx, parent)
	}

	records, err := api.subRecords(ctx.Sub, parent)
	if err != nil {
		return nil, err
	}
	result, err := api.runQuery(ctx, ctx.SubDesc, records, ctx.Sub.Filterable)
	if err != nil {
		return nil, err
	}
	opts, err := parseRenderOptions(ctx, ctx.SubDesc)
	if err != nil {
		return nil, err
	}
	href := subcollectionHref(ctx.Desc.Name, parent.ID, ctx.Sub.Name)
	return api.renderEnvelope(ctx, ctx.SubDesc, result, opts, href, api.subActionSpecs(ctx))
}

// SubcollectionPost dispatches an action against a subcollection.
func (api *restAPI) SubcollectionPost(ctx *context, body map[string]interface{}) (interface{}, error) {
	var name string
	if body != nil {
		name = stringField(body, "action")
	}
	if name == "" {
		return nil, restdata.ErrBadRequest{Err: errNoAction}
	}
	spec, err := api.authorizeAction(ctx, name, mgmtapi.SubcollectionScope)
	if err != nil {
		return nil, err
	}
	parent, err := api.resolve(ctx)
	if err != nil {
		return nil, err
	}

	items, bulk := actionItems(body)
	results := make([]restdata.ActionResult, 0, len(items))
	for _, item := range items {
		result, err := api.performSubAction(ctx, spec, parent, item)
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

// SubresourceGet answers GET /api/<collection>/<id>/<sub>/<sid>.
func (api *restAPI) SubresourceGet(ctx *context) (interface{}, error) {
	if err := api.authorizeSubRead(ctx); err != nil {
		return nil, err
	}
	parent, err := api.resolve(ctx)
	if err != nil {
		return nil, err
	}
	rec, err := api.resolveSub(ctx, parent)
	if err != nil {
		return nil, err
	}
	opts, err := parseRenderOptions(ctx, ctx.SubDesc)
	if err != nil {
		return nil, err
	}
	return api.renderResource(ctx, ctx.SubDesc, rec, opts, false)
}

// SubresourcePost would dispatch subresource-scope actions; no
// collection currently registers any, so this only produces the
// authorization-correct failure.
func (api *restAPI) SubresourcePost(ctx *context, body map[string]interface{}) (interface{}, error) {
	var name string
	if body != nil {
		name = stringField(body, "action")
	}
	if name == "" {
		return nil, restdata.ErrBadRequest{Err: errNoAction}
	}
	if _, err := api.authorizeAction(ctx, name, mgmtapi.SubresourceScope); err != nil {
		return nil, err
	}
	return nil, restdata.ErrBadRequest{
		Err: fmt.Errorf("Unsupported Action %s for the %s subresource specified", name, ctx.Desc.Name),
	}
}

// SubresourceDelete removes one subresource, with the same identifier
// as the subcollection's delete action.
func (api *restAPI) SubresourceDelete(ctx *context) (interface{}, error) {
	if _, err := api.authorizeAction(ctx, "delete", mgmtapi.SubcollectionScope); err != nil {
		return nil, err
	}
	parent, err := api.resolve(ctx)
	if err != nil {
		return nil, err
	}
	rec, err := api.resolveSub(ctx, parent)
	if err != nil {
		return nil, err
	}
	if err := api.deleteRecord(ctx.SubDesc, rec); err != nil {
		return nil, err
	}
	return responseNoContent{}, nil
}

// performSubAction runs one subcollection action item against the
// parent record.
func (api *restAPI) performSubAction(ctx *context, spec mgmtapi.ActionSpec, parent *mgmtapi.Record, item map[string]interface{}) (restdata.ActionResult, error) {
	switch {
	case ctx.Sub.Collection == "":
		return api.performTagAction(ctx, spec, parent, item)
	case ctx.Sub.MemberKey != "":
		return api.performMembershipAction(ctx, spec, parent, item)
	case ctx.Sub.Collection == "custom_attributes":
		return api.performCustomAttrAction(ctx, spec, parent, item)
	}
	return restdata.ActionResult{}, restdata.ErrBadRequest{
		Err: fmt.Errorf("Unsupported Action %s for the %s subcollection specified", spec.Name, ctx.Sub.Name),
	}
}

// performTagAction assigns or unassigns one tag on the parent record.
// Assigning a tag that is already present, or removing one that is
// not, still succeeds with an explanatory message.
func (api *restAPI) performTagAction(ctx *context, spec mgmtapi.ActionSpec, parent *mgmtapi.Record, item map[string]interface{}) (restdata.ActionResult, error) {
	path, err := api.tagPath(item)
	if err != nil {
		return restdata.ActionResult{}, err
	}
	href := resourceHref(ctx.Desc.Name, parent.ID)
	switch spec.Name {
	case "assign":
		changed, err := api.Tags.Assign(ctx.Desc.Name, parent.ID, path)
		if err != nil {
			return restdata.ActionResult{}, err
		}
		message := fmt.Sprintf("Assigning Tag: %s", path)
		if !changed {
			message = fmt.Sprintf("Tag %s is already assigned", path)
		}
		return restdata.ActionResult{Success: true, Message: message, Href: href}, nil
	case "unassign":
		changed, err := api.Tags.Unassign(ctx.Desc.Name, parent.ID, path)
		if err != nil {
			return restdata.ActionResult{}, err
		}
		message := fmt.Sprintf("Unassigning Tag: %s", path)
		if !changed {
			message = fmt.Sprintf("Tag %s is not currently assigned", path)
		}
		return restdata.ActionResult{Success: true, Message: message, Href: href}, nil
	}
	return restdata.ActionResult{}, restdata.ErrBadRequest{
		Err: fmt.Errorf("Unsupported Action %s for the %s subcollection specified", spec.Name, ctx.Sub.Name),
	}
}

// performMembershipAction adds or removes a member record in a
// member-list subcollection, e.g. a policy in a policy profile.
func (api *restAPI) performMembershipAction(ctx *context, spec mgmtapi.ActionSpec, parent *mgmtapi.Record, item map[string]interface{}) (restdata.ActionResult, error) {
	if readOnly, ok := parent.Attrs["read_only"].(bool); ok && readOnly {
		return restdata.ActionResult{
			Message: fmt.Sprintf("%s id: %s is read only",
				mgmtapi.TypeName(ctx.Desc.Name), mgmtapi.CompressID(parent.ID)),
			Href: resourceHref(ctx.Desc.Name, parent.ID),
		}, nil
	}
	ref, err := mgmtapi.ExtractRef(item)
	if err != nil {
		return restdata.ActionResult{}, restdata.ErrBadRequest{Err: err}
	}
	member, err := ref.Resolve(api.Store, ctx.Sub.Collection)
	if err != nil {
		return restdata.ActionResult{}, err
	}

	ids, _ := member.Attrs[ctx.Sub.MemberKey].([]interface{})
	var kept []interface{}
	present := false
	for _, raw := range ids {
		if id, ok := mgmtapi.AsID(raw); ok && id == parent.ID {
			present = true
			continue
		}
		kept = append(kept, raw)
	}

	href := resourceHref(ctx.Sub.Collection, member.ID)
	switch spec.Name {
	case "assign":
		if present {
			return restdata.ActionResult{
				Success: true,
				Message: fmt.Sprintf("%s id: %s is already assigned",
					mgmtapi.TypeName(ctx.Sub.Collection), mgmtapi.CompressID(member.ID)),
				Href: href,
			}, nil
		}
		kept = append(kept, parent.ID)
	case "unassign":
		if !present {
			return restdata.ActionResult{
				Success: true,
				Message: fmt.Sprintf("%s id: %s is not currently assigned",
					mgmtapi.TypeName(ctx.Sub.Collection), mgmtapi.CompressID(member.ID)),
				Href: href,
			}, nil
		}
	default:
		return restdata.ActionResult{}, restdata.ErrBadRequest{
			Err: fmt.Errorf("Unsupported Action %s for the %s subcollection specified", spec.Name, ctx.Sub.Name),
		}
	}

	update := map[string]interface{}{ctx.Sub.MemberKey: kept}
	if kept == nil {
		update[ctx.Sub.MemberKey] = []interface{}{}
	}
	if _, err := api.Store.Update(ctx.Sub.Collection, member.ID, update); err != nil {
		return restdata.ActionResult{}, err
	}
	verb := "Assigning"
	if spec.Name == "unassign" {
		verb = "Unassigning"
	}
	return restdata.ActionResult{
		Success: true,
		Message: fmt.Sprintf("%s %s id: %s", verb,
			mgmtapi.TypeName(ctx.Sub.Collection), mgmtapi.CompressID(member.ID)),
		Href: href,
	}, nil
}

// performCustomAttrAction adds, edits, or deletes a custom attribute
// record scoped under the parent.
func (api *restAPI) performCustomAttrAction(ctx *context, spec mgmtapi.ActionSpec, parent *mgmtapi.Record, item map[string]interface{}) (restdata.ActionResult, error) {
	switch spec.Name {
	case "add":
		attrs := scrubAttrs(item)
		if name, _ := attrs["name"].(string); name == "" {
			return restdata.ActionResult{}, restdata.ErrBadRequest{
				Err: fmt.Errorf("Must specify a name for a custom attribute"),
			}
		}
		attrs[ctx.Sub.ForeignKey] = parent.ID
		rec, err := api.Store.Create(ctx.Sub.Collection, attrs)
		if err != nil {
			return restdata.ActionResult{}, err
		}
		return restdata.ActionResult{
			Success: true,
			Message: fmt.Sprintf("Adding custom attribute %s", rec.Name()),
			Href:    subresourceHref(ctx.Desc.Name, parent.ID, ctx.Sub.Name, rec.ID),
		}, nil
	case "edit", "delete":
		rec, err := api.resolveSubItem(ctx, parent, item)
		if err != nil {
			return restdata.ActionResult{}, err
		}
		if spec.Name == "delete" {
			if err := api.deleteRecord(ctx.SubDesc, rec); err != nil {
				return restdata.ActionResult{}, err
			}
			return restdata.ActionResult{
				Success: true,
				Message: fmt.Sprintf("Deleting custom attribute %s", rec.Name()),
			}, nil
		}
		updated, err := api.Store.Update(ctx.Sub.Collection, rec.ID, scrubAttrs(item))
		if err != nil {
			return restdata.ActionResult{}, err
		}
		return restdata.ActionResult{
			Success: true,
			Message: fmt.Sprintf("Updating custom attribute %s", updated.Name()),
			Href:    subresourceHref(ctx.Desc.Name, parent.ID, ctx.Sub.Name, updated.ID),
		}, nil
	}
	return restdata.ActionResult{}, restdata.ErrBadRequest{
		Err: fmt.Errorf("Unsupported Action %s for the %s subcollection specified", spec.Name, ctx.Sub.Name),
	}
}

// resolveSubItem resolves one bulk item's reference within the
// subcollection, scoped to the parent.  Custom attributes may also be
// referenced by name since they have no exposed collection URL.
func (api *restAPI) resolveSubItem(ctx *context, parent *mgmtapi.Record, item map[string]interface{}) (*mgmtapi.Record, error) {
	ref, err := mgmtapi.ExtractRef(item)
	if err != nil {
		return nil, restdata.ErrBadRequest{Err: err}
	}
	rec, err := ref.Resolve(api.Store, ctx.Sub.Collection)
	if err != nil {
		return nil, err
	}
	if !api.belongsTo(rec, ctx.Sub, parent) {
		return nil, mgmtapi.NotFoundError{
			Type:  mgmtapi.TypeName(ctx.Sub.Collection),
			Field: "id",
			Value: mgmtapi.CompressID(rec.ID),
		}
	}
	return rec, nil
}

// renderTagList answers a GET on the synthetic tags subcollection.
func (api *restAPI) renderTagList(ctx *context, parent *mgmtapi.Record) (interface{}, error) {
	paths, err := api.Tags.Tags(ctx.Desc.Name, parent.ID)
	if err != nil {
		return nil, err
	}
	resources := []map[string]interface{}{}
	for _, path := range paths {
		entry := map[string]interface{}{"name": path}
		if category, _, ok := splitTagPath(path); ok {
			entry["category"] = category
		}
		resources = append(resources, entry)
	}
	envelope := restdata.Collection{
		Name:      "tags",
		Count:     len(resources),
		Subcount:  len(resources),
		Resources: &resources,
	}
	envelope.Actions = api.actionLinks(ctx, api.subActionSpecs(ctx),
		subcollectionHref(ctx.Desc.Name, parent.ID, "tags"))
	return envelope, nil
}

// subActionSpecs picks out the parent's subcollection-scope actions
// that apply to the subcollection actually named in the URL.
func (api *restAPI) subActionSpecs(ctx *context) []mgmtapi.ActionSpec {
	var names map[string]bool
	switch {
	case ctx.Sub.Collection == "", ctx.Sub.MemberKey != "":
		names = map[string]bool{"assign": true, "unassign": true}
	case ctx.Sub.Collection == "custom_attributes":
		names = map[string]bool{"add": true, "edit": true, "delete": true}
	default:
		return nil
	}
	var out []mgmtapi.ActionSpec
	for _, spec := range ctx.Desc.ActionsAt(mgmtapi.SubcollectionScope) {
		if names[spec.Name] {
			out = append(out, spec)
		}
	}
	return out
}

// tagPath resolves the tag named in an action item to its full path.
// The item may carry separate category and name fields, a full
// /managed path, or a category/name pair in the name field.
func (api *restAPI) tagPath(item map[string]interface{}) (string, error) {
	category := stringField(item, "category")
	name := stringField(item, "name")
	if category == "" {
		if c, n, ok := splitTagPath(name); ok {
			category, name = c, n
		} else if parts := strings.SplitN(name, "/", 2); len(parts) == 2 {
			category, name = parts[0], parts[1]
		}
	}
	path, err := api.Tags.ResolveTag(category, name)
	if err != nil {
		return "", mgmtapi.NotFoundError{Type: "Tag", Field: "name", Value: name}
	}
	return path, nil
}

// splitTagPath splits a /managed/<category>/<name> path.
func splitTagPath(path string) (category, name string, ok bool) {
	if !strings.HasPrefix(path, "/managed/") {
		return "", "", false
	}
	parts := strings.Split(strings.TrimPrefix(path, "/managed/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
