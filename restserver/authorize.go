// Copyright 2016 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"fmt"

	"github.com/diffeo/go-mgmtapi/mgmtapi"
	"github.com/diffeo/go-mgmtapi/restdata"
)

// The authorization gate.  Every entry point checks exactly one
// identifier before any business logic or existence check runs; there
// is no partial or field-level authorization.

// authorize checks a single identifier against the caller's grants.
func (api *restAPI) authorize(ctx *context, identifier string) error {
	if ctx.Identity.Allows(identifier) {
		return nil
	}
	if api.Logger != nil {
		api.Logger.WithFields(map[string]interface{}{
			"user":       ctx.Identity.User,
			"identifier": identifier,
		}).Warn("authorization denied")
	}
	return restdata.ErrForbidden{}
}

// authorizeRead gates GET access to a collection or resource.
func (api *restAPI) authorizeRead(ctx *context) error {
	return api.authorize(ctx, ctx.Desc.ReadIdentifier)
}

// authorizeSubRead gates GET access to a subcollection: the caller
// needs read on both the parent and the backing collection.
func (api *restAPI) authorizeSubRead(ctx *context) error {
	if err := api.authorize(ctx, ctx.Desc.ReadIdentifier); err != nil {
		return err
	}
	if ctx.SubDesc != nil {
		return api.authorize(ctx, ctx.SubDesc.ReadIdentifier)
	}
	return nil
}

// authorizeAction gates a named action at a scope, returning the
// action registration on success.
func (api *restAPI) authorizeAction(ctx *context, name string, scope mgmtapi.Scope) (mgmtapi.ActionSpec, error) {
	spec, ok := ctx.Desc.Action(name, scope)
	if !ok {
		// An unregistered action is a 400, but only after the
		// caller proves they can do anything at all here; an
		// unauthorized caller learns nothing about the action
		// table.
		if !api.anyActionAllowed(ctx, scope) {
			return mgmtapi.ActionSpec{}, restdata.ErrForbidden{}
		}
		return mgmtapi.ActionSpec{}, restdata.ErrBadRequest{
			Err: fmt.Errorf("Unsupported Action %s for the %s %s specified", name, ctx.Desc.Name, scope),
		}
	}
	if err := api.authorize(ctx, spec.Identifier); err != nil {
		return mgmtapi.ActionSpec{}, err
	}
	return spec, nil
}

func (api *restAPI) anyActionAllowed(ctx *context, scope mgmtapi.Scope) bool {
	for _, spec := range ctx.Desc.ActionsAt(scope) {
		if ctx.Identity.Allows(spec.Identifier) {
			return true
		}
	}
	return false
}

// checkOwnership applies row-level scoping to collections that carry
// an owner key: a caller only reaches their own records unless they
// hold the collection's elevated identifier.  Scoped-out records are
// indistinguishable from absent ones.
func (api *restAPI) checkOwnership(ctx *context, rec *mgmtapi.Record) error {
	if !api.scopedToOwner(ctx) {
		return nil
	}
	if owner, ok := rec.IDAttr(ctx.Desc.OwnerKey); ok && owner == ctx.Identity.UserID {
		return nil
	}
	return mgmtapi.NotFoundError{
		Type:  mgmtapi.TypeName(ctx.Desc.Name),
		Field: "id",
		Value: mgmtapi.CompressID(rec.ID),
	}
}

// scopedToOwner reports whether list results must be narrowed to the
// caller's own records.
func (api *restAPI) scopedToOwner(ctx *context) bool {
	if ctx.Desc.OwnerKey == "" {
		return false
	}
	return !ctx.Identity.Allows(ctx.Desc.AdminIdentifier)
}
