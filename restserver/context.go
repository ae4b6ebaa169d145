// Copyright 2015 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"

	"github.com/diffeo/go-mgmtapi/auth"
	"github.com/diffeo/go-mgmtapi/mgmtapi"
	"github.com/diffeo/go-mgmtapi/restdata"
)

// context holds everything extracted from the URL and the transport
// credential.  It deliberately does NOT hold resolved records: target
// resolution happens after the authorization gate, so that a caller
// without access cannot distinguish a present resource from an absent
// one.
type context struct {
	// Identity is the authenticated caller.  Zero for OPTIONS,
	// which requires no credential.
	Identity auth.Identity

	// Desc is the collection descriptor, when the URL names a
	// collection.
	Desc *mgmtapi.Descriptor

	// IDParam is the raw {id} URL variable, unparsed.
	IDParam string

	// Sub is the subcollection descriptor, when the URL names one.
	Sub mgmtapi.Subcollection

	// SubDesc is the descriptor of the subcollection's backing
	// collection; nil for the synthetic tags subcollection.
	SubDesc *mgmtapi.Descriptor

	// SIDParam is the raw {sid} URL variable, unparsed.
	SIDParam string

	QueryParams url.Values
	URL         *url.URL
}

func (api *restAPI) Context(req *http.Request) (ctx *context, err error) {
	ctx = &context{
		QueryParams: req.URL.Query(),
		URL:         req.URL,
	}
	vars := mux.Vars(req)

	if name, present := vars["collection"]; present {
		desc, ok := api.Registry.Collection(name)
		if !ok {
			return nil, restdata.ErrNotFound{
				Err: fmt.Errorf("Invalid collection name specified %s", name),
			}
		}
		ctx.Desc = desc
	}

	if id, present := vars["id"]; present {
		ctx.IDParam = id
	}

	if sub, present := vars["sub"]; present && ctx.Desc != nil {
		s, ok := ctx.Desc.Subcollections[sub]
		if !ok {
			return nil, restdata.ErrNotFound{
				Err: fmt.Errorf("Invalid subcollection name specified %s", sub),
			}
		}
		ctx.Sub = s
		if s.Collection != "" {
			// The registry guarantees backing collections exist
			ctx.SubDesc, _ = api.Registry.Collection(s.Collection)
		}
	}

	if sid, present := vars["sid"]; present {
		ctx.SIDParam = sid
	}

	// OPTIONS answers metadata without any credential; everything
	// else authenticates here.  Bad credentials fail exactly like
	// missing ones.
	if req.Method != "OPTIONS" {
		user, password, _ := req.BasicAuth()
		identity, ok := api.Auth.Authenticate(user, password)
		if !ok {
			return nil, restdata.ErrForbidden{
				Err: errors.New("Authentication failed"),
			}
		}
		ctx.Identity = identity
	}

	return ctx, nil
}

// resolve looks up the resource named by the id URL variable.  Called
// only after the authorization gate has passed.
func (api *restAPI) resolve(ctx *context) (*mgmtapi.Record, error) {
	rec, err := api.lookup(ctx.Desc, ctx.IDParam)
	if err != nil {
		return nil, err
	}
	if err := api.checkOwnership(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// resolveSub looks up the subresource named by the sid URL variable,
// scoped to the parent record.
func (api *restAPI) resolveSub(ctx *context, parent *mgmtapi.Record) (*mgmtapi.Record, error) {
	if ctx.SubDesc == nil {
		return nil, restdata.ErrNotFound{
			Err: fmt.Errorf("Invalid subcollection name specified %s", ctx.Sub.Name),
		}
	}
	rec, err := api.lookup(ctx.SubDesc, ctx.SIDParam)
	if err != nil {
		return nil, err
	}
	if !api.belongsTo(rec, ctx.Sub, parent) {
		return nil, mgmtapi.NotFoundError{
			Type:  mgmtapi.TypeName(ctx.Sub.Collection),
			Field: "id",
			Value: ctx.SIDParam,
		}
	}
	return rec, nil
}

// lookup resolves a raw URL id variable against one collection: a
// parseable id looks up by id, anything else looks up by name when the
// collection allows that.
func (api *restAPI) lookup(desc *mgmtapi.Descriptor, param string) (*mgmtapi.Record, error) {
	if id, err := mgmtapi.ParseID(param); err == nil {
		rec, err := api.Store.Find(desc.Name, id)
		if err != nil {
			return nil, mgmtapi.NotFoundError{
				Type:  mgmtapi.TypeName(desc.Name),
				Field: "id",
				Value: param,
			}
		}
		return rec, nil
	}
	if desc.ByName {
		rec, err := api.Store.FindByName(desc.Name, param)
		if err != nil {
			return nil, mgmtapi.NotFoundError{
				Type:  mgmtapi.TypeName(desc.Name),
				Field: "name",
				Value: param,
			}
		}
		return rec, nil
	}
	return nil, mgmtapi.NotFoundError{
		Type:  mgmtapi.TypeName(desc.Name),
		Field: "id",
		Value: param,
	}
}

// belongsTo reports whether a subresource is actually scoped under the
// parent record, via either the scalar foreign key or the member-id
// list.
func (api *restAPI) belongsTo(rec *mgmtapi.Record, sub mgmtapi.Subcollection, parent *mgmtapi.Record) bool {
	if sub.ForeignKey != "" {
		id, ok := rec.IDAttr(sub.ForeignKey)
		return ok && id == parent.ID
	}
	if sub.MemberKey != "" {
		ids, _ := rec.Attrs[sub.MemberKey].([]interface{})
		for _, raw := range ids {
			if id, ok := mgmtapi.AsID(raw); ok && id == parent.ID {
				return true
			}
		}
	}
	return false
}
