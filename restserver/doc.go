// Copyright 2015 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package restserver publishes the management API as a REST service.
// The restclient package is a matching client.
//
// The wire representations are defined in the restdata package; the
// per-collection metadata driving every route is defined in the
// registry package.  No handler in this package knows about any
// particular resource type.
//
// URL Scheme
//
// The following URLs are defined:
//
//	/api
//	/api/{collection}
//	/api/{collection}/{id}
//	/api/{collection}/{id}/{subcollection}
//	/api/{collection}/{id}/{subcollection}/{sid}
//
// {id} accepts a plain decimal id, a compressed "<region>r<short>"
// id, or, for collections that allow it, a resource name.
//
// Verbs
//
// GET reads, honoring the filter[], offset, limit, sort_by,
// sort_order, sort_options, attributes, expand, hide, and by_tag
// query parameters.  POST dispatches a named action from the body's
// "action" field; a POST with no action field at a collection URL is
// an implicit create.  PUT replaces attributes, PATCH applies either
// an attribute hash or a list of {action, path, value} operations,
// DELETE removes the resource and answers 204.  OPTIONS answers
// collection metadata without authorization.
//
// Every other request authenticates with HTTP Basic and is then
// checked against the action's authorization identifier before any
// resolution or validation happens, so an unauthorized caller cannot
// probe for resource existence.
//
// MIME Types
//
// This interface speaks JSON only: application/json, or text/json as
// a courtesy alias.
package restserver
