// Copyright 2015-2016 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package restdata defines the wire representations shared between the
// restserver and restclient packages.  Everything is JSON.
//
// Collection GETs return a Collection envelope.  Its resources default
// to slim references, {"id": ..., "href": ...}; expand=resources
// switches to full representations, attributes= selects additional
// attributes, and hide=resources drops the resource list entirely
// (leaving only the counts).
//
// Action POSTs return either a single ActionResult (single-resource
// form) or an ActionResults aggregate (bulk form).  A bulk dispatch
// always answers 200; per-item failures are expressed through each
// result's success flag, in the exact order the items were submitted.
//
// Errors use the ErrorBody envelope,
//
//	{"error": {"kind": "bad_request", "message": "..."}}
//
// with the kind string matching the HTTP status.  Ids appearing in
// hrefs use the compressed "<region>r<short>" form where the region is
// nonzero.
package restdata

// MediaType is the JSON MIME type all requests and responses use.
const MediaType = "application/json"

// ErrorInfo is the inner error description.
type ErrorInfo struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`

	// Stack is only populated for "internal_error" responses that
	// came from a recovered panic.
	Stack string `json:"stack,omitempty"`
}

// ErrorBody is the error response envelope.
type ErrorBody struct {
	Error ErrorInfo `json:"error"`
}

// ActionResult is the outcome of one dispatched action on one target.
type ActionResult struct {
	// Success is false both for hard failures (target not found,
	// validation) and for business rejections (vm already running).
	Success bool `json:"success"`

	// Message describes the outcome either way.
	Message string `json:"message,omitempty"`

	// Href points at the affected resource, when one exists.
	Href string `json:"href,omitempty"`

	// TaskID and TaskHref are set when the action enqueued an
	// asynchronous task.
	TaskID   string `json:"task_id,omitempty"`
	TaskHref string `json:"task_href,omitempty"`
}

// ActionResults is the aggregate response of a bulk action.  Results
// are in the input item order and have the same length as the input.
type ActionResults struct {
	Results []ActionResult `json:"results"`
}

// ActionLink names an action available at the target URL, as rendered
// in collection envelopes, resource actions arrays, and OPTIONS
// metadata.
type ActionLink struct {
	Name   string `json:"name"`
	Method string `json:"method"`
	Href   string `json:"href,omitempty"`
}

// Links are the pagination hrefs of a paged collection.
type Links struct {
	Self     string `json:"self"`
	First    string `json:"first,omitempty"`
	Previous string `json:"previous,omitempty"`
	Next     string `json:"next,omitempty"`
	Last     string `json:"last,omitempty"`
}

// Collection is the envelope of a collection GET.
type Collection struct {
	// Name is the collection name.
	Name string `json:"name"`

	// Count is the number of resources in this response.
	Count int `json:"count"`

	// Subcount is the number of resources after filtering, across
	// all pages.
	Subcount int `json:"subcount"`

	// SubqueryCount is only reported for filters with a top-level
	// OR: the number of resources matching the union of the OR'd
	// conditions.
	SubqueryCount *int `json:"subquery_count,omitempty"`

	// Pages is the total page count; zero (omitted) when the
	// request did not page.
	Pages int `json:"pages,omitempty"`

	// Resources is nil when hide=resources was requested.
	Resources *[]map[string]interface{} `json:"resources,omitempty"`

	// Actions lists the collection-scope actions the caller may
	// dispatch.
	Actions []ActionLink `json:"actions,omitempty"`

	// Links are present when the request paged.
	Links *Links `json:"links,omitempty"`
}

// Options is the response body of an OPTIONS request, describing a
// collection's metadata.  It requires no authorization.
type Options struct {
	Name              string              `json:"name"`
	Description       string              `json:"description"`
	Attributes        []string            `json:"attributes"`
	VirtualAttributes []string            `json:"virtual_attributes,omitempty"`
	Subcollections    []string            `json:"subcollections,omitempty"`
	Actions           map[string][]string `json:"actions,omitempty"`
}

// Tag is the wire form of one tag assignment.
type Tag struct {
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	Href     string `json:"href,omitempty"`
}
