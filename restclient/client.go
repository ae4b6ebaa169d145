// Copyright 2015-2016 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package restclient provides a Go client for the management REST API.
// It speaks the wire shapes defined in the restdata package against any
// server, most usefully the restserver package or a compatible remote.
package restclient

import (
	"net/url"
	"strconv"
	"strings"
)

// Client accesses one management API endpoint.
type Client struct {
	resource
}

// New creates a client rooted at a base URL, e.g.
// "http://localhost:5980/api".  The credential is sent with every
// request.
func New(rawURL, username, password string) (*Client, error) {
	if !strings.HasSuffix(rawURL, "/") {
		rawURL += "/"
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	return &Client{resource: resource{
		URL:      parsed,
		Username: username,
		Password: password,
	}}, nil
}

// ListOptions carries the query parameters of a collection GET.
type ListOptions struct {
	// Expand requests full resource representations.
	Expand bool

	// Attributes selects specific attributes to render.
	Attributes []string

	// Filters are raw filter[] expressions, e.g. "name=aa".
	Filters []string

	// SortBy and Descending control result ordering.
	SortBy     string
	Descending bool

	// Offset and Limit page the result.  Limit zero requests no
	// paging.
	Offset int
	Limit  int

	// ByTag narrows the result to resources carrying a tag path.
	ByTag string

	// Hide drops the resource list, leaving only counts.
	Hide bool
}

func (opts *ListOptions) query() string {
	if opts == nil {
		return ""
	}
	params := url.Values{}
	if opts.Expand {
		params.Set("expand", "resources")
	}
	if len(opts.Attributes) > 0 {
		params.Set("attributes", strings.Join(opts.Attributes, ","))
	}
	for _, f := range opts.Filters {
		params.Add("filter[]", f)
	}
	if opts.SortBy != "" {
		params.Set("sort_by", opts.SortBy)
		if opts.Descending {
			params.Set("sort_order", "desc")
		}
	}
	if opts.Limit > 0 {
		params.Set("offset", strconv.Itoa(opts.Offset))
		params.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.ByTag != "" {
		params.Set("by_tag", opts.ByTag)
	}
	if opts.Hide {
		params.Set("hide", "resources")
	}
	encoded := params.Encode()
	if encoded == "" {
		return ""
	}
	return "?" + encoded
}

// Collection is the decoded envelope of a collection GET.  It mirrors
// restdata.Collection but decodes resources eagerly.
type Collection struct {
	Name          string                   `json:"name"`
	Count         int                      `json:"count"`
	Subcount      int                      `json:"subcount"`
	SubqueryCount *int                     `json:"subquery_count"`
	Pages         int                      `json:"pages"`
	Resources     []map[string]interface{} `json:"resources"`
	Links         map[string]string        `json:"links"`
}

// ActionResult is the decoded outcome of a dispatched action.
type ActionResult struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Href     string `json:"href"`
	TaskID   string `json:"task_id"`
	TaskHref string `json:"task_href"`
}

// ActionResults is the decoded aggregate of a bulk action.
type ActionResults struct {
	Results []ActionResult `json:"results"`
}

// List queries a collection.
func (c *Client) List(collection string, opts *ListOptions) (Collection, error) {
	var out Collection
	err := c.GetFrom("{collection}"+opts.query(), map[string]interface{}{
		"collection": collection,
	}, &out)
	return out, err
}

// GetResource fetches the full representation of one resource.  id may
// be a numeric or compressed id, or a name for collections that
// support name addressing.
func (c *Client) GetResource(collection, id string, attributes []string) (map[string]interface{}, error) {
	template := "{collection}/{id}"
	if len(attributes) > 0 {
		template += "?attributes=" + url.QueryEscape(strings.Join(attributes, ","))
	}
	var out map[string]interface{}
	err := c.GetFrom(template, map[string]interface{}{
		"collection": collection,
		"id":         id,
	}, &out)
	return out, err
}

// Create posts a create action to a collection and returns the result.
func (c *Client) Create(collection string, attrs map[string]interface{}) (ActionResult, error) {
	body := map[string]interface{}{"action": "create", "resource": attrs}
	var out ActionResult
	err := c.PostTo("{collection}", map[string]interface{}{
		"collection": collection,
	}, body, &out)
	return out, err
}

// Action dispatches a named action against one resource.
func (c *Client) Action(collection, id, action string, payload map[string]interface{}) (ActionResult, error) {
	body := map[string]interface{}{"action": action}
	if payload != nil {
		body["resource"] = payload
	}
	var out ActionResult
	err := c.PostTo("{collection}/{id}", map[string]interface{}{
		"collection": collection,
		"id":         id,
	}, body, &out)
	return out, err
}

// BulkAction dispatches a named action against several resources at
// collection scope, returning per-item results in input order.
func (c *Client) BulkAction(collection, action string, items []map[string]interface{}) (ActionResults, error) {
	body := map[string]interface{}{"action": action, "resources": items}
	var out ActionResults
	err := c.PostTo("{collection}", map[string]interface{}{
		"collection": collection,
	}, body, &out)
	return out, err
}

// SubAction dispatches a named action against a subcollection of one
// resource, e.g. assigning a tag.
func (c *Client) SubAction(collection, id, sub, action string, payload map[string]interface{}) (ActionResult, error) {
	body := map[string]interface{}{"action": action}
	if payload != nil {
		body["resource"] = payload
	}
	var out ActionResult
	err := c.PostTo("{collection}/{id}/{sub}", map[string]interface{}{
		"collection": collection,
		"id":         id,
		"sub":        sub,
	}, body, &out)
	return out, err
}

// Update replaces attributes of one resource via PUT.
func (c *Client) Update(collection, id string, attrs map[string]interface{}) (map[string]interface{}, error) {
	var out map[string]interface{}
	err := c.PutTo("{collection}/{id}", map[string]interface{}{
		"collection": collection,
		"id":         id,
	}, attrs, &out)
	return out, err
}

// Delete removes one resource.
func (c *Client) Delete(collection, id string) error {
	return c.DeleteAt("{collection}/{id}", map[string]interface{}{
		"collection": collection,
		"id":         id,
	})
}
