// Copyright 2015 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restclient

// This file provides generic REST transport code.

import (
	"bytes"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"

	"github.com/jtacoma/uritemplates"
	"github.com/ugorji/go/codec"

	"github.com/diffeo/go-mgmtapi/restdata"
)

// resource is any object that has a URL and a representation.
type resource struct {
	URL *url.URL

	// Username and Password are sent as the HTTP Basic credential on
	// every request.
	Username string
	Password string

	// HTTPClient issues the requests; http.DefaultClient if unset.
	HTTPClient *http.Client
}

func (r *resource) Template(template string, vars map[string]interface{}) (*url.URL, error) {
	// Build the template object
	tmpl, err := uritemplates.Parse(template)
	if err != nil {
		return nil, err
	}

	// Expand the template to produce a string
	expanded, err := tmpl.Expand(vars)
	if err != nil {
		return nil, err
	}

	// Return the parsed URL of the result, relative to ourselves
	return r.URL.Parse(expanded)
}

// Do performs some HTTP action.  If in is non-nil, the request data is
// serialized and sent as the body of, for instance, a POST request.
// If out is non-nil, the response data (if any) is deserialized into
// this object, which must be of pointer type.
func (r *resource) Do(method string, url *url.URL, in, out interface{}) (err error) {
	json := &codec.JsonHandle{}

	// Set up the body as serialized JSON, if there is one
	var body io.Reader
	if in != nil {
		var data []byte
		encoder := codec.NewEncoderBytes(&data, json)
		if err := encoder.Encode(in); err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	// Create the request and set headers
	req, err := http.NewRequest(method, url.String(), body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", restdata.MediaType)
	}
	if out != nil {
		req.Header.Set("Accept", restdata.MediaType)
	}
	if r.Username != "" {
		req.SetBasicAuth(r.Username, r.Password)
	}

	// Actually do the request
	client := r.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}

	// If the response included a body, clean up afterwards
	if resp.Body != nil {
		defer func() {
			err = firstError(err, resp.Body.Close())
		}()
	}

	// Check the response code
	if err = checkHTTPStatus(resp); err != nil {
		return err
	}

	// If there is both a body and a requested output, decode it
	if resp.Body != nil && out != nil && resp.StatusCode != http.StatusNoContent {
		contentType := resp.Header.Get("Content-Type")
		err = restdata.Decode(contentType, resp.Body, out)
	}

	return err // may be nil
}

// Get retrieves the resource from its own URL.  The result is stored
// in out, which must be of pointer type.
func (r *resource) Get(out interface{}) (err error) {
	return r.Do("GET", r.URL, nil, out)
}

// GetFrom retrieves a resource from some other URL.  template is
// interpreted as a URI template, modified by vars, and the result
// taken relative to the resource's URL.
func (r *resource) GetFrom(template string, vars map[string]interface{}, out interface{}) (err error) {
	url, err := r.Template(template, vars)
	if err == nil {
		err = r.Do("GET", url, nil, out)
	}
	return err
}

// PostTo submits data to a service at some other URL.
func (r *resource) PostTo(template string, vars map[string]interface{}, in, out interface{}) error {
	url, err := r.Template(template, vars)
	if err == nil {
		err = r.Do("POST", url, in, out)
	}
	return err
}

// PutTo updates a resource at some other URL.
func (r *resource) PutTo(template string, vars map[string]interface{}, in, out interface{}) (err error) {
	url, err := r.Template(template, vars)
	if err == nil {
		err = r.Do("PUT", url, in, out)
	}
	return err
}

// DeleteAt deletes the resource at some other URL.
func (r *resource) DeleteAt(template string, vars map[string]interface{}) error {
	url, err := r.Template(template, vars)
	if err == nil {
		err = r.Do("DELETE", url, nil, nil)
	}
	return err
}

// APIError is a decoded error response from the server.
type APIError struct {
	// Status is the HTTP status code of the response.
	Status int

	// Kind is the error kind string, e.g. "bad_request".
	Kind string

	// Message is the human-readable error message.
	Message string
}

func (e APIError) Error() string {
	return e.Message
}

// ErrorHTTP is a catch-all error for non-successes returned from the
// REST endpoint whose bodies could not be decoded.
type ErrorHTTP struct {
	// Response holds a pointer to the failing HTTP response.
	Response *http.Response

	// Body holds the contents of the message body, presumed to be
	// text.
	Body string
}

func (e ErrorHTTP) Error() string {
	return e.Response.Status
}

// checkHTTPStatus examines an HTTP response and returns an error if it
// is not successful.
func checkHTTPStatus(resp *http.Response) error {
	if len(resp.Status) > 0 && resp.Status[0] == '2' {
		return nil
	}

	// Always collect the entire body; we will need it as a fallback
	// and can only parse it once.
	var body []byte
	var err error
	if resp.Body != nil {
		body, err = ioutil.ReadAll(resp.Body)
		if err != nil {
			return err
		}
	}

	// Take a shot at decoding it as a better error
	var errResp restdata.ErrorBody
	contentType := resp.Header.Get("Content-Type")
	err2 := restdata.Decode(contentType, bytes.NewReader(body), &errResp)
	if err2 == nil && errResp.Error.Message != "" {
		return APIError{
			Status:  resp.StatusCode,
			Kind:    errResp.Error.Kind,
			Message: errResp.Error.Message,
		}
	}

	return ErrorHTTP{Response: resp, Body: string(body)}
}

func firstError(e1, e2 error) error {
	if e1 != nil {
		return e1
	}
	return e2
}
