// Copyright 2015 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

// This file contains a REST skeleton framework.
//
// The bulk of this is dealing with HTTP content type negotiation, and
// providing a standard way to deal with input and output values.  The
// interface speaks JSON only, but the negotiation still honors Accept:
// quality parameters and wildcards so that picky clients get a proper
// 406 instead of a surprise.

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/ugorji/go/codec"

	"github.com/diffeo/go-mgmtapi/restdata"
)

var typeMap = map[string]string{
	"text/json":        restdata.MediaType,
	"application/json": restdata.MediaType,
}

// errBadAccept is returned from negotiateResponse() if the Accept:
// header is malformed (and no more specific error applies).
var errBadAccept = errors.New("Invalid Accept: header")

// errNotAcceptable is returned from negotiateResponse() if the Accept:
// header does not mention any media types we can actually return.
type errNotAcceptable struct{}

func (e errNotAcceptable) Error() string {
	return "No acceptable representation for response"
}

func (e errNotAcceptable) HTTPStatus() int {
	return http.StatusNotAcceptable
}

// errMethodNotAllowed flags an error if a particular HTTP method is
// not allowed.  This corresponds exactly to the 405 Method Not Allowed
// HTTP status code.
type errMethodNotAllowed struct {
	Method string
}

func (e errMethodNotAllowed) Error() string {
	return fmt.Sprintf("Method %v not allowed", e.Method)
}

func (e errMethodNotAllowed) HTTPStatus() int {
	return http.StatusMethodNotAllowed
}

// responseCreated is returned as a value response from handler
// functions that want to indicate that a new resource was created.
type responseCreated struct {
	// Location holds the canonical URL to the newly created resource.
	Location string

	// Body contains the object sent in the body of the response.
	Body interface{}
}

// responseNoContent is returned as a value response from handler
// functions that want a 204 with no body (successful DELETE).
type responseNoContent struct{}

type resourceHandler struct {
	// Context reads an HTTP request and produces a context object.
	Context func(req *http.Request) (*context, error)

	// Get, if non-nil, returns a representation of the object.
	Get func(*context) (interface{}, error)

	// Put, if non-nil, replaces attributes of the object.  The body
	// has been decoded into the map.
	Put func(*context, map[string]interface{}) (interface{}, error)

	// Post, if non-nil, dispatches an action.
	Post func(*context, map[string]interface{}) (interface{}, error)

	// Patch, if non-nil, applies a partial update; the body may be
	// an attribute hash or an operation list, so it arrives raw.
	Patch func(*context, interface{}) (interface{}, error)

	// Delete, if non-nil, deletes the object.
	Delete func(*context) (interface{}, error)

	// Options, if non-nil, returns collection metadata.  It runs
	// without authentication.
	Options func(*context) (interface{}, error)
}

func (h *resourceHandler) ServeHTTP(resp http.ResponseWriter, req *http.Request) {
	var (
		ctx          *context
		out          interface{}
		err          error
		status       int
		responseType string
	)

	// Recover from panics by sending an HTTP error.
	defer func() {
		if recovered := recover(); recovered != nil {
			response := restdata.ErrorBody{}
			response.FromPanic(recovered)
			resp.Header().Set("Content-Type", restdata.MediaType)
			resp.WriteHeader(http.StatusInternalServerError)
			json := &codec.JsonHandle{}
			encoder := codec.NewEncoder(resp, json)
			encoder.MustEncode(response)
		}
	}()

	// Start by trying to come up with a response type, even before
	// trying to parse the input.  This determines what format an
	// error message could be sent back as.
	responseType, err = negotiateResponse(req)
	if err != nil {
		// Gotta pick something
		responseType = restdata.MediaType
	}

	// Get bits from URL parameters and the credential
	if err == nil {
		ctx, err = h.Context(req)
	}

	// Read the JSON body, if it's there
	var body interface{}
	if err == nil && (req.Method == "PUT" || req.Method == "POST" || req.Method == "PATCH") {
		if req.ContentLength != 0 {
			contentType := req.Header.Get("Content-Type")
			err = restdata.Decode(contentType, req.Body, &body)
		}
	}

	// Actually call the handler method
	if err == nil {
		err = errMethodNotAllowed{Method: req.Method}
		switch req.Method {
		case "GET", "HEAD":
			if h.Get != nil {
				out, err = h.Get(ctx)
			}
		case "PUT":
			if h.Put != nil {
				attrs, ok := body.(map[string]interface{})
				if !ok && body != nil {
					err = restdata.ErrBadRequest{Err: errors.New("Invalid input format")}
				} else {
					out, err = h.Put(ctx, attrs)
				}
			}
		case "POST":
			if h.Post != nil {
				attrs, ok := body.(map[string]interface{})
				if !ok && body != nil {
					err = restdata.ErrBadRequest{Err: errors.New("Invalid input format")}
				} else {
					out, err = h.Post(ctx, attrs)
				}
			}
		case "PATCH":
			if h.Patch != nil {
				out, err = h.Patch(ctx, body)
			}
		case "DELETE":
			if h.Delete != nil {
				out, err = h.Delete(ctx)
			}
		case "OPTIONS":
			if h.Options != nil {
				out, err = h.Options(ctx)
			}
		}
	}

	// Fix up the final result based on what we know.
	if err != nil {
		response := restdata.ErrorBody{}
		status = response.FromError(err)
		out = response
	} else if _, isNoContent := out.(responseNoContent); isNoContent || out == nil {
		status = http.StatusNoContent
		out = nil
	} else if created, isCreated := out.(responseCreated); isCreated {
		status = http.StatusCreated
		if created.Location != "" {
			resp.Header().Set("Location", created.Location)
		}
		if req.Method == "HEAD" {
			out = nil
		} else {
			out = created.Body
		}
	} else {
		status = http.StatusOK
		if req.Method == "HEAD" {
			out = nil
		}
	}

	// Actually send the response
	if out != nil {
		resp.Header().Set("Content-Type", responseType)
	}
	resp.WriteHeader(status)
	if out != nil {
		json := &codec.JsonHandle{}
		encoder := codec.NewEncoder(resp, json)
		encoder.MustEncode(out)
	}
}

// negotiateResponse returns a supported MIME type for the response
// body, following the path laid out in RFC 7231 section 5.3.
func negotiateResponse(req *http.Request) (string, error) {
	accept := req.Header.Get("Accept")
	if accept == "" {
		accept = "*/*"
	}
	bestType := ""
	bestQ := 0.0
	mediaRanges := strings.Split(accept, ",")
	for _, mediaRange := range mediaRanges {
		mediaRange = strings.TrimSpace(mediaRange)
		mediaType, params, err := mime.ParseMediaType(mediaRange)
		if err != nil {
			return "", errBadAccept
		}

		// What is the "q" ("quality") parameter for this type?
		// If it is less than the best known so far, skip it
		q := 1.0
		if qStr, haveQ := params["q"]; haveQ {
			q, err = strconv.ParseFloat(qStr, 64)
			if err != nil {
				return "", errBadAccept
			}
			if q < 0.0 || q > 1.0 {
				return "", errBadAccept
			}
		}
		if q < bestQ {
			continue
		}

		// This is acceptable if it's listed in the type map, or
		// it's one of a couple of specific wildcards.  Also need
		// to handle wildcard precedence.  So:
		if mediaType == "*/*" {
			// Doesn't override anything.
			if q > bestQ {
				bestType = mediaType
				bestQ = q
			}
		} else if mediaType == "text/*" || mediaType == "application/*" {
			// Only overrides "*/*".
			if q > bestQ || bestType == "*/*" {
				bestType = mediaType
				bestQ = q
			}
		} else if _, knownType := typeMap[mediaType]; knownType {
			// Overrides any wildcard.  We want the first one at
			// a given q to win.
			if q > bestQ || bestType == "*/*" || bestType == "text/*" || bestType == "application/*" {
				bestType = mediaType
				bestQ = q
			}
		}
		// Otherwise we don't recognize this type at all, so just
		// drop it.
	}
	// If this failed to win, return an error
	if bestQ == 0.0 {
		return "", errNotAcceptable{}
	}
	switch bestType {
	case "*/*", "application/*":
		return restdata.MediaType, nil
	case "text/*":
		return "text/json", nil
	default:
		return bestType, nil
	}
}
