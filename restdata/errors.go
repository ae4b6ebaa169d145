// Copyright 2015-2016 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restdata

import (
	"fmt"
	"net/http"
	"runtime"

	"github.com/diffeo/go-mgmtapi/mgmtapi"
)

// ErrorStatus describes errors that correspond to specific HTTP status
// codes.
type ErrorStatus interface {
	// HTTPStatus returns the HTTP status code for this error.
	HTTPStatus() int
}

// ErrUnsupportedMediaType is returned from Decode() if the provided
// Content-Type: is unrecognized.  This translates directly into the
// equivalent HTTP 415 error.
type ErrUnsupportedMediaType struct {
	Type string
}

func (e ErrUnsupportedMediaType) Error() string {
	return fmt.Sprintf("Unsupported media type %q", e.Type)
}

// HTTPStatus returns a fixed 415 Unsupported Media Type error code.
func (e ErrUnsupportedMediaType) HTTPStatus() int {
	return http.StatusUnsupportedMediaType
}

// ErrNotFound is a wrapper error that indicates that, due to the
// embedded error, the service should return a 404 Not Found error.
type ErrNotFound struct {
	Err error
}

func (e ErrNotFound) Error() string {
	return e.Err.Error()
}

// HTTPStatus returns a fixed 404 Not Found error code.
func (e ErrNotFound) HTTPStatus() int {
	return http.StatusNotFound
}

// ErrBadRequest is a wrapper error returned when there is an error
// decoding the request, or when the request is well-formed but names
// invalid attributes, filters, or payload fields.
type ErrBadRequest struct {
	Err error
}

func (e ErrBadRequest) Error() string {
	return e.Err.Error()
}

// HTTPStatus returns a fixed 400 Bad Request HTTP status code.
func (e ErrBadRequest) HTTPStatus() int {
	return http.StatusBadRequest
}

// ErrForbidden is a wrapper error for authorization gate rejections.
// It renders before any existence or validation checks run, so a
// caller without access cannot distinguish present from absent
// resources.
type ErrForbidden struct {
	Err error
}

func (e ErrForbidden) Error() string {
	if e.Err == nil {
		return "Use of this resource is forbidden"
	}
	return e.Err.Error()
}

// HTTPStatus returns a fixed 403 Forbidden HTTP status code.
func (e ErrForbidden) HTTPStatus() int {
	return http.StatusForbidden
}

// Kind maps an HTTP status to the "kind" string used in error bodies.
func Kind(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusUnsupportedMediaType:
		return "unsupported_media_type"
	}
	return "internal_error"
}

// FromError populates an error body from an error value and returns
// the HTTP status to use.  Well-known engine errors map to their
// canonical statuses; anything unrecognized is an internal error.
func (e *ErrorBody) FromError(err error) (status int) {
	status = http.StatusInternalServerError
	switch et := err.(type) {
	case ErrorStatus:
		status = et.HTTPStatus()
	case mgmtapi.NotFoundError:
		status = http.StatusNotFound
	case mgmtapi.ValidationError, mgmtapi.InUseError:
		status = http.StatusBadRequest
	default:
		switch err {
		case mgmtapi.ErrNoResourceIdentifier:
			status = http.StatusBadRequest
		case mgmtapi.ErrNotFound:
			status = http.StatusNotFound
		}
	}
	e.Error = ErrorInfo{Kind: Kind(status), Message: err.Error()}
	return status
}

// FromPanic populates an error body based on a panic.  Typical use is:
//
//     defer func() {
//         if obj := recover(); obj != nil {
//             resp := restdata.ErrorBody{}
//             resp.FromPanic(obj)
//             // write resp out as makes sense
//         }
//    }
func (e *ErrorBody) FromPanic(obj interface{}) {
	e.Error.Kind = Kind(http.StatusInternalServerError)
	if recoveredError, isError := obj.(error); isError {
		e.Error.Message = recoveredError.Error()
	} else {
		e.Error.Message = fmt.Sprintf("%+v", obj)
	}
	var stack [4096]byte
	n := runtime.Stack(stack[:], false)
	e.Error.Stack = string(stack[:n])
}
