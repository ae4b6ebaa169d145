// Copyright 2015 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restdata

import (
	"io"
	"mime"

	"github.com/ugorji/go/codec"
)

// Decode tries to decode a restdata object from a reader, such as an
// HTTP request or response.  out must be a pointer type.
func Decode(contentType string, r io.Reader, out interface{}) error {
	if contentType == "" {
		// RFC 7231 section 3.1.1.5; but in practice clients that
		// send no content type send JSON
		contentType = MediaType
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ErrBadRequest{Err: err}
	}

	switch mediaType {
	case "text/json", "application/json":
	default:
		return ErrUnsupportedMediaType{Type: mediaType}
	}

	json := &codec.JsonHandle{}
	decoder := codec.NewDecoder(r, json)
	if err := decoder.Decode(out); err != nil {
		return ErrBadRequest{Err: err}
	}
	return nil
}

// Encode writes a restdata object to a writer as JSON.
func Encode(w io.Writer, in interface{}) error {
	json := &codec.JsonHandle{}
	encoder := codec.NewEncoder(w, json)
	return encoder.Encode(in)
}

// EncodeBytes returns the JSON encoding of a restdata object.
func EncodeBytes(in interface{}) ([]byte, error) {
	var out []byte
	json := &codec.JsonHandle{}
	encoder := codec.NewEncoderBytes(&out, json)
	err := encoder.Encode(in)
	return out, err
}
