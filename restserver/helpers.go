// Copyright 2015 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

// This file contains small URL and parameter helpers shared by the
// handlers.

import (
	"fmt"
	"strings"

	"github.com/diffeo/go-mgmtapi/mgmtapi"
)

func collectionHref(collection string) string {
	return "/api/" + collection
}

func resourceHref(collection string, id uint64) string {
	return fmt.Sprintf("/api/%s/%s", collection, mgmtapi.CompressID(id))
}

func subcollectionHref(collection string, id uint64, sub string) string {
	return fmt.Sprintf("%s/%s", resourceHref(collection, id), sub)
}

func subresourceHref(collection string, id uint64, sub string, sid uint64) string {
	return fmt.Sprintf("%s/%s", subcollectionHref(collection, id, sub), mgmtapi.CompressID(sid))
}

// hrefSlug is the "href_slug" virtual attribute every resource
// carries: the collection-relative path, "vms/1r5".
func hrefSlug(collection string, id uint64) string {
	return fmt.Sprintf("%s/%s", collection, mgmtapi.CompressID(id))
}

// splitParam splits repeated and comma-joined query parameter values
// into one flat list: attributes=a,b&attributes=c yields [a b c].
func splitParam(values []string) []string {
	var out []string
	for _, value := range values {
		for _, item := range strings.Split(value, ",") {
			item = strings.TrimSpace(item)
			if item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}

// stringField pulls a string field out of a decoded payload map.
func stringField(payload map[string]interface{}, name string) string {
	s, _ := payload[name].(string)
	return s
}
