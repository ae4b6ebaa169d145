// Copyright 2016 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResourceDefaultRendering(t *testing.T) {
	ts := newTestServer(t)
	ts.create(t, "vms", map[string]interface{}{
		"name":        "aa",
		"vendor":      "vmware",
		"power_state": "on",
		"cpus":        4,
	})

	w := ts.get("/api/vms/1")
	assert.Equal(t, http.StatusOK, w.Code)
	var resource map[string]interface{}
	decodeBody(t, w, &resource)
	assert.Equal(t, "1", resource["id"])
	assert.Equal(t, "/api/vms/1", resource["href"])
	assert.Equal(t, "aa", resource["name"])
	assert.Equal(t, "vmware", resource["vendor"])

	// The default rendering carries the allowed resource actions.
	actions, ok := resource["actions"].([]interface{})
	if assert.True(t, ok) {
		names := map[string]bool{}
		for _, entry := range actions {
			action := entry.(map[string]interface{})
			names[action["name"].(string)] = true
			assert.Equal(t, "post", action["method"])
		}
		assert.True(t, names["start"])
		assert.True(t, names["edit"])
	}
}

func TestAttributeSelection(t *testing.T) {
	ts := newTestServer(t)
	ts.create(t, "hosts", map[string]interface{}{"name": "esx-1"})
	ts.create(t, "vms", map[string]interface{}{
		"name":    "aa",
		"vendor":  "vmware",
		"host_id": 1,
	})

	w := ts.get("/api/vms/1?attributes=name,host_name")
	assert.Equal(t, http.StatusOK, w.Code)
	var resource map[string]interface{}
	decodeBody(t, w, &resource)
	assert.Equal(t, "aa", resource["name"])
	assert.Equal(t, "esx-1", resource["host_name"])
	assert.NotContains(t, resource, "vendor")

	// A virtual attribute in the selection suppresses the actions
	// array.
	assert.NotContains(t, resource, "actions")

	// A purely physical selection keeps it.
	w = ts.get("/api/vms/1?attributes=name,vendor")
	decodeBody(t, w, &resource)
	assert.Contains(t, resource, "actions")

	// Requesting actions explicitly overrides the suppression.
	w = ts.get("/api/vms/1?attributes=host_name,actions")
	decodeBody(t, w, &resource)
	assert.Contains(t, resource, "actions")

	// id selection renders the minimal form.
	w = ts.get("/api/vms/1?attributes=id")
	decodeBody(t, w, &resource)
	assert.Equal(t, "1", resource["id"])
	assert.Equal(t, "/api/vms/1", resource["href"])
	assert.NotContains(t, resource, "name")
}

func TestInvalidAttributes(t *testing.T) {
	ts := newTestServer(t)
	ts.create(t, "vms", map[string]interface{}{"name": "aa"})

	w := ts.get("/api/vms/1?attributes=name,bogus,wrong")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body testError
	decodeBody(t, w, &body)
	assert.Equal(t, "Invalid attributes specified: bogus,wrong", body.Error.Message)
}

func TestHrefSlug(t *testing.T) {
	ts := newTestServer(t)
	ts.create(t, "vms", map[string]interface{}{"name": "aa"})

	w := ts.get("/api/vms/1?attributes=href_slug")
	assert.Equal(t, http.StatusOK, w.Code)
	var resource map[string]interface{}
	decodeBody(t, w, &resource)
	assert.Equal(t, "vms/1", resource["href_slug"])
}

func TestHideResources(t *testing.T) {
	ts := newTestServer(t)
	seedVMs(t, ts)

	w := ts.get("/api/vms?hide=resources")
	assert.Equal(t, http.StatusOK, w.Code)
	var envelope testEnvelope
	decodeBody(t, w, &envelope)
	assert.Equal(t, 5, envelope.Subcount)
	assert.Nil(t, envelope.Resources)
}

func TestExpandSubcollection(t *testing.T) {
	ts := newTestServer(t)
	ts.create(t, "providers", map[string]interface{}{"name": "vsphere"})
	ts.create(t, "providers", map[string]interface{}{"name": "empty"})
	ts.create(t, "vms", map[string]interface{}{"name": "aa", "provider_id": 1})

	w := ts.get("/api/providers/1?expand=vms")
	assert.Equal(t, http.StatusOK, w.Code)
	var resource map[string]interface{}
	decodeBody(t, w, &resource)
	vms, ok := resource["vms"].([]interface{})
	if assert.True(t, ok) && assert.Len(t, vms, 1) {
		nested := vms[0].(map[string]interface{})
		assert.Equal(t, "aa", nested["name"])
		assert.Equal(t, "/api/vms/1", nested["href"])
	}

	// An empty subcollection renders as an empty list, never null.
	w = ts.get("/api/providers/2?expand=vms")
	decodeBody(t, w, &resource)
	vms, ok = resource["vms"].([]interface{})
	assert.True(t, ok)
	assert.Len(t, vms, 0)

	// Expanding by name cannot combine with a virtual attribute.
	w = ts.get("/api/providers/1?expand=vms&attributes=total_vms")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body testError
	decodeBody(t, w, &body)
	assert.Equal(t, "Cannot expand subcollection vms by name and virtual attribute", body.Error.Message)
}

func TestVirtualAttributes(t *testing.T) {
	ts := newTestServer(t)
	ts.create(t, "providers", map[string]interface{}{"name": "vsphere"})
	ts.create(t, "vms", map[string]interface{}{"name": "aa", "provider_id": 1})
	ts.create(t, "vms", map[string]interface{}{"name": "bb", "provider_id": 1})

	w := ts.get("/api/providers/1?attributes=total_vms")
	assert.Equal(t, http.StatusOK, w.Code)
	var resource map[string]interface{}
	decodeBody(t, w, &resource)
	assert.Equal(t, float64(2), resource["total_vms"])

	// Virtual attributes can be selected at collection scope too.
	w = ts.get("/api/services?attributes=power_state")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCollectionOptionsMetadata(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do("OPTIONS", "/api/vms", nil, "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	var options struct {
		Name              string              `json:"name"`
		Attributes        []string            `json:"attributes"`
		VirtualAttributes []string            `json:"virtual_attributes"`
		Subcollections    []string            `json:"subcollections"`
		Actions           map[string][]string `json:"actions"`
	}
	decodeBody(t, w, &options)
	assert.Equal(t, "vms", options.Name)
	assert.Contains(t, options.Attributes, "power_state")
	assert.Contains(t, options.VirtualAttributes, "host_name")
	assert.Contains(t, options.Subcollections, "tags")
	assert.Contains(t, options.Actions["resource"], "start")
	assert.Contains(t, options.Actions["subcollection"], "assign")
}
