// Copyright 2015-2016 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"

	"github.com/diffeo/go-mgmtapi/auth"
	"github.com/diffeo/go-mgmtapi/memory"
	"github.com/diffeo/go-mgmtapi/registry"
	"github.com/diffeo/go-mgmtapi/tags"
	"github.com/diffeo/go-mgmtapi/task"
)

const testSettings = `
roles:
  administrator:
    - "*"
  operator:
    - vm_show_list
    - vm_start
    - vm_edit
    - service_show_list
    - service_template_show_list
    - service_template_order
    - service_order_show_list
    - service_order_order
    - service_order_clear
    - service_request_show_list
  viewer:
    - vm_show_list
users:
  - name: admin
    password: smartvm
    role: administrator
  - name: alice
    password: secret
    role: operator
  - name: bob
    password: plain
    role: viewer
`

type testServer struct {
	store  *memory.Store
	tags   *tags.Service
	queue  *task.Queue
	clock  *clock.Mock
	router http.Handler
}

func newTestServer(t *testing.T) *testServer {
	store := memory.New()
	config, err := auth.ParseConfig([]byte(testSettings))
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	provider, err := auth.NewProvider(config, store)
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	mock := clock.NewMock()
	queue := &task.Queue{Store: store, Clock: mock}
	tagService := tags.NewService(tags.DefaultCategories())
	server := &Server{
		Registry:    registry.New(),
		Store:       store,
		Tags:        tagService,
		Tasks:       queue,
		Auth:        provider,
		MaxPageSize: 1000,
	}
	return &testServer{
		store:  store,
		tags:   tagService,
		queue:  queue,
		clock:  mock,
		router: NewRouter(server),
	}
}

// do issues one request against the in-process router.
func (ts *testServer) do(method, path string, body interface{}, user, password string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.SetBasicAuth(user, password)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) get(path string) *httptest.ResponseRecorder {
	return ts.do("GET", path, nil, "admin", "smartvm")
}

func (ts *testServer) post(path string, body interface{}) *httptest.ResponseRecorder {
	return ts.do("POST", path, body, "admin", "smartvm")
}

// create seeds one record directly through storage.
func (ts *testServer) create(t *testing.T, collection string, attrs map[string]interface{}) uint64 {
	rec, err := ts.store.Create(collection, attrs)
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	return rec.ID
}

type testEnvelope struct {
	Name          string                   `json:"name"`
	Count         int                      `json:"count"`
	Subcount      int                      `json:"subcount"`
	SubqueryCount *int                     `json:"subquery_count"`
	Pages         int                      `json:"pages"`
	Resources     []map[string]interface{} `json:"resources"`
	Actions       []map[string]interface{} `json:"actions"`
	Links         map[string]string        `json:"links"`
}

type testResult struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Href     string `json:"href"`
	TaskID   string `json:"task_id"`
	TaskHref string `json:"task_href"`
}

type testResults struct {
	Results []testResult `json:"results"`
}

type testError struct {
	Error struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

func seedVMs(t *testing.T, ts *testServer) []uint64 {
	var ids []uint64
	for _, vm := range []map[string]interface{}{
		{"name": "bb", "vendor": "vmware", "power_state": "on", "cpus": 4},
		{"name": "aa", "vendor": "vmware", "power_state": "off", "cpus": 2},
		{"name": "dd", "vendor": "redhat", "power_state": "on", "cpus": 8},
		{"name": "cc", "vendor": "redhat", "power_state": "off", "cpus": 1},
		{"name": "ee", "vendor": "openstack", "power_state": "on", "cpus": 2},
	} {
		ids = append(ids, ts.create(t, "vms", vm))
	}
	return ids
}

func TestCollectionPagingAndSorting(t *testing.T) {
	ts := newTestServer(t)
	seedVMs(t, ts)

	params := url.Values{}
	params.Set("offset", "0")
	params.Set("limit", "2")
	params.Set("sort_by", "name")
	params.Set("expand", "resources")
	w := ts.get("/api/vms?" + params.Encode())
	assert.Equal(t, http.StatusOK, w.Code)

	var envelope testEnvelope
	decodeBody(t, w, &envelope)
	assert.Equal(t, "vms", envelope.Name)
	assert.Equal(t, 2, envelope.Count)
	assert.Equal(t, 5, envelope.Subcount)
	assert.Equal(t, 3, envelope.Pages)
	if assert.Len(t, envelope.Resources, 2) {
		assert.Equal(t, "aa", envelope.Resources[0]["name"])
		assert.Equal(t, "bb", envelope.Resources[1]["name"])
	}
	if assert.NotNil(t, envelope.Links) {
		assert.Contains(t, envelope.Links["next"], "offset=2")
		assert.Contains(t, envelope.Links["last"], "offset=4")
		assert.Empty(t, envelope.Links["previous"])
	}
}

func TestCollectionSlimDefault(t *testing.T) {
	ts := newTestServer(t)
	ids := seedVMs(t, ts)

	w := ts.get("/api/vms")
	assert.Equal(t, http.StatusOK, w.Code)
	var envelope testEnvelope
	decodeBody(t, w, &envelope)
	assert.Equal(t, 5, envelope.Count)
	assert.Equal(t, 5, envelope.Subcount)
	assert.Zero(t, envelope.Pages)
	if assert.Len(t, envelope.Resources, 5) {
		first := envelope.Resources[0]
		assert.Equal(t, "1", first["id"])
		assert.Equal(t, "/api/vms/1", first["href"])
		assert.NotContains(t, first, "name")
	}
	_ = ids
}

func TestDatetimeFilterOperators(t *testing.T) {
	ts := newTestServer(t)
	ts.create(t, "vms", map[string]interface{}{
		"name":       "old",
		"retires_on": time.Date(2015, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	ts.create(t, "vms", map[string]interface{}{
		"name":       "new",
		"retires_on": time.Date(2016, 1, 5, 0, 0, 0, 0, time.UTC),
	})
	ts.create(t, "vms", map[string]interface{}{"name": "keeper"})

	params := url.Values{}
	params.Add("filter[]", "retires_on>2016-01-01")
	w := ts.get("/api/vms?" + params.Encode())
	assert.Equal(t, http.StatusOK, w.Code)
	var envelope testEnvelope
	decodeBody(t, w, &envelope)
	assert.Equal(t, 1, envelope.Subcount)

	// Equality is allowed on datetime attributes, including the
	// NULL form.
	params = url.Values{}
	params.Add("filter[]", "retires_on=2016-01-05T00:00:00Z")
	w = ts.get("/api/vms?" + params.Encode())
	assert.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &envelope)
	assert.Equal(t, 1, envelope.Subcount)

	params = url.Values{}
	params.Add("filter[]", "retires_on=NULL")
	w = ts.get("/api/vms?" + params.Encode())
	assert.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &envelope)
	assert.Equal(t, 1, envelope.Subcount)

	params = url.Values{}
	params.Add("filter[]", "retires_on<=2016-01-03")
	w = ts.get("/api/vms?" + params.Encode())
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body testError
	decodeBody(t, w, &body)
	assert.Equal(t, "bad_request", body.Error.Kind)
	assert.Equal(t, "Unsupported operator for datetime: <=", body.Error.Message)

	params = url.Values{}
	params.Add("filter[]", "retires_on>cow")
	w = ts.get("/api/vms?" + params.Encode())
	assert.Equal(t, http.StatusBadRequest, w.Code)
	decodeBody(t, w, &body)
	assert.Equal(t, "Bad format for datetime: cow", body.Error.Message)
}

func TestFilterValidation(t *testing.T) {
	ts := newTestServer(t)
	seedVMs(t, ts)

	params := url.Values{}
	params.Add("filter[]", "bogus=1")
	w := ts.get("/api/vms?" + params.Encode())
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body testError
	decodeBody(t, w, &body)
	assert.Equal(t, "Must filter on valid attributes for resource", body.Error.Message)

	params = url.Values{}
	params.Add("filter[]", "host.provider.name=x")
	w = ts.get("/api/vms?" + params.Encode())
	assert.Equal(t, http.StatusBadRequest, w.Code)
	decodeBody(t, w, &body)
	assert.Equal(t, "Filtering of attributes with more than one association away is not supported", body.Error.Message)
}

func TestOrFilterSubqueryCount(t *testing.T) {
	ts := newTestServer(t)
	seedVMs(t, ts)

	params := url.Values{}
	params.Add("filter[]", "vendor=vmware")
	params.Add("filter[]", "or vendor=redhat")
	w := ts.get("/api/vms?" + params.Encode())
	assert.Equal(t, http.StatusOK, w.Code)
	var envelope testEnvelope
	decodeBody(t, w, &envelope)
	assert.Equal(t, 4, envelope.Subcount)
	if assert.NotNil(t, envelope.SubqueryCount) {
		assert.Equal(t, 4, *envelope.SubqueryCount)
	}

	// No OR, no subquery_count
	params = url.Values{}
	params.Add("filter[]", "vendor=vmware")
	w = ts.get("/api/vms?" + params.Encode())
	decodeBody(t, w, &envelope)
	assert.Equal(t, 2, envelope.Subcount)
	assert.Nil(t, envelope.SubqueryCount)
}

func TestSortValidation(t *testing.T) {
	ts := newTestServer(t)
	ts.create(t, "services", map[string]interface{}{"name": "web"})

	w := ts.get("/api/services?sort_by=power_state")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body testError
	decodeBody(t, w, &body)
	assert.Equal(t, "Service cannot be sorted by power_state", body.Error.Message)

	// An attribute the descriptor does not know at all gets a
	// different message.
	w = ts.get("/api/vms?sort_by=flavor")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	decodeBody(t, w, &body)
	assert.Equal(t, "flavor is not a valid attribute", body.Error.Message)
}

func TestBulkDeleteOrderingAndIsolation(t *testing.T) {
	ts := newTestServer(t)
	s1 := ts.create(t, "services", map[string]interface{}{"name": "one"})
	s2 := ts.create(t, "services", map[string]interface{}{"name": "two"})
	s3 := ts.create(t, "services", map[string]interface{}{"name": "three"})

	w := ts.post("/api/services", map[string]interface{}{
		"action": "delete",
		"resources": []map[string]interface{}{
			{"id": s1},
			{"id": 0},
			{"id": s3},
		},
	})
	assert.Equal(t, http.StatusOK, w.Code)
	var results testResults
	decodeBody(t, w, &results)
	if assert.Len(t, results.Results, 3) {
		assert.True(t, results.Results[0].Success)
		assert.Equal(t, "services id: 1 deleting", results.Results[0].Message)
		assert.False(t, results.Results[1].Success)
		assert.Equal(t, "Couldn't find Service with 'id'=0", results.Results[1].Message)
		assert.True(t, results.Results[2].Success)
	}

	// The failed middle item did not disturb its neighbors.
	_, err := ts.store.Find("services", s1)
	assert.Error(t, err)
	_, err = ts.store.Find("services", s2)
	assert.NoError(t, err)
	_, err = ts.store.Find("services", s3)
	assert.Error(t, err)
}

func TestCreateValidation(t *testing.T) {
	ts := newTestServer(t)

	w := ts.post("/api/generic_object_definitions", map[string]interface{}{
		"action": "create",
		"resource": map[string]interface{}{
			"name": "LoadBalancer",
			"properties": map[string]interface{}{
				"attributes": map[string]interface{}{"speed": "int"},
			},
		},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body testError
	decodeBody(t, w, &body)
	assert.Equal(t, "bad_request", body.Error.Kind)
	assert.Contains(t, body.Error.Message, "is not a valid attribute type")

	// A valid payload succeeds and the definition is addressable by
	// name afterward.
	w = ts.post("/api/generic_object_definitions", map[string]interface{}{
		"action": "create",
		"resource": map[string]interface{}{
			"name": "LoadBalancer",
			"properties": map[string]interface{}{
				"attributes": map[string]interface{}{"speed": "integer"},
			},
		},
	})
	assert.Equal(t, http.StatusOK, w.Code)
	var result testResult
	decodeBody(t, w, &result)
	assert.True(t, result.Success)
	assert.Equal(t, "/api/generic_object_definitions/1", result.Href)

	w = ts.get("/api/generic_object_definitions/LoadBalancer")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthorizationPrecedence(t *testing.T) {
	ts := newTestServer(t)
	vm := ts.create(t, "vms", map[string]interface{}{"name": "aa"})

	// Wrong password fails with 403, like a missing credential.
	w := ts.do("GET", "/api/vms", nil, "admin", "wrong")
	assert.Equal(t, http.StatusForbidden, w.Code)
	var body testError
	decodeBody(t, w, &body)
	assert.Equal(t, "forbidden", body.Error.Kind)

	// An unauthorized caller gets 403 even for a missing resource:
	// authorization renders before existence.
	w = ts.do("POST", "/api/vms/999999", map[string]interface{}{"action": "delete"}, "bob", "plain")
	assert.Equal(t, http.StatusForbidden, w.Code)

	// The same request from an authorized caller is a 404.
	w = ts.post("/api/vms/999999", map[string]interface{}{"action": "delete"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// An unknown action at a scope the caller can use is a 400, not
	// a 403.
	w = ts.post("/api/vms/1", map[string]interface{}{"action": "approve"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	decodeBody(t, w, &body)
	assert.Equal(t, "Unsupported Action approve for the vms resource specified", body.Error.Message)

	// OPTIONS needs no credential at all.
	w = ts.do("OPTIONS", "/api/vms", nil, "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	_ = vm
}

func TestInvalidCollection(t *testing.T) {
	ts := newTestServer(t)

	w := ts.get("/api/bogus")
	assert.Equal(t, http.StatusNotFound, w.Code)
	var body testError
	decodeBody(t, w, &body)
	assert.Equal(t, "Invalid collection name specified bogus", body.Error.Message)
}

func TestProviderClass(t *testing.T) {
	ts := newTestServer(t)
	ts.create(t, "providers", map[string]interface{}{"name": "vsphere"})

	w := ts.get("/api/providers?provider_class=provider")
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.get("/api/providers?provider_class=storage_manager")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body testError
	decodeBody(t, w, &body)
	assert.Equal(t, "Invalid provider_class storage_manager specified", body.Error.Message)
}

func TestCollectionClass(t *testing.T) {
	ts := newTestServer(t)
	seedVMs(t, ts)

	w := ts.get("/api/vms?collection_class=Vm")
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.get("/api/vms?collection_class=bogus")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body testError
	decodeBody(t, w, &body)
	assert.Equal(t, "Invalid collection_class bogus specified for the vms collection", body.Error.Message)
}

func TestRootListsCollections(t *testing.T) {
	ts := newTestServer(t)

	w := ts.get("/api")
	assert.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Name        string                   `json:"name"`
		Collections []map[string]interface{} `json:"collections"`
	}
	decodeBody(t, w, &body)
	assert.NotEmpty(t, body.Collections)
	names := map[string]bool{}
	for _, entry := range body.Collections {
		names[entry["name"].(string)] = true
	}
	assert.True(t, names["vms"])
	assert.True(t, names["services"])
	assert.True(t, names["generic_object_definitions"])
}

func TestCompressedIDs(t *testing.T) {
	store := memory.NewWithRegion(2)
	config, err := auth.ParseConfig([]byte(testSettings))
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	provider, err := auth.NewProvider(config, store)
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	server := &Server{
		Registry: registry.New(),
		Store:    store,
		Tags:     tags.NewService(tags.DefaultCategories()),
		Tasks:    &task.Queue{Store: store, Clock: clock.NewMock()},
		Auth:     provider,
	}
	ts := &testServer{store: store, router: NewRouter(server)}

	id := ts.create(t, "vms", map[string]interface{}{"name": "aa"})
	w := ts.get("/api/vms")
	assert.Equal(t, http.StatusOK, w.Code)
	var envelope testEnvelope
	decodeBody(t, w, &envelope)
	// users records occupy the first ids in the region
	if assert.NotEmpty(t, envelope.Resources) {
		href := envelope.Resources[0]["href"].(string)
		assert.Contains(t, href, "/api/vms/2r")
	}

	// The compressed form resolves back to the same record.
	w = ts.get("/api/vms/" + envelope.Resources[0]["id"].(string))
	assert.Equal(t, http.StatusOK, w.Code)
	var resource map[string]interface{}
	decodeBody(t, w, &resource)
	assert.Equal(t, "aa", resource["name"])
	_ = id
}
