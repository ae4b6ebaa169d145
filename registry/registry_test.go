// Copyright 2016 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/diffeo/go-mgmtapi/mgmtapi"
)

func TestAllCollectionsRegistered(t *testing.T) {
	reg := New()
	for _, name := range []string{
		"providers", "vms", "hosts",
		"services", "service_templates", "service_dialogs",
		"service_orders", "service_requests", "users",
		"policies", "policy_profiles",
		"generic_object_definitions", "generic_objects",
		"custom_attributes", "tasks",
	} {
		_, ok := reg.Collection(name)
		assert.True(t, ok, "collection %s", name)
	}
	_, ok := reg.Collection("flavors")
	assert.False(t, ok)
}

func TestIdentifiers(t *testing.T) {
	assert.Equal(t, "vm_start", ident("vms", "start"))
	assert.Equal(t, "policy_edit", ident("policies", "edit"))
	assert.Equal(t, "service_show_list", readIdent("services"))
	assert.Equal(t, "generic_object_definition_create", ident("generic_object_definitions", "create"))
}

func TestActionTable(t *testing.T) {
	reg := New()
	vms, _ := reg.Collection("vms")

	start, ok := vms.Action("start", mgmtapi.ResourceScope)
	if assert.True(t, ok) {
		assert.Equal(t, "vm_start", start.Identifier)
		assert.True(t, start.Async)
	}

	del, ok := vms.Action("delete", mgmtapi.CollectionScope)
	if assert.True(t, ok) {
		assert.Equal(t, "vm_delete", del.Identifier)
		assert.False(t, del.Async)
	}

	_, ok = vms.Action("approve", mgmtapi.ResourceScope)
	assert.False(t, ok)

	assign, ok := vms.Action("assign", mgmtapi.SubcollectionScope)
	if assert.True(t, ok) {
		assert.Equal(t, "vm_tag_assign", assign.Identifier)
	}
}

func TestSubcollections(t *testing.T) {
	reg := New()
	providers, _ := reg.Collection("providers")
	sub, ok := providers.Subcollections["vms"]
	if assert.True(t, ok) {
		assert.Equal(t, "vms", sub.Collection)
		assert.Equal(t, "provider_id", sub.ForeignKey)
		assert.True(t, sub.Filterable)
	}

	services, _ := reg.Collection("services")
	sub, ok = services.Subcollections["vms"]
	if assert.True(t, ok) {
		assert.False(t, sub.Filterable)
	}

	profiles, _ := reg.Collection("policy_profiles")
	sub, ok = profiles.Subcollections["policies"]
	if assert.True(t, ok) {
		assert.Equal(t, "policy_profile_ids", sub.MemberKey)
		assert.Empty(t, sub.ForeignKey)
	}

	// tags is synthetic: no backing collection
	vms, _ := reg.Collection("vms")
	sub, ok = vms.Subcollections["tags"]
	if assert.True(t, ok) {
		assert.Empty(t, sub.Collection)
	}
}

func TestDatetimeAttributes(t *testing.T) {
	reg := New()
	vms, _ := reg.Collection("vms")
	assert.Equal(t, mgmtapi.DateTimeAttr, vms.Attributes["retires_on"])
	assert.Equal(t, mgmtapi.DateTimeAttr, vms.Attributes["created_at"])
}

func TestDefinitionValidation(t *testing.T) {
	err := validateDefinition(map[string]interface{}{
		"name": "widget",
		"properties": map[string]interface{}{
			"attributes": map[string]interface{}{"last_restart": "datetime"},
		},
	}, nil)
	assert.NoError(t, err)

	err = validateDefinition(map[string]interface{}{
		"name": "widget",
		"properties": map[string]interface{}{
			"attributes": map[string]interface{}{"last_restart": "date"},
		},
	}, nil)
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "Validation failed")
	}

	err = validateDefinition(map[string]interface{}{}, nil)
	assert.Error(t, err)
}

func TestOwnershipScoping(t *testing.T) {
	reg := New()
	orders, _ := reg.Collection("service_orders")
	assert.Equal(t, "user_id", orders.OwnerKey)
	assert.Equal(t, "service_order_admin", orders.AdminIdentifier)

	requests, _ := reg.Collection("service_requests")
	assert.Equal(t, "requester_id", requests.OwnerKey)
	assert.Equal(t, "service_request_approve", requests.AdminIdentifier)

	vms, _ := reg.Collection("vms")
	assert.Empty(t, vms.OwnerKey)
}

func TestServicePowerState(t *testing.T) {
	store := &fakeStore{vms: []*mgmtapi.Record{
		{ID: 1, Attrs: map[string]interface{}{"service_id": uint64(10), "power_state": "on"}},
		{ID: 2, Attrs: map[string]interface{}{"service_id": uint64(10), "power_state": "off"}},
		{ID: 3, Attrs: map[string]interface{}{"service_id": uint64(11), "power_state": "on"}},
	}}
	service := &mgmtapi.Record{ID: 10}
	assert.Equal(t, "partial", servicePowerState(service, store))
	service = &mgmtapi.Record{ID: 11}
	assert.Equal(t, "on", servicePowerState(service, store))
	service = &mgmtapi.Record{ID: 12}
	assert.Nil(t, servicePowerState(service, store))
}

type fakeStore struct {
	vms []*mgmtapi.Record
}

func (s *fakeStore) List(collection string) ([]*mgmtapi.Record, error) {
	if collection == "vms" {
		return s.vms, nil
	}
	return nil, nil
}

func (s *fakeStore) Find(collection string, id uint64) (*mgmtapi.Record, error) {
	return nil, mgmtapi.ErrNotFound
}

func (s *fakeStore) FindByName(collection, name string) (*mgmtapi.Record, error) {
	return nil, mgmtapi.ErrNotFound
}

func (s *fakeStore) Create(collection string, attrs map[string]interface{}) (*mgmtapi.Record, error) {
	return nil, mgmtapi.ErrNotFound
}

func (s *fakeStore) Update(collection string, id uint64, attrs map[string]interface{}) (*mgmtapi.Record, error) {
	return nil, mgmtapi.ErrNotFound
}

func (s *fakeStore) Delete(collection string, id uint64) error {
	return mgmtapi.ErrNotFound
}
