// Copyright 2016 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/diffeo/go-mgmtapi/mgmtapi"
)

func TestCreateAssignsSequentialIDs(t *testing.T) {
	s := New()
	a, err := s.Create("vms", map[string]interface{}{"name": "aa"})
	if !assert.NoError(t, err) {
		return
	}
	b, err := s.Create("vms", map[string]interface{}{"name": "bb"})
	if !assert.NoError(t, err) {
		return
	}
	assert.Equal(t, a.ID+1, b.ID)

	// Sequences are per collection
	c, err := s.Create("services", map[string]interface{}{"name": "cc"})
	if assert.NoError(t, err) {
		assert.Equal(t, a.ID, c.ID)
	}
}

func TestRegionIDSpace(t *testing.T) {
	s := NewWithRegion(2)
	rec, err := s.Create("vms", map[string]interface{}{"name": "aa"})
	if assert.NoError(t, err) {
		assert.Equal(t, uint64(2000000000001), rec.ID)
		assert.Equal(t, "2r1", mgmtapi.CompressID(rec.ID))
	}
}

func TestFind(t *testing.T) {
	s := New()
	created, _ := s.Create("vms", map[string]interface{}{"name": "aa"})

	rec, err := s.Find("vms", created.ID)
	if assert.NoError(t, err) {
		assert.Equal(t, "aa", rec.Name())
	}

	_, err = s.Find("vms", created.ID+1)
	assert.Equal(t, mgmtapi.ErrNotFound, err)

	_, err = s.Find("services", created.ID)
	assert.Equal(t, mgmtapi.ErrNotFound, err)
}

func TestFindByName(t *testing.T) {
	s := New()
	first, _ := s.Create("vms", map[string]interface{}{"name": "aa"})
	s.Create("vms", map[string]interface{}{"name": "aa"})

	// The lowest id wins when names are duplicated
	rec, err := s.FindByName("vms", "aa")
	if assert.NoError(t, err) {
		assert.Equal(t, first.ID, rec.ID)
	}

	_, err = s.FindByName("vms", "zz")
	assert.Equal(t, mgmtapi.ErrNotFound, err)
}

func TestListOrdered(t *testing.T) {
	s := New()
	s.Create("vms", map[string]interface{}{"name": "cc"})
	s.Create("vms", map[string]interface{}{"name": "aa"})
	s.Create("vms", map[string]interface{}{"name": "bb"})

	recs, err := s.List("vms")
	if assert.NoError(t, err) && assert.Len(t, recs, 3) {
		assert.True(t, recs[0].ID < recs[1].ID)
		assert.True(t, recs[1].ID < recs[2].ID)
	}

	recs, err = s.List("unknown")
	if assert.NoError(t, err) {
		assert.Empty(t, recs)
	}
}

func TestUpdateMergesAndDeletes(t *testing.T) {
	s := New()
	created, _ := s.Create("vms", map[string]interface{}{
		"name":   "aa",
		"vendor": "vmware",
	})

	rec, err := s.Update("vms", created.ID, map[string]interface{}{
		"name":   "bb",
		"vendor": nil,
		"cpus":   4,
	})
	if assert.NoError(t, err) {
		assert.Equal(t, "bb", rec.Name())
		assert.Equal(t, 4, rec.Attrs["cpus"])
		_, ok := rec.Attr("vendor")
		assert.False(t, ok)
	}

	_, err = s.Update("vms", created.ID+1, map[string]interface{}{"name": "x"})
	assert.Equal(t, mgmtapi.ErrNotFound, err)
}

func TestDelete(t *testing.T) {
	s := New()
	created, _ := s.Create("vms", map[string]interface{}{"name": "aa"})

	assert.NoError(t, s.Delete("vms", created.ID))
	_, err := s.Find("vms", created.ID)
	assert.Equal(t, mgmtapi.ErrNotFound, err)
	assert.Equal(t, mgmtapi.ErrNotFound, s.Delete("vms", created.ID))
}

func TestRecordsAreIsolated(t *testing.T) {
	s := New()
	created, _ := s.Create("vms", map[string]interface{}{"name": "aa"})

	// Mutating a returned record must not affect the store
	rec, _ := s.Find("vms", created.ID)
	rec.Attrs["name"] = "mutated"

	fresh, _ := s.Find("vms", created.ID)
	assert.Equal(t, "aa", fresh.Name())
}
