// Copyright 2016 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package tags

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/diffeo/go-mgmtapi/mgmtapi"
)

func TestResolveTag(t *testing.T) {
	s := NewService(DefaultCategories())

	path, err := s.ResolveTag("department", "finance")
	if assert.NoError(t, err) {
		assert.Equal(t, "/managed/department/finance", path)
	}

	_, err = s.ResolveTag("department", "sales")
	assert.Equal(t, mgmtapi.ErrNotFound, err)

	_, err = s.ResolveTag("color", "red")
	assert.Equal(t, mgmtapi.ErrNotFound, err)
}

func TestSplitPath(t *testing.T) {
	category, name, ok := SplitPath("/managed/department/finance")
	if assert.True(t, ok) {
		assert.Equal(t, "department", category)
		assert.Equal(t, "finance", name)
	}

	for _, bad := range []string{"", "/managed", "/managed/department", "/other/a/b"} {
		_, _, ok := SplitPath(bad)
		assert.False(t, ok, "path %q", bad)
	}
}

func TestAssignUnassign(t *testing.T) {
	s := NewService(DefaultCategories())
	path := Path("department", "finance")

	added, err := s.Assign("vms", 1, path)
	if assert.NoError(t, err) {
		assert.True(t, added)
	}

	// Assigning again is not an error but reports no change
	added, err = s.Assign("vms", 1, path)
	if assert.NoError(t, err) {
		assert.False(t, added)
	}

	paths, err := s.Tags("vms", 1)
	if assert.NoError(t, err) {
		assert.Equal(t, []string{path}, paths)
	}

	removed, err := s.Unassign("vms", 1, path)
	if assert.NoError(t, err) {
		assert.True(t, removed)
	}

	// Unassigning a tag that is not present reports no change
	removed, err = s.Unassign("vms", 1, path)
	if assert.NoError(t, err) {
		assert.False(t, removed)
	}

	paths, err = s.Tags("vms", 1)
	if assert.NoError(t, err) {
		assert.Empty(t, paths)
	}
}

func TestAssignUnknownTag(t *testing.T) {
	s := NewService(DefaultCategories())
	_, err := s.Assign("vms", 1, "/managed/department/sales")
	assert.Equal(t, mgmtapi.ErrNotFound, err)
	_, err = s.Assign("vms", 1, "garbage")
	assert.Equal(t, mgmtapi.ErrNotFound, err)
}

func TestAssignmentsAreScoped(t *testing.T) {
	s := NewService(DefaultCategories())
	path := Path("environment", "prod")

	_, err := s.Assign("vms", 1, path)
	assert.NoError(t, err)

	// Same id in a different collection is a different resource
	paths, err := s.Tags("services", 1)
	if assert.NoError(t, err) {
		assert.Empty(t, paths)
	}

	paths, err = s.Tags("vms", 2)
	if assert.NoError(t, err) {
		assert.Empty(t, paths)
	}
}

func TestTagsSorted(t *testing.T) {
	s := NewService(DefaultCategories())
	s.Assign("vms", 1, Path("location", "new_york"))
	s.Assign("vms", 1, Path("department", "finance"))
	s.Assign("vms", 1, Path("environment", "dev"))

	paths, err := s.Tags("vms", 1)
	if assert.NoError(t, err) {
		assert.Equal(t, []string{
			"/managed/department/finance",
			"/managed/environment/dev",
			"/managed/location/new_york",
		}, paths)
	}
}
