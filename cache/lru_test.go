// Copyright 2016 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/diffeo/go-mgmtapi/filter"
)

func parseOne(key string) (*filter.Expression, error) {
	return filter.Parse([]string{key})
}

func failParse(key string) (*filter.Expression, error) {
	return nil, assert.AnError
}

type CacheAssertions struct {
	*assert.Assertions
	Cache *Cache
}

func NewCacheAssertions(t assert.TestingT, size int) *CacheAssertions {
	return &CacheAssertions{
		assert.New(t),
		New(size),
	}
}

// GetKey fetches an expression from the cache; if not present, it is
// parsed and added.
func (a *CacheAssertions) GetKey(key string) {
	expr, err := a.Cache.Get(key, parseOne)
	if a.NoError(err) && a.NotNil(expr) {
		a.Len(expr.Conditions, 1)
	}
}

// GetPresent fetches an expression that must already be cached; the
// parse function would fail if called.
func (a *CacheAssertions) GetPresent(key string) {
	expr, err := a.Cache.Get(key, failParse)
	if a.NoError(err) {
		a.NotNil(expr)
	}
}

// GetError tries to fetch an expression that is not cached, with a
// parse function that fails.
func (a *CacheAssertions) GetError(key string) {
	_, err := a.Cache.Get(key, failParse)
	a.Error(err)
}

// CacheHas asserts that an expression with key is in the cache.
func (a *CacheAssertions) CacheHas(key string) {
	a.NotNil(a.Cache.Peek(key))
}

// CacheDoesNotHave asserts that no expression with key is in the cache.
func (a *CacheAssertions) CacheDoesNotHave(key string) {
	a.Nil(a.Cache.Peek(key))
}

func TestCacheAutoInsert(t *testing.T) {
	a := NewCacheAssertions(t, 2)

	a.GetKey("name='aa%'")
	a.GetKey("vendor=vmware")
	a.CacheHas("name='aa%'")
	a.CacheHas("vendor=vmware")

	// A third key evicts the oldest
	a.GetKey("id>5")
	a.CacheDoesNotHave("name='aa%'")
	a.CacheHas("vendor=vmware")
	a.CacheHas("id>5")
}

func TestCacheParseError(t *testing.T) {
	a := NewCacheAssertions(t, 2)

	a.GetKey("name='aa%'")
	a.GetKey("vendor=vmware")

	// A failed parse adds nothing and evicts nothing
	a.GetError("id>5")
	a.CacheHas("name='aa%'")
	a.CacheHas("vendor=vmware")
	a.CacheDoesNotHave("id>5")

	a.GetPresent("name='aa%'")
}

func TestCacheOrder(t *testing.T) {
	a := NewCacheAssertions(t, 2)

	a.GetKey("name='aa%'")
	a.GetKey("vendor=vmware")

	// An additional get makes the first key more recently used
	a.GetKey("name='aa%'")

	a.GetKey("id>5")
	a.CacheHas("name='aa%'")
	a.CacheDoesNotHave("vendor=vmware")
}

func TestCacheRemoval(t *testing.T) {
	a := NewCacheAssertions(t, 2)

	a.GetKey("name='aa%'")
	a.CacheHas("name='aa%'")
	a.Cache.Remove("name='aa%'")
	a.CacheDoesNotHave("name='aa%'")

	a.Cache.Remove("vendor=vmware")
	a.CacheDoesNotHave("vendor=vmware")
}
