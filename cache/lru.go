// Copyright 2016 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package cache provides a small LRU cache for parsed filter
// expressions.  Filter strings repeat heavily across requests (the
// same dashboards poll the same queries) and parsing plus validation
// is pure, so the query layer caches expressions keyed by the raw
// filter[] values.
package cache

import (
	"container/list"
	"sync"

	"github.com/diffeo/go-mgmtapi/filter"
)

type entry struct {
	key  string
	expr *filter.Expression
}

// Cache is a least-recently-used cache with a fixed capacity.  It can
// be safely accessed from multiple goroutines.
type Cache struct {
	size      int
	lock      sync.RWMutex
	evictList *list.List
	index     map[string]*list.Element
}

// New creates a cache holding at most size expressions.
func New(size int) *Cache {
	return &Cache{
		size:      size,
		evictList: list.New(),
		index:     make(map[string]*list.Element),
	}
}

// Get retrieves an expression from the cache.  If it is not present,
// calls the parse function, and if that succeeds, saves the expression
// and returns it.  This should return an error only if the expression
// is not present and the parse function returns an error.
func (c *Cache) Get(key string, parse func(string) (*filter.Expression, error)) (*filter.Expression, error) {
	// This sadly happens under a writer lock, since we need to move
	// the item to the back of the list if it is present
	c.lock.Lock()
	defer c.lock.Unlock()

	if element, present := c.index[key]; present {
		c.evictList.MoveToBack(element)
		return element.Value.(entry).expr, nil
	}

	expr, err := parse(key)
	if err != nil {
		return expr, err
	}
	c.add(entry{key: key, expr: expr})
	return expr, nil
}

// Peek looks for an expression in the cache and returns it if present,
// or returns nil if absent.  This runs under a reader lock, and so can
// run concurrently with itself but not calls to Get or Remove.  This
// does not affect the recency of the item.
func (c *Cache) Peek(key string) *filter.Expression {
	c.lock.RLock()
	defer c.lock.RUnlock()

	if element, present := c.index[key]; present {
		return element.Value.(entry).expr
	}
	return nil
}

// Remove takes an expression out of the cache.  It does nothing if
// that key does not exist.
func (c *Cache) Remove(key string) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if element, present := c.index[key]; present {
		delete(c.index, key)
		c.evictList.Remove(element)
	}
}

// add is an internal helper, running under the write lock, that adds a
// new entry to the cache.  The entry is known to not already exist.
func (c *Cache) add(e entry) {
	element := c.evictList.PushBack(e)
	c.index[e.key] = element

	// If this caused the cache to go over size, start evicting items
	for len(c.index) > c.size {
		head := c.evictList.Front()
		evicted := head.Value.(entry)
		delete(c.index, evicted.key)
		c.evictList.Remove(head)
	}
}
