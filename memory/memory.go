// Copyright 2016 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package memory provides an in-process, in-memory implementation of
// the storage contract.  There is no persistence.  The entire system
// is behind a single global semaphore to protect against concurrent
// updates; in some cases this can limit performance in the name of
// correctness.
//
// This is mostly intended as a simple reference implementation that
// can be used for testing, including in-process testing of
// higher-level components.  It is generally tuned for correctness,
// not performance or scalability.
package memory

import (
	"sort"
	"sync"

	"github.com/diffeo/go-mgmtapi/mgmtapi"
)

// Store is an in-memory storage backend.  Each collection keeps its
// own id sequence, started at the region's number base so that ids
// compress to the expected "<region>r<short>" form.
type Store struct {
	sem         sync.Mutex
	region      uint64
	collections map[string]*collection
}

type collection struct {
	nextID  uint64
	records map[uint64]*mgmtapi.Record
}

// New creates a storage backend that operates purely in memory, in
// region 0.
func New() *Store {
	return NewWithRegion(0)
}

// NewWithRegion creates an in-memory backend whose id sequences start
// in the given region's number space.
func NewWithRegion(region uint64) *Store {
	return &Store{
		region:      region,
		collections: make(map[string]*collection),
	}
}

// coll returns a collection, creating it on first use.  Caller holds
// the global lock.
func (s *Store) coll(name string) *collection {
	c := s.collections[name]
	if c == nil {
		c = &collection{
			nextID:  mgmtapi.RegionBase(s.region),
			records: make(map[uint64]*mgmtapi.Record),
		}
		s.collections[name] = c
	}
	return c
}

// List returns every record in a collection in id order.  An unknown
// collection returns an empty list.
func (s *Store) List(name string) ([]*mgmtapi.Record, error) {
	s.sem.Lock()
	defer s.sem.Unlock()

	c := s.coll(name)
	out := make([]*mgmtapi.Record, 0, len(c.records))
	for _, rec := range c.records {
		out = append(out, rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Find returns the record with the given id, or ErrNotFound.
func (s *Store) Find(name string, id uint64) (*mgmtapi.Record, error) {
	s.sem.Lock()
	defer s.sem.Unlock()

	rec, ok := s.coll(name).records[id]
	if !ok {
		return nil, mgmtapi.ErrNotFound
	}
	return rec.Clone(), nil
}

// FindByName returns the first record in id order whose "name"
// attribute matches, or ErrNotFound.
func (s *Store) FindByName(name, recordName string) (*mgmtapi.Record, error) {
	s.sem.Lock()
	defer s.sem.Unlock()

	c := s.coll(name)
	var found *mgmtapi.Record
	for _, rec := range c.records {
		if rec.Name() != recordName {
			continue
		}
		if found == nil || rec.ID < found.ID {
			found = rec
		}
	}
	if found == nil {
		return nil, mgmtapi.ErrNotFound
	}
	return found.Clone(), nil
}

// Create inserts a new record, assigning the next id in the
// collection's sequence, and returns it.
func (s *Store) Create(name string, attrs map[string]interface{}) (*mgmtapi.Record, error) {
	s.sem.Lock()
	defer s.sem.Unlock()

	c := s.coll(name)
	c.nextID++
	rec := &mgmtapi.Record{
		ID:    c.nextID,
		Attrs: make(map[string]interface{}, len(attrs)),
	}
	for k, v := range attrs {
		if v != nil {
			rec.Attrs[k] = v
		}
	}
	c.records[rec.ID] = rec
	return rec.Clone(), nil
}

// Update merges the given attributes into an existing record and
// returns the updated record.  A nil attribute value deletes the
// attribute.
func (s *Store) Update(name string, id uint64, attrs map[string]interface{}) (*mgmtapi.Record, error) {
	s.sem.Lock()
	defer s.sem.Unlock()

	rec, ok := s.coll(name).records[id]
	if !ok {
		return nil, mgmtapi.ErrNotFound
	}
	for k, v := range attrs {
		if v == nil {
			delete(rec.Attrs, k)
		} else {
			rec.Attrs[k] = v
		}
	}
	return rec.Clone(), nil
}

// Delete removes a record, or returns ErrNotFound.
func (s *Store) Delete(name string, id uint64) error {
	s.sem.Lock()
	defer s.sem.Unlock()

	c := s.coll(name)
	if _, ok := c.records[id]; !ok {
		return mgmtapi.ErrNotFound
	}
	delete(c.records, id)
	return nil
}
