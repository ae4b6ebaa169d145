// Copyright 2016 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package tags implements the classification collaborator: a registry
// of tag categories and an assignment table mapping (collection, id)
// pairs to sets of tag paths.  Tag paths have the canonical form
// /managed/<category>/<name>.
//
// The implementation is entirely in memory behind one mutex, in the
// same style as the memory storage backend.  Assignment state is not
// persisted; the daemon seeds categories at boot.
package tags

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/diffeo/go-mgmtapi/mgmtapi"
)

// Service is an in-memory tag registry and assignment table.  It can
// be safely accessed from multiple goroutines.
type Service struct {
	mutex      sync.Mutex
	categories map[string]map[string]bool
	assigned   map[string]map[string]bool
}

// NewService creates a tag service with the given categories, each
// mapped to its allowed tag names.
func NewService(categories map[string][]string) *Service {
	s := &Service{
		categories: make(map[string]map[string]bool),
		assigned:   make(map[string]map[string]bool),
	}
	for category, names := range categories {
		s.categories[category] = make(map[string]bool)
		for _, name := range names {
			s.categories[category][name] = true
		}
	}
	return s
}

// DefaultCategories are the classifications seeded when no explicit
// configuration is given.
func DefaultCategories() map[string][]string {
	return map[string][]string{
		"department":  {"accounting", "finance", "operations"},
		"environment": {"dev", "test", "prod"},
		"location":    {"chicago", "new_york", "london"},
	}
}

// Path composes the canonical tag path for a category and tag name.
func Path(category, name string) string {
	return fmt.Sprintf("/managed/%s/%s", category, name)
}

// SplitPath breaks a canonical tag path into category and name.
func SplitPath(path string) (category, name string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 || parts[0] != "managed" || parts[1] == "" || parts[2] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

// ResolveTag maps a category and tag name to a full tag path, or
// returns mgmtapi.ErrNotFound if the category or tag does not exist.
func (s *Service) ResolveTag(category, name string) (string, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	names, ok := s.categories[category]
	if !ok || !names[name] {
		return "", mgmtapi.ErrNotFound
	}
	return Path(category, name), nil
}

// Assign adds a tag path to a resource.  Returns true if the tag was
// newly assigned, false if it was already present.
func (s *Service) Assign(collection string, id uint64, path string) (bool, error) {
	if err := s.checkPath(path); err != nil {
		return false, err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()

	key := resourceKey(collection, id)
	if s.assigned[key] == nil {
		s.assigned[key] = make(map[string]bool)
	}
	if s.assigned[key][path] {
		return false, nil
	}
	s.assigned[key][path] = true
	return true, nil
}

// Unassign removes a tag path from a resource.  Returns true if the
// tag was present, false if it was not (which is not an error).
func (s *Service) Unassign(collection string, id uint64, path string) (bool, error) {
	if err := s.checkPath(path); err != nil {
		return false, err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()

	key := resourceKey(collection, id)
	if !s.assigned[key][path] {
		return false, nil
	}
	delete(s.assigned[key], path)
	return true, nil
}

// Tags lists the tag paths assigned to a resource, sorted.
func (s *Service) Tags(collection string, id uint64) ([]string, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	paths := make([]string, 0, len(s.assigned[resourceKey(collection, id)]))
	for path := range s.assigned[resourceKey(collection, id)] {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths, nil
}

// checkPath verifies a path names a registered category and tag.
func (s *Service) checkPath(path string) error {
	category, name, ok := SplitPath(path)
	if !ok {
		return mgmtapi.ErrNotFound
	}
	_, err := s.ResolveTag(category, name)
	return err
}

func resourceKey(collection string, id uint64) string {
	return fmt.Sprintf("%s/%d", collection, id)
}
