// Copyright 2015 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/diffeo/go-mgmtapi/auth"
	"github.com/diffeo/go-mgmtapi/cache"
	"github.com/diffeo/go-mgmtapi/mgmtapi"
)

// Server bundles the collaborators the REST engine runs against.
type Server struct {
	// Registry is the collection descriptor table.
	Registry *mgmtapi.Registry

	// Store is the persistence backend.
	Store mgmtapi.Storage

	// Tags is the classification service.
	Tags mgmtapi.Tagger

	// Tasks is the asynchronous task queue.
	Tasks mgmtapi.TaskQueue

	// Auth authenticates credentials and supplies identities.
	Auth *auth.Provider

	// MaxPageSize caps the limit query parameter; requests above it
	// (or with no limit at all) are clamped.  Zero means unlimited.
	MaxPageSize int

	// Logger, if set, records dispatch failures.
	Logger *logrus.Logger
}

// NewRouter creates a new HTTP handler that processes all management
// API requests, rooted at /api.  For more control over this setup,
// create a mux.Router and call PopulateRouter instead.
func NewRouter(s *Server) http.Handler {
	r := mux.NewRouter()
	PopulateRouter(r, s)
	return r
}

// PopulateRouter adds the API routes to an existing
// github.com/gorilla/mux router object.
func PopulateRouter(r *mux.Router, s *Server) {
	api := &restAPI{Server: s, filters: cache.New(filterCacheSize)}
	api.PopulateRouter(r)
}

// filterCacheSize bounds the parsed-filter LRU.  Dashboards poll a
// small set of distinct filter strings; this is plenty.
const filterCacheSize = 256

// restAPI holds the persistent state for the REST engine.
type restAPI struct {
	*Server
	filters *cache.Cache
}

// PopulateRouter adds all API URL paths to a router.
func (api *restAPI) PopulateRouter(r *mux.Router) {
	r.Path("/api").Name("root").Handler(&resourceHandler{
		Context: api.Context,
		Get:     api.RootGet,
		Options: api.RootGet,
	})
	r.Path("/api/{collection}").Name("collection").Handler(&resourceHandler{
		Context: api.Context,
		Get:     api.CollectionGet,
		Post:    api.CollectionPost,
		Options: api.CollectionOptions,
	})
	r.Path("/api/{collection}/{id}").Name("resource").Handler(&resourceHandler{
		Context: api.Context,
		Get:     api.ResourceGet,
		Post:    api.ResourcePost,
		Put:     api.ResourcePut,
		Patch:   api.ResourcePatch,
		Delete:  api.ResourceDelete,
		Options: api.CollectionOptions,
	})
	r.Path("/api/{collection}/{id}/{sub}").Name("subcollection").Handler(&resourceHandler{
		Context: api.Context,
		Get:     api.SubcollectionGet,
		Post:    api.SubcollectionPost,
	})
	r.Path("/api/{collection}/{id}/{sub}/{sid}").Name("subresource").Handler(&resourceHandler{
		Context: api.Context,
		Get:     api.SubresourceGet,
		Post:    api.SubresourcePost,
		Delete:  api.SubresourceDelete,
	})
}
