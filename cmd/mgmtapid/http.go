// Copyright 2015 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/go-cloud/health"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/urfave/negroni"

	"github.com/diffeo/go-mgmtapi/mgmtapi"
	"github.com/diffeo/go-mgmtapi/restserver"
)

// ServeHTTP runs the HTTP server on the specified local address.
// This serves connections forever.  Panics on any error in the
// initial setup or in accepting connections.
func ServeHTTP(server *restserver.Server, store mgmtapi.Storage, laddr string, reqLogger *logrus.Logger) {
	r := mux.NewRouter()
	restserver.PopulateRouter(r, server)
	r.Handle("/metrics", promhttp.Handler())

	healthHandler := health.Handler{}
	if checker, ok := store.(health.Checker); ok {
		healthHandler.Add(checker)
	}
	r.Handle("/healthz", &healthHandler)

	n := negroni.New(negroni.NewRecovery())
	n.Use(countRequests())
	if reqLogger != nil {
		n.Use(requestLogger(reqLogger))
	}
	n.UseHandler(r)

	if err := http.ListenAndServe(laddr, n); err != nil {
		panic(err)
	}
}

// countRequests builds a negroni middleware that counts every request
// by method and response status.
func countRequests() negroni.Handler {
	return negroni.HandlerFunc(func(rw http.ResponseWriter, req *http.Request, next http.HandlerFunc) {
		next(rw, req)
		status := "unknown"
		if res, ok := rw.(negroni.ResponseWriter); ok {
			status = strconv.Itoa(res.Status())
		}
		requestCount.With(prometheus.Labels{
			"method": req.Method,
			"status": status,
		}).Inc()
	})
}

// requestLogger builds a negroni middleware that logs one line per
// request at debug level.
func requestLogger(logger *logrus.Logger) negroni.Handler {
	return negroni.HandlerFunc(func(rw http.ResponseWriter, req *http.Request, next http.HandlerFunc) {
		start := time.Now()
		next(rw, req)
		fields := logrus.Fields{
			"method":   req.Method,
			"path":     req.URL.Path,
			"duration": time.Since(start),
		}
		if res, ok := rw.(negroni.ResponseWriter); ok {
			fields["status"] = res.Status()
		}
		logger.WithFields(fields).Debug("request")
	})
}
