// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/diffeo/go-mgmtapi/mgmtapi"
)

var requestCount = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "diffeo",
		Subsystem: "mgmtapi",
		Name:      "requests_total",
		Help:      "Count of HTTP requests by method and status",
	},
	[]string{
		"method",
		"status",
	},
)

var collectionSize = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "diffeo",
		Subsystem: "mgmtapi",
		Name:      "collection_size",
		Help:      "Number of records in each collection",
	},
	[]string{
		"collection",
	},
)

func init() {
	prometheus.MustRegister(requestCount)
	prometheus.MustRegister(collectionSize)
}

func observe(store mgmtapi.Storage, reg *mgmtapi.Registry) {
	for {
		for _, name := range reg.Names() {
			records, err := store.List(name)
			if err != nil {
				continue
			}
			collectionSize.With(prometheus.Labels{
				"collection": name,
			}).Set(float64(len(records)))
		}
		time.Sleep(15 * time.Second)
	}
}
