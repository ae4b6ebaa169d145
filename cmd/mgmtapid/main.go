// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package mgmtapid provides the management REST API daemon.  It
// serves the collection, resource, and action surface over HTTP,
// backed by either the in-memory or the PostgreSQL storage backend.
package main

import (
	"flag"
	"io/ioutil"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/diffeo/go-mgmtapi/auth"
	"github.com/diffeo/go-mgmtapi/backend"
	"github.com/diffeo/go-mgmtapi/registry"
	"github.com/diffeo/go-mgmtapi/restserver"
	"github.com/diffeo/go-mgmtapi/tags"
	"github.com/diffeo/go-mgmtapi/task"
)

// settings is the top-level layout of the -config YAML file.  The
// roles and users blocks sit at the top level alongside the server
// options.
type settings struct {
	// Region selects the id number space for new records.
	Region uint64 `yaml:"region"`

	// MaxResultsPerPage caps the limit query parameter; requests
	// above it (or with no limit at all) are clamped.
	MaxResultsPerPage int `yaml:"max_results_per_page"`

	// TagCategories seeds the classification taxonomy.  The
	// built-in categories are used when empty.
	TagCategories map[string][]string `yaml:"tag_categories"`

	// Auth holds the roles and users blocks.
	Auth auth.Config `yaml:",inline"`
}

func main() {
	httpBind := flag.String("http", ":5980",
		"[ip]:port for HTTP REST interface")
	storage := backend.Backend{Implementation: "memory", Address: ""}
	flag.Var(&storage, "backend", "impl[:address] of the storage backend")
	config := flag.String("config", "", "server settings YAML file")
	logRequests := flag.Bool("log-requests", false, "log all requests")
	flag.Parse()

	conf := settings{MaxResultsPerPage: 1000}
	if *config != "" {
		if err := loadSettingsYaml(*config, &conf); err != nil {
			logrus.WithFields(logrus.Fields{
				"err": err,
			}).Fatal("Could not load YAML configuration")
			return
		}
	}
	if len(conf.Auth.Users) == 0 {
		logrus.Warn("No users configured; allowing admin/smartvm")
		conf.Auth.Roles = map[string][]string{"administrator": {"*"}}
		conf.Auth.Users = []auth.UserConfig{{
			Name:     "admin",
			Password: "smartvm",
			Role:     "administrator",
		}}
	}

	store, err := storage.Store(conf.Region)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"err": err,
		}).Fatal("Could not create storage backend")
		return
	}

	provider, err := auth.NewProvider(conf.Auth, store)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"err": err,
		}).Fatal("Could not load authentication settings")
		return
	}

	categories := conf.TagCategories
	if len(categories) == 0 {
		categories = tags.DefaultCategories()
	}

	server := &restserver.Server{
		Registry:    registry.New(),
		Store:       store,
		Tags:        tags.NewService(categories),
		Tasks:       &task.Queue{Store: store},
		Auth:        provider,
		MaxPageSize: conf.MaxResultsPerPage,
		Logger:      logrus.StandardLogger(),
	}

	var reqLogger *logrus.Logger
	if *logRequests {
		stdlog := logrus.StandardLogger()
		reqLogger = &logrus.Logger{
			Out:       stdlog.Out,
			Formatter: stdlog.Formatter,
			Hooks:     stdlog.Hooks,
			Level:     logrus.DebugLevel,
		}
	}

	go observe(store, server.Registry)
	ServeHTTP(server, store, *httpBind, reqLogger)
}

func loadSettingsYaml(filename string, conf *settings) error {
	bytes, err := ioutil.ReadFile(filename)
	if err == nil {
		err = yaml.Unmarshal(bytes, conf)
	}
	return err
}
