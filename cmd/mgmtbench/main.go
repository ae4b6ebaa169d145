// Copyright 2016-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package mgmtbench provides a load-generation tool for the
// management REST API.
package main

import (
	"runtime"
	"sync"

	"github.com/satori/go.uuid"
	"github.com/urfave/cli"

	"github.com/diffeo/go-mgmtapi/restclient"
)

type benchWork struct {
	Client      *restclient.Client
	Collection  string
	Concurrency int
}

func (bench *benchWork) Run(runner func()) {
	wg := sync.WaitGroup{}
	wg.Add(bench.Concurrency)
	for i := 0; i < bench.Concurrency; i++ {
		go func() {
			defer wg.Done()
			runner()
		}()
	}
	wg.Wait()
}

// ids lists every record id in the benchmark collection and streams
// them into a channel.
func (bench *benchWork) ids() (chan string, error) {
	collection, err := bench.Client.List(bench.Collection, nil)
	if err != nil {
		return nil, err
	}
	out := make(chan string)
	go func() {
		for _, resource := range collection.Resources {
			if id, ok := resource["id"].(string); ok {
				out <- id
			}
		}
		close(out)
	}()
	return out, nil
}

var bench benchWork

var addResources = cli.Command{
	Name:  "add",
	Usage: "create many resources",
	Flags: []cli.Flag{
		cli.IntFlag{
			Name:  "count",
			Value: 100,
			Usage: "number of resources to create",
		},
	},
	Action: func(c *cli.Context) {
		count := c.Int("count")
		numbers := make(chan int)
		go func() {
			for i := 1; i <= count; i++ {
				numbers <- i
			}
			close(numbers)
		}()
		bench.Run(func() {
			for <-numbers != 0 {
				name := uuid.NewV4().String()
				bench.Client.Create(bench.Collection, map[string]interface{}{
					"name": name,
				})
			}
		})
	},
}

var getResources = cli.Command{
	Name:  "get",
	Usage: "fetch collection pages as fast as possible",
	Flags: []cli.Flag{
		cli.IntFlag{
			Name:  "count",
			Value: 100,
			Usage: "number of pages to fetch",
		},
		cli.IntFlag{
			Name:  "limit",
			Value: 100,
			Usage: "page size of each request",
		},
	},
	Action: func(c *cli.Context) {
		count := c.Int("count")
		limit := c.Int("limit")
		numbers := make(chan int)
		go func() {
			for i := 1; i <= count; i++ {
				numbers <- i
			}
			close(numbers)
		}()
		bench.Run(func() {
			for <-numbers != 0 {
				bench.Client.List(bench.Collection, &restclient.ListOptions{
					Expand: true,
					Limit:  limit,
				})
			}
		})
	},
}

var actResources = cli.Command{
	Name:  "act",
	Usage: "dispatch an action against every resource",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "action",
			Value: "start",
			Usage: "action name to dispatch",
		},
	},
	Action: func(c *cli.Context) {
		action := c.String("action")
		ids, err := bench.ids()
		if err != nil {
			return
		}
		bench.Run(func() {
			for id := range ids {
				bench.Client.Action(bench.Collection, id, action, nil)
			}
		})
	},
}

var clear = cli.Command{
	Name:  "clear",
	Usage: "delete all of the resources",
	Action: func(c *cli.Context) {
		ids, err := bench.ids()
		if err != nil {
			return
		}
		bench.Run(func() {
			for id := range ids {
				bench.Client.Delete(bench.Collection, id)
			}
		})
	},
}

func main() {
	app := cli.NewApp()
	app.Usage = "benchmark the management REST API"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "url",
			Value: "http://localhost:5980/api",
			Usage: "base URL of the API endpoint",
		},
		cli.StringFlag{
			Name:  "username",
			Value: "admin",
			Usage: "HTTP basic auth user name",
		},
		cli.StringFlag{
			Name:  "password",
			Value: "smartvm",
			Usage: "HTTP basic auth password",
		},
		cli.StringFlag{
			Name:  "collection",
			Value: "services",
			Usage: "collection name to benchmark",
		},
		cli.IntFlag{
			Name:  "concurrency",
			Value: runtime.NumCPU(),
			Usage: "run this many jobs in parallel",
		},
	}
	app.Commands = []cli.Command{
		addResources,
		getResources,
		actResources,
		clear,
	}
	app.Before = func(c *cli.Context) (err error) {
		bench.Client, err = restclient.New(
			c.String("url"), c.String("username"), c.String("password"))
		if err != nil {
			return
		}
		bench.Collection = c.String("collection")
		bench.Concurrency = c.Int("concurrency")
		return
	}
	app.RunAndExitOnError()
}
