// Copyright 2016 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package paging

import (
	"net/url"
	"strconv"
)

// Links are the pagination hrefs reported with a paged collection.
// Previous and Last are empty on the first and last page respectively.
type Links struct {
	Self     string `json:"self"`
	First    string `json:"first,omitempty"`
	Previous string `json:"previous,omitempty"`
	Next     string `json:"next,omitempty"`
	Last     string `json:"last,omitempty"`
}

// BuildLinks derives the pagination links for a request URL.  Every
// link preserves the full query context (filters, sorting, attribute
// selection) and differs only in its offset and effective limit.
// Returns nil when the request did not ask for paging.
func (req Request) BuildLinks(requestURL *url.URL, subcount int) *Links {
	if !req.Limited || req.Limit <= 0 {
		return nil
	}
	links := &Links{
		Self:  req.withOffset(requestURL, req.Offset),
		First: req.withOffset(requestURL, 0),
	}
	if req.Offset > 0 {
		previous := req.Offset - req.Limit
		if previous < 0 {
			previous = 0
		}
		links.Previous = req.withOffset(requestURL, previous)
	}
	if req.Offset+req.Limit < subcount {
		links.Next = req.withOffset(requestURL, req.Offset+req.Limit)
	}
	last := ((subcount - 1) / req.Limit) * req.Limit
	if last < 0 {
		last = 0
	}
	links.Last = req.withOffset(requestURL, last)
	return links
}

func (req Request) withOffset(requestURL *url.URL, offset int) string {
	u := *requestURL
	params := u.Query()
	params.Set("offset", strconv.Itoa(offset))
	params.Set("limit", strconv.Itoa(req.Limit))
	u.RawQuery = params.Encode()
	u.Scheme = ""
	u.Host = ""
	return u.String()
}
