// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

package wiki

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/goccy/go-json"
)

const (
	// categoryPageLimit is the MediaWiki maximum for anonymous clients.
	categoryPageLimit = 500

	// maxCategoryPages stops a server that keeps returning continuation tokens.
	maxCategoryPages = 200
)

// ErrMalformedResponse marks an API response or page that could not be parsed.
var ErrMalformedResponse = errors.New("malformed wiki response")

// Fetcher retrieves one document. Implemented by the source fetcher chain.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// categoryMember is one entry of list=categorymembers.
type categoryMember struct {
	PageID int    `json:"pageid"`
	NS     int    `json:"ns"`
	Title  string `json:"title"`
}

// categoryResponse covers both the current "continue" block and the legacy
// "query-continue" block used by older MediaWiki versions.
type categoryResponse struct {
	Continue *struct {
		CMContinue string `json:"cmcontinue"`
	} `json:"continue"`
	QueryContinue *struct {
		CategoryMembers struct {
			CMContinue string `json:"cmcontinue"`
		} `json:"categorymembers"`
	} `json:"query-continue"`
	Query *struct {
		CategoryMembers []categoryMember `json:"categorymembers"`
	} `json:"query"`
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}

func (r *categoryResponse) next() string {
	if r.Continue != nil && r.Continue.CMContinue != "" {
		return r.Continue.CMContinue
	}
	if r.QueryContinue != nil {
		return r.QueryContinue.CategoryMembers.CMContinue
	}
	return ""
}

// Client talks to the MediaWiki API and page URLs of the track wiki.
type Client struct {
	fetcher Fetcher
	apiURL  string
	pageURL string
}

// NewClient creates a wiki client. pageURL is the prefix page titles are
// appended to, e.g. "http://wiki.tockdom.com/wiki/".
func NewClient(fetcher Fetcher, apiURL, pageURL string) *Client {
	return &Client{fetcher: fetcher, apiURL: apiURL, pageURL: pageURL}
}

// FetchCategory returns the titles of every page in category, following
// continuation tokens until the listing is complete.
func (c *Client) FetchCategory(ctx context.Context, category string) ([]string, error) {
	var (
		titles []string
		token  string
		seen   = make(map[string]struct{})
	)

	for page := 0; page < maxCategoryPages; page++ {
		body, err := c.fetcher.Fetch(ctx, c.categoryURL(category, token))
		if err != nil {
			return nil, fmt.Errorf("category %s: %w", category, err)
		}

		var resp categoryResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("%w: category %s: %v", ErrMalformedResponse, category, err)
		}
		if resp.Error != nil {
			return nil, fmt.Errorf("%w: category %s: %s: %s", ErrMalformedResponse, category, resp.Error.Code, resp.Error.Info)
		}
		if resp.Query == nil {
			return nil, fmt.Errorf("%w: category %s: no query block", ErrMalformedResponse, category)
		}

		for _, m := range resp.Query.CategoryMembers {
			if m.Title != "" {
				titles = append(titles, m.Title)
			}
		}

		token = resp.next()
		if token == "" {
			return titles, nil
		}
		if _, repeated := seen[token]; repeated {
			return nil, fmt.Errorf("%w: category %s: continuation token %q repeated", ErrMalformedResponse, category, token)
		}
		seen[token] = struct{}{}
	}

	return nil, fmt.Errorf("%w: category %s: more than %d pages", ErrMalformedResponse, category, maxCategoryPages)
}

func (c *Client) categoryURL(category, token string) string {
	q := url.Values{}
	q.Set("action", "query")
	q.Set("list", "categorymembers")
	q.Set("cmtitle", "Category:"+category)
	q.Set("cmlimit", fmt.Sprint(categoryPageLimit))
	q.Set("format", "json")
	if token != "" {
		q.Set("cmcontinue", token)
	}
	return c.apiURL + "?" + q.Encode()
}

// PageURL returns the page address of title. Spaces become underscores.
func (c *Client) PageURL(title string) string {
	return c.pageURL + url.PathEscape(pageName(title))
}

// FetchPage downloads and parses the page of title.
func (c *Client) FetchPage(ctx context.Context, title string) (*TrackPage, error) {
	pageURL := c.PageURL(title)
	body, err := c.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("wiki page %s: %w", title, err)
	}

	page, err := ParseTrackPage(body, pageURL)
	if err != nil {
		return nil, fmt.Errorf("wiki page %s: %w", title, err)
	}
	page.Title = title
	return page, nil
}
