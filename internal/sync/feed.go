// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

package sync

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/tomtom215/ctgp-popularity/internal/popularity"
)

// FeedEntry is one leaderboard in a ranking feed.
type FeedEntry struct {
	Name    string `json:"name" validate:"required"`
	TrackID string `json:"trackId" validate:"required"`

	// Popularity is a pointer so a missing field fails validation instead of
	// reading as zero.
	Popularity *int `json:"popularity" validate:"required,gte=0"`
}

// rankingFeed is the document served at a feed URL.
type rankingFeed struct {
	Leaderboards []FeedEntry `json:"leaderboards" validate:"required,min=1,dive"`
}

// RankingFeedClient downloads and validates ranking feeds.
type RankingFeedClient struct {
	fetcher  Fetcher
	validate *validator.Validate
}

// NewRankingFeedClient creates a feed client.
func NewRankingFeedClient(fetcher Fetcher) *RankingFeedClient {
	return &RankingFeedClient{
		fetcher:  fetcher,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// FetchFeed downloads url and returns its leaderboard entries. A document that
// does not decode or misses a required field wraps ErrMalformedDocument.
func (c *RankingFeedClient) FetchFeed(ctx context.Context, url string) ([]FeedEntry, error) {
	body, err := c.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch ranking feed: %w", err)
	}
	return c.decodeFeed(body)
}

func (c *RankingFeedClient) decodeFeed(body []byte) ([]FeedEntry, error) {
	var feed rankingFeed
	if err := json.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("%w: decode ranking feed: %v", ErrMalformedDocument, err)
	}
	if err := c.validate.Struct(&feed); err != nil {
		return nil, fmt.Errorf("%w: ranking feed schema: %v", ErrMalformedDocument, err)
	}
	return feed.Leaderboards, nil
}

// IngestFeed adds every entry to store, summing counts of entries that share
// a track ID. It returns the number of entries ingested.
func IngestFeed(store *popularity.Store, entries []FeedEntry) int {
	n := 0
	for _, e := range entries {
		if e.Popularity == nil {
			continue
		}
		if store.AddPrimary(e.Name, e.TrackID, *e.Popularity) {
			n++
		}
	}
	return n
}
