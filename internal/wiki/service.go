// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

package wiki

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tomtom215/ctgp-popularity/internal/cache"
	"github.com/tomtom215/ctgp-popularity/internal/logging"
	"github.com/tomtom215/ctgp-popularity/internal/metrics"
	"github.com/tomtom215/ctgp-popularity/internal/popularity"
	srcsync "github.com/tomtom215/ctgp-popularity/internal/sync"
)

// ErrPageNotFound is returned by TrackPage when the wiki has no such page.
var ErrPageNotFound = errors.New("wiki page not found")

// SearchResult is a successful catalogue search.
type SearchResult struct {
	Titles    []string `json:"titles"`
	Truncated bool     `json:"truncated"`
	Notice    string   `json:"notice,omitempty"`
}

// catalogue is an immutable list of page titles.
type catalogue struct {
	titles      []string
	byLower     map[string]string
	refreshedAt time.Time
}

// Service holds the wiki catalogue and a cache of parsed track pages.
type Service struct {
	client     *Client
	categories []string
	current    atomic.Pointer[catalogue]
	pages      *cache.LRU[*TrackPage]
}

// NewService creates a service over client. The catalogue is empty until the
// first Refresh.
func NewService(client *Client, categories []string, pageCacheSize int, pageCacheTTL time.Duration) *Service {
	s := &Service{
		client:     client,
		categories: categories,
		pages:      cache.NewLRU[*TrackPage]("wiki_page", pageCacheSize, pageCacheTTL),
	}
	s.current.Store(&catalogue{byLower: map[string]string{}})
	return s
}

// Refresh reloads every category and swaps the catalogue in one step. On
// failure the previous catalogue stays in place and the error is a
// *popularity.RefreshError with source "wiki".
func (s *Service) Refresh(ctx context.Context) (int, error) {
	start := time.Now()
	seen := make(map[string]struct{})
	var titles []string

	for _, category := range s.categories {
		list, err := s.client.FetchCategory(ctx, category)
		if err != nil {
			stage := popularity.StageFetch
			if errors.Is(err, ErrMalformedResponse) {
				stage = popularity.StageParse
			}
			return 0, &popularity.RefreshError{Source: popularity.SourceWiki, Stage: stage, Err: err}
		}
		for _, title := range list {
			if _, dup := seen[title]; dup {
				continue
			}
			seen[title] = struct{}{}
			titles = append(titles, title)
		}
	}

	sort.SliceStable(titles, func(i, j int) bool {
		return strings.ToLower(titles[i]) < strings.ToLower(titles[j])
	})

	next := &catalogue{
		titles:      titles,
		byLower:     make(map[string]string, len(titles)),
		refreshedAt: time.Now().UTC(),
	}
	for _, title := range titles {
		lower := strings.ToLower(title)
		if _, ok := next.byLower[lower]; !ok {
			next.byLower[lower] = title
		}
	}
	s.current.Store(next)
	metrics.WikiCatalogueSize.Set(float64(len(titles)))

	logging.CtxInfo(ctx).
		Int("titles", len(titles)).
		Int("categories", len(s.categories)).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("Wiki catalogue refreshed")

	return len(titles), nil
}

// Len returns the number of titles in the catalogue.
func (s *Service) Len() int {
	return len(s.current.Load().titles)
}

// RefreshedAt returns when the catalogue was last loaded, or the zero time.
func (s *Service) RefreshedAt() time.Time {
	return s.current.Load().refreshedAt
}

// Search returns catalogue titles matching query with the same rule as track
// search: queries of three characters or fewer match whole words, longer ones
// match substrings. Results are capped at popularity.MaxSearchResults.
func (s *Service) Search(query string) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &popularity.QueryError{Message: "*Please provide something to search for.*"}
	}

	result := &SearchResult{}
	for _, title := range s.current.Load().titles {
		if !popularity.MatchesName(title, query) {
			continue
		}
		result.Titles = append(result.Titles, title)
		if len(result.Titles) == popularity.MaxSearchResults {
			result.Truncated = true
			result.Notice = popularity.RefineSearchNotice
			break
		}
	}

	if len(result.Titles) == 0 {
		return nil, popularity.ErrNoResults
	}
	return result, nil
}

// TrackPage returns the parsed page of title, from cache when possible. A
// title that differs from a catalogue entry only in case is resolved to the
// catalogue spelling.
func (s *Service) TrackPage(ctx context.Context, title string) (*TrackPage, error) {
	title = strings.TrimSpace(strings.ReplaceAll(title, "_", " "))
	if title == "" {
		return nil, &popularity.QueryError{Message: "*Please provide a track name.*"}
	}
	if canonical, ok := s.current.Load().byLower[strings.ToLower(title)]; ok {
		title = canonical
	}

	if page, ok := s.pages.Get(title); ok {
		return page, nil
	}

	page, err := s.client.FetchPage(ctx, title)
	if err != nil {
		if srcsync.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrPageNotFound, title)
		}
		return nil, err
	}

	s.pages.Set(title, page)
	return page, nil
}
