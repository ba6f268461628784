// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

package sync

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/tomtom215/ctgp-popularity/internal/config"
	"github.com/tomtom215/ctgp-popularity/internal/popularity"
)

const (
	hashLuigi    = "1ae1a7d894960b38e09e7494373378d87305a163"
	hashMoo      = "90720a7d57a7c76e2347782f6bde5d22342fb7dd"
	hashMushroom = "0b5d9b7a5bb2e8fd6b6d7b3c7da4fbfa0a6b6d20"
	futureAdded  = "2099-01-01 00:00:00 UTC"
	usagePrefix  = "http://usage.test/ctgp?p="
)

type scrapeFixture struct {
	fetcher *mapFetcher
	store   *popularity.Store
	rec     *popularity.Reconciler
	scorer  *popularity.DecayScorer
	set     config.TrackSetConfig
}

func newScrapeFixture(t *testing.T, target int) *scrapeFixture {
	t.Helper()
	store := popularity.NewStore()
	store.AddPrimary("Luigi Circuit", hashLuigi, 10)
	store.AddPrimary("Moo Moo Meadows", hashMoo, 5)
	store.AddPrimary("Mushroom Gorge", hashMushroom, 1)

	return &scrapeFixture{
		fetcher: newMapFetcher(),
		store:   store,
		rec:     popularity.NewReconciler(store),
		scorer:  popularity.NewDecayScorer(popularity.DefaultHalfLife, popularity.DefaultDecayCap),
		set: config.TrackSetConfig{
			Name:        config.TrackSetCTGP,
			UsageURL:    usagePrefix,
			TargetCount: target,
		},
	}
}

func (f *scrapeFixture) scrape(t *testing.T, cache DetailCache) (ScrapeStats, error) {
	t.Helper()
	s := NewUsageScraper(f.fetcher.Fetcher(), cache, newTestSourcesConfig())
	return s.Scrape(context.Background(), f.set, f.store, f.rec, f.scorer)
}

func (f *scrapeFixture) secondary(t *testing.T, key string) float64 {
	t.Helper()
	rec, ok := f.store.Lookup(key)
	if !ok {
		t.Fatalf("record %s missing", key)
	}
	return rec.SecondaryScore
}

func TestUsageScraper_DirectMatch(t *testing.T) {
	t.Parallel()
	f := newScrapeFixture(t, 0)
	f.fetcher.set(usagePrefix+"100", usagePageHTML())

	f.fetcher.set(usagePrefix+"0", usagePageHTML(
		usageRowHTML("Luigi Circuit "+hashLuigi, "", "1,200", futureAdded),
		usageRowHTML(hashMoo+" (v2)", "", "34", futureAdded),
	))

	stats, err := f.scrape(t, nil)
	if err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}

	checkIntEqual(t, "DirectMatches", stats.DirectMatches, 2)
	checkIntEqual(t, "Updated", stats.Updated, 2)
	checkIntEqual(t, "Pages", stats.Pages, 2)
	if got := f.secondary(t, hashLuigi); got != 1200 {
		t.Errorf("luigi secondary = %v, want 1200", got)
	}
	if got := f.secondary(t, hashMoo); got != 34 {
		t.Errorf("moo secondary = %v, want 34", got)
	}
	if got := f.secondary(t, hashMushroom); got != 0 {
		t.Errorf("unmatched record should keep 0, got %v", got)
	}
}

func TestUsageScraper_DetailFallback(t *testing.T) {
	t.Parallel()
	f := newScrapeFixture(t, 0)
	f.fetcher.set(usagePrefix+"100", usagePageHTML())

	f.fetcher.set(usagePrefix+"0", usagePageHTML(
		usageRowHTML("Mushroom Gorge", "/stats/track/42", "8", futureAdded),
	))
	f.fetcher.set("http://usage.test/stats/track/42", detailPageHTML(hashMushroom+"\n"+hashMoo))

	cache := setupTestDetailCache(t)
	stats, err := f.scrape(t, cache)
	if err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}

	checkIntEqual(t, "DetailLookups", stats.DetailLookups, 1)
	checkIntEqual(t, "DetailMatches", stats.DetailMatches, 1)
	checkIntEqual(t, "Updated", stats.Updated, 2)
	if got := f.secondary(t, hashMushroom); got != 8 {
		t.Errorf("mushroom secondary = %v, want 8", got)
	}
	if got := f.secondary(t, hashMoo); got != 8 {
		t.Errorf("every matched record gets the row score, moo = %v", got)
	}

	tokens, ok := cache.Get("http://usage.test/stats/track/42")
	if !ok || len(tokens) != 2 {
		t.Errorf("detail tokens should be cached, got %v (hit=%v)", tokens, ok)
	}
}

func TestUsageScraper_DetailCacheHitSkipsFetch(t *testing.T) {
	t.Parallel()
	f := newScrapeFixture(t, 0)
	f.fetcher.set(usagePrefix+"100", usagePageHTML())

	f.fetcher.set(usagePrefix+"0", usagePageHTML(
		usageRowHTML("Mushroom Gorge", "http://usage.test/stats/track/7", "3", futureAdded),
	))
	cache := setupTestDetailCache(t)
	if err := cache.Set("http://usage.test/stats/track/7", []string{hashMushroom}); err != nil {
		t.Fatal(err)
	}

	if _, err := f.scrape(t, cache); err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}
	checkIntEqual(t, "detail fetches", f.fetcher.callCount("http://usage.test/stats/track/7"), 0)
	if got := f.secondary(t, hashMushroom); got != 3 {
		t.Errorf("mushroom secondary = %v, want 3", got)
	}
}

func TestUsageScraper_DetailNotFoundSkipsRow(t *testing.T) {
	t.Parallel()
	f := newScrapeFixture(t, 0)
	f.fetcher.set(usagePrefix+"100", usagePageHTML())

	f.fetcher.set(usagePrefix+"0", usagePageHTML(
		usageRowHTML("Removed Track", "/stats/track/gone", "9", futureAdded),
		usageRowHTML(hashLuigi, "", "4", futureAdded),
	))

	stats, err := f.scrape(t, nil)
	if err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}
	checkIntEqual(t, "Skipped", stats.Skipped, 1)
	checkIntEqual(t, "DirectMatches", stats.DirectMatches, 1)
}

func TestUsageScraper_DetailServerErrorFailsStage(t *testing.T) {
	t.Parallel()
	f := newScrapeFixture(t, 0)

	f.fetcher.set(usagePrefix+"0", usagePageHTML(
		usageRowHTML("Unknown", "/stats/track/500", "9", futureAdded),
	))
	f.fetcher.fail("http://usage.test/stats/track/500", &StatusError{StatusCode: 503})

	_, err := f.scrape(t, nil)
	re, ok := popularity.AsRefreshError(err)
	if !ok {
		t.Fatalf("expected RefreshError, got %v", err)
	}
	if re.Stage != popularity.StageDetail || re.Source != popularity.SourceUsageScraper {
		t.Errorf("stage/source = %s/%s, want detail/usage_scraper", re.Stage, re.Source)
	}
	if re.TrackSet != config.TrackSetCTGP {
		t.Errorf("TrackSet = %q", re.TrackSet)
	}
}

func TestUsageScraper_NeverPlayedSentinel(t *testing.T) {
	t.Parallel()
	f := newScrapeFixture(t, 0)
	f.fetcher.set(usagePrefix+"100", usagePageHTML())

	// The sentinel row has no timestamp; it must not be parsed.
	f.fetcher.set(usagePrefix+"0", usagePageHTML(
		usageRowHTML(hashLuigi, "", "–", ""),
		usageRowHTML(hashMoo, "", "—", ""),
	))

	stats, err := f.scrape(t, nil)
	if err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}
	checkIntEqual(t, "Updated", stats.Updated, 2)

	rec, _ := f.store.Lookup(hashLuigi)
	if !rec.UsageMatched || rec.SecondaryScore != 0 {
		t.Errorf("sentinel row should match with score 0, got %+v", rec)
	}
}

func TestUsageScraper_DecayApplied(t *testing.T) {
	t.Parallel()
	f := newScrapeFixture(t, 0)
	f.fetcher.set(usagePrefix+"100", usagePageHTML())

	f.fetcher.set(usagePrefix+"0", usagePageHTML(
		usageRowHTML(hashLuigi, "", "800", "2001-01-01 00:00 UTC (long ago)"),
	))

	if _, err := f.scrape(t, nil); err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}
	// Capped at 84 days: 800 * 0.5^3.
	if got := f.secondary(t, hashLuigi); math.Abs(got-100) > 1e-9 {
		t.Errorf("secondary = %v, want 100", got)
	}
}

func TestUsageScraper_ParseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		row  string
	}{
		{"bad count", usageRowHTML(hashLuigi, "", "lots", futureAdded)},
		{"missing title", usageRowHTML(hashLuigi, "", "5", "")},
		{"bad timestamp", usageRowHTML(hashLuigi, "", "5", "yesterday")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newScrapeFixture(t, 0)
			f.fetcher.set(usagePrefix+"0", usagePageHTML(tt.row))

			_, err := f.scrape(t, nil)
			re, ok := popularity.AsRefreshError(err)
			if !ok {
				t.Fatalf("expected RefreshError, got %v", err)
			}
			if re.Stage != popularity.StageParse {
				t.Errorf("Stage = %s, want parse", re.Stage)
			}
			if !errors.Is(err, ErrMalformedDocument) {
				t.Errorf("expected ErrMalformedDocument in chain, got %v", err)
			}
		})
	}
}

func TestUsageScraper_FetchErrorStage(t *testing.T) {
	t.Parallel()
	f := newScrapeFixture(t, 0)
	f.fetcher.fail(usagePrefix+"0", &StatusError{StatusCode: 500})

	_, err := f.scrape(t, nil)
	re, ok := popularity.AsRefreshError(err)
	if !ok || re.Stage != popularity.StageFetch {
		t.Fatalf("expected fetch stage RefreshError, got %v", err)
	}
}

func TestUsageScraper_StopsAtTarget(t *testing.T) {
	t.Parallel()
	f := newScrapeFixture(t, 1)

	f.fetcher.set(usagePrefix+"0", usagePageHTML(
		usageRowHTML(hashLuigi, "", "4", futureAdded),
		usageRowHTML(hashMoo, "", "5", futureAdded),
	))
	f.fetcher.set(usagePrefix+"100", usagePageHTML(
		usageRowHTML(hashMushroom, "", "6", futureAdded),
	))

	stats, err := f.scrape(t, nil)
	if err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}
	checkIntEqual(t, "Updated", stats.Updated, 1)
	checkIntEqual(t, "Rows", stats.Rows, 1)
	checkIntEqual(t, "second page fetches", f.fetcher.callCount(usagePrefix+"100"), 0)
}

func TestUsageScraper_PaginationStopsOnEmptyPage(t *testing.T) {
	t.Parallel()
	f := newScrapeFixture(t, 0)

	f.fetcher.set(usagePrefix+"0", usagePageHTML(usageRowHTML(hashLuigi, "", "4", futureAdded)))
	f.fetcher.set(usagePrefix+"100", usagePageHTML(usageRowHTML(hashMoo, "", "5", futureAdded)))
	f.fetcher.set(usagePrefix+"200", usagePageHTML())

	stats, err := f.scrape(t, nil)
	if err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}
	checkIntEqual(t, "Pages", stats.Pages, 3)
	checkIntEqual(t, "Updated", stats.Updated, 2)
	checkIntEqual(t, "fourth page fetches", f.fetcher.callCount(usagePrefix+"300"), 0)
}

func TestUsageScraper_OverwritesNotSums(t *testing.T) {
	t.Parallel()
	f := newScrapeFixture(t, 0)
	f.fetcher.set(usagePrefix+"100", usagePageHTML())

	f.fetcher.set(usagePrefix+"0", usagePageHTML(
		usageRowHTML(hashLuigi+" first", "", "4", futureAdded),
		usageRowHTML(hashLuigi+" again", "", "9", futureAdded),
	))

	if _, err := f.scrape(t, nil); err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}
	if got := f.secondary(t, hashLuigi); got != 9 {
		t.Errorf("secondary = %v, want last row value 9", got)
	}
}

func TestParseAddedTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		title string
		want  time.Time
	}{
		{"2021-03-04 12:34:56 UTC (3 days ago)", time.Date(2021, 3, 4, 12, 34, 56, 0, time.UTC)},
		{"2021-03-04 12:34 UTC", time.Date(2021, 3, 4, 12, 34, 0, 0, time.UTC)},
		{"2021-03-04", time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := parseAddedTimestamp(tt.title)
		if err != nil {
			t.Errorf("parseAddedTimestamp(%q) error = %v", tt.title, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("parseAddedTimestamp(%q) = %v, want %v", tt.title, got, tt.want)
		}
	}
}

func TestSplitHashes(t *testing.T) {
	t.Parallel()

	got := splitHashes(" " + hashLuigi + "\n\t" + hashMoo + " abc ")
	want := []string{hashLuigi, hashMoo, "abc"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitHashes() = %v, want %v", got, want)
	}
	if splitHashes("   ") != nil {
		t.Error("blank cell should give no tokens")
	}
}

func TestParseDetailTokens_IgnoresOtherRows(t *testing.T) {
	t.Parallel()

	body := detailPageHTML(hashLuigi)
	tokens, err := parseDetailTokens([]byte(body))
	if err != nil {
		t.Fatalf("parseDetailTokens() error = %v", err)
	}
	if !reflect.DeepEqual(tokens, []string{hashLuigi}) {
		t.Errorf("tokens = %v", tokens)
	}
}
