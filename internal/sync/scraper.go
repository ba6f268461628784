// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

package sync

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"github.com/tomtom215/ctgp-popularity/internal/config"
	"github.com/tomtom215/ctgp-popularity/internal/logging"
	"github.com/tomtom215/ctgp-popularity/internal/metrics"
	"github.com/tomtom215/ctgp-popularity/internal/models"
	"github.com/tomtom215/ctgp-popularity/internal/popularity"
)

const (
	// usageRowSelector selects the rows of the usage statistics table.
	usageRowSelector = "#p0-tbody tr"

	// detailHashLabel marks the detail table rows that carry track hashes.
	detailHashLabel = "SHA1"

	// hashTokenLen is the length of one hex encoded SHA-1.
	hashTokenLen = 40
)

// timestampLayouts are tried in order on the added column's title attribute.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ScrapeStats counts what one scrape did.
type ScrapeStats = models.UsageStats

// usageRow is one parsed row of the usage table.
type usageRow struct {
	display   string
	detailURL string
	usage     popularity.Usage
	addedAt   time.Time
}

// UsageScraper walks the paginated usage table of one track set and writes
// decayed usage scores into a staging store.
type UsageScraper struct {
	fetcher Fetcher
	cache   DetailCache
	cfg     config.SourcesConfig
}

// NewUsageScraper creates a scraper. cache may be nil.
func NewUsageScraper(fetcher Fetcher, cache DetailCache, cfg config.SourcesConfig) *UsageScraper {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 1
	}
	return &UsageScraper{fetcher: fetcher, cache: cache, cfg: cfg}
}

// Scrape pages through set.UsageURL until the target number of distinct
// records was updated, a page has no rows, or MaxPages pages were read.
// Failures come back as *popularity.RefreshError with the stage that failed.
func (s *UsageScraper) Scrape(ctx context.Context, set config.TrackSetConfig, store *popularity.Store, reconciler *popularity.Reconciler, scorer *popularity.DecayScorer) (stats ScrapeStats, err error) {
	target := set.TargetCount
	if target <= 0 {
		target = store.Len()
	}
	updated := make(map[*models.TrackRecord]struct{}, target)
	log := logging.Ctx(ctx).With().Str("track_set", set.Name).Str("source", string(popularity.SourceUsageScraper)).Logger()

	defer func() {
		stats.Updated = len(updated)
		metrics.RecordUsageRows(set.Name, stats.DirectMatches, stats.DetailMatches, stats.Unmatched, stats.Skipped)
	}()

	for page := 0; page < s.cfg.MaxPages; page++ {
		if len(updated) >= target {
			break
		}

		pageURL := set.UsageURL + strconv.Itoa(page*s.cfg.PageSize)
		body, fetchErr := s.fetcher.Fetch(ctx, pageURL)
		if fetchErr != nil {
			return stats, s.fail(set.Name, popularity.StageFetch, fmt.Errorf("usage page %d: %w", page, fetchErr))
		}

		rows, skipped, parseErr := s.parseUsagePage(body, pageURL)
		if parseErr != nil {
			return stats, s.fail(set.Name, popularity.StageParse, fmt.Errorf("usage page %d: %w", page, parseErr))
		}
		stats.Pages++
		stats.Skipped += skipped
		if len(rows) == 0 {
			log.Debug().Int("page", page).Msg("Usage page has no rows, stopping")
			break
		}

		for _, row := range rows {
			stats.Rows++

			matches := reconciler.Match(row.display)
			if len(matches) > 0 {
				stats.DirectMatches++
			} else {
				if row.detailURL == "" {
					stats.Skipped++
					continue
				}

				tokens, ok, detailErr := s.detailTokens(ctx, row.detailURL)
				stats.DetailLookups++
				if detailErr != nil {
					return stats, s.fail(set.Name, popularity.StageDetail, detailErr)
				}
				if !ok {
					stats.Skipped++
					continue
				}

				matches = reconciler.MatchAny(tokens)
				if len(matches) == 0 {
					stats.Unmatched++
					continue
				}
				stats.DetailMatches++
			}

			score := scorer.Score(row.usage, row.addedAt)
			for _, rec := range matches {
				store.SetSecondary(rec, score, row.usage.Count, row.addedAt)
				updated[rec] = struct{}{}
			}

			if len(updated) >= target {
				log.Debug().Int("updated", len(updated)).Int("target", target).Msg("Usage target reached")
				break
			}
		}
	}

	return stats, nil
}

func (s *UsageScraper) fail(trackSet string, stage popularity.Stage, err error) *popularity.RefreshError {
	return &popularity.RefreshError{
		TrackSet: trackSet,
		Source:   popularity.SourceUsageScraper,
		Stage:    stage,
		Err:      err,
	}
}

// parseUsagePage extracts the data rows of one usage page. Rows without td
// cells (headers) are ignored; rows with too few cells are counted as skipped.
func (s *UsageScraper) parseUsagePage(body []byte, pageURL string) ([]usageRow, int, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, 0, fmt.Errorf("parse page url: %w", err)
	}

	minCells := max(s.cfg.NameColumn, s.cfg.UsageColumn, s.cfg.AddedColumn) + 1

	var (
		rows     []usageRow
		skipped  int
		parseErr error
	)
	doc.Find(usageRowSelector).EachWithBreak(func(i int, tr *goquery.Selection) bool {
		cells := tr.ChildrenFiltered("td")
		if cells.Length() == 0 {
			return true
		}
		if cells.Length() < minCells {
			skipped++
			return true
		}

		row, err := s.parseUsageRow(cells, base)
		if err != nil {
			parseErr = fmt.Errorf("row %d: %w", i, err)
			return false
		}
		rows = append(rows, row)
		return true
	})
	if parseErr != nil {
		return nil, 0, parseErr
	}

	return rows, skipped, nil
}

func (s *UsageScraper) parseUsageRow(cells *goquery.Selection, base *url.URL) (usageRow, error) {
	nameCell := cells.Eq(s.cfg.NameColumn)
	row := usageRow{display: strings.TrimSpace(nameCell.Text())}

	if href, ok := nameCell.Find("a[href]").First().Attr("href"); ok {
		if ref, err := url.Parse(strings.TrimSpace(href)); err == nil {
			row.detailURL = base.ResolveReference(ref).String()
		}
	}

	usageText := strings.TrimSpace(cells.Eq(s.cfg.UsageColumn).Text())
	if isNeverPlayed(usageText) {
		row.usage = popularity.NeverPlayed
		return row, nil
	}

	count, err := parseUsageCount(usageText)
	if err != nil {
		return usageRow{}, err
	}
	row.usage = popularity.Played(count)

	addedCell := cells.Eq(s.cfg.AddedColumn)
	title, ok := addedCell.Attr("title")
	if !ok {
		title, ok = addedCell.Find("[title]").First().Attr("title")
	}
	if !ok {
		return usageRow{}, fmt.Errorf("%w: added column has no title attribute", ErrMalformedDocument)
	}
	addedAt, err := parseAddedTimestamp(title)
	if err != nil {
		return usageRow{}, err
	}
	row.addedAt = addedAt

	return row, nil
}

// isNeverPlayed reports whether a usage cell holds the dash sentinel.
func isNeverPlayed(text string) bool {
	return strings.ContainsAny(text, "–—")
}

// parseUsageCount reads a usage number, ignoring thousands separators.
func parseUsageCount(text string) (float64, error) {
	cleaned := strings.Map(func(r rune) rune {
		if r == ',' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)

	count, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || count < 0 {
		return 0, fmt.Errorf("%w: usage count %q", ErrMalformedDocument, text)
	}
	return count, nil
}

// parseAddedTimestamp parses a title such as "2021-03-04 12:34:56 UTC (3 days ago)".
func parseAddedTimestamp(title string) (time.Time, error) {
	value := title
	if idx := strings.Index(value, "UTC"); idx >= 0 {
		value = value[:idx]
	}
	value = strings.TrimSpace(value)

	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: timestamp %q", ErrMalformedDocument, title)
}

// detailTokens returns the identifier tokens of a detail page. ok is false
// when the page no longer exists.
func (s *UsageScraper) detailTokens(ctx context.Context, detailURL string) (tokens []string, ok bool, err error) {
	if s.cache != nil {
		if tokens, hit := s.cache.Get(detailURL); hit {
			return tokens, true, nil
		}
	}

	body, err := s.fetcher.Fetch(ctx, detailURL)
	if err != nil {
		if IsNotFound(err) {
			logging.Debug().Str("url", detailURL).Msg("Detail page gone, skipping row")
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("detail page %s: %w", detailURL, err)
	}

	tokens, err = parseDetailTokens(body)
	if err != nil {
		return nil, false, fmt.Errorf("detail page %s: %w", detailURL, err)
	}

	if s.cache != nil {
		if err := s.cache.Set(detailURL, tokens); err != nil {
			logging.Warn().Err(err).Str("url", detailURL).Msg("Failed to cache detail tokens")
		}
	}
	return tokens, true, nil
}

// parseDetailTokens collects the hashes from every table row whose first cell
// mentions SHA1. The second cell may hold several hashes run together.
func parseDetailTokens(body []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	var tokens []string
	doc.Find("table tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.ChildrenFiltered("td")
		if cells.Length() < 2 {
			return
		}
		if !strings.Contains(cells.Eq(0).Text(), detailHashLabel) {
			return
		}
		tokens = append(tokens, splitHashes(cells.Eq(1).Text())...)
	})
	return tokens, nil
}

// splitHashes removes whitespace and cuts the rest into 40 character tokens.
// A shorter trailing remainder is kept as its own token.
func splitHashes(text string) []string {
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)

	var out []string
	for len(compact) > 0 {
		n := min(hashTokenLen, len(compact))
		out = append(out, compact[:n])
		compact = compact[n:]
	}
	return out
}
