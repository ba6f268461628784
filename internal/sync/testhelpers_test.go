// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

package sync

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/ctgp-popularity/internal/config"
)

func newTestConfig() *config.Config {
	return &config.Config{
		Refresh: config.RefreshConfig{
			Interval:      time.Hour,
			Timeout:       5 * time.Second,
			RetryAttempts: 1,
			RetryDelay:    time.Millisecond,
		},
		Decay: config.DecayConfig{
			HalfLife: 28 * 24 * time.Hour,
			Cap:      84 * 24 * time.Hour,
		},
		Sources: newTestSourcesConfig(),
		TrackSets: config.TrackSetsConfig{
			Nintendo: config.TrackSetConfig{
				Name:     config.TrackSetNintendo,
				Title:    "Nintendo Tracks",
				Enabled:  true,
				FeedURL:  "http://feed.test/nintendo.json",
				UsageURL: "http://usage.test/nintendo?p=",
			},
			CTGP: config.TrackSetConfig{
				Name:     config.TrackSetCTGP,
				Title:    "CTGP Tracks",
				Enabled:  true,
				FeedURL:  "http://feed.test/ctgp.json",
				UsageURL: "http://usage.test/ctgp?p=",
			},
		},
	}
}

func newTestSourcesConfig() config.SourcesConfig {
	return config.SourcesConfig{
		PageSize:    100,
		MaxPages:    5,
		NameColumn:  2,
		UsageColumn: 7,
		AddedColumn: 8,
	}
}

// usageRowHTML renders one row of the usage table in the column layout of
// newTestSourcesConfig.
func usageRowHTML(name, href, usage, added string) string {
	nameCell := name
	if href != "" {
		nameCell = fmt.Sprintf(`<a href="%s">%s</a>`, href, name)
	}
	addedCell := `<td></td>`
	if added != "" {
		addedCell = fmt.Sprintf(`<td title="%s">x days ago</td>`, added)
	}
	return fmt.Sprintf(`<tr><td>1</td><td>id</td><td>%s</td><td></td><td></td><td></td><td></td><td>%s</td>%s</tr>`,
		nameCell, usage, addedCell)
}

// usagePageHTML wraps rows into a usage page.
func usagePageHTML(rows ...string) string {
	return `<html><body><table><thead><tr><th>#</th></tr></thead><tbody id="p0-tbody">` +
		`<tr><th>header</th></tr>` + strings.Join(rows, "") + `</tbody></table></body></html>`
}

// detailPageHTML renders a detail page with one SHA1 row per argument.
func detailPageHTML(hashCells ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><table><tr><td>Name</td><td>Some Track</td></tr>`)
	for _, h := range hashCells {
		fmt.Fprintf(&b, `<tr><td>SHA1 checksum</td><td>%s</td></tr>`, h)
	}
	b.WriteString(`</table></body></html>`)
	return b.String()
}

// feedJSON renders a ranking feed. Each triple is name, trackId, popularity.
func feedJSON(entries ...[3]string) string {
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = fmt.Sprintf(`{"name":%q,"trackId":%q,"popularity":%s}`, e[0], e[1], e[2])
	}
	return `{"leaderboards":[` + strings.Join(parts, ",") + `]}`
}

// mapFetcher serves documents from a map. Missing URLs answer 404.
type mapFetcher struct {
	mu    sync.Mutex
	docs  map[string]string
	errs  map[string]error
	calls map[string]int
}

func newMapFetcher() *mapFetcher {
	return &mapFetcher{
		docs:  make(map[string]string),
		errs:  make(map[string]error),
		calls: make(map[string]int),
	}
}

func (f *mapFetcher) fetch(url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[url]++
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	if doc, ok := f.docs[url]; ok {
		return []byte(doc), nil
	}
	return nil, &StatusError{URL: url, StatusCode: 404}
}

func (f *mapFetcher) set(url, doc string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[url] = doc
	delete(f.errs, url)
}

func (f *mapFetcher) fail(url string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[url] = err
}

func (f *mapFetcher) callCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

func (f *mapFetcher) Fetcher() Fetcher {
	return FetcherFunc(func(_ context.Context, url string) ([]byte, error) {
		return f.fetch(url)
	})
}

func checkIntEqual(t *testing.T, fieldName string, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("%s: expected %d, got %d", fieldName, want, got)
	}
}
