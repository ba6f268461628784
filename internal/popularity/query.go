// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

package popularity

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/tomtom215/ctgp-popularity/internal/models"
)

// SortKey selects the score a ranking is ordered by.
type SortKey string

const (
	// SortTotal orders by primary + secondary score.
	SortTotal SortKey = ""
	// SortTimeTrial orders by the ranking feed score.
	SortTimeTrial SortKey = "tt"
	// SortWiimmfi orders by the decayed usage score.
	SortWiimmfi SortKey = "wf"
)

const (
	// MaxRangeSpan is the largest number of entries RangeList returns.
	MaxRangeSpan = 25

	// MaxSearchResults caps Search output.
	MaxSearchResults = 25

	// shortQueryLen is the longest query matched against whole words only.
	shortQueryLen = 3

	// NoResultsText is the display text for ErrNoResults.
	NoResultsText = "*No results found*"

	// RefineSearchNotice is appended when a search hits MaxSearchResults.
	RefineSearchNotice = "*Only showing the first 25 matches. Refine your search.*"
)

// ErrNoResults is returned by Search when nothing matches. It is distinct from
// a successful search with an empty list so callers can render a dedicated
// message.
var ErrNoResults = errors.New("no results found")

// QueryError is a rejected query. Message is suitable for showing to the user
// as is.
type QueryError struct {
	Message string
}

func (e *QueryError) Error() string {
	return e.Message
}

func rejectf(format string, args ...interface{}) *QueryError {
	return &QueryError{Message: fmt.Sprintf(format, args...)}
}

// ParseSortKey maps "tt" and "wf" (any case) to their keys and everything else
// to SortTotal.
func ParseSortKey(s string) SortKey {
	switch SortKey(strings.ToLower(strings.TrimSpace(s))) {
	case SortTimeTrial:
		return SortTimeTrial
	case SortWiimmfi:
		return SortWiimmfi
	default:
		return SortTotal
	}
}

// Label names the key for display.
func (k SortKey) Label() string {
	switch k {
	case SortTimeTrial:
		return "Time Trial"
	case SortWiimmfi:
		return "WiimmFi"
	default:
		return "Overall"
	}
}

func (k SortKey) score(rec models.TrackRecord) float64 {
	switch k {
	case SortTimeTrial:
		return float64(rec.PrimaryScore)
	case SortWiimmfi:
		return rec.SecondaryScore
	default:
		return rec.TotalScore()
	}
}

func (k SortKey) normalize() SortKey {
	return ParseSortKey(string(k))
}

// Sorted returns every record ranked by key.
func (ts *TrackSet) Sorted(key SortKey) []models.RankedEntry {
	order := ts.orders[key.normalize()]
	out := make([]models.RankedEntry, len(order))
	for i := range order {
		out[i] = ts.entryAt(i, key)
	}
	return out
}

// entryAt builds the entry at sorted position pos (0-based).
func (ts *TrackSet) entryAt(pos int, key SortKey) models.RankedEntry {
	key = key.normalize()
	rec := ts.records[ts.orders[key][pos]]
	score := key.score(rec)

	return models.RankedEntry{
		Rank:           pos + 1,
		Ordinal:        models.Ordinal(pos + 1),
		Name:           rec.Identity.DisplayName,
		PrimaryKey:     rec.Identity.PrimaryKey,
		Score:          score,
		DisplayScore:   int64(math.Round(score)),
		PrimaryScore:   rec.PrimaryScore,
		SecondaryScore: rec.SecondaryScore,
		TotalScore:     rec.TotalScore(),
	}
}

// RankedList returns up to count consecutive entries of the sorted set.
//
// Forward lists start at the 0-based position startIndex. Reverse lists walk
// backwards from the entry just before startIndex, so RankedList(ts, ts.Len(),
// 10, true, key) is the bottom ten with the last place first. Each entry's
// Rank is its place in the sorted order, not its place in the returned slice.
//
// ok is false (the no-data signal) when startIndex is negative or larger than
// the set.
func RankedList(ts *TrackSet, startIndex, count int, reverse bool, key SortKey) (entries []models.RankedEntry, ok bool) {
	if ts == nil || startIndex < 0 || startIndex > ts.Len() {
		return nil, false
	}
	if count <= 0 {
		return []models.RankedEntry{}, true
	}

	entries = make([]models.RankedEntry, 0, min(count, ts.Len()))
	for i := 0; i < count; i++ {
		pos := startIndex + i
		if reverse {
			pos = startIndex - 1 - i
		}
		if pos < 0 || pos >= ts.Len() {
			break
		}
		entries = append(entries, ts.entryAt(pos, key))
	}
	return entries, true
}

// RangeList returns ranks start..end inclusive (1-based). Spans wider than
// MaxRangeSpan or starting outside the set are rejected with a *QueryError;
// an end beyond the set is clamped to the last entry.
func RangeList(ts *TrackSet, start, end int, key SortKey) ([]models.RankedEntry, error) {
	size := 0
	if ts != nil {
		size = ts.Len()
	}

	switch {
	case end-start < 1:
		return nil, rejectf("*Please adjust your end point. It has to be greater than your start point.*")
	case end-start > MaxRangeSpan-1:
		return nil, rejectf("*Please adjust your end point. I can only list %d tracks at a time.*", MaxRangeSpan)
	case start < 1:
		return nil, rejectf("*Please adjust your start point. It has to be greater than or equal to 1.*")
	case start > size:
		return nil, rejectf("*Please adjust your start point. It has to be less than the number of tracks available (%d)*", size)
	}

	count := end - start + 1
	if end > size {
		count = size - start + 1
	}

	entries, _ := RankedList(ts, start-1, count, false, key)
	return entries, nil
}

// SearchResult is a successful Search.
type SearchResult struct {
	Entries   []models.RankedEntry `json:"entries"`
	Truncated bool                 `json:"truncated"`
	Notice    string               `json:"notice,omitempty"`
}

// Search returns the ranked entries whose name matches query (see
// MatchesName), in sorted order, capped at MaxSearchResults. It returns
// ErrNoResults when nothing matches and a *QueryError for an empty query.
func Search(ts *TrackSet, query string, key SortKey) (*SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, rejectf("*Please provide something to search for.*")
	}
	if ts == nil {
		return nil, ErrNoResults
	}

	key = key.normalize()
	result := &SearchResult{}
	for pos, idx := range ts.orders[key] {
		if !MatchesName(ts.records[idx].Identity.DisplayName, query) {
			continue
		}
		result.Entries = append(result.Entries, ts.entryAt(pos, key))
		if len(result.Entries) == MaxSearchResults {
			result.Truncated = true
			result.Notice = RefineSearchNotice
			break
		}
	}

	if len(result.Entries) == 0 {
		return nil, ErrNoResults
	}
	return result, nil
}

// MatchesName applies the name search rule. Queries of up to three characters
// match only a whole space-separated word of name, ignoring case; longer
// queries match any case-insensitive substring.
func MatchesName(name, query string) bool {
	if query == "" {
		return false
	}

	if utf8.RuneCountInString(query) <= shortQueryLen {
		for _, word := range strings.Split(name, " ") {
			if strings.EqualFold(word, query) {
				return true
			}
		}
		return false
	}

	return strings.Contains(strings.ToLower(name), strings.ToLower(query))
}

// ParseSearchQuery splits a trailing " tt" or " wf" sort key off a raw search
// string. "dk summit tt" searches "dk summit" ordered by Time Trial score.
func ParseSearchQuery(raw string) (string, SortKey) {
	raw = strings.TrimSpace(raw)
	idx := strings.LastIndex(raw, " ")
	if idx < 0 {
		return raw, SortTotal
	}

	switch key := SortKey(strings.ToLower(raw[idx+1:])); key {
	case SortTimeTrial, SortWiimmfi:
		return strings.TrimSpace(raw[:idx]), key
	}
	return raw, SortTotal
}
