// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

package popularity

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/tomtom215/ctgp-popularity/internal/models"
)

func record(name, key string, primary int, secondary float64) models.TrackRecord {
	return models.TrackRecord{
		Identity:       models.NewTrackIdentity(name, key),
		PrimaryScore:   primary,
		SecondaryScore: secondary,
	}
}

// rankingFixture has distinct orders for every sort key:
//
//	total: C(60) A(30) B(25) D(5)
//	tt:    A(25) B(20) C(10) D(5)
//	wf:    C(50) A(5)  B(5)  D(0)
func rankingFixture() *TrackSet {
	return NewTrackSet("ctgp", "CTGP", []models.TrackRecord{
		record("Alpha Circuit", "a", 25, 5),
		record("Beta Bay", "b", 20, 5),
		record("Coconut Mall", "c", 10, 50),
		record("DK Summit", "d", 5, 0),
	}, time.Now())
}

func names(entries []models.RankedEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

func ranks(entries []models.RankedEntry) []int {
	out := make([]int, len(entries))
	for i, e := range entries {
		out[i] = e.Rank
	}
	return out
}

func TestParseSortKey(t *testing.T) {
	tests := map[string]SortKey{
		"tt":   SortTimeTrial,
		"TT":   SortTimeTrial,
		" wf ": SortWiimmfi,
		"":     SortTotal,
		"xx":   SortTotal,
	}
	for in, want := range tests {
		if got := ParseSortKey(in); got != want {
			t.Errorf("ParseSortKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTrackSet_SortedByKey(t *testing.T) {
	ts := rankingFixture()

	tests := []struct {
		key  SortKey
		want []string
	}{
		{SortTotal, []string{"Coconut Mall", "Alpha Circuit", "Beta Bay", "DK Summit"}},
		{SortTimeTrial, []string{"Alpha Circuit", "Beta Bay", "Coconut Mall", "DK Summit"}},
		// Alpha and Beta tie on 5; snapshot order breaks the tie.
		{SortWiimmfi, []string{"Coconut Mall", "Alpha Circuit", "Beta Bay", "DK Summit"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			got := names(ts.Sorted(tt.key))
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("Sorted(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestRankedList_FullCollectionNonIncreasing(t *testing.T) {
	ts := rankingFixture()

	for _, key := range []SortKey{SortTotal, SortTimeTrial, SortWiimmfi} {
		entries, ok := RankedList(ts, 0, ts.Len(), false, key)
		if !ok {
			t.Fatalf("RankedList(%q) returned no data", key)
		}
		if len(entries) != ts.Len() {
			t.Fatalf("RankedList(%q) returned %d entries, want %d", key, len(entries), ts.Len())
		}
		for i := 1; i < len(entries); i++ {
			if entries[i].Score > entries[i-1].Score {
				t.Errorf("key %q: entry %d score %v > previous %v", key, i, entries[i].Score, entries[i-1].Score)
			}
			if entries[i].Rank != i+1 {
				t.Errorf("key %q: entry %d rank = %d, want %d", key, i, entries[i].Rank, i+1)
			}
		}
	}
}

func TestRankedList_Window(t *testing.T) {
	ts := rankingFixture()

	entries, ok := RankedList(ts, 1, 2, false, SortTimeTrial)
	if !ok {
		t.Fatal("unexpected no data")
	}
	if got := names(entries); fmt.Sprint(got) != "[Beta Bay Coconut Mall]" {
		t.Errorf("names = %v", got)
	}
	if got := ranks(entries); fmt.Sprint(got) != "[2 3]" {
		t.Errorf("ranks = %v, want [2 3]", got)
	}
	if entries[0].Ordinal != "2nd" {
		t.Errorf("Ordinal = %q, want 2nd", entries[0].Ordinal)
	}
}

func TestRankedList_ReverseWalksFromTail(t *testing.T) {
	ts := rankingFixture()

	entries, ok := RankedList(ts, ts.Len(), 3, true, SortTotal)
	if !ok {
		t.Fatal("unexpected no data")
	}
	if got := names(entries); fmt.Sprint(got) != "[DK Summit Beta Bay Alpha Circuit]" {
		t.Errorf("names = %v", got)
	}
	if got := ranks(entries); fmt.Sprint(got) != "[4 3 2]" {
		t.Errorf("ranks = %v, want [4 3 2]", got)
	}
}

func TestRankedList_Bounds(t *testing.T) {
	ts := rankingFixture()

	if _, ok := RankedList(ts, 5, 1, false, SortTotal); ok {
		t.Error("startIndex beyond size should return no data")
	}
	if _, ok := RankedList(ts, -1, 1, false, SortTotal); ok {
		t.Error("negative startIndex should return no data")
	}
	if _, ok := RankedList(nil, 0, 1, false, SortTotal); ok {
		t.Error("nil set should return no data")
	}

	entries, ok := RankedList(ts, 2, 10, false, SortTotal)
	if !ok || len(entries) != 2 {
		t.Errorf("overlong forward list = %d entries (ok=%v), want 2", len(entries), ok)
	}

	entries, ok = RankedList(ts, 2, 10, true, SortTotal)
	if !ok || len(entries) != 2 {
		t.Errorf("overlong reverse list = %d entries (ok=%v), want 2", len(entries), ok)
	}

	entries, ok = RankedList(ts, ts.Len(), 1, false, SortTotal)
	if !ok || len(entries) != 0 {
		t.Errorf("startIndex == size = %d entries (ok=%v), want empty", len(entries), ok)
	}

	entries, ok = RankedList(ts, 0, 0, false, SortTotal)
	if !ok || entries == nil || len(entries) != 0 {
		t.Errorf("zero count = %v (ok=%v), want empty non-nil", entries, ok)
	}
}

func TestRangeList_Validation(t *testing.T) {
	ts := rankingFixture()

	tests := []struct {
		name       string
		start, end int
		want       string
	}{
		{"end equals start", 3, 3, "*Please adjust your end point. It has to be greater than your start point.*"},
		{"end before start", 5, 2, "*Please adjust your end point. It has to be greater than your start point.*"},
		{"span too wide", 1, 26, "*Please adjust your end point. I can only list 25 tracks at a time.*"},
		{"start below one", 0, 5, "*Please adjust your start point. It has to be greater than or equal to 1.*"},
		{"start beyond size", 5, 10, "*Please adjust your start point. It has to be less than the number of tracks available (4)*"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RangeList(ts, tt.start, tt.end, SortTotal)
			var qe *QueryError
			if !errors.As(err, &qe) {
				t.Fatalf("RangeList(%d, %d) error = %v, want *QueryError", tt.start, tt.end, err)
			}
			if qe.Message != tt.want {
				t.Errorf("message = %q, want %q", qe.Message, tt.want)
			}
		})
	}
}

func TestRangeList_MaxSpanAccepted(t *testing.T) {
	records := make([]models.TrackRecord, 30)
	for i := range records {
		records[i] = record(fmt.Sprintf("Track %02d", i), fmt.Sprintf("k%02d", i), 100-i, 0)
	}
	ts := NewTrackSet("big", "Big", records, time.Now())

	entries, err := RangeList(ts, 1, 25, SortTotal)
	if err != nil {
		t.Fatalf("RangeList(1, 25) error = %v", err)
	}
	if len(entries) != 25 {
		t.Errorf("len = %d, want 25", len(entries))
	}
	if entries[24].Rank != 25 {
		t.Errorf("last rank = %d, want 25", entries[24].Rank)
	}
}

func TestRangeList_ClampsToSize(t *testing.T) {
	ts := NewTrackSet("small", "Small", []models.TrackRecord{
		record("A", "a", 3, 0),
		record("B", "b", 2, 0),
		record("C", "c", 1, 0),
	}, time.Now())

	entries, err := RangeList(ts, 1, 10, SortTimeTrial)
	if err != nil {
		t.Fatalf("RangeList error = %v", err)
	}
	if got := names(entries); fmt.Sprint(got) != "[A B C]" {
		t.Errorf("names = %v, want [A B C]", got)
	}

	entries, err = RangeList(ts, 2, 10, SortTimeTrial)
	if err != nil {
		t.Fatalf("RangeList error = %v", err)
	}
	if got := ranks(entries); fmt.Sprint(got) != "[2 3]" {
		t.Errorf("ranks = %v, want [2 3]", got)
	}
}

func TestMatchesName(t *testing.T) {
	tests := []struct {
		name, query string
		want        bool
	}{
		{"DK Summit", "DK", true},
		{"Donkey Kong", "DK", false},
		{"DK Summit", "dk", true},
		{"GCN DK Mountain", "dk", true},
		{"Mushroom Gorge", "gor", false},
		{"Mushroom Gorge", "gorge", true},
		{"Mushroom Gorge", "SHROOM", true},
		{"Bowser's Castle", "castle", true},
		{"Anything", "", false},
	}

	for _, tt := range tests {
		if got := MatchesName(tt.name, tt.query); got != tt.want {
			t.Errorf("MatchesName(%q, %q) = %v, want %v", tt.name, tt.query, got, tt.want)
		}
	}
}

func TestSearch_ShortQueryMatchesWholeWords(t *testing.T) {
	ts := NewTrackSet("ctgp", "CTGP", []models.TrackRecord{
		record("DK Summit", "a", 1, 0),
		record("Donkey Kong", "b", 2, 0),
	}, time.Now())

	result, err := Search(ts, "DK", SortTotal)
	if err != nil {
		t.Fatalf("Search error = %v", err)
	}
	if got := names(result.Entries); fmt.Sprint(got) != "[DK Summit]" {
		t.Errorf("names = %v, want [DK Summit]", got)
	}
	// Donkey Kong outranks DK Summit, so the match is 2nd overall.
	if result.Entries[0].Rank != 2 {
		t.Errorf("rank = %d, want 2", result.Entries[0].Rank)
	}
	if result.Truncated {
		t.Error("result should not be truncated")
	}
}

func TestSearch_CapsAtTwentyFive(t *testing.T) {
	records := make([]models.TrackRecord, 26)
	for i := range records {
		records[i] = record(fmt.Sprintf("Castle %d", i), fmt.Sprintf("k%d", i), 100-i, 0)
	}
	ts := NewTrackSet("ctgp", "CTGP", records, time.Now())

	result, err := Search(ts, "castle", SortTotal)
	if err != nil {
		t.Fatalf("Search error = %v", err)
	}
	if len(result.Entries) != MaxSearchResults {
		t.Errorf("len = %d, want %d", len(result.Entries), MaxSearchResults)
	}
	if !result.Truncated || result.Notice != RefineSearchNotice {
		t.Errorf("Truncated = %v, Notice = %q", result.Truncated, result.Notice)
	}
}

func TestSearch_NoResultsIsDistinct(t *testing.T) {
	ts := rankingFixture()

	result, err := Search(ts, "rainbow road", SortTotal)
	if !errors.Is(err, ErrNoResults) {
		t.Fatalf("err = %v, want ErrNoResults", err)
	}
	if result != nil {
		t.Errorf("result = %+v, want nil", result)
	}
}

func TestSearch_EmptyQueryRejected(t *testing.T) {
	_, err := Search(rankingFixture(), "   ", SortTotal)
	var qe *QueryError
	if !errors.As(err, &qe) {
		t.Fatalf("err = %v, want *QueryError", err)
	}
}

func TestSearch_UsesSortKeyForRank(t *testing.T) {
	ts := rankingFixture()

	result, err := Search(ts, "coconut", SortTimeTrial)
	if err != nil {
		t.Fatalf("Search error = %v", err)
	}
	if result.Entries[0].Rank != 3 || result.Entries[0].Score != 10 {
		t.Errorf("entry = %+v, want rank 3 score 10", result.Entries[0])
	}
}

func TestParseSearchQuery(t *testing.T) {
	tests := []struct {
		raw       string
		wantQuery string
		wantKey   SortKey
	}{
		{"dk summit tt", "dk summit", SortTimeTrial},
		{"dk summit WF", "dk summit", SortWiimmfi},
		{"dk summit", "dk summit", SortTotal},
		{"tt", "tt", SortTotal},
		{"  castle  wf ", "castle", SortWiimmfi},
	}

	for _, tt := range tests {
		q, k := ParseSearchQuery(tt.raw)
		if q != tt.wantQuery || k != tt.wantKey {
			t.Errorf("ParseSearchQuery(%q) = (%q, %q), want (%q, %q)", tt.raw, q, k, tt.wantQuery, tt.wantKey)
		}
	}
}

func TestRankedEntry_DisplayScoreRounds(t *testing.T) {
	ts := NewTrackSet("x", "X", []models.TrackRecord{record("A", "a", 1, 2.6)}, time.Now())

	entries, _ := RankedList(ts, 0, 1, false, SortTotal)
	if entries[0].Score != 3.6 {
		t.Errorf("Score = %v, want 3.6 (full precision)", entries[0].Score)
	}
	if entries[0].DisplayScore != 4 {
		t.Errorf("DisplayScore = %d, want 4", entries[0].DisplayScore)
	}
}
