// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

package popularity

import (
	"sort"
	"sync/atomic"
	"time"

	"github.com/tomtom215/ctgp-popularity/internal/models"
)

// TrackSet is an immutable, fully reconciled collection of records for one
// family of tracks (for example "nintendo" or "ctgp").
//
// Sorted orders for every sort key are computed once at construction, so
// queries never sort and never mutate shared state.
type TrackSet struct {
	name        string
	title       string
	records     []models.TrackRecord
	byKey       map[string]int
	refreshedAt time.Time
	orders      map[SortKey][]int
}

// newTrackSet takes ownership of records and byKey; byKey maps each
// normalized primary key to its position in records.
func newTrackSet(name, title string, records []models.TrackRecord, byKey map[string]int, refreshedAt time.Time) *TrackSet {
	ts := &TrackSet{
		name:        name,
		title:       title,
		records:     records,
		byKey:       byKey,
		refreshedAt: refreshedAt,
		orders:      make(map[SortKey][]int, 3),
	}
	for _, key := range []SortKey{SortTotal, SortTimeTrial, SortWiimmfi} {
		ts.orders[key] = ts.sortedPositions(key)
	}
	return ts
}

// NewTrackSet builds a track set directly from records, in the given order.
// If two records share a primary key, Lookup finds the first.
func NewTrackSet(name, title string, records []models.TrackRecord, refreshedAt time.Time) *TrackSet {
	cp := make([]models.TrackRecord, len(records))
	copy(cp, records)

	byKey := make(map[string]int, len(cp))
	for i, rec := range cp {
		if _, seen := byKey[rec.Identity.PrimaryKey]; !seen {
			byKey[rec.Identity.PrimaryKey] = i
		}
	}
	return newTrackSet(name, title, cp, byKey, refreshedAt)
}

// Name is the machine name of the set.
func (ts *TrackSet) Name() string { return ts.name }

// Title is the human readable name of the set.
func (ts *TrackSet) Title() string { return ts.title }

// RefreshedAt is when the set was assembled.
func (ts *TrackSet) RefreshedAt() time.Time { return ts.refreshedAt }

// Len returns the number of records.
func (ts *TrackSet) Len() int { return len(ts.records) }

// Records returns a copy of the records in snapshot order.
func (ts *TrackSet) Records() []models.TrackRecord {
	out := make([]models.TrackRecord, len(ts.records))
	copy(out, ts.records)
	return out
}

// Lookup returns a copy of the record with the given primary key.
func (ts *TrackSet) Lookup(primaryKey string) (models.TrackRecord, bool) {
	idx, ok := ts.byKey[models.NormalizeKey(primaryKey)]
	if !ok {
		return models.TrackRecord{}, false
	}
	return ts.records[idx], true
}

// Summary describes the set for listings.
func (ts *TrackSet) Summary() models.TrackSetSummary {
	return models.TrackSetSummary{
		Name:        ts.name,
		Title:       ts.title,
		Tracks:      len(ts.records),
		RefreshedAt: ts.refreshedAt,
	}
}

// sortedPositions orders record positions by the key's score, descending.
// The sort is stable, so ties keep snapshot order.
func (ts *TrackSet) sortedPositions(key SortKey) []int {
	positions := make([]int, len(ts.records))
	for i := range positions {
		positions[i] = i
	}
	sort.SliceStable(positions, func(a, b int) bool {
		return key.score(ts.records[positions[a]]) > key.score(ts.records[positions[b]])
	})
	return positions
}

// Snapshot is one complete, immutable publication of every track set.
type Snapshot struct {
	sets        map[string]*TrackSet
	order       []string
	publishedAt time.Time
	cycle       uint64
}

// NewSnapshot groups track sets into one publication. Later sets with a
// duplicate name replace earlier ones.
func NewSnapshot(cycle uint64, publishedAt time.Time, sets ...*TrackSet) *Snapshot {
	s := &Snapshot{
		sets:        make(map[string]*TrackSet, len(sets)),
		publishedAt: publishedAt,
		cycle:       cycle,
	}
	for _, ts := range sets {
		if ts == nil {
			continue
		}
		if _, dup := s.sets[ts.name]; !dup {
			s.order = append(s.order, ts.name)
		}
		s.sets[ts.name] = ts
	}
	return s
}

// TrackSet returns the named set.
func (s *Snapshot) TrackSet(name string) (*TrackSet, bool) {
	if s == nil {
		return nil, false
	}
	ts, ok := s.sets[name]
	return ts, ok
}

// TrackSets returns the sets in publication order.
func (s *Snapshot) TrackSets() []*TrackSet {
	if s == nil {
		return nil
	}
	out := make([]*TrackSet, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.sets[name])
	}
	return out
}

// PublishedAt is when the snapshot became current.
func (s *Snapshot) PublishedAt() time.Time { return s.publishedAt }

// Cycle is the refresh cycle number that produced the snapshot.
func (s *Snapshot) Cycle() uint64 { return s.cycle }

// Publisher holds the current snapshot. There is one writer (the refresh
// cycle) and any number of readers; publication is a single pointer swap.
type Publisher struct {
	current atomic.Pointer[Snapshot]
}

// NewPublisher returns a publisher with no snapshot.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// Publish makes s the current snapshot.
func (p *Publisher) Publish(s *Snapshot) {
	p.current.Store(s)
}

// Current returns the last published snapshot, or nil before the first publish.
// Callers should resolve it once per request and use that reference throughout.
func (p *Publisher) Current() *Snapshot {
	return p.current.Load()
}
