// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

package popularity

import (
	"maps"
	"time"

	"github.com/tomtom215/ctgp-popularity/internal/models"
)

// Store is the private staging area for one track set during a refresh cycle.
// It is filled by a single goroutine and is never shared until it is frozen
// into an immutable TrackSet, so it carries no locking.
//
// Records are created only by AddPrimary. Usage ingestion can update the
// secondary score of an existing record but never adds one.
type Store struct {
	records []*models.TrackRecord
	byKey   map[string]int
}

// NewStore returns an empty staging store.
func NewStore() *Store {
	return &Store{byKey: make(map[string]int)}
}

// AddPrimary records one ranking feed entry. The first entry for a key creates
// the record; later entries with the same key add to its primary score. It
// returns false when the key is empty after normalization.
func (s *Store) AddPrimary(displayName, primaryKey string, count int) bool {
	id := models.NewTrackIdentity(displayName, primaryKey)
	if id.PrimaryKey == "" {
		return false
	}

	if idx, ok := s.byKey[id.PrimaryKey]; ok {
		s.records[idx].PrimaryScore += count
		return true
	}

	s.byKey[id.PrimaryKey] = len(s.records)
	s.records = append(s.records, &models.TrackRecord{
		Identity:     id,
		PrimaryScore: count,
	})
	return true
}

// Len returns the number of records.
func (s *Store) Len() int {
	return len(s.records)
}

// Lookup finds a record by primary key (any case).
func (s *Store) Lookup(primaryKey string) (*models.TrackRecord, bool) {
	idx, ok := s.byKey[models.NormalizeKey(primaryKey)]
	if !ok {
		return nil, false
	}
	return s.records[idx], true
}

// SetSecondary overwrites the usage contribution of rec.
func (s *Store) SetSecondary(rec *models.TrackRecord, score, rawUsage float64, addedAt time.Time) {
	rec.SecondaryScore = score
	rec.RawUsage = rawUsage
	rec.AddedAt = addedAt
	rec.UsageMatched = true
}

// keys returns the primary keys in insertion order.
func (s *Store) keys() []string {
	keys := make([]string, len(s.records))
	for i, rec := range s.records {
		keys[i] = rec.Identity.PrimaryKey
	}
	return keys
}

// Freeze copies the staged records into an immutable TrackSet.
func (s *Store) Freeze(name, title string, refreshedAt time.Time) *TrackSet {
	records := make([]models.TrackRecord, len(s.records))
	for i, rec := range s.records {
		records[i] = *rec
	}
	return newTrackSet(name, title, records, maps.Clone(s.byKey), refreshedAt)
}
