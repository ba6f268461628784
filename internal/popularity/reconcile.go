// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

package popularity

import "github.com/tomtom215/ctgp-popularity/internal/models"

// Reconciler decides which staged records a usage token refers to. A record
// matches when the token contains its primary key, ignoring case. Usage pages
// often decorate the identifier with other text, so containment is used
// rather than equality.
//
// When the keys of several records are all contained in one token, every one
// of them matches.
//
// Build the reconciler after all ranking feed entries are in the store; keys
// added afterwards are not indexed.
type Reconciler struct {
	store   *Store
	matcher *keyMatcher
}

// NewReconciler indexes the current keys of store.
func NewReconciler(store *Store) *Reconciler {
	return &Reconciler{
		store:   store,
		matcher: buildKeyMatcher(store.keys()),
	}
}

// Match returns the records whose primary key is contained in token, in store
// insertion order. It returns nil when nothing matches.
func (r *Reconciler) Match(token string) []*models.TrackRecord {
	positions := r.matcher.match(token)
	if len(positions) == 0 {
		return nil
	}

	out := make([]*models.TrackRecord, len(positions))
	for i, pos := range positions {
		out[i] = r.store.records[pos]
	}
	return out
}

// MatchAny runs Match for every token and merges the results without
// duplicates, keeping store insertion order.
func (r *Reconciler) MatchAny(tokens []string) []*models.TrackRecord {
	seen := make(map[int]struct{})
	for _, token := range tokens {
		for _, pos := range r.matcher.match(token) {
			seen[pos] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil
	}

	out := make([]*models.TrackRecord, 0, len(seen))
	for pos := range r.store.records {
		if _, ok := seen[pos]; ok {
			out = append(out, r.store.records[pos])
		}
	}
	return out
}
