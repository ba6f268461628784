// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

package models

import (
	"strconv"
	"strings"
	"time"
)

// TrackIdentity identifies a logical track. Two identities are the same track
// when their primary keys are equal; the display name is informational only.
type TrackIdentity struct {
	DisplayName string `json:"name"`
	PrimaryKey  string `json:"primary_key"`
}

// NewTrackIdentity builds an identity with a normalized (trimmed, lower-cased) key.
func NewTrackIdentity(displayName, primaryKey string) TrackIdentity {
	return TrackIdentity{
		DisplayName: strings.TrimSpace(displayName),
		PrimaryKey:  NormalizeKey(primaryKey),
	}
}

// NormalizeKey returns the canonical form of a primary key.
func NormalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Equal reports whether both identities refer to the same track.
func (id TrackIdentity) Equal(other TrackIdentity) bool {
	return id.PrimaryKey == other.PrimaryKey
}

// TrackRecord is the reconciled popularity state of one track within a track set.
type TrackRecord struct {
	Identity TrackIdentity `json:"identity"`

	// PrimaryScore is the summed ranking feed count for every entry sharing the key.
	PrimaryScore int `json:"primary_score"`

	// SecondaryScore is the decayed usage contribution. Overwritten, never summed.
	SecondaryScore float64 `json:"secondary_score"`

	RawUsage     float64   `json:"raw_usage"`
	AddedAt      time.Time `json:"added_at,omitempty"`
	UsageMatched bool      `json:"usage_matched"`
}

// TotalScore is the default ranking score.
func (r TrackRecord) TotalScore() float64 {
	return float64(r.PrimaryScore) + r.SecondaryScore
}

// RankedEntry is one line of a ranked view over a track set.
type RankedEntry struct {
	Rank           int     `json:"rank"`
	Ordinal        string  `json:"ordinal"`
	Name           string  `json:"name"`
	PrimaryKey     string  `json:"primary_key"`
	Score          float64 `json:"score"`
	DisplayScore   int64   `json:"display_score"`
	PrimaryScore   int     `json:"primary_score"`
	SecondaryScore float64 `json:"secondary_score"`
	TotalScore     float64 `json:"total_score"`
}

// Ordinal renders n with its English ordinal suffix (1st, 2nd, 11th, 23rd).
func Ordinal(n int) string {
	s := strconv.Itoa(n)
	if n <= 0 {
		return s
	}

	switch n % 100 {
	case 11, 12, 13:
		return s + "th"
	}

	switch n % 10 {
	case 1:
		return s + "st"
	case 2:
		return s + "nd"
	case 3:
		return s + "rd"
	default:
		return s + "th"
	}
}
