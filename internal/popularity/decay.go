// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

package popularity

import (
	"math"
	"time"
)

const (
	// DefaultHalfLife halves a usage count every four weeks.
	DefaultHalfLife = 28 * 24 * time.Hour

	// DefaultDecayCap stops the decay after twelve weeks.
	DefaultDecayCap = 84 * 24 * time.Hour

	day = 24 * time.Hour
)

// Usage is a raw usage count as read from the usage table.
type Usage struct {
	Count       float64
	NeverPlayed bool
}

// NeverPlayed is the usage value of a row showing the dash sentinel.
var NeverPlayed = Usage{NeverPlayed: true}

// Played returns a usage value for a real count.
func Played(count float64) Usage {
	return Usage{Count: count}
}

// DecayScorer converts a usage count and the time it was recorded into a
// decayed popularity contribution: count * 0.5^(min(ageDays, cap)/halfLife).
type DecayScorer struct {
	halfLifeDays float64
	capDays      float64
	now          func() time.Time
}

// NewDecayScorer creates a scorer. A non-positive halfLife falls back to
// DefaultHalfLife and a negative cap falls back to DefaultDecayCap.
func NewDecayScorer(halfLife, capAge time.Duration) *DecayScorer {
	if halfLife <= 0 {
		halfLife = DefaultHalfLife
	}
	if capAge < 0 {
		capAge = DefaultDecayCap
	}

	return &DecayScorer{
		halfLifeDays: halfLife.Hours() / 24,
		capDays:      math.Floor(capAge.Hours() / 24),
		now:          time.Now,
	}
}

// HalfLife returns the configured half-life.
func (d *DecayScorer) HalfLife() time.Duration {
	return time.Duration(d.halfLifeDays * float64(day))
}

// Cap returns the configured age cap.
func (d *DecayScorer) Cap() time.Duration {
	return time.Duration(d.capDays) * day
}

// Score decays u relative to the current UTC time.
func (d *DecayScorer) Score(u Usage, addedAt time.Time) float64 {
	return d.ScoreAt(u, addedAt, d.now().UTC())
}

// ScoreAt decays u as seen at now. The never-played sentinel is always 0 and
// the age is not evaluated for it.
func (d *DecayScorer) ScoreAt(u Usage, addedAt, now time.Time) float64 {
	if u.NeverPlayed {
		return 0
	}

	age := ageDays(addedAt, now)
	if age > d.capDays {
		age = d.capDays
	}
	if age == 0 {
		return u.Count
	}

	return u.Count * math.Pow(0.5, age/d.halfLifeDays)
}

// ageDays is the number of whole days between addedAt and now, never negative.
func ageDays(addedAt, now time.Time) float64 {
	elapsed := now.Sub(addedAt)
	if elapsed <= 0 {
		return 0
	}
	return math.Floor(elapsed.Hours() / 24)
}
