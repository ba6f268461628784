// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

package sync

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/ctgp-popularity/internal/metrics"
)

const detailKeyPrefix = "detail:"

// DetailCache remembers the identifier tokens found on usage detail pages.
// Track hashes do not change, so a page only needs fetching once per TTL.
type DetailCache interface {
	Get(url string) ([]string, bool)
	Set(url string, tokens []string) error
	Close() error
}

// detailEntry is the stored value.
type detailEntry struct {
	Tokens    []string  `json:"tokens"`
	FetchedAt time.Time `json:"fetched_at"`
}

// BadgerDetailCache implements DetailCache on BadgerDB with per-entry TTL.
type BadgerDetailCache struct {
	db  *badger.DB
	ttl time.Duration
}

// OpenBadgerDetailCache opens a cache at path. An empty path keeps the cache
// in memory, which still saves the repeated fetches within one process.
func OpenBadgerDetailCache(path string, ttl time.Duration) (*BadgerDetailCache, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil // Suppress BadgerDB logs

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for detail cache: %w", err)
	}
	return NewBadgerDetailCache(db, ttl), nil
}

// NewBadgerDetailCache uses an already opened database.
func NewBadgerDetailCache(db *badger.DB, ttl time.Duration) *BadgerDetailCache {
	return &BadgerDetailCache{db: db, ttl: ttl}
}

// Get returns the cached tokens for url.
func (c *BadgerDetailCache) Get(url string) ([]string, bool) {
	var entry detailEntry

	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(detailKeyPrefix + url))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if err != nil {
		metrics.RecordCacheLookup("detail", false)
		return nil, false
	}

	metrics.RecordCacheLookup("detail", true)
	return entry.Tokens, true
}

// Set stores tokens for url with the configured TTL.
func (c *BadgerDetailCache) Set(url string, tokens []string) error {
	data, err := json.Marshal(detailEntry{Tokens: tokens, FetchedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal detail entry: %w", err)
	}

	return c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(detailKeyPrefix+url), data)
		if c.ttl > 0 {
			e = e.WithTTL(c.ttl)
		}
		if err := txn.SetEntry(e); err != nil {
			return fmt.Errorf("set detail entry: %w", err)
		}
		return nil
	})
}

// Delete removes url from the cache.
func (c *BadgerDetailCache) Delete(url string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(detailKeyPrefix + url))
		if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete detail entry: %w", err)
		}
		return nil
	})
}

// Close closes the underlying database.
func (c *BadgerDetailCache) Close() error {
	return c.db.Close()
}

// detailGCRatio is the discard ratio passed to RunValueLogGC.
const detailGCRatio = 0.5

// RunGC reclaims value log space held by expired entries. It runs until
// badger reports nothing left to rewrite. In-memory caches have no value log
// and return nil.
func (c *BadgerDetailCache) RunGC() error {
	if c.db.Opts().InMemory {
		return nil
	}

	for {
		err := c.db.RunValueLogGC(detailGCRatio)
		if errors.Is(err, badger.ErrNoRewrite) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run detail cache GC: %w", err)
		}
	}
}
