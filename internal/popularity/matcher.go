// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

package popularity

import (
	"sort"
	"strings"
)

// keyMatcher is an Aho-Corasick automaton over primary keys. One pass over a
// token finds every key it contains in O(len(token) + matches), instead of
// testing each of the store's keys with strings.Contains.
//
// Keys and tokens are compared lower-cased. The matcher is immutable once
// built and safe for concurrent use.
type keyMatcher struct {
	root *keyNode
	keys int
}

type keyNode struct {
	children map[rune]*keyNode
	failure  *keyNode
	// records lists the store positions of every key ending here, including
	// keys reachable through failure links.
	records []int
}

func newKeyNode() *keyNode {
	return &keyNode{children: make(map[rune]*keyNode)}
}

// buildKeyMatcher indexes keys[i] -> i. Empty keys are ignored.
func buildKeyMatcher(keys []string) *keyMatcher {
	m := &keyMatcher{root: newKeyNode()}

	for i, key := range keys {
		if key == "" {
			continue
		}
		m.insert(i, strings.ToLower(key))
		m.keys++
	}

	m.linkFailures()
	return m
}

func (m *keyMatcher) insert(record int, key string) {
	node := m.root
	for _, ch := range key {
		next := node.children[ch]
		if next == nil {
			next = newKeyNode()
			node.children[ch] = next
		}
		node = next
	}
	node.records = append(node.records, record)
}

// linkFailures sets failure links breadth-first. Children are visited in
// rune order so the automaton is identical across runs.
func (m *keyMatcher) linkFailures() {
	queue := make([]*keyNode, 0, len(m.root.children))
	for _, ch := range sortedRunes(m.root.children) {
		child := m.root.children[ch]
		child.failure = m.root
		queue = append(queue, child)
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, ch := range sortedRunes(current.children) {
			child := current.children[ch]
			queue = append(queue, child)

			fail := current.failure
			for fail != nil && fail.children[ch] == nil {
				fail = fail.failure
			}

			if fail == nil {
				child.failure = m.root
				continue
			}

			child.failure = fail.children[ch]
			child.records = append(child.records, child.failure.records...)
		}
	}
}

// match returns the positions of every key contained in token, ascending and
// without duplicates.
func (m *keyMatcher) match(token string) []int {
	if m == nil || m.keys == 0 || token == "" {
		return nil
	}

	seen := make(map[int]struct{})
	node := m.root

	for _, ch := range strings.ToLower(token) {
		for node != m.root && node.children[ch] == nil {
			node = node.failure
		}
		if next := node.children[ch]; next != nil {
			node = next
		}
		for _, rec := range node.records {
			seen[rec] = struct{}{}
		}
	}

	if len(seen) == 0 {
		return nil
	}

	out := make([]int, 0, len(seen))
	for rec := range seen {
		out = append(out, rec)
	}
	sort.Ints(out)
	return out
}

func sortedRunes(children map[rune]*keyNode) []rune {
	runes := make([]rune, 0, len(children))
	for ch := range children {
		runes = append(runes, ch)
	}
	sort.Slice(runes, func(i, j int) bool { return runes[i] < runes[j] })
	return runes
}
