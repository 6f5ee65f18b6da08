// Package xset provides small ordered-set helpers. No other package of
// this repository imports it.
//
// Copyright by Eric S. Raymond
// SPDX-License-Identifier: BSD-2-Clause
package xset

import (
	"strings"

	"github.com/emirpasic/gods/sets/linkedhashset"
)

// StringSet is an insertion-ordered set of strings. It wraps gods'
// linkedhashset so membership tests stay O(1) while iteration order still
// reflects first-seen order.
type StringSet struct {
	set *linkedhashset.Set
}

// NewStringSet builds a StringSet, optionally seeded with elements.
func NewStringSet(elements ...string) StringSet {
	s := StringSet{set: linkedhashset.New()}
	for _, e := range elements {
		s.set.Add(e)
	}
	return s
}

// Add inserts item if not already present.
func (s *StringSet) Add(item string) {
	s.set.Add(item)
}

// Remove deletes item, reporting whether it was present.
func (s *StringSet) Remove(item string) bool {
	had := s.set.Contains(item)
	s.set.Remove(item)
	return had
}

// Contains reports set membership.
func (s StringSet) Contains(item string) bool {
	return s.set.Contains(item)
}

// Len reports the number of elements.
func (s StringSet) Len() int {
	return s.set.Size()
}

// Values returns elements in insertion order.
func (s StringSet) Values() []string {
	raw := s.set.Values()
	out := make([]string, len(raw))
	for i, v := range raw {
		out[i] = v.(string)
	}
	return out
}

// Intersection returns elements present in both sets, ordered by s.
func (s StringSet) Intersection(other StringSet) StringSet {
	out := NewStringSet()
	for _, v := range s.Values() {
		if other.Contains(v) {
			out.Add(v)
		}
	}
	return out
}

// Union returns the merge of both sets, s's order first.
func (s StringSet) Union(other StringSet) StringSet {
	out := NewStringSet(s.Values()...)
	for _, v := range other.Values() {
		out.Add(v)
	}
	return out
}

// Subtract returns elements of s not present in other.
func (s StringSet) Subtract(other StringSet) StringSet {
	out := NewStringSet()
	for _, v := range s.Values() {
		if !other.Contains(v) {
			out.Add(v)
		}
	}
	return out
}

func (s StringSet) String() string {
	return "[" + strings.Join(s.Values(), " ") + "]"
}
