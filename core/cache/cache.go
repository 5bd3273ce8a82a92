// Copyright 2026 The QueryCore Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cache implements the process-wide compiled-artifact cache:
// a reference-counted store keyed by a keyenc.Key, standing in for the
// source's weak-valued cache (see the "weak-valued cache" redesign
// note) since the target runtime has no GC-observable weak references.
// Entries are reclaimed once their last Handle is released rather than
// on next GC.
package cache

import (
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/tupledb/querycore/core/keyenc"
)

// Handle is a live reference to a cached value. Callers must Release
// it once they no longer need the value (typically when the
// CompiledQuery that obtained it is itself discarded).
type Handle struct {
	c     *Cache
	key   keyenc.Key
	entry *entry
}

// Value returns the handle's cached value.
func (h *Handle) Value() interface{} { return h.entry.value }

// Release drops this handle's reference. Once every Handle for a key
// has been released, the entry is evicted.
func (h *Handle) Release() {
	h.c.release(h.key, h.entry)
}

type entry struct {
	value interface{}
	refs  int
}

// Cache maps a structural cache key to a shared compiled artifact
// (QueryAggregator, QueryGrouper, CompiledQuery) with atomic
// publish-one-winner construction: under contention newValue may run
// more than once, but only one result is ever installed and returned
// to every concurrent caller.
type Cache struct {
	mu      sync.Mutex
	entries map[keyenc.Key]*entry
	log     *logrus.Entry
}

// New builds an empty cache. log may be nil, in which case a
// disabled logger is used.
func New(log *logrus.Entry) *Cache {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = logrus.NewEntry(l)
	}
	return &Cache{entries: make(map[keyenc.Key]*entry), log: log}
}

// GetOrCreate returns a Handle to the value cached under key, calling
// newValue to construct it if absent. If two goroutines race on the
// same absent key, both may invoke newValue, but only the first
// result recorded under the lock is published; the loser's value is
// discarded.
func (c *Cache) GetOrCreate(key keyenc.Key, newValue func() (interface{}, error)) (*Handle, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		e.refs++
		c.mu.Unlock()
		c.log.WithField("key_len", len(key)).Debug("cache hit")
		return &Handle{c: c, key: key, entry: e}, nil
	}
	c.mu.Unlock()

	v, err := newValue()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		// Another goroutine won the race; our freshly built v is
		// discarded in favor of the already-published entry.
		e.refs++
		c.log.WithField("key_len", len(key)).Debug("cache race, using winner")
		return &Handle{c: c, key: key, entry: e}, nil
	}
	e := &entry{value: v, refs: 1}
	c.entries[key] = e
	c.log.WithField("key_len", len(key)).Debug("cache miss, installed")
	return &Handle{c: c, key: key, entry: e}, nil
}

func (c *Cache) release(key keyenc.Key, e *entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e.refs--
	if e.refs <= 0 {
		if cur, ok := c.entries[key]; ok && cur == e {
			delete(c.entries, key)
			c.log.WithField("key_len", len(key)).Debug("cache entry evicted")
		}
	}
}

// Len reports the number of live entries, for tests and diagnostics.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
