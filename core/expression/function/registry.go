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

// Package function implements the name -> applier lookup described in
// §4.6: a FunctionFinder maps (name, positional args, named args) to a
// validated FunctionApplier, with the built-in
// count/first/last/min/max/sum/avg/coalesce/iif/random/self/grn
// functions registered by default.
package function

import (
	"sync"

	"github.com/tupledb/querycore/core/errkit"
	"github.com/tupledb/querycore/core/expression"
)

// Builder validates a call's arguments and returns a refined Applier
// carrying the resolved result type, or (nil, reason, nil) when the
// arguments don't match — mirroring validate(args, namedArgs,
// projectionMap, reason) -> applier? from §4.6. (projectionMap, used in
// the source to resolve context-dependent overloads such as bare
// count(), is represented here by passing the surrounding group/window
// context via namedArgs and the call site instead of a separate map
// argument, since this core has no separate "projection map" type.)
type Builder func(args []expression.Expr, namedArgs map[string]expression.Expr) (expression.Applier, string, error)

type cacheEntry struct {
	applier expression.Applier
	reason  string
}

// FunctionFinder resolves call names to Appliers, caching resolved
// appliers by a (name, shape) key with a negative-cache sentinel so
// repeatedly failing lookups (e.g. a typo'd function name used across
// many queries) don't re-walk the builder table.
type FunctionFinder struct {
	mu       sync.RWMutex
	builders map[string]Builder
	cache    map[string]cacheEntry
}

// NewRegistry builds a FunctionFinder preloaded with the built-in
// functions.
func NewRegistry() *FunctionFinder {
	r := &FunctionFinder{
		builders: make(map[string]Builder),
		cache:    make(map[string]cacheEntry),
	}
	registerBuiltins(r)
	return r
}

// Register adds or replaces a named function builder.
func (r *FunctionFinder) Register(name string, b Builder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builders[name] = b
	// A newly registered builder invalidates any cached negative result
	// for this name.
	for k := range r.cache {
		if len(k) >= len(name) && k[:len(name)] == name {
			delete(r.cache, k)
		}
	}
}

// Resolve looks up name and validates args/namedArgs against it,
// returning the refined Applier. The cache key folds in a rendering of
// the argument shape so that distinct call sites of the same name with
// different arities/types resolve independently.
func (r *FunctionFinder) Resolve(name string, args []expression.Expr, namedArgs map[string]expression.Expr) (expression.Applier, error) {
	key := cacheKey(name, args, namedArgs)

	r.mu.RLock()
	if e, ok := r.cache[key]; ok {
		r.mu.RUnlock()
		if e.applier == nil {
			return nil, errkit.ErrUnresolvedName.New(name + ": " + e.reason)
		}
		return e.applier, nil
	}
	builder, ok := r.builders[name]
	r.mu.RUnlock()
	if !ok {
		r.storeCache(key, cacheEntry{reason: "unknown function"})
		return nil, errkit.ErrUnresolvedName.New("unknown function " + name)
	}

	applier, reason, err := builder(args, namedArgs)
	if err != nil {
		return nil, err
	}
	if applier == nil {
		r.storeCache(key, cacheEntry{reason: reason})
		return nil, errkit.ErrUnresolvedName.New(name + ": " + reason)
	}
	r.storeCache(key, cacheEntry{applier: applier})
	return applier, nil
}

func (r *FunctionFinder) storeCache(key string, e cacheEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[key] = e
}

func cacheKey(name string, args []expression.Expr, namedArgs map[string]expression.Expr) string {
	key := name
	for _, a := range args {
		key += "|" + a.Type().String()
	}
	for k, a := range namedArgs {
		key += "|" + k + "=" + a.Type().String()
	}
	return key
}
