// Copyright Elliot Nunn. Portions copyright 2010 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package extractioncache memoizes decompressed entry content so that a
// second Extract call on the same entry need not run the inflater again: a
// tinylfu.T keyed by a cheap non-cryptographic hash, sized by the caller at
// construction and otherwise opaque to anything above it.
package extractioncache

import (
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-tinylfu"
)

// Key identifies a cached extraction by the entry's archive identity
// (offset plus declared size). Two entries can never legitimately share
// both fields within one archive.
type Key struct {
	Offset int64
	Size   int64
}

func hash(k Key) uint64 {
	var buf [16]byte
	le := func(b []byte, v int64) {
		for i := 0; i < 8; i++ {
			b[i] = byte(v >> (8 * i))
		}
	}
	le(buf[0:8], k.Offset)
	le(buf[8:16], k.Size)
	return xxhash.Sum64(buf[:])
}

// Cache is a bounded, mutex-guarded memoization table from Key to the
// decompressed bytes produced for that entry. The zero value is not usable;
// construct with New.
type Cache struct {
	mu sync.Mutex
	t  *tinylfu.T[Key, []byte]
}

// New returns a Cache able to hold roughly capacity entries. capacity must
// be positive. onEvict is called whenever tinylfu's admission policy drops
// an entry to make room for a new one.
func New(capacity int, onEvict func(Key, []byte)) *Cache {
	return &Cache{t: tinylfu.New[Key, []byte](capacity, capacity*10, hash, tinylfu.OnEvict(onEvict))}
}

// Get returns a previously stored value for key, if present.
func (c *Cache) Get(key Key) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t.Get(key)
}

// Add stores value for key, evicting per tinylfu's admission policy if the
// cache is at capacity.
func (c *Cache) Add(key Key, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t.Add(key, value)
}
