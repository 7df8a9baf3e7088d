// Reelmatch - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelmatch

/*
Package cache provides a thread-safe, generic LRU cache with optional TTL.

Two callers share it:
  - the matrix factorization model caches top-N item lists per user
  - the recommendation engine caches full responses per (mode, user, limit)

Both clear the cache wholesale whenever a new model is swapped in, so entries
never outlive the model that produced them.

# Usage

	c := cache.NewLRU[[]int](1000, 0) // no expiry
	c.Set("user:42", []int{10, 20})
	if ids, ok := c.Get("user:42"); ok {
	    ...
	}
	c.Clear()

# Thread Safety

All methods are safe for concurrent use. Values are returned as stored; callers
that hand out mutable values (slices, pointers) must copy them.
*/
package cache
