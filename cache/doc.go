// Package cache provides a bounded key-value cache with per-entry expiry and
// least-recently-used eviction, plus type-safe generic helpers.
//
// # Cache Interface
//
// The [Cache] interface covers reads ([Cache.Get], [Cache.Hits],
// [Cache.Entry]), writes ([Cache.Set]), removal ([Cache.Delete],
// [Cache.Clear], [Cache.InvalidatePattern]) and diagnostics ([Cache.Stats]).
//
// The interface uses [any] for values rather than generics because Go does
// not allow generic methods on interfaces. Type safety is provided by the
// package-level generic functions [Get] and [Exec].
//
// # Expiry and Eviction
//
// Every entry carries an absolute expiry. A read of an expired entry is a
// miss and deletes the entry on the spot. Before a new key is inserted all
// expired entries are purged; only then, if the cache still holds
// [WithCapacity] entries, the entry with the oldest last-access time is
// evicted (the earliest inserted one wins a tie). A successful [Cache.Get]
// refreshes the last-access time, so a value that is being read stays
// resident.
//
// Overwriting an existing key replaces its value, expiry and access time and
// never triggers an eviction.
//
// [WithExpiryCheck] starts an optional background sweep. It is off by
// default so that [Cache.Stats] reports stale entries that have not yet been
// touched.
//
// # Keys
//
// [GenerateKey] derives a key from an endpoint and a parameter map with the
// parameter names sorted, so insertion order never changes the key:
//
//	cache.GenerateKey("/api/cases", map[string]any{"skip": 0, "limit": 50})
//	// "/api/cases?limit=50&skip=0"
//
// Because the endpoint is the key prefix, [Cache.InvalidatePattern] with the
// endpoint path busts every cached page of that endpoint after a mutation.
//
// # Generic Helpers
//
// [Get] wraps [Cache.Get] with a type assertion, or decodes values that were
// stored with [Encode]:
//
//	data, _ := cache.Encode(cases)
//	c.Set(ctx, key, data, time.Minute)
//	found, cases, err := cache.Get[[]caselaw.Case](ctx, c, key)
//
// Storing encoded bytes gives value semantics: each read produces a fresh
// copy and no caller can mutate what another caller will read.
//
// [Exec] is a cache-aside helper combining lookup and population:
//
//	found, facets, err := cache.Exec(ctx, cache.CacheConfig{Key: key}, c,
//	    func(ctx context.Context) (caselaw.Facets, bool, error) {
//	        f, err := client.Facets(ctx)
//	        return f, err == nil, err
//	    },
//	)
//
// Cache write errors in [Exec] are swallowed; the caller still gets the
// value produced by the invoker.
package cache
