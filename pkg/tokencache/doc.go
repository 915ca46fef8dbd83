// Package tokencache stores OAuth2 tokens keyed by authority, resource, client
// and user, and persists them between processes.
//
// A Cache is purely in-memory. Persistence is added through Hooks: BeforeAccess
// loads the persisted state before the cache is consulted and AfterAccess writes
// it back, but only when the cache changed. FileStore keeps the cache in a JSON
// file guarded by an advisory file lock; RedisStore keeps it in a Redis key
// guarded by a SET NX lock.
//
//	cache, err := tokencache.NewFileCache("", tokencache.WithLockRetry(3, 10*time.Second))
//	if err := cache.BeforeAccess(ctx); err != nil { ... }
//	match, err := cache.Lookup(tokencache.Query{...})
//	cache.Store(key, item)
//	if err := cache.AfterAccess(ctx); err != nil { ... }
//
// Concurrent writers in different processes are serialized per access by the
// lock; the last writer wins.
package tokencache
