package tokencache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// SerializationVersion is the version written by Serialize.
const SerializationVersion = 1

// ErrMultipleTokens is returned by Lookup when more than one entry matches the query.
var ErrMultipleTokens = errors.New("multiple_tokens_detected")

// Hooks are notified around every cache access. BeforeAccess is expected to load
// persisted state into the cache; AfterAccess to persist it.
type Hooks interface {
	BeforeAccess(ctx context.Context, c *Cache) error
	AfterAccess(ctx context.Context, c *Cache) error
}

// Cache is an in-memory token cache. It is safe for concurrent use; hooks are
// invoked without holding the cache's internal lock.
type Cache struct {
	mu      sync.RWMutex
	buckets map[uint64][]Entry
	dirty   bool

	hooks Hooks
}

// Option configures a Cache.
type Option func(*Cache)

// WithHooks attaches persistence hooks.
func WithHooks(h Hooks) Option {
	return func(c *Cache) {
		c.hooks = h
	}
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{buckets: make(map[uint64][]Entry)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Query selects entries for Lookup. Empty UniqueID and DisplayableID match any user.
type Query struct {
	Authority     string
	Resource      string
	ClientID      string
	SubjectType   SubjectType
	UniqueID      string
	DisplayableID string

	// CrossTenant lets a query that matches nothing under Authority fall back to
	// entries stored under any authority on the same host.
	CrossTenant bool
}

// Match is a Lookup result.
type Match struct {
	Entry

	// MultiResource is set when the entry was issued for another resource and
	// only its multi-resource refresh token is usable for the queried one.
	MultiResource bool
}

// Lookup finds the entry for q. It returns nil without error on a miss and
// ErrMultipleTokens when the query is ambiguous for the requested resource.
func (c *Cache) Lookup(q Query) (*Match, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	authority := normalize(q.Authority)
	candidates := c.filter(func(k Key) bool {
		return k.Authority == authority && q.matchesClientAndUser(k)
	})

	if len(candidates) == 0 && q.CrossTenant {
		host := authorityHost(authority)
		candidates = c.filter(func(k Key) bool {
			return host != "" && authorityHost(k.Authority) == host && q.matchesClientAndUser(k)
		})
	}

	resource := normalize(q.Resource)
	var exact []Entry
	for _, e := range candidates {
		if e.Key.Resource == resource {
			exact = append(exact, e)
		}
	}

	switch len(exact) {
	case 0:
	case 1:
		return &Match{Entry: exact[0]}, nil
	default:
		return nil, fmt.Errorf("%w: %d entries match resource %s", ErrMultipleTokens, len(exact), q.Resource)
	}

	if resource == "" {
		return nil, nil
	}

	var (
		first *Entry
		users = make(map[[2]string]struct{})
	)
	for i, e := range candidates {
		if !e.Item.IsMultipleResourceRefreshToken || e.Item.RefreshToken == "" {
			continue
		}
		if first == nil {
			first = &candidates[i]
		}
		users[[2]string{e.Key.UniqueID, e.Key.DisplayableID}] = struct{}{}
	}
	if first == nil {
		return nil, nil
	}
	// Refresh tokens of one user are interchangeable; those of different users are not.
	if len(users) > 1 {
		return nil, fmt.Errorf("%w: multi-resource refresh tokens of %d users match resource %s", ErrMultipleTokens, len(users), q.Resource)
	}
	return &Match{Entry: *first, MultiResource: true}, nil
}

func (q Query) matchesClientAndUser(k Key) bool {
	if k.ClientID != normalize(q.ClientID) || k.SubjectType != q.SubjectType {
		return false
	}
	if q.UniqueID != "" && k.UniqueID != normalize(q.UniqueID) {
		return false
	}
	if q.DisplayableID != "" && k.DisplayableID != normalize(q.DisplayableID) {
		return false
	}
	return true
}

// filter returns the matching entries in a stable order. Callers hold c.mu.
func (c *Cache) filter(match func(Key) bool) []Entry {
	var out []Entry
	for _, bucket := range c.buckets {
		for _, e := range bucket {
			if match(e.Key) {
				out = append(out, e)
			}
		}
	}
	sortEntries(out)
	return out
}

// Store writes item under key, replacing any existing entry. When item carries a
// multi-resource refresh token, the refresh token of every other multi-resource
// entry of the same authority, client and user is updated as well.
func (c *Cache) Store(key Key, item Item) {
	key = key.Normalize()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.put(key, item)

	if item.IsMultipleResourceRefreshToken && item.RefreshToken != "" {
		for h, bucket := range c.buckets {
			for i := range bucket {
				e := &c.buckets[h][i]
				if e.Key.Resource != key.Resource && e.Key.sameUserAndClient(key) && e.Item.IsMultipleResourceRefreshToken {
					e.Item.RefreshToken = item.RefreshToken
				}
			}
		}
	}

	c.dirty = true
}

func (c *Cache) put(key Key, item Item) {
	h := key.Hash()
	bucket := c.buckets[h]
	for i := range bucket {
		if bucket[i].Key.Equal(key) {
			bucket[i].Item = item
			return
		}
	}
	c.buckets[h] = append(bucket, Entry{Key: key, Item: item})
}

// Remove deletes the entry for key and reports whether one existed.
func (c *Cache) Remove(key Key) bool {
	key = key.Normalize()
	h := key.Hash()

	c.mu.Lock()
	defer c.mu.Unlock()

	bucket := c.buckets[h]
	for i := range bucket {
		if bucket[i].Key.Equal(key) {
			bucket = append(bucket[:i], bucket[i+1:]...)
			if len(bucket) == 0 {
				delete(c.buckets, h)
			} else {
				c.buckets[h] = bucket
			}
			c.dirty = true
			return true
		}
	}
	return false
}

// Items returns a snapshot of all entries ordered by authority, resource, client and user.
func (c *Cache) Items() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filter(func(Key) bool { return true })
}

// Count returns the number of entries.
func (c *Cache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, bucket := range c.buckets {
		n += len(bucket)
	}
	return n
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.buckets) > 0 {
		c.dirty = true
	}
	c.buckets = make(map[uint64][]Entry)
}

// HasStateChanged reports whether the cache was modified since it was last
// loaded or persisted.
func (c *Cache) HasStateChanged() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dirty
}

// BeforeAccess notifies the hooks that the cache is about to be read or written.
func (c *Cache) BeforeAccess(ctx context.Context) error {
	if c.hooks == nil {
		return nil
	}
	return c.hooks.BeforeAccess(ctx, c)
}

// AfterAccess notifies the hooks after an access, but only when the cache changed.
// The dirty flag is cleared once the hooks succeed.
func (c *Cache) AfterAccess(ctx context.Context) error {
	if !c.HasStateChanged() {
		return nil
	}
	if c.hooks != nil {
		if err := c.hooks.AfterAccess(ctx, c); err != nil {
			return err
		}
	}

	c.mu.Lock()
	c.dirty = false
	c.mu.Unlock()
	return nil
}

type document struct {
	Version int     `json:"version"`
	Items   []Entry `json:"items"`
}

// Serialize encodes all entries as versioned JSON.
func (c *Cache) Serialize() ([]byte, error) {
	items := c.Items()
	if items == nil {
		items = []Entry{}
	}
	return json.Marshal(document{Version: SerializationVersion, Items: items})
}

// Deserialize replaces the cache contents with data produced by Serialize and
// clears the dirty flag. Empty data yields an empty cache.
func (c *Cache) Deserialize(data []byte) error {
	buckets := make(map[uint64][]Entry)

	if len(bytes.TrimSpace(data)) > 0 {
		var doc document
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("failed to decode token cache: %w", err)
		}
		if doc.Version != SerializationVersion {
			return fmt.Errorf("unsupported token cache version %d", doc.Version)
		}
		for _, e := range doc.Items {
			key := e.Key.Normalize()
			h := key.Hash()
			replaced := false
			for i := range buckets[h] {
				if buckets[h][i].Key.Equal(key) {
					buckets[h][i].Item = e.Item
					replaced = true
				}
			}
			if !replaced {
				buckets[h] = append(buckets[h], Entry{Key: key, Item: e.Item})
			}
		}
	}

	c.mu.Lock()
	c.buckets = buckets
	c.dirty = false
	c.mu.Unlock()
	return nil
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i].Key, entries[j].Key
		if a.Authority != b.Authority {
			return a.Authority < b.Authority
		}
		if a.Resource != b.Resource {
			return a.Resource < b.Resource
		}
		if a.ClientID != b.ClientID {
			return a.ClientID < b.ClientID
		}
		if a.SubjectType != b.SubjectType {
			return a.SubjectType < b.SubjectType
		}
		if a.UniqueID != b.UniqueID {
			return a.UniqueID < b.UniqueID
		}
		return a.DisplayableID < b.DisplayableID
	})
}
