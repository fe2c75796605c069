package library

import (
	"encoding/binary"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// HashContent returns the content fingerprint used for cache validation
func HashContent(content []byte) uint64 {
	return xxhash.Sum64(content)
}

func combineHashes(hashes []uint64) uint64 {
	d := xxhash.New()
	var buf [8]byte
	for _, h := range hashes {
		binary.LittleEndian.PutUint64(buf[:], h)
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}

type cacheEntry struct {
	hash  uint64
	types []*TypeInfo
}

// Cache keeps harvested types per file, valid while the file content hash
// matches. Cached TypeInfo values are shared and must be treated as read-only.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	hits    int
	misses  int
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

// Get returns the types cached for file when hash still matches
func (c *Cache) Get(file string, hash uint64) ([]*TypeInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[file]
	if !ok || e.hash != hash {
		c.misses++
		return nil, false
	}
	c.hits++
	return e.types, true
}

func (c *Cache) Put(file string, hash uint64, types []*TypeInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[file] = cacheEntry{hash: hash, types: types}
}

// Invalidate drops the entry for file
func (c *Cache) Invalidate(file string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, file)
}

// Stats returns hit and miss counts since creation
func (c *Cache) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
