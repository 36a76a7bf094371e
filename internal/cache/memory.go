package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

type memoryEntry struct {
	value []byte
	tags  []string
}

// Memory is an in-process Store backed by go-cache. Suitable for the
// long-running serve command; one-shot CLI runs wanting persistence use
// the sqlite store instead.
type Memory struct {
	c *gocache.Cache
}

// NewMemory creates a memory store. Expired entries are swept every ten
// minutes; per-entry TTLs come from Set options.
func NewMemory() *Memory {
	return &Memory{c: gocache.New(gocache.NoExpiration, 10*time.Minute)}
}

func (m *Memory) Get(key string) ([]byte, bool) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, false
	}
	entry, ok := v.(memoryEntry)
	if !ok {
		return nil, false
	}
	return entry.value, true
}

func (m *Memory) Set(key string, value []byte, opts Options) {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	m.c.Set(key, memoryEntry{value: value, tags: opts.Tags}, ttl)
}

// InvalidateTag removes every entry carrying the tag.
func (m *Memory) InvalidateTag(tag string) error {
	for key, item := range m.c.Items() {
		entry, ok := item.Object.(memoryEntry)
		if !ok {
			continue
		}
		for _, t := range entry.tags {
			if t == tag {
				m.c.Delete(key)
				break
			}
		}
	}
	return nil
}
