// Package cache stores parsed template descriptors keyed by (template id,
// content hash) so unchanged templates are never re-parsed.
package cache

import (
	"container/list"
	"sync"

	"golang.org/x/sync/singleflight"

	"stencil/internal/field"
)

// Key identifies one cached descriptor.
type Key struct {
	TemplateID  string
	ContentHash string
}

func (k Key) flightKey() string {
	return k.TemplateID + "\x00" + k.ContentHash
}

// Cache is a bounded LRU of immutable template descriptors. Reads are
// concurrent; racing first parses of the same key are collapsed via
// singleflight (a duplicate parse would be wasteful but never corrupting,
// since descriptors are byte-identical by construction).
type Cache struct {
	mu      sync.Mutex
	max     int
	order   *list.List // front = most recently used
	entries map[Key]*list.Element
	group   singleflight.Group
}

type entry struct {
	key  Key
	desc *field.TemplateDescriptor
}

// New creates a cache holding at most max descriptors. max <= 0 falls back
// to a single entry.
func New(max int) *Cache {
	if max <= 0 {
		max = 1
	}
	return &Cache{
		max:     max,
		order:   list.New(),
		entries: make(map[Key]*list.Element),
	}
}

// Get returns the cached descriptor for key, marking it recently used.
func (c *Cache) Get(key Key) (*field.TemplateDescriptor, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*entry).desc, true
}

// GetOrParse returns the cached descriptor for key, invoking parse on a
// miss. Concurrent callers for the same key share a single parse.
func (c *Cache) GetOrParse(key Key, parse func() (*field.TemplateDescriptor, error)) (*field.TemplateDescriptor, error) {
	if desc, ok := c.Get(key); ok {
		return desc, nil
	}

	v, err, _ := c.group.Do(key.flightKey(), func() (any, error) {
		if desc, ok := c.Get(key); ok {
			return desc, nil
		}
		desc, err := parse()
		if err != nil {
			return nil, err
		}
		c.Put(key, desc)
		return desc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*field.TemplateDescriptor), nil
}

// Put inserts a descriptor, evicting the least recently used entry on
// pressure. Last writer wins for a racing key.
func (c *Cache) Put(key Key, desc *field.TemplateDescriptor) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*entry).desc = desc
		c.order.MoveToFront(el)
		return
	}

	el := c.order.PushFront(&entry{key: key, desc: desc})
	c.entries[key] = el

	for c.order.Len() > c.max {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*entry).key)
	}
}

// Invalidate drops every cached version of a template. Called on explicit
// re-upload; the superseded content hash becomes unreachable.
func (c *Cache) Invalidate(templateID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, el := range c.entries {
		if key.TemplateID == templateID {
			c.order.Remove(el)
			delete(c.entries, key)
		}
	}
}

// Len returns the number of cached descriptors.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
