// Package msgcache keeps a bounded, time-limited copy of recent message
// bodies so delete and edit logs can show what the message used to say.
// Discord delete events carry only IDs; anything not cached is logged as
// unknown content.
package msgcache

import (
	"container/list"
	"sync"
	"time"
)

const (
	defaultCapacity = 5000
	defaultTTL      = 30 * time.Minute
)

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Message is the subset of a Discord message worth replaying in a log embed.
type Message struct {
	ID          string
	ChannelID   string
	GuildID     string
	AuthorID    string
	AuthorTag   string
	Content     string
	Attachments []string
}

type entry struct {
	msg      Message
	storedAt time.Time
	elem     *list.Element
}

// Cache evicts by age and by count so memory stays bounded no matter how
// busy the guilds are.
type Cache struct {
	mu       sync.Mutex
	clock    Clock
	capacity int
	ttl      time.Duration
	byID     map[string]*entry
	order    *list.List
}

func New() *Cache {
	return &Cache{
		clock:    realClock{},
		capacity: defaultCapacity,
		ttl:      defaultTTL,
		byID:     make(map[string]*entry),
		order:    list.New(),
	}
}

func (c *Cache) WithClock(clock Clock) {
	c.clock = clock
}

func (c *Cache) WithLimits(capacity int, ttl time.Duration) {
	c.mu.Lock()
	if capacity > 0 {
		c.capacity = capacity
	}
	if ttl > 0 {
		c.ttl = ttl
	}
	c.mu.Unlock()
}

// Put stores or refreshes a message. The oldest entry is dropped once the
// cache is full.
func (c *Cache) Put(msg Message) {
	if msg.ID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if existing, ok := c.byID[msg.ID]; ok {
		existing.msg = msg
		existing.storedAt = now
		c.order.MoveToBack(existing.elem)
		return
	}

	e := &entry{msg: msg, storedAt: now}
	e.elem = c.order.PushBack(msg.ID)
	c.byID[msg.ID] = e

	for len(c.byID) > c.capacity {
		c.evictOldest()
	}
}

// Get returns the cached message if it is still fresh.
func (c *Cache) Get(messageID string) (Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.byID[messageID]
	if !ok {
		return Message{}, false
	}
	if c.clock.Now().Sub(e.storedAt) > c.ttl {
		c.remove(e)
		return Message{}, false
	}
	return e.msg, true
}

// Remove drops a message, typically once its deletion has been logged.
func (c *Cache) Remove(messageID string) {
	c.mu.Lock()
	if e, ok := c.byID[messageID]; ok {
		c.remove(e)
	}
	c.mu.Unlock()
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byID)
}

func (c *Cache) evictOldest() {
	front := c.order.Front()
	if front == nil {
		return
	}
	id := front.Value.(string)
	if e, ok := c.byID[id]; ok {
		c.remove(e)
	} else {
		c.order.Remove(front)
	}
}

func (c *Cache) remove(e *entry) {
	c.order.Remove(e.elem)
	delete(c.byID, e.msg.ID)
}
