// Package auditlog attributes message deletions to an actor by correlating
// gateway delete events with platform audit-log entries. The platform does
// not say who deleted a message; this is a best-effort heuristic.
package auditlog

import (
	"sync"
	"time"
)

const (
	// ConfidenceModerator: an audit entry for the same author and channel was
	// created within a second of the delete event.
	ConfidenceModerator = "moderator"
	// ConfidenceBatched: an already-seen audit entry's delete count went up,
	// meaning the platform folded this delete into an existing entry.
	ConfidenceBatched = "batched"
	// ConfidenceSelfOrBot: no entry matched; the author or a bot deleted it.
	ConfidenceSelfOrBot = "self_or_bot"
)

// recentWindow is how close an audit entry's creation must be to "now" to
// count as a synchronous moderator action.
const recentWindow = time.Second

type Attribution struct {
	ActorID    string
	Confidence string
}

// Entry is the slice of a platform audit-log deletion entry the correlator
// cares about. TargetID is the author of the deleted messages, Count the
// number of deletions folded into the entry so far.
type Entry struct {
	ID        string
	ActorID   string
	TargetID  string
	ChannelID string
	Count     int
	CreatedAt time.Time
}

// Attributor resolves who deleted a message given the latest audit entries.
type Attributor interface {
	AttributeDelete(authorID, channelID string, entries []Entry) Attribution
}

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type cached struct {
	count    int
	lastSeen time.Time
}

// Correlator keeps a rolling cache of audit entry delete counts so repeated
// deletions folded into one entry can still be attributed. Entries expire
// after ttl; the cache is bounded by construction.
type Correlator struct {
	mu    sync.Mutex
	clock Clock
	ttl   time.Duration
	seen  map[string]*cached
}

func NewCorrelator(ttl time.Duration) *Correlator {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Correlator{
		clock: realClock{},
		ttl:   ttl,
		seen:  make(map[string]*cached),
	}
}

func (c *Correlator) WithClock(clock Clock) {
	c.clock = clock
}

// AttributeDelete scans entries newest-first. Concurrent deletions by
// different actors in the same channel within the same second are
// indistinguishable and fall through to self-or-bot; that is an accepted
// limit of the heuristic, not something to paper over.
func (c *Correlator) AttributeDelete(authorID, channelID string, entries []Entry) Attribution {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	c.evictLocked(now)

	result := Attribution{Confidence: ConfidenceSelfOrBot}
	for _, entry := range entries {
		matches := entry.TargetID == authorID && entry.ChannelID == channelID

		if matches && result.Confidence == ConfidenceSelfOrBot && now.Sub(entry.CreatedAt) <= recentWindow {
			result = Attribution{ActorID: entry.ActorID, Confidence: ConfidenceModerator}
		}

		prev := c.seen[entry.ID]
		if matches && result.Confidence == ConfidenceSelfOrBot && prev != nil && entry.Count > prev.count {
			result = Attribution{ActorID: entry.ActorID, Confidence: ConfidenceBatched}
		}

		// Record the latest count regardless of outcome so the next delete
		// against the same entry can be detected.
		c.seen[entry.ID] = &cached{count: entry.Count, lastSeen: now}
	}

	return result
}

// Size reports how many audit entries are currently cached.
func (c *Correlator) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

func (c *Correlator) evictLocked(now time.Time) {
	for id, entry := range c.seen {
		if now.Sub(entry.lastSeen) > c.ttl {
			delete(c.seen, id)
		}
	}
}
