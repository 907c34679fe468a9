// Package session holds pending attendance confirmations: a successful
// identity match issues a one-time token that a follow-up call consumes.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/your-org/presenca/internal/observability"
)

// Method is fixed: every session here originates from a facial match.
const Method = "reconhecimento_facial"

// Session is a pending attendance record awaiting confirmation.
type Session struct {
	ID         string
	Processo   string
	Method     string
	Confidence float64
	CreatedAt  time.Time
}

// Cache maps confirmation tokens to pending sessions. Entries expire after
// the configured TTL so an abandoned verification cannot pile up forever.
// Take is exactly-once under concurrency.
type Cache struct {
	mu      sync.Mutex
	entries *gocache.Cache
}

func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		entries: gocache.New(ttl, ttl),
	}
}

// Create issues a fresh token for a successful match and stores the pending
// session under it.
func (c *Cache) Create(processo string, confidence float64) string {
	id := uuid.NewString()
	s := Session{
		ID:         id,
		Processo:   processo,
		Method:     Method,
		Confidence: confidence,
		CreatedAt:  time.Now(),
	}

	c.mu.Lock()
	c.entries.SetDefault(id, s)
	c.mu.Unlock()

	observability.PendingSessions.Set(float64(c.entries.ItemCount()))
	return id
}

// Take consumes the session for id. The second return is false when the
// token was never issued, already confirmed, or expired. A token is consumed
// at most once regardless of concurrent callers.
func (c *Cache) Take(id string) (Session, bool) {
	c.mu.Lock()
	v, ok := c.entries.Get(id)
	if ok {
		c.entries.Delete(id)
	}
	c.mu.Unlock()

	if !ok {
		return Session{}, false
	}
	observability.PendingSessions.Set(float64(c.entries.ItemCount()))
	return v.(Session), true
}

// Len reports the number of pending sessions, expired entries included
// until the janitor sweeps them.
func (c *Cache) Len() int {
	return c.entries.ItemCount()
}
