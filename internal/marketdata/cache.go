package marketdata

import (
	"sync"
	"time"
)

// DefaultQuoteTTL is how long a fetched quote is served from memory.
const DefaultQuoteTTL = 5 * time.Minute

type cachedQuote struct {
	quote     Quote
	expiresAt time.Time
}

// QuoteCache is a last-write-wins, time-boxed map of quotes keyed by ticker.
type QuoteCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cachedQuote
	now     func() time.Time
}

// NewQuoteCache creates a cache whose entries expire ttl after being stored.
func NewQuoteCache(ttl time.Duration) *QuoteCache {
	if ttl <= 0 {
		ttl = DefaultQuoteTTL
	}
	return &QuoteCache{ttl: ttl, entries: make(map[string]cachedQuote), now: time.Now}
}

// Get returns a live entry for ticker.
func (c *QuoteCache) Get(ticker string) (Quote, bool) {
	c.mu.RLock()
	entry, ok := c.entries[NormalizeTicker(ticker)]
	c.mu.RUnlock()
	if !ok || !c.now().Before(entry.expiresAt) {
		return Quote{}, false
	}
	return entry.quote, true
}

// Set stores q under its ticker, replacing any previous entry.
func (c *QuoteCache) Set(q Quote) {
	c.mu.Lock()
	c.entries[NormalizeTicker(q.Ticker)] = cachedQuote{quote: q, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// Prune drops expired entries and returns how many were removed.
func (c *QuoteCache) Prune() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired or not.
func (c *QuoteCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
