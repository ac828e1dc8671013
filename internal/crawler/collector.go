package crawler

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/Bahjat/seo-audit/internal/model"
)

// collector gathers fetched pages from concurrent visits.
type collector struct {
	mu      sync.Mutex
	limit   int
	byIndex map[int]model.FetchedPage
	stopped *atomic.Bool
}

func newCollector(limit int, stopped *atomic.Bool) *collector {
	return &collector{limit: limit, byIndex: map[int]model.FetchedPage{}, stopped: stopped}
}

// add records p at index. It refuses pages once the limit is reached or the
// crawl was stopped.
func (c *collector) add(index int, p model.FetchedPage) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped.Load() || (c.limit > 0 && len(c.byIndex) >= c.limit) {
		return false
	}
	c.byIndex[index] = p
	return true
}

func (c *collector) full() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.limit > 0 && len(c.byIndex) >= c.limit
}

// pages returns the collected pages ordered by index.
func (c *collector) pages() []model.FetchedPage {
	c.mu.Lock()
	defer c.mu.Unlock()

	indexes := make([]int, 0, len(c.byIndex))
	for i := range c.byIndex {
		indexes = append(indexes, i)
	}
	slices.Sort(indexes)

	out := make([]model.FetchedPage, 0, len(indexes))
	for _, i := range indexes {
		out = append(out, c.byIndex[i])
	}
	return out
}
