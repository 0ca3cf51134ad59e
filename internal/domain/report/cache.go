package report

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedRepository serves reads from an LRU cache. Reports are immutable,
// so entries never need invalidation.
type CachedRepository struct {
	next      Repository
	byID      *lru.Cache[string, *Report]
	bySession *lru.Cache[string, *Report]
}

// NewCachedRepository wraps repo with caches holding up to size reports.
func NewCachedRepository(repo Repository, size int) (*CachedRepository, error) {
	byID, err := lru.New[string, *Report](size)
	if err != nil {
		return nil, err
	}
	bySession, err := lru.New[string, *Report](size)
	if err != nil {
		return nil, err
	}
	return &CachedRepository{next: repo, byID: byID, bySession: bySession}, nil
}

// Create stores the report and primes the cache.
func (c *CachedRepository) Create(ctx context.Context, tenantID string, rep *Report) error {
	if err := c.next.Create(ctx, tenantID, rep); err != nil {
		return err
	}
	c.add(tenantID, rep)
	return nil
}

// Get loads a report by id.
func (c *CachedRepository) Get(ctx context.Context, tenantID, id string) (*Report, error) {
	if rep, ok := c.byID.Get(cacheKey(tenantID, id)); ok {
		return rep, nil
	}
	rep, err := c.next.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	c.add(tenantID, rep)
	return rep, nil
}

// GetBySession loads the report of a session.
func (c *CachedRepository) GetBySession(ctx context.Context, tenantID, sessionID string) (*Report, error) {
	if rep, ok := c.bySession.Get(cacheKey(tenantID, sessionID)); ok {
		return rep, nil
	}
	rep, err := c.next.GetBySession(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	c.add(tenantID, rep)
	return rep, nil
}

// Len returns the number of reports cached by id.
func (c *CachedRepository) Len() int {
	return c.byID.Len()
}

func (c *CachedRepository) add(tenantID string, rep *Report) {
	c.byID.Add(cacheKey(tenantID, rep.ID), rep)
	c.bySession.Add(cacheKey(tenantID, rep.SessionID), rep)
}

func cacheKey(tenantID, id string) string {
	return tenantID + "/" + id
}
