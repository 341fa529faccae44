package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"taskboard/app/models"
)

// byID separates single-row lookups from reference-filtered lists.
const byID = "#id"

// QueryKey identifies a cached query: a table name optionally followed by the
// reference the rows were filtered on.
type QueryKey []string

// ProjectsKey is the key of the project list.
func ProjectsKey() QueryKey { return QueryKey{string(models.TableProjects)} }

// ProjectKey is the key of a single project.
func ProjectKey(projectID string) QueryKey {
	return QueryKey{string(models.TableProjects), byID, projectID}
}

// SectionsKey is the key of the sections of a project.
func SectionsKey(projectID string) QueryKey {
	return QueryKey{string(models.TableSections), projectID}
}

// SectionKey is the key of a single section.
func SectionKey(sectionID string) QueryKey {
	return QueryKey{string(models.TableSections), byID, sectionID}
}

// TaskKey is the key of a single task.
func TaskKey(taskID string) QueryKey {
	return QueryKey{string(models.TableTasks), byID, taskID}
}

// TasksKey is the key of the tasks of a section.
func TasksKey(sectionID string) QueryKey {
	return QueryKey{string(models.TableTasks), sectionID}
}

// TableKey is the prefix covering every query on table.
func TableKey(table models.Table) QueryKey { return QueryKey{string(table)} }

func (k QueryKey) String() string {
	return strings.Join(k, "/")
}

// HasPrefix reports whether k starts with every element of prefix.
func (k QueryKey) HasPrefix(prefix QueryKey) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Status is the lifecycle stage of a cached query.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// QueryState is the observable state of one query.
type QueryState struct {
	Status    Status
	Data      any
	Err       error
	UpdatedAt time.Time
}

// DefaultCacheTTL is how long a successful result is served without
// asking the backend again.
const DefaultCacheTTL = 5 * time.Second

// DefaultLoadTimeout bounds a shared load once it no longer follows the
// context of the caller that started it.
const DefaultLoadTimeout = 30 * time.Second

// QueryCache keeps the last result of each query until it is invalidated or
// older than its TTL. Concurrent fetches of the same key share a single
// backend call.
type QueryCache struct {
	mu          sync.Mutex
	entries     map[string]*cacheEntry
	group       singleflight.Group
	ttl         time.Duration
	loadTimeout time.Duration
	now         func() time.Time
}

type cacheEntry struct {
	key   QueryKey
	state QueryState
	// generation changes on invalidation so a fetch started before it
	// cannot store a stale result.
	generation uint64
}

// CacheOption configures a QueryCache.
type CacheOption func(*QueryCache)

// WithTTL sets how long a result stays fresh. Zero makes every Fetch go to
// the backend; concurrent fetches still share one call.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *QueryCache) { c.ttl = ttl }
}

// WithLoadTimeout bounds each shared backend call.
func WithLoadTimeout(d time.Duration) CacheOption {
	return func(c *QueryCache) { c.loadTimeout = d }
}

// NewQueryCache returns an empty cache.
func NewQueryCache(opts ...CacheOption) *QueryCache {
	c := &QueryCache{
		entries:     make(map[string]*cacheEntry),
		ttl:         DefaultCacheTTL,
		loadTimeout: DefaultLoadTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns the cached data for key or runs fn to load it.
// A failed load is remembered as an error state and retried on the next Fetch.
//
// fn runs detached from ctx so that one caller giving up does not fail the
// others waiting on the same key; ctx only bounds how long this caller waits.
func (c *QueryCache) Fetch(ctx context.Context, key QueryKey, fn func(context.Context) (any, error)) (any, error) {
	id := key.String()

	c.mu.Lock()
	e, ok := c.entries[id]
	if ok && e.state.Status == StatusSuccess && c.fresh(e.state) {
		data := e.state.Data
		c.mu.Unlock()
		return data, nil
	}
	if !ok {
		e = &cacheEntry{key: key}
		c.entries[id] = e
	}
	e.state.Status = StatusLoading
	generation := e.generation
	// Joining happens under mu: a load stores its result under mu before it
	// leaves the group, so a caller either sees that result or joins the load.
	ch := c.group.DoChan(id, func() (any, error) {
		return c.load(ctx, id, e, generation, fn)
	})
	c.mu.Unlock()

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *QueryCache) load(ctx context.Context, id string, e *cacheEntry, generation uint64, fn func(context.Context) (any, error)) (any, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout)
	defer cancel()
	v, err := fn(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.entries[id]; ok && cur == e && cur.generation == generation {
		cur.state = QueryState{UpdatedAt: c.now()}
		if err != nil {
			cur.state.Status = StatusError
			cur.state.Err = err
		} else {
			cur.state.Status = StatusSuccess
			cur.state.Data = v
		}
	}
	return v, err
}

func (c *QueryCache) fresh(st QueryState) bool {
	return c.now().Sub(st.UpdatedAt) < c.ttl
}

// Invalidate drops every entry whose key starts with prefix and returns how
// many were dropped.
func (c *QueryCache) Invalidate(prefix QueryKey) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for id, e := range c.entries {
		if e.key.HasPrefix(prefix) {
			e.generation++
			delete(c.entries, id)
			c.group.Forget(id)
			n++
		}
	}
	return n
}

// State returns the current state of key.
func (c *QueryCache) State(key QueryKey) QueryState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key.String()]; ok {
		return e.state
	}
	return QueryState{Status: StatusIdle}
}
