package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/revanthm1902/task-token-tracker/internal/model"
)

// TaskCache keeps role-scoped task lists in Redis for a short TTL so
// the dashboard's frequent re-fetches do not all hit MySQL. Task lists
// are small (tens to low hundreds of rows), so entries are whole lists,
// not pages.
//
// Invalidation is explicit and version-based: every key embeds a
// generation counter, and Invalidate bumps the counter so all scopes go
// stale at once. Old generations simply expire. Mutations that already
// hold the authoritative row reconcile it into the cached list instead
// (merge by id, last write wins by updated_at), which keeps a local
// mutation and a racing table-changed notification from clobbering each
// other.
//
// A nil cache, or one built over a nil Redis client, is valid and
// degrades to always-miss.
type TaskCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

// NewTaskCache builds a cache over rdb. rdb may be nil.
func NewTaskCache(rdb *redis.Client, ttl time.Duration) *TaskCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &TaskCache{rdb: rdb, ttl: ttl, prefix: "tasks"}
}

// StaffScope is the shared scope for Admin and Director viewers, who
// all see the same unfiltered list.
const StaffScope = "staff"

// UserScope returns the per-assignee scope key for a User viewer.
func UserScope(userID uint64) string { return fmt.Sprintf("user:%d", userID) }

func (c *TaskCache) enabled() bool { return c != nil && c.rdb != nil }

func (c *TaskCache) key(ctx context.Context, scope string) (string, error) {
	gen, err := c.rdb.Get(ctx, c.prefix+":gen").Result()
	if err == redis.Nil {
		gen = "0"
	} else if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:g%s:%s", c.prefix, gen, scope), nil
}

// Get returns the cached list for scope, or ok=false on miss or when
// Redis is unavailable.
func (c *TaskCache) Get(ctx context.Context, scope string) ([]model.Task, bool) {
	if !c.enabled() {
		return nil, false
	}
	key, err := c.key(ctx, scope)
	if err != nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var tasks []model.Task
	if err := json.Unmarshal(raw, &tasks); err != nil {
		return nil, false
	}
	return tasks, true
}

// Set stores the list for scope with the configured TTL. Failures are
// silent; the cache is advisory.
func (c *TaskCache) Set(ctx context.Context, scope string, tasks []model.Task) {
	if !c.enabled() {
		return
	}
	key, err := c.key(ctx, scope)
	if err != nil {
		return
	}
	raw, err := json.Marshal(tasks)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, key, raw, c.ttl).Err()
}

// Merge reconciles one authoritative row into the cached list for
// scope: replace by id when the row is newer (updated_at), append when
// absent, leave a newer cached copy alone. No-op on cache miss.
func (c *TaskCache) Merge(ctx context.Context, scope string, t model.Task) {
	tasks, ok := c.Get(ctx, scope)
	if !ok {
		return
	}
	merged := MergeTaskLists(tasks, []model.Task{t})
	c.Set(ctx, scope, merged)
}

// Invalidate bumps the generation counter, making every scope stale.
func (c *TaskCache) Invalidate(ctx context.Context) {
	if !c.enabled() {
		return
	}
	_ = c.rdb.Incr(ctx, c.prefix+":gen").Err()
}

// MergeTaskLists merges incoming rows into base by id, last write wins
// by UpdatedAt (ties keep the incoming row, which is assumed to be the
// fresher read). Order of base is preserved; new rows append in input
// order. Exposed as a pure function so the reconciliation rule is
// testable on its own.
func MergeTaskLists(base, incoming []model.Task) []model.Task {
	out := make([]model.Task, len(base))
	copy(out, base)
	index := make(map[uint64]int, len(out))
	for i, t := range out {
		index[t.ID] = i
	}
	for _, in := range incoming {
		if i, ok := index[in.ID]; ok {
			if !in.UpdatedAt.Before(out[i].UpdatedAt) {
				out[i] = in
			}
			continue
		}
		index[in.ID] = len(out)
		out = append(out, in)
	}
	return out
}
