// Package contextstore persists the client-scoped context state in
// Redis: the last-selected tenant and the View-As blob. Both survive a
// page reload but are only a UX convenience; everything read from here
// is revalidated through the resolver before it is trusted. The store
// also invalidates cached role-sensitive responses when the displayed
// role changes.
package contextstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kapehi/insights/internal/model"
)

// roleSensitivePrefixes are the per-user cache namespaces keyed by
// role-visible data. The dashboard's data services share this Redis and
// write their responses under `<prefix>:user:<id>:<namespace>`; this
// service owns the invalidation and drops them whenever View-As
// toggles so subsequent reads reflect the simulated role's visual
// gating. The in-process response cache (middleware) hashes its own
// keys under a separate prefix and holds only real-role data, and is
// not covered here.
var roleSensitivePrefixes = []string{
	"campaigns", "products", "clients", "recommendations", "analytics", "system-mode",
}

// Store wraps a Redis client. A nil client degrades every operation to
// a miss or no-op, matching how the rest of the app treats an
// unavailable Redis (caching and rate limiting just switch off).
type Store struct {
	RDB    *redis.Client
	Prefix string
	TTL    time.Duration
}

func New(rdb *redis.Client, prefix string, ttl time.Duration) *Store {
	if prefix == "" {
		prefix = "ctx"
	}
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Store{RDB: rdb, Prefix: prefix, TTL: ttl}
}

func (s *Store) key(userID uint64, parts ...string) string {
	k := fmt.Sprintf("%s:user:%d", s.Prefix, userID)
	for _, p := range parts {
		k += ":" + p
	}
	return k
}

// LastTenant returns the persisted last-selected tenant id, if any.
func (s *Store) LastTenant(ctx context.Context, userID uint64) (uint64, bool, error) {
	if s.RDB == nil {
		return 0, false, nil
	}
	v, err := s.RDB.Get(ctx, s.key(userID, "tenant")).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	return id, true, nil
}

// SetLastTenant remembers the tenant the user switched to. Callers must
// validate the tenant against the resolver before committing.
func (s *Store) SetLastTenant(ctx context.Context, userID, tenantID uint64) error {
	if s.RDB == nil {
		return nil
	}
	return s.RDB.Set(ctx, s.key(userID, "tenant"), strconv.FormatUint(tenantID, 10), s.TTL).Err()
}

// ViewAs loads the persisted View-As blob. A missing or unreadable blob
// yields the inactive state; silent reversion to the real role is the
// intended fail-safe.
func (s *Store) ViewAs(ctx context.Context, userID uint64) (model.ViewAsState, error) {
	if s.RDB == nil {
		return model.InactiveViewAs(), nil
	}
	raw, err := s.RDB.Get(ctx, s.key(userID, "viewas")).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.InactiveViewAs(), nil
	}
	if err != nil {
		return model.InactiveViewAs(), err
	}
	var st model.ViewAsState
	if err := json.Unmarshal(raw, &st); err != nil {
		return model.InactiveViewAs(), nil
	}
	if !st.UIRole.Valid() {
		return model.InactiveViewAs(), nil
	}
	return st, nil
}

// SetViewAs persists the View-As blob.
func (s *Store) SetViewAs(ctx context.Context, userID uint64, st model.ViewAsState) error {
	if s.RDB == nil {
		return nil
	}
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return s.RDB.Set(ctx, s.key(userID, "viewas"), raw, s.TTL).Err()
}

// InvalidateRoleSensitive drops every cached response keyed by
// role-visible data for the user, so the next reads re-render under the
// currently displayed role.
func (s *Store) InvalidateRoleSensitive(ctx context.Context, userID uint64) error {
	if s.RDB == nil {
		return nil
	}
	keys := make([]string, 0, len(roleSensitivePrefixes))
	for _, p := range roleSensitivePrefixes {
		keys = append(keys, s.key(userID, p))
	}
	return s.RDB.Del(ctx, keys...).Err()
}
