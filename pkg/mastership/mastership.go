// Package mastership resolves, for one controller instance, whether it is
// the mastering controller for a given device. Membership is rendezvous
// (HRW) hashed over the live controller set, backed by a Redis set that
// every controller instance periodically refreshes (spec §6's FabricView
// "is permitted to program" contract).
package mastership

import (
	"context"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-rendezvous"
	"github.com/go-redis/redis/v8"

	"github.com/srfabric/srouted/pkg/fabric"
	"github.com/srfabric/srouted/pkg/srlog"
)

func xxhashString(s string) uint64 { return xxhash.Sum64String(s) }

// membershipKey is the Redis set holding every controller instance
// currently announcing liveness.
const membershipKey = "SROUTED_CONTROLLER_MEMBERSHIP"

// Resolver decides local mastership of a device by rendezvous-hashing it
// against the controller set most recently read from Redis.
type Resolver struct {
	client       *redis.Client
	self         string
	ttl          time.Duration
	hashFn       *rendezvous.Rendezvous
	lastRead     time.Time
	refreshEvery time.Duration
}

// NewResolver builds a Resolver for controllerID, connecting to Redis at
// addr/db. refreshEvery controls how often the live membership set is
// re-read from Redis between IsLocalMaster calls.
func NewResolver(addr string, db int, controllerID string, refreshEvery time.Duration) *Resolver {
	return &Resolver{
		client:       redis.NewClient(&redis.Options{Addr: addr, DB: db}),
		self:         controllerID,
		ttl:          30 * time.Second,
		refreshEvery: refreshEvery,
	}
}

// Announce records this controller's liveness in the membership set, with
// a TTL refreshed by the caller on an interval shorter than the TTL.
func (r *Resolver) Announce(ctx context.Context) error {
	if err := r.client.SAdd(ctx, membershipKey, r.self).Err(); err != nil {
		return fmt.Errorf("srouted: mastership: announcing %s: %w", r.self, err)
	}
	memberKey := membershipKey + ":" + r.self
	if err := r.client.Set(ctx, memberKey, "1", r.ttl).Err(); err != nil {
		return fmt.Errorf("srouted: mastership: refreshing TTL for %s: %w", r.self, err)
	}
	return nil
}

// Withdraw removes this controller from the membership set, e.g. on clean
// shutdown.
func (r *Resolver) Withdraw(ctx context.Context) error {
	if err := r.client.SRem(ctx, membershipKey, r.self).Err(); err != nil {
		return fmt.Errorf("srouted: mastership: withdrawing %s: %w", r.self, err)
	}
	return nil
}

// refresh re-reads the membership set and rebuilds the rendezvous ring if
// it is stale or has never been built.
func (r *Resolver) refresh(ctx context.Context) error {
	if r.hashFn != nil && time.Since(r.lastRead) < r.refreshEvery {
		return nil
	}

	members, err := r.liveMembers(ctx)
	if err != nil {
		return err
	}
	if len(members) == 0 {
		members = []string{r.self}
	}

	r.hashFn = rendezvous.New(members, xxhashString)
	r.lastRead = time.Now()
	return nil
}

// liveMembers returns every controller ID in the set whose per-member TTL
// key has not expired, pruning dead entries as it goes.
func (r *Resolver) liveMembers(ctx context.Context) ([]string, error) {
	ids, err := r.client.SMembers(ctx, membershipKey).Result()
	if err != nil {
		return nil, fmt.Errorf("srouted: mastership: listing members: %w", err)
	}

	var live []string
	for _, id := range ids {
		n, err := r.client.Exists(ctx, membershipKey+":"+id).Result()
		if err != nil {
			return nil, fmt.Errorf("srouted: mastership: checking liveness of %s: %w", id, err)
		}
		if n > 0 {
			live = append(live, id)
			continue
		}
		if err := r.client.SRem(ctx, membershipKey, id).Err(); err != nil {
			srlog.Logger.WithError(err).WithField("controller", id).Warn("mastership: pruning dead member failed")
		}
	}
	return live, nil
}

// IsLocalMaster reports whether this Resolver's controller is the
// rendezvous winner for deviceId among the currently live controllers.
func (r *Resolver) IsLocalMaster(ctx context.Context, deviceId fabric.DeviceId) (bool, error) {
	if err := r.refresh(ctx); err != nil {
		return false, err
	}
	return r.hashFn.Lookup(string(deviceId)) == r.self, nil
}

// Close releases the underlying Redis client.
func (r *Resolver) Close() error { return r.client.Close() }
