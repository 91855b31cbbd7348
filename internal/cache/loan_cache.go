package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/redis/go-redis/v9"

	"github.com/segyhp/loan-engine/internal/domain"
)

// CachedLoan is a rendered view together with the id of the loan's owner,
// which callers need for access checks. Version is the UpdatedAt of the row
// the view was rendered from.
type CachedLoan struct {
	OwnerID int64
	Version time.Time
	View    *domain.LoanView
}

// LoanCache stores rendered loan views. A miss is reported as (nil, nil).
//
// Set never replaces an entry rendered from a newer row, so a read that raced
// with a write cannot put the older view back. Invalidate and Delete leave a
// marker behind for the same reason.
type LoanCache interface {
	Get(ctx context.Context, loanID int64, today civil.Date) (*CachedLoan, error)
	Set(ctx context.Context, loanID int64, today civil.Date, cached *CachedLoan) error
	// Invalidate drops the view after the row was rewritten at version
	Invalidate(ctx context.Context, loanID int64, version time.Time) error
	// Delete drops the view of a removed loan; no view is accepted afterwards
	Delete(ctx context.Context, loanID int64) error
}

// Entry is the stored form of a cache slot. An entry without a view marks an
// invalidated or deleted loan. RenderedOn is the day the view was rendered on;
// the payment schedule starts on that day, so a view from an earlier day is stale.
type Entry struct {
	RenderedOn civil.Date       `json:"rendered_on"`
	Version    time.Time        `json:"version"`
	Deleted    bool             `json:"deleted,omitempty"`
	OwnerID    int64            `json:"owner_id"`
	View       *domain.LoanView `json:"view,omitempty"`
}

// Accepts reports whether next may overwrite e.
func (e Entry) Accepts(next Entry) bool {
	if next.Deleted {
		return true
	}
	if e.Deleted {
		return false
	}
	return !next.Version.Before(e.Version)
}

// Lookup returns the cached loan held by e, or nil when e holds no usable view for today.
func (e Entry) Lookup(today civil.Date) *CachedLoan {
	if e.View == nil || e.RenderedOn != today {
		return nil
	}
	return &CachedLoan{OwnerID: e.OwnerID, Version: e.Version, View: e.View}
}

func NewEntry(today civil.Date, cached *CachedLoan) Entry {
	return Entry{RenderedOn: today, Version: cached.Version, OwnerID: cached.OwnerID, View: cached.View}
}

type RedisLoanCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLoanCache(client *redis.Client, ttl time.Duration) *RedisLoanCache {
	return &RedisLoanCache{client: client, ttl: ttl}
}

// OpenRedis connects and pings the server.
func OpenRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

func loanKey(loanID int64) string {
	return fmt.Sprintf("loan:view:%d", loanID)
}

func (c *RedisLoanCache) Get(ctx context.Context, loanID int64, today civil.Date) (*CachedLoan, error) {
	raw, err := c.client.Get(ctx, loanKey(loanID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return decodeEntry(raw, today)
}

func (c *RedisLoanCache) Set(ctx context.Context, loanID int64, today civil.Date, cached *CachedLoan) error {
	return c.put(ctx, loanID, NewEntry(today, cached))
}

func (c *RedisLoanCache) Invalidate(ctx context.Context, loanID int64, version time.Time) error {
	return c.put(ctx, loanID, Entry{Version: version})
}

func (c *RedisLoanCache) Delete(ctx context.Context, loanID int64) error {
	return c.put(ctx, loanID, Entry{Deleted: true})
}

// put writes next unless the stored entry refuses it. The read and the write
// run under WATCH; when another writer touches the key in between, that
// writer's entry is kept.
func (c *RedisLoanCache) put(ctx context.Context, loanID int64, next Entry) error {
	payload, err := json.Marshal(next)
	if err != nil {
		return err
	}

	key := loanKey(loanID)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			var current Entry
			if json.Unmarshal(raw, &current) == nil && !current.Accepts(next) {
				return nil
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, c.ttl)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

func decodeEntry(raw []byte, today civil.Date) (*CachedLoan, error) {
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, err
	}
	return e.Lookup(today), nil
}
