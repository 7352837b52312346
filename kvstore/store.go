// Package kvstore is an embedded implementation of ohm.Store. Keys hold
// Redis-style strings, hashes, sets and lists encoded with msgpack in a
// single bbolt bucket (or in memory). Every call, script and command batch
// runs in one storage transaction, which is what makes save, delete and
// query batches atomic.
package kvstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/andreyvit/ohm"
	"go.etcd.io/bbolt"
)

type Store struct {
	st     storage
	logger *slog.Logger
	name   string
}

var _ ohm.Store = (*Store)(nil)

type Options struct {
	IsTesting bool
	MmapSize  int
	Timeout   time.Duration
	Logger    *slog.Logger
}

// Open opens or creates a bbolt database file.
func Open(path string, opt Options) (*Store, error) {
	bopt := &bbolt.Options{}
	*bopt = *bbolt.DefaultOptions
	bopt.Timeout = 10 * time.Second
	if opt.Timeout != 0 {
		bopt.Timeout = opt.Timeout
	}
	if opt.IsTesting {
		bopt.NoSync = true
		bopt.NoFreelistSync = true
		bopt.InitialMmapSize = 1024 * 1024 * 5
	} else {
		bopt.InitialMmapSize = 1024 * 1024 * 1024
		bopt.FreelistType = bbolt.FreelistMapType
	}
	if opt.MmapSize != 0 {
		bopt.InitialMmapSize = opt.MmapSize
	}

	bdb, err := bbolt.Open(path, 0666, bopt)
	if err != nil {
		return nil, fmt.Errorf("kvstore: %w", err)
	}
	return newStore(newBoltStorage(bdb), path, opt), nil
}

// NewMem returns a store that lives in memory until closed.
func NewMem(opt Options) *Store {
	return newStore(newMemStorage(), ":memory:", opt)
}

func newStore(st storage, name string, opt Options) *Store {
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}
	return &Store{st: st, logger: opt.Logger, name: name}
}

func (s *Store) Close() error {
	return s.st.Close()
}

func (s *Store) String() string {
	return "kvstore(" + s.name + ")"
}

func (s *Store) view(ctx context.Context, f func(t *txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stx, err := s.st.BeginTx(false)
	if err != nil {
		return err
	}
	defer stx.Rollback()
	return f(&txn{stx})
}

// update runs f in a write transaction. Nothing is committed if f fails.
func (s *Store) update(ctx context.Context, f func(t *txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stx, err := s.st.BeginTx(true)
	if err != nil {
		return err
	}
	defer stx.Rollback()
	err = f(&txn{stx})
	if err != nil {
		return err
	}
	return stx.Commit()
}

func (s *Store) HGet(ctx context.Context, key, field string) (value string, found bool, err error) {
	err = s.view(ctx, func(t *txn) error {
		value, found, err = t.hget(key, field)
		return err
	})
	return
}

func (s *Store) HGetAll(ctx context.Context, key string) (m map[string]string, err error) {
	err = s.view(ctx, func(t *txn) error {
		m, err = t.hgetall(key)
		return err
	})
	return
}

func (s *Store) Del(ctx context.Context, keys ...string) (n int64, err error) {
	err = s.update(ctx, func(t *txn) error {
		for _, key := range keys {
			deleted, err := t.del(key)
			if err != nil {
				return err
			}
			if deleted {
				n++
			}
		}
		return nil
	})
	return
}

func (s *Store) SAdd(ctx context.Context, key, member string) (changed bool, err error) {
	err = s.update(ctx, func(t *txn) error {
		changed, err = t.sadd(key, member)
		return err
	})
	return
}

func (s *Store) SRem(ctx context.Context, key, member string) (changed bool, err error) {
	err = s.update(ctx, func(t *txn) error {
		changed, err = t.srem(key, member)
		return err
	})
	return
}

func (s *Store) SIsMember(ctx context.Context, key, member string) (found bool, err error) {
	err = s.view(ctx, func(t *txn) error {
		found, err = t.sismember(key, member)
		return err
	})
	return
}

func (s *Store) SCard(ctx context.Context, key string) (n int64, err error) {
	err = s.view(ctx, func(t *txn) error {
		members, err := t.smembers(key)
		n = int64(len(members))
		return err
	})
	return
}

func (s *Store) SMembers(ctx context.Context, key string) (members []string, err error) {
	err = s.view(ctx, func(t *txn) error {
		members, err = t.smembers(key)
		return err
	})
	return
}

func (s *Store) LPush(ctx context.Context, key, member string) (n int64, err error) {
	err = s.update(ctx, func(t *txn) error {
		n, err = t.push(key, member, true)
		return err
	})
	return
}

func (s *Store) RPush(ctx context.Context, key, member string) (n int64, err error) {
	err = s.update(ctx, func(t *txn) error {
		n, err = t.push(key, member, false)
		return err
	})
	return
}

func (s *Store) LPop(ctx context.Context, key string) (v string, found bool, err error) {
	err = s.update(ctx, func(t *txn) error {
		v, found, err = t.pop(key, true)
		return err
	})
	return
}

func (s *Store) RPop(ctx context.Context, key string) (v string, found bool, err error) {
	err = s.update(ctx, func(t *txn) error {
		v, found, err = t.pop(key, false)
		return err
	})
	return
}

func (s *Store) LIndex(ctx context.Context, key string, index int64) (v string, found bool, err error) {
	err = s.view(ctx, func(t *txn) error {
		v, found, err = t.lindex(key, index)
		return err
	})
	return
}

func (s *Store) LRange(ctx context.Context, key string, start, stop int64) (r []string, err error) {
	err = s.view(ctx, func(t *txn) error {
		r, err = t.lrange(key, start, stop)
		return err
	})
	return
}

func (s *Store) LRem(ctx context.Context, key, member string) (n int64, err error) {
	err = s.update(ctx, func(t *txn) error {
		n, err = t.lrem(key, member)
		return err
	})
	return
}

func (s *Store) LLen(ctx context.Context, key string) (n int64, err error) {
	err = s.view(ctx, func(t *txn) error {
		n, err = t.llen(key)
		return err
	})
	return
}

func (s *Store) IncrBy(ctx context.Context, key string, delta int64) (v int64, err error) {
	err = s.update(ctx, func(t *txn) error {
		v, err = t.incrby(key, delta)
		return err
	})
	return
}

func (s *Store) GetInt(ctx context.Context, key string) (v int64, found bool, err error) {
	err = s.view(ctx, func(t *txn) error {
		v, found, err = t.getInt(key)
		return err
	})
	return
}
