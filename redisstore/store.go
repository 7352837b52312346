// Package redisstore implements ohm.Store on a Redis server. Save and
// delete run as server-side Lua scripts; query batches run in MULTI/EXEC.
// Key names are compatible with other Ohm implementations sharing the
// same database.
package redisstore

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/andreyvit/ohm"
	"github.com/redis/go-redis/v9"
)

var (
	//go:embed save.lua
	saveLua string
	//go:embed delete.lua
	deleteLua string

	scripts = map[ohm.Script]*redis.Script{
		ohm.ScriptSave:   redis.NewScript(saveLua),
		ohm.ScriptDelete: redis.NewScript(deleteLua),
	}
)

type Store struct {
	c redis.UniversalClient
}

var _ ohm.Store = (*Store)(nil)

// New wraps an existing client. Closing the store closes the client.
func New(c redis.UniversalClient) *Store {
	return &Store{c: c}
}

// Dial connects to a redis:// URL and pings the server.
func Dial(ctx context.Context, url string) (*Store, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redisstore: %w", err)
	}
	c := redis.NewClient(opt)
	err = c.Ping(ctx).Err()
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("redisstore: %s: %w", opt.Addr, err)
	}
	return New(c), nil
}

func (s *Store) Client() redis.UniversalClient {
	return s.c
}

func (s *Store) Close() error {
	return s.c.Close()
}

// found turns redis.Nil into found == false.
func found(err error) (bool, error) {
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	return err == nil, err
}

// Keys lists the keys starting with prefix, sorted. It walks the keyspace
// with SCAN and is meant for inspection, not for hot paths.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	it := s.c.Scan(ctx, 0, escapeGlob(prefix)+"*", 1000).Iterator()
	for it.Next(ctx) {
		keys = append(keys, it.Val())
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	slices.Sort(keys)
	return slices.Compact(keys), nil
}

func escapeGlob(s string) string {
	var buf []byte
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[', ']', '\\':
			buf = append(buf, '\\')
		}
		buf = append(buf, s[i])
	}
	return string(buf)
}

func (s *Store) HGet(ctx context.Context, key, field string) (string, bool, error) {
	v, err := s.c.HGet(ctx, key, field).Result()
	ok, err := found(err)
	return v, ok, err
}

func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return s.c.HGetAll(ctx, key).Result()
}

func (s *Store) Del(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	return s.c.Del(ctx, keys...).Result()
}

func (s *Store) SAdd(ctx context.Context, key, member string) (bool, error) {
	n, err := s.c.SAdd(ctx, key, member).Result()
	return n > 0, err
}

func (s *Store) SRem(ctx context.Context, key, member string) (bool, error) {
	n, err := s.c.SRem(ctx, key, member).Result()
	return n > 0, err
}

func (s *Store) SIsMember(ctx context.Context, key, member string) (bool, error) {
	return s.c.SIsMember(ctx, key, member).Result()
}

func (s *Store) SCard(ctx context.Context, key string) (int64, error) {
	return s.c.SCard(ctx, key).Result()
}

func (s *Store) SMembers(ctx context.Context, key string) ([]string, error) {
	return s.c.SMembers(ctx, key).Result()
}

func (s *Store) LPush(ctx context.Context, key, member string) (int64, error) {
	return s.c.LPush(ctx, key, member).Result()
}

func (s *Store) RPush(ctx context.Context, key, member string) (int64, error) {
	return s.c.RPush(ctx, key, member).Result()
}

func (s *Store) LPop(ctx context.Context, key string) (string, bool, error) {
	v, err := s.c.LPop(ctx, key).Result()
	ok, err := found(err)
	return v, ok, err
}

func (s *Store) RPop(ctx context.Context, key string) (string, bool, error) {
	v, err := s.c.RPop(ctx, key).Result()
	ok, err := found(err)
	return v, ok, err
}

func (s *Store) LIndex(ctx context.Context, key string, index int64) (string, bool, error) {
	v, err := s.c.LIndex(ctx, key, index).Result()
	ok, err := found(err)
	return v, ok, err
}

func (s *Store) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return s.c.LRange(ctx, key, start, stop).Result()
}

func (s *Store) LRem(ctx context.Context, key, member string) (int64, error) {
	return s.c.LRem(ctx, key, 0, member).Result()
}

func (s *Store) LLen(ctx context.Context, key string) (int64, error) {
	return s.c.LLen(ctx, key).Result()
}

func (s *Store) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	return s.c.IncrBy(ctx, key, delta).Result()
}

func (s *Store) GetInt(ctx context.Context, key string) (int64, bool, error) {
	v, err := s.c.Get(ctx, key).Int64()
	ok, err := found(err)
	return v, ok, err
}

// Eval runs a Lua script with the payloads as ARGV. A uniqueness collision
// comes back as an error containing "UniqueIndexViolation: <field>".
func (s *Store) Eval(ctx context.Context, script ohm.Script, payloads ...[]byte) (int64, error) {
	sc := scripts[script]
	if sc == nil {
		return 0, fmt.Errorf("redisstore: unknown script %q", script)
	}
	args := make([]any, len(payloads))
	for i, p := range payloads {
		args[i] = p
	}
	return sc.Run(ctx, s.c, nil, args...).Int64()
}

// Exec runs the commands in one MULTI/EXEC transaction.
func (s *Store) Exec(ctx context.Context, cmds []ohm.Command, keep int) ([]string, error) {
	if keep < 0 || keep >= len(cmds) {
		return nil, fmt.Errorf("redisstore: result position %d out of %d commands", keep, len(cmds))
	}
	var result *redis.Cmd
	_, err := s.c.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, cmd := range cmds {
			args := make([]any, 0, 1+len(cmd.Args))
			args = append(args, cmd.Name)
			for _, a := range cmd.Args {
				args = append(args, string(a))
			}
			c := pipe.Do(ctx, args...)
			if i == keep {
				result = c
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return replyStrings(result.Val())
}

// replyStrings flattens a command reply into a list of strings. Integer
// replies become one-element lists.
func replyStrings(v any) ([]string, error) {
	switch v := v.(type) {
	case nil:
		return []string{}, nil
	case []any:
		result := make([]string, 0, len(v))
		for _, item := range v {
			switch item := item.(type) {
			case string:
				result = append(result, item)
			case int64:
				result = append(result, strconv.FormatInt(item, 10))
			case nil:
				result = append(result, "")
			default:
				return nil, fmt.Errorf("redisstore: unexpected reply element %T", item)
			}
		}
		return result, nil
	case []string:
		return v, nil
	case string:
		return []string{v}, nil
	case int64:
		return []string{strconv.FormatInt(v, 10)}, nil
	default:
		return nil, fmt.Errorf("redisstore: unexpected reply %T", v)
	}
}
