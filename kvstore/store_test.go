package kvstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t testing.TB) *Store {
	s := NewMem(Options{IsTesting: true})
	t.Cleanup(func() { s.Close() })
	return s
}

func setupBolt(t testing.TB) *Store {
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), Options{IsTesting: true})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func eachStorage(t *testing.T, f func(t *testing.T, s *Store)) {
	t.Run("mem", func(t *testing.T) { f(t, setup(t)) })
	t.Run("bolt", func(t *testing.T) { f(t, setupBolt(t)) })
}

func TestHashes(t *testing.T) {
	eachStorage(t, func(t *testing.T, s *Store) {
		ctx := context.Background()

		_, found, err := s.HGet(ctx, "h", "a")
		require.NoError(t, err)
		assert.False(t, found)

		m, err := s.HGetAll(ctx, "h")
		require.NoError(t, err)
		assert.Empty(t, m)

		err = s.update(ctx, func(t *txn) error {
			return t.hmset("h", []string{"a", "1", "b", "2"})
		})
		require.NoError(t, err)

		v, found, err := s.HGet(ctx, "h", "b")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "2", v)

		m, err = s.HGetAll(ctx, "h")
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"a": "1", "b": "2"}, m)

		n, err := s.Del(ctx, "h", "missing")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})
}

func TestSets(t *testing.T) {
	eachStorage(t, func(t *testing.T, s *Store) {
		ctx := context.Background()

		changed, err := s.SAdd(ctx, "s", "b")
		require.NoError(t, err)
		assert.True(t, changed)
		changed, err = s.SAdd(ctx, "s", "b")
		require.NoError(t, err)
		assert.False(t, changed)
		_, err = s.SAdd(ctx, "s", "a")
		require.NoError(t, err)

		members, err := s.SMembers(ctx, "s")
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, members)

		n, err := s.SCard(ctx, "s")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		found, err := s.SIsMember(ctx, "s", "a")
		require.NoError(t, err)
		assert.True(t, found)

		changed, err = s.SRem(ctx, "s", "a")
		require.NoError(t, err)
		assert.True(t, changed)
		changed, err = s.SRem(ctx, "s", "b")
		require.NoError(t, err)
		assert.True(t, changed)

		kind, err := s.Type(ctx, "s")
		require.NoError(t, err)
		assert.Equal(t, KindNone, kind, "empty set must not exist")
	})
}

func TestLists(t *testing.T) {
	eachStorage(t, func(t *testing.T, s *Store) {
		ctx := context.Background()

		for _, v := range []string{"b", "c", "b"} {
			_, err := s.RPush(ctx, "l", v)
			require.NoError(t, err)
		}
		n, err := s.LPush(ctx, "l", "a")
		require.NoError(t, err)
		assert.Equal(t, int64(4), n)

		r, err := s.LRange(ctx, "l", 0, -1)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c", "b"}, r)

		r, err = s.LRange(ctx, "l", -2, 100)
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "b"}, r)

		r, err = s.LRange(ctx, "l", 3, 1)
		require.NoError(t, err)
		assert.Empty(t, r)

		v, found, err := s.LIndex(ctx, "l", -1)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "b", v)

		_, found, err = s.LIndex(ctx, "l", 4)
		require.NoError(t, err)
		assert.False(t, found)

		removed, err := s.LRem(ctx, "l", "b")
		require.NoError(t, err)
		assert.Equal(t, int64(2), removed)

		v, found, err = s.LPop(ctx, "l")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "a", v)

		v, found, err = s.RPop(ctx, "l")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "c", v)

		_, found, err = s.RPop(ctx, "l")
		require.NoError(t, err)
		assert.False(t, found)

		n, err = s.LLen(ctx, "l")
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestCounters(t *testing.T) {
	eachStorage(t, func(t *testing.T, s *Store) {
		ctx := context.Background()

		_, found, err := s.GetInt(ctx, "c")
		require.NoError(t, err)
		assert.False(t, found)

		v, err := s.IncrBy(ctx, "c", 5)
		require.NoError(t, err)
		assert.Equal(t, int64(5), v)
		v, err = s.IncrBy(ctx, "c", -7)
		require.NoError(t, err)
		assert.Equal(t, int64(-2), v)

		v, found, err = s.GetInt(ctx, "c")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, int64(-2), v)
	})
}

func TestWrongType(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	_, err := s.SAdd(ctx, "k", "a")
	require.NoError(t, err)

	_, err = s.IncrBy(ctx, "k", 1)
	assert.ErrorIs(t, err, ErrWrongType)
	_, err = s.HGetAll(ctx, "k")
	assert.ErrorIs(t, err, ErrWrongType)
	_, err = s.RPush(ctx, "k", "a")
	assert.ErrorIs(t, err, ErrWrongType)
}

func TestCanceledContext(t *testing.T) {
	s := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.SAdd(ctx, "k", "a")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBoltPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "reopen.db")

	s, err := Open(path, Options{IsTesting: true})
	require.NoError(t, err)
	_, err = s.SAdd(ctx, "Dog:all", "1")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path, Options{IsTesting: true})
	require.NoError(t, err)
	defer s.Close()
	found, err := s.SIsMember(ctx, "Dog:all", "1")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestDumpAndKeys(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	_, err := s.SAdd(ctx, "Dog:all", "1")
	require.NoError(t, err)
	_, err = s.IncrBy(ctx, "Dog:id", 1)
	require.NoError(t, err)
	_, err = s.SAdd(ctx, "Cat:all", "1")
	require.NoError(t, err)

	keys, err := s.Keys(ctx, "Dog:")
	require.NoError(t, err)
	assert.Equal(t, []string{"Dog:all", "Dog:id"}, keys)

	out, err := s.Dump(ctx, "Dog:", DumpKeys|DumpValues)
	require.NoError(t, err)
	assert.Equal(t, "Dog:all (set) [\"1\"]\nDog:id (string) \"1\"\n", out)

	st, err := s.Stats(ctx, "Dog:")
	require.NoError(t, err)
	assert.Equal(t, 2, st.Keys)
	assert.Equal(t, map[Kind]int{KindSet: 1, KindString: 1}, st.ByKind)
	assert.Positive(t, st.ValueSize)

	out, err = s.Dump(ctx, "Cat:", DumpStats)
	require.NoError(t, err)
	assert.Contains(t, out, "keys = 1, value_size = ")
}
