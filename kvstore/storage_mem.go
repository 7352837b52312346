package kvstore

import (
	"bytes"
	"errors"
	"slices"
	"sort"
	"sync"
)

var (
	errStorageClosed = errors.New("storage closed")
	errTxReadOnly    = errors.New("tx not writable")
)

type memStorage struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []memKV // sorted by key
	closed bool
	writer bool
}

// newMemStorage returns a transient in-memory storage intended for tests.
func newMemStorage() storage {
	s := &memStorage{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *memStorage) BeginTx(writable bool) (storageTx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errStorageClosed
	}
	if writable {
		for s.writer && !s.closed {
			s.cond.Wait()
		}
		if s.closed {
			return nil, errStorageClosed
		}
		s.writer = true
	}

	// every tx works on its own copy; commit swaps it in
	snap := make([]memKV, len(s.items))
	for i, kv := range s.items {
		snap[i] = memKV{key: kv.key, value: slices.Clone(kv.value)}
	}
	return &memTx{base: s, writable: writable, items: snap}, nil
}

func (s *memStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.items = nil
	s.cond.Broadcast()
	return nil
}

type memKV struct {
	key   []byte
	value []byte
}

type memTx struct {
	base     *memStorage
	writable bool
	items    []memKV
	closed   bool
}

func (tx *memTx) Writable() bool { return tx.writable }

func (tx *memTx) closeLocked() {
	if tx.closed {
		return
	}
	tx.closed = true
	if tx.writable {
		tx.base.writer = false
		tx.base.cond.Broadcast()
	}
}

func (tx *memTx) find(key []byte) (int, bool) {
	i := sort.Search(len(tx.items), func(i int) bool {
		return bytes.Compare(tx.items[i].key, key) >= 0
	})
	return i, i < len(tx.items) && bytes.Equal(tx.items[i].key, key)
}

func (tx *memTx) Get(key []byte) []byte {
	if tx.closed {
		panic("tx is closed")
	}
	i, ok := tx.find(key)
	if !ok {
		return nil
	}
	return tx.items[i].value
}

func (tx *memTx) Put(key, value []byte) error {
	if !tx.writable {
		return errTxReadOnly
	}
	value = slices.Clone(value)
	i, ok := tx.find(key)
	if ok {
		tx.items[i].value = value
		return nil
	}
	tx.items = slices.Insert(tx.items, i, memKV{key: slices.Clone(key), value: value})
	return nil
}

func (tx *memTx) Delete(key []byte) error {
	if !tx.writable {
		return errTxReadOnly
	}
	i, ok := tx.find(key)
	if ok {
		tx.items = slices.Delete(tx.items, i, i+1)
	}
	return nil
}

func (tx *memTx) Cursor() storageCursor {
	return &memCursor{tx: tx, pos: -1}
}

func (tx *memTx) Commit() error {
	if tx.closed {
		return nil
	}
	if !tx.writable {
		return errTxReadOnly
	}
	tx.base.mu.Lock()
	defer tx.base.mu.Unlock()
	if tx.base.closed {
		tx.closeLocked()
		return errStorageClosed
	}
	tx.base.items = tx.items
	tx.closeLocked()
	return nil
}

func (tx *memTx) Rollback() error {
	tx.base.mu.Lock()
	defer tx.base.mu.Unlock()
	tx.closeLocked()
	return nil
}

func (tx *memTx) Size() int64 {
	var n int64
	for _, kv := range tx.items {
		n += int64(len(kv.key) + len(kv.value))
	}
	return n
}

type memCursor struct {
	tx  *memTx
	pos int
}

func (c *memCursor) at() ([]byte, []byte) {
	if c.pos < 0 || c.pos >= len(c.tx.items) {
		return nil, nil
	}
	kv := c.tx.items[c.pos]
	return kv.key, kv.value
}

func (c *memCursor) First() ([]byte, []byte) {
	c.pos = 0
	return c.at()
}

func (c *memCursor) Seek(seek []byte) ([]byte, []byte) {
	c.pos, _ = c.tx.find(seek)
	return c.at()
}

func (c *memCursor) Next() ([]byte, []byte) {
	if c.pos < 0 {
		return c.First()
	}
	c.pos++
	return c.at()
}
