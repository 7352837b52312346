package kvstore

// storage is the ordered byte key-value backend a Store runs on: bbolt for
// files, a sorted slice for tests.
type storage interface {
	// BeginTx starts a new transaction. Only one writable transaction is
	// active at a time.
	BeginTx(writable bool) (storageTx, error)
	Close() error
}

type storageTx interface {
	Writable() bool

	// Get returns nil if the key does not exist. The slice is only valid
	// until the transaction ends.
	Get(key []byte) []byte
	Put(key, value []byte) error
	Delete(key []byte) error

	Cursor() storageCursor

	Commit() error
	// Rollback aborts the transaction. It is safe to call after Commit.
	Rollback() error

	// Size returns the database size in bytes (0 if unknown).
	Size() int64
}

// storageCursor iterates over keys in byte order.
type storageCursor interface {
	First() (key, value []byte)
	// Seek moves to the first key >= seek.
	Seek(seek []byte) (key, value []byte)
	Next() (key, value []byte)
}
