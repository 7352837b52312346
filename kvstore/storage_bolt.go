package kvstore

import (
	"unsafe"

	"go.etcd.io/bbolt"
)

var bucketName = []byte("ohm")

type boltStorage struct {
	bdb *bbolt.DB
}

func newBoltStorage(bdb *bbolt.DB) storage {
	return &boltStorage{bdb: bdb}
}

func (s *boltStorage) BeginTx(writable bool) (storageTx, error) {
	btx, err := s.bdb.Begin(writable)
	if err != nil {
		return nil, err
	}
	b := btx.Bucket(bucketName)
	if b == nil && writable {
		b, err = btx.CreateBucket(bucketName)
		if err != nil {
			_ = btx.Rollback()
			return nil, err
		}
	}
	return &boltStorageTx{btx: btx, b: b}, nil
}

func (s *boltStorage) Close() error {
	return s.bdb.Close()
}

type boltStorageTx struct {
	btx *bbolt.Tx
	// nil in a read-only tx of a fresh database
	b *bbolt.Bucket
}

func (tx *boltStorageTx) Writable() bool { return tx.btx.Writable() }

func (tx *boltStorageTx) Get(key []byte) []byte {
	if tx.b == nil {
		return nil
	}
	return tx.b.Get(key)
}

func (tx *boltStorageTx) Put(key, value []byte) error { return tx.b.Put(key, value) }

func (tx *boltStorageTx) Delete(key []byte) error { return tx.b.Delete(key) }

func (tx *boltStorageTx) Cursor() storageCursor {
	if tx.b == nil {
		return emptyCursor{}
	}
	return boltCursor{c: tx.b.Cursor()}
}

func (tx *boltStorageTx) Commit() error { return tx.btx.Commit() }

func (tx *boltStorageTx) Rollback() error {
	err := tx.btx.Rollback()
	if err == bbolt.ErrTxClosed {
		return nil
	}
	return err
}

func (tx *boltStorageTx) Size() int64 { return tx.btx.Size() }

type boltCursor struct {
	c *bbolt.Cursor
}

func (c boltCursor) First() ([]byte, []byte) { return c.c.First() }

func (c boltCursor) Seek(seek []byte) ([]byte, []byte) { return c.c.Seek(seek) }

func (c boltCursor) Next() ([]byte, []byte) { return c.c.Next() }

type emptyCursor struct{}

func (emptyCursor) First() ([]byte, []byte) { return nil, nil }
func (emptyCursor) Seek([]byte) ([]byte, []byte) { return nil, nil }
func (emptyCursor) Next() ([]byte, []byte) { return nil, nil }

func unsafeBytesFromString(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}
