package kvstore

import (
	"context"
)

type Stats struct {
	Keys      int
	ValueSize int
	ByKind    map[Kind]int

	// DBSize is the size of the whole storage, regardless of prefix.
	DBSize int64
}

// Stats counts the keys starting with prefix.
func (s *Store) Stats(ctx context.Context, prefix string) (st Stats, err error) {
	err = s.view(ctx, func(t *txn) error {
		st, err = t.stats(prefix)
		return err
	})
	return
}

func (t *txn) stats(prefix string) (Stats, error) {
	st := Stats{ByKind: make(map[Kind]int)}
	err := t.scan(prefix, func(key string, raw []byte) error {
		st.Keys++
		st.ValueSize += len(raw)
		e, err := decodeEntry(key, raw)
		if err != nil {
			return err
		}
		st.ByKind[e.Kind]++
		return nil
	})
	st.DBSize = t.stx.Size()
	return st, err
}
