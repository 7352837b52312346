package kvstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

type DumpFlags uint64

const (
	DumpKeys = DumpFlags(1 << iota)
	DumpValues
	DumpStats

	DumpAll = DumpFlags(0xFFFFFFFFFFFFFFFF)
)

var dumpSep = strings.Repeat("=", 80)

func (f DumpFlags) Contains(v DumpFlags) bool {
	return (f & v) == v
}

// Dump renders every key starting with prefix, one per line, in key order.
func (s *Store) Dump(ctx context.Context, prefix string, f DumpFlags) (string, error) {
	var buf strings.Builder
	err := s.view(ctx, func(t *txn) error {
		if f.Contains(DumpKeys) {
			err := t.scan(prefix, func(key string, raw []byte) error {
				e, err := decodeEntry(key, raw)
				if err != nil {
					fmt.Fprintf(&buf, "%s ** ERROR: %v\n", key, err)
					return nil
				}
				if f.Contains(DumpValues) {
					fmt.Fprintf(&buf, "%s (%v) %s\n", key, e.Kind, must(json.Marshal(e.value())))
				} else {
					fmt.Fprintf(&buf, "%s (%v)\n", key, e.Kind)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		if f.Contains(DumpStats) {
			st, err := t.stats(prefix)
			if err != nil {
				return err
			}
			fmt.Fprintln(&buf, dumpSep)
			fmt.Fprintf(&buf, "keys = %d, value_size = %d, db_size = %d\n", st.Keys, st.ValueSize, st.DBSize)
		}
		return nil
	})
	return buf.String(), err
}

// Keys lists the keys starting with prefix in byte order.
func (s *Store) Keys(ctx context.Context, prefix string) (keys []string, err error) {
	err = s.view(ctx, func(t *txn) error {
		return t.scan(prefix, func(key string, _ []byte) error {
			keys = append(keys, key)
			return nil
		})
	})
	return
}

// Type reports the kind of value at key, KindNone if it does not exist.
func (s *Store) Type(ctx context.Context, key string) (kind Kind, err error) {
	err = s.view(ctx, func(t *txn) error {
		e, err := t.get(key)
		if e != nil {
			kind = e.Kind
		}
		return err
	})
	return
}

func (t *txn) scan(prefix string, f func(key string, raw []byte) error) error {
	p := []byte(prefix)
	c := t.stx.Cursor()
	for k, v := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
		if err := f(string(k), v); err != nil {
			return err
		}
	}
	return nil
}

func (e *entry) value() any {
	switch e.Kind {
	case KindString:
		return e.Str
	case KindHash:
		return e.Hash
	default:
		return e.Members
	}
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
