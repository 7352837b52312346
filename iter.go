package ohm

import (
	"context"
	"iter"
)

// Iter is a single-pass iterator over query results. Records are loaded as
// the iterator advances, so the result is not a snapshot. A record that
// fails to load, for example because it was deleted after the query ran,
// ends the iteration; Err reports the failure.
type Iter[M any] struct {
	ctx context.Context
	db  *DB
	ids []uint64
	cur *M
	err error
}

func newIter[M any](ctx context.Context, db *DB, ids []uint64) *Iter[M] {
	return &Iter[M]{ctx: ctx, db: db, ids: ids}
}

func (it *Iter[M]) Next() bool {
	it.cur = nil
	if it.err != nil || len(it.ids) == 0 {
		return false
	}
	id := it.ids[0]
	it.ids = it.ids[1:]

	v, err := Get[M](it.ctx, it.db, id)
	if err != nil {
		it.err = err
		it.ids = nil
		return false
	}
	it.cur = v
	return true
}

// Value returns the record loaded by the last successful Next.
func (it *Iter[M]) Value() *M {
	return it.cur
}

func (it *Iter[M]) Err() error {
	return it.err
}

// Remaining returns the number of ids not yet consumed.
func (it *Iter[M]) Remaining() int {
	return len(it.ids)
}

// All adapts the iterator for range-over-func. Check Err after the loop.
func (it *Iter[M]) All() iter.Seq[*M] {
	return func(yield func(*M) bool) {
		for it.Next() {
			if !yield(it.cur) {
				return
			}
		}
	}
}

// Collect drains the iterator.
func (it *Iter[M]) Collect() ([]*M, error) {
	result := make([]*M, 0, len(it.ids))
	for it.Next() {
		result = append(result, it.cur)
	}
	return result, it.err
}
