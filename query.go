package ohm

import (
	"context"
	"sort"
	"strconv"

	"github.com/andreyvit/ohm/setalg"
)

// Query is a boolean expression over index sets of type M. Composition
// methods return a new query that wraps the receiver's expression as one
// operand, so a query can be reused as a prefix of several others.
type Query[M any] struct {
	db   *DB
	name string
	set  setalg.Set
	err  error
}

func modelName[M any]() string {
	return asModel(new(M)).ModelName()
}

func keyQuery[M any](db *DB, key string) *Query[M] {
	return &Query[M]{db: db, name: modelName[M](), set: setalg.KeyString(key)}
}

func failedQuery[M any](db *DB, err error) *Query[M] {
	return &Query[M]{db: db, name: modelName[M](), err: err}
}

// All matches every live record of type M.
func All[M any](db *DB) *Query[M] {
	return keyQuery[M](db, AllKey(modelName[M]()))
}

// Find matches the records of type M whose indexed field equals value.
func Find[M any](db *DB, field, value string) *Query[M] {
	return keyQuery[M](db, IndexKey(modelName[M](), field, value))
}

// Match intersects Find over every field/value pair. With no filters it
// matches all records.
func Match[M any](db *DB, filters map[string]string) *Query[M] {
	if len(filters) == 0 {
		return All[M](db)
	}
	fields := make([]string, 0, len(filters))
	for field := range filters {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	name := modelName[M]()
	leaves := make([]setalg.Set, 0, len(fields))
	for _, field := range fields {
		leaves = append(leaves, setalg.KeyString(IndexKey(name, field, filters[field])))
	}
	q := &Query[M]{db: db, name: name, set: leaves[0]}
	if len(leaves) > 1 {
		q.set = setalg.Inter(leaves...)
	}
	return q
}

// Expr returns the set expression of the query.
func (q *Query[M]) Expr() setalg.Set {
	return q.set
}

func (q *Query[M]) leaf(field, value string) setalg.Set {
	return setalg.KeyString(IndexKey(q.name, field, value))
}

func (q *Query[M]) wrap(kind setalg.Kind, operands []setalg.Set, err error) *Query[M] {
	r := *q
	if r.err == nil {
		r.err = err
	}
	r.set = setalg.Set{Kind: kind, Sets: append([]setalg.Set{q.set}, operands...)}
	return &r
}

func (q *Query[M]) Inter(field, value string) *Query[M] {
	return q.wrap(setalg.KindInter, []setalg.Set{q.leaf(field, value)}, nil)
}

func (q *Query[M]) Union(field, value string) *Query[M] {
	return q.wrap(setalg.KindUnion, []setalg.Set{q.leaf(field, value)}, nil)
}

// Diff removes the records whose field equals value.
func (q *Query[M]) Diff(field, value string) *Query[M] {
	return q.wrap(setalg.KindDiff, []setalg.Set{q.leaf(field, value)}, nil)
}

func (q *Query[M]) InterSets(others ...*Query[M]) *Query[M] {
	sets, err := exprs(others)
	return q.wrap(setalg.KindInter, sets, err)
}

func (q *Query[M]) UnionSets(others ...*Query[M]) *Query[M] {
	sets, err := exprs(others)
	return q.wrap(setalg.KindUnion, sets, err)
}

func (q *Query[M]) DiffSets(others ...*Query[M]) *Query[M] {
	sets, err := exprs(others)
	return q.wrap(setalg.KindDiff, sets, err)
}

func exprs[M any](queries []*Query[M]) ([]setalg.Set, error) {
	var firstErr error
	sets := make([]setalg.Set, 0, len(queries))
	for _, o := range queries {
		if o.err != nil && firstErr == nil {
			firstErr = o.err
		}
		sets = append(sets, o.set)
	}
	return sets, firstErr
}

// IDs evaluates the query in one atomic batch.
func (q *Query[M]) IDs(ctx context.Context) ([]uint64, error) {
	if q.err != nil {
		return nil, q.err
	}
	members, err := q.db.run(ctx, q.db.solver.Solve(q.set))
	if err != nil {
		return nil, err
	}
	return parseIDs(q.name, members)
}

func (q *Query[M]) Count(ctx context.Context) (int, error) {
	ids, err := q.IDs(ctx)
	return len(ids), err
}

// Iter evaluates the query and returns an iterator that loads each record
// on demand.
func (q *Query[M]) Iter(ctx context.Context) (*Iter[M], error) {
	ids, err := q.IDs(ctx)
	if err != nil {
		return nil, err
	}
	return newIter[M](ctx, q.db, ids), nil
}

func (q *Query[M]) Collect(ctx context.Context) ([]*M, error) {
	it, err := q.Iter(ctx)
	if err != nil {
		return nil, err
	}
	return it.Collect()
}

type Limit struct {
	Offset int
	Count  int
}

type SortOptions struct {
	// By names the field to sort by. Counter fields sort by their own key,
	// other fields by the record hash. Empty sorts by id.
	By    string
	Limit *Limit
	Desc  bool
	// Alpha compares values as strings instead of numbers.
	Alpha bool
}

// Sort evaluates the query and orders the result on the store side.
func (q *Query[M]) Sort(ctx context.Context, opt SortOptions) (*Iter[M], error) {
	ids, err := q.SortedIDs(ctx, opt)
	if err != nil {
		return nil, err
	}
	return newIter[M](ctx, q.db, ids), nil
}

func (q *Query[M]) SortedIDs(ctx context.Context, opt SortOptions) ([]uint64, error) {
	if q.err != nil {
		return nil, q.err
	}
	template := [][]byte{[]byte("SORT"), nil}
	if opt.By != "" {
		var pattern string
		if q.db.Info(asModel(new(M))).IsCounter(opt.By) {
			pattern = q.name + ":*:" + opt.By
		} else {
			pattern = q.name + ":*->" + opt.By
		}
		template = append(template, []byte("BY"), []byte(pattern))
	}
	if opt.Limit != nil {
		template = append(template, []byte("LIMIT"),
			[]byte(strconv.Itoa(opt.Limit.Offset)), []byte(strconv.Itoa(opt.Limit.Count)))
	}
	if opt.Desc {
		template = append(template, []byte("DESC"))
	} else {
		template = append(template, []byte("ASC"))
	}
	if opt.Alpha {
		template = append(template, []byte("ALPHA"))
	}

	members, err := q.db.run(ctx, q.db.solver.SolveTemplate(template, 1, q.set))
	if err != nil {
		return nil, err
	}
	return parseIDs(q.name, members)
}

func (q *Query[M]) String() string {
	if q.err != nil {
		return "error: " + q.err.Error()
	}
	return q.set.String()
}
