package ohm

import (
	"context"
)

// binding ties a relation field to its owning record. Fields binds every
// relation it visits, so records obtained from New, Get or a query are
// always bound.
type binding struct {
	owner Model
	field string
}

func (b *binding) bind(owner Model, field string) {
	b.owner = owner
	b.field = field
}

func (b *binding) ownerID() (uint64, error) {
	if b.owner == nil {
		panic("ohm: relation field used before its owner was walked; allocate records with ohm.New or call ohm.Describe")
	}
	id := b.owner.ID()
	if id == 0 {
		return 0, ErrNotSaved
	}
	return id, nil
}

func (b *binding) containerKey() (string, error) {
	id, err := b.ownerID()
	if err != nil {
		return "", err
	}
	return ContainerKey(b.owner.ModelName(), b.field, id), nil
}

func memberID[M any](item *M) (string, error) {
	id := asModel(item).ID()
	if id == 0 {
		return "", ErrNotSaved
	}
	return formatID(id), nil
}

func loadMember[M any](ctx context.Context, db *DB, s string) (*M, error) {
	id, err := parseID(s)
	if err != nil {
		return nil, decoderErrf(asModel(new(M)).ModelName(), "", err, "member %q", s)
	}
	return Get[M](ctx, db, id)
}

// Reference is a non-owning pointer to a record of type M. Declare it with
// Fields.Ref; it is stored as the "<name>_id" attribute.
type Reference[M any] struct {
	id uint64
}

func (r *Reference[M]) idPtr() *uint64 {
	return &r.id
}

func (r *Reference[M]) ID() uint64 {
	return r.id
}

func (r *Reference[M]) IsSet() bool {
	return r.id != 0
}

// Set points the reference at target. Nothing is written until the owner
// is saved.
func (r *Reference[M]) Set(target *M) {
	r.id = asModel(target).ID()
}

func (r *Reference[M]) SetID(id uint64) {
	r.id = id
}

// Get loads the referenced record, or returns nil, nil if the reference is
// unset.
func (r *Reference[M]) Get(ctx context.Context, db *DB) (*M, error) {
	if r.id == 0 {
		return nil, nil
	}
	return Get[M](ctx, db, r.id)
}

// List is an ordered container of record ids stored at {Type}:{field}:{id}.
type List[M any] struct {
	binding
}

func (l *List[M]) Key() (string, error) {
	return l.containerKey()
}

func (l *List[M]) Len(ctx context.Context, db *DB) (int64, error) {
	key, err := l.containerKey()
	if err != nil {
		return 0, err
	}
	n, err := db.store.LLen(ctx, key)
	return n, storeErrf("LLEN", key, err)
}

func (l *List[M]) PushBack(ctx context.Context, db *DB, item *M) error {
	return l.push(ctx, db, item, false)
}

func (l *List[M]) PushFront(ctx context.Context, db *DB, item *M) error {
	return l.push(ctx, db, item, true)
}

func (l *List[M]) push(ctx context.Context, db *DB, item *M, front bool) error {
	key, err := l.containerKey()
	if err != nil {
		return err
	}
	member, err := memberID(item)
	if err != nil {
		return err
	}
	if front {
		_, err = db.store.LPush(ctx, key, member)
		return storeErrf("LPUSH", key, err)
	}
	_, err = db.store.RPush(ctx, key, member)
	return storeErrf("RPUSH", key, err)
}

// PopBack removes and loads the last element; nil, nil if the list is empty.
func (l *List[M]) PopBack(ctx context.Context, db *DB) (*M, error) {
	return l.pop(ctx, db, false)
}

// PopFront removes and loads the first element; nil, nil if the list is empty.
func (l *List[M]) PopFront(ctx context.Context, db *DB) (*M, error) {
	return l.pop(ctx, db, true)
}

func (l *List[M]) pop(ctx context.Context, db *DB, front bool) (*M, error) {
	key, err := l.containerKey()
	if err != nil {
		return nil, err
	}
	var s string
	var found bool
	if front {
		s, found, err = db.store.LPop(ctx, key)
		err = storeErrf("LPOP", key, err)
	} else {
		s, found, err = db.store.RPop(ctx, key)
		err = storeErrf("RPOP", key, err)
	}
	if err != nil || !found {
		return nil, err
	}
	return loadMember[M](ctx, db, s)
}

func (l *List[M]) First(ctx context.Context, db *DB) (*M, error) {
	return l.Index(ctx, db, 0)
}

func (l *List[M]) Last(ctx context.Context, db *DB) (*M, error) {
	return l.Index(ctx, db, -1)
}

// Index loads the element at position i; negative positions count from the
// end. Returns nil, nil when out of range.
func (l *List[M]) Index(ctx context.Context, db *DB, i int64) (*M, error) {
	key, err := l.containerKey()
	if err != nil {
		return nil, err
	}
	s, found, err := db.store.LIndex(ctx, key, i)
	if err != nil {
		return nil, storeErrf("LINDEX", key, err)
	}
	if !found {
		return nil, nil
	}
	return loadMember[M](ctx, db, s)
}

// IDs returns the ids stored between start and stop inclusive; negative
// positions count from the end.
func (l *List[M]) IDs(ctx context.Context, db *DB, start, stop int64) ([]uint64, error) {
	key, err := l.containerKey()
	if err != nil {
		return nil, err
	}
	members, err := db.store.LRange(ctx, key, start, stop)
	if err != nil {
		return nil, storeErrf("LRANGE", key, err)
	}
	return parseIDs(asModel(new(M)).ModelName(), members)
}

// Range loads the elements between start and stop inclusive.
func (l *List[M]) Range(ctx context.Context, db *DB, start, stop int64) ([]*M, error) {
	ids, err := l.IDs(ctx, db, start, stop)
	if err != nil {
		return nil, err
	}
	return newIter[M](ctx, db, ids).Collect()
}

// Iter iterates over the whole list.
func (l *List[M]) Iter(ctx context.Context, db *DB) (*Iter[M], error) {
	ids, err := l.IDs(ctx, db, 0, -1)
	if err != nil {
		return nil, err
	}
	return newIter[M](ctx, db, ids), nil
}

func (l *List[M]) Contains(ctx context.Context, db *DB, item *M) (bool, error) {
	key, err := l.containerKey()
	if err != nil {
		return false, err
	}
	member, err := memberID(item)
	if err != nil {
		return false, err
	}
	members, err := db.store.LRange(ctx, key, 0, -1)
	if err != nil {
		return false, storeErrf("LRANGE", key, err)
	}
	return containsString(members, member), nil
}

// Remove deletes every occurrence of item and returns how many were removed.
func (l *List[M]) Remove(ctx context.Context, db *DB, item *M) (int64, error) {
	key, err := l.containerKey()
	if err != nil {
		return 0, err
	}
	member, err := memberID(item)
	if err != nil {
		return 0, err
	}
	n, err := db.store.LRem(ctx, key, member)
	return n, storeErrf("LREM", key, err)
}

// Set is an unordered container of record ids stored at {Type}:{field}:{id}.
// It can take part in query composition via Query.
type Set[M any] struct {
	binding
}

func (s *Set[M]) Key() (string, error) {
	return s.containerKey()
}

// Add inserts item and reports whether the set changed.
func (s *Set[M]) Add(ctx context.Context, db *DB, item *M) (bool, error) {
	key, member, err := s.keyAndMember(item)
	if err != nil {
		return false, err
	}
	changed, err := db.store.SAdd(ctx, key, member)
	return changed, storeErrf("SADD", key, err)
}

// Remove deletes item and reports whether the set changed.
func (s *Set[M]) Remove(ctx context.Context, db *DB, item *M) (bool, error) {
	key, member, err := s.keyAndMember(item)
	if err != nil {
		return false, err
	}
	changed, err := db.store.SRem(ctx, key, member)
	return changed, storeErrf("SREM", key, err)
}

func (s *Set[M]) Contains(ctx context.Context, db *DB, item *M) (bool, error) {
	key, member, err := s.keyAndMember(item)
	if err != nil {
		return false, err
	}
	found, err := db.store.SIsMember(ctx, key, member)
	return found, storeErrf("SISMEMBER", key, err)
}

func (s *Set[M]) Len(ctx context.Context, db *DB) (int64, error) {
	key, err := s.containerKey()
	if err != nil {
		return 0, err
	}
	n, err := db.store.SCard(ctx, key)
	return n, storeErrf("SCARD", key, err)
}

// Query returns a composable query over the members of the set.
func (s *Set[M]) Query(db *DB) *Query[M] {
	key, err := s.containerKey()
	if err != nil {
		return failedQuery[M](db, err)
	}
	return keyQuery[M](db, key)
}

func (s *Set[M]) Iter(ctx context.Context, db *DB) (*Iter[M], error) {
	return s.Query(db).Iter(ctx)
}

func (s *Set[M]) keyAndMember(item *M) (string, string, error) {
	key, err := s.containerKey()
	if err != nil {
		return "", "", err
	}
	member, err := memberID(item)
	if err != nil {
		return "", "", err
	}
	return key, member, nil
}

// Collection is the read-only view of all records of type M whose
// "<ref>_id" attribute holds the owner's id. The attribute must be indexed.
type Collection[M any] struct {
	binding
}

func (c *Collection[M]) Query(db *DB) *Query[M] {
	id, err := c.ownerID()
	if err != nil {
		return failedQuery[M](db, err)
	}
	return Find[M](db, c.field+"_id", formatID(id))
}

// Counter is an integer stored at {Type}:{id}:{field}, changed only by
// atomic increments.
type Counter struct {
	binding
}

func (c *Counter) Key() (string, error) {
	id, err := c.ownerID()
	if err != nil {
		return "", err
	}
	return CounterKey(c.owner.ModelName(), id, c.field), nil
}

// Incr adds delta and returns the new value.
func (c *Counter) Incr(ctx context.Context, db *DB, delta int64) (int64, error) {
	key, err := c.Key()
	if err != nil {
		return 0, err
	}
	v, err := db.store.IncrBy(ctx, key, delta)
	return v, storeErrf("INCRBY", key, err)
}

func (c *Counter) Decr(ctx context.Context, db *DB, delta int64) (int64, error) {
	return c.Incr(ctx, db, -delta)
}

// Get returns the current value; a counter that was never incremented is 0.
func (c *Counter) Get(ctx context.Context, db *DB) (int64, error) {
	key, err := c.Key()
	if err != nil {
		return 0, err
	}
	v, _, err := db.store.GetInt(ctx, key)
	return v, storeErrf("GET", key, err)
}
