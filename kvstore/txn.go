package kvstore

import (
	"strconv"
)

// txn implements the Redis primitives on top of one storage transaction.
// Everything a Store does, including scripts and command batches, runs
// inside a single txn.
type txn struct {
	stx storageTx
}

func (t *txn) get(key string) (*entry, error) {
	raw := t.stx.Get(unsafeBytesFromString(key))
	if raw == nil {
		return nil, nil
	}
	return decodeEntry(key, raw)
}

// typed returns the entry at key, or a new empty entry of the given kind if
// the key does not exist.
func (t *txn) typed(key string, kind Kind) (*entry, error) {
	e, err := t.get(key)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return &entry{Kind: kind}, nil
	}
	if e.Kind != kind {
		return nil, ErrWrongType
	}
	return e, nil
}

func (t *txn) put(key string, e *entry) error {
	if e.empty() {
		return t.stx.Delete(unsafeBytesFromString(key))
	}
	raw, err := e.encode()
	if err != nil {
		return err
	}
	return t.stx.Put(unsafeBytesFromString(key), raw)
}

func (t *txn) del(key string) (bool, error) {
	k := unsafeBytesFromString(key)
	if t.stx.Get(k) == nil {
		return false, nil
	}
	return true, t.stx.Delete(k)
}

func (t *txn) hget(key, field string) (string, bool, error) {
	e, err := t.typed(key, KindHash)
	if err != nil {
		return "", false, err
	}
	v, found := e.Hash[field]
	return v, found, nil
}

func (t *txn) hgetall(key string) (map[string]string, error) {
	e, err := t.typed(key, KindHash)
	if err != nil {
		return nil, err
	}
	if e.Hash == nil {
		return map[string]string{}, nil
	}
	return e.Hash, nil
}

// hmset replaces the hash at key with the alternating field/value list.
func (t *txn) hmset(key string, flat []string) error {
	e, err := t.typed(key, KindHash)
	if err != nil {
		return err
	}
	if e.Hash == nil {
		e.Hash = make(map[string]string, len(flat)/2)
	}
	for i := 0; i+1 < len(flat); i += 2 {
		e.Hash[flat[i]] = flat[i+1]
	}
	return t.put(key, e)
}

func (t *txn) hset(key, field, value string) error {
	return t.hmset(key, []string{field, value})
}

func (t *txn) hdel(key, field string) (bool, error) {
	e, err := t.typed(key, KindHash)
	if err != nil {
		return false, err
	}
	if _, found := e.Hash[field]; !found {
		return false, nil
	}
	delete(e.Hash, field)
	return true, t.put(key, e)
}

func (t *txn) sadd(key, member string) (bool, error) {
	e, err := t.typed(key, KindSet)
	if err != nil {
		return false, err
	}
	if !e.setAdd(member) {
		return false, nil
	}
	return true, t.put(key, e)
}

func (t *txn) srem(key, member string) (bool, error) {
	e, err := t.typed(key, KindSet)
	if err != nil {
		return false, err
	}
	if !e.setRemove(member) {
		return false, nil
	}
	return true, t.put(key, e)
}

func (t *txn) sismember(key, member string) (bool, error) {
	e, err := t.typed(key, KindSet)
	if err != nil {
		return false, err
	}
	return e.setContains(member), nil
}

func (t *txn) smembers(key string) ([]string, error) {
	e, err := t.typed(key, KindSet)
	if err != nil {
		return nil, err
	}
	if e.Members == nil {
		return []string{}, nil
	}
	return e.Members, nil
}

func (t *txn) push(key, member string, front bool) (int64, error) {
	e, err := t.typed(key, KindList)
	if err != nil {
		return 0, err
	}
	if front {
		e.Members = append([]string{member}, e.Members...)
	} else {
		e.Members = append(e.Members, member)
	}
	return int64(len(e.Members)), t.put(key, e)
}

func (t *txn) pop(key string, front bool) (string, bool, error) {
	e, err := t.typed(key, KindList)
	if err != nil || len(e.Members) == 0 {
		return "", false, err
	}
	var v string
	if front {
		v, e.Members = e.Members[0], e.Members[1:]
	} else {
		n := len(e.Members) - 1
		v, e.Members = e.Members[n], e.Members[:n]
	}
	return v, true, t.put(key, e)
}

func (t *txn) lrange(key string, start, stop int64) ([]string, error) {
	e, err := t.typed(key, KindList)
	if err != nil {
		return nil, err
	}
	lo, hi, ok := listRange(len(e.Members), start, stop)
	if !ok {
		return []string{}, nil
	}
	return e.Members[lo:hi], nil
}

func (t *txn) lrem(key, member string) (int64, error) {
	e, err := t.typed(key, KindList)
	if err != nil {
		return 0, err
	}
	kept := e.Members[:0]
	for _, m := range e.Members {
		if m != member {
			kept = append(kept, m)
		}
	}
	removed := int64(len(e.Members) - len(kept))
	if removed == 0 {
		return 0, nil
	}
	e.Members = kept
	return removed, t.put(key, e)
}

func (t *txn) incrby(key string, delta int64) (int64, error) {
	e, err := t.typed(key, KindString)
	if err != nil {
		return 0, err
	}
	var v int64
	if e.Str != "" {
		v, err = e.integer()
		if err != nil {
			return 0, err
		}
	}
	v += delta
	e.Str = strconv.FormatInt(v, 10)
	return v, t.put(key, e)
}

func (t *txn) getInt(key string) (int64, bool, error) {
	e, err := t.get(key)
	if err != nil || e == nil {
		return 0, false, err
	}
	if e.Kind != KindString {
		return 0, false, ErrWrongType
	}
	v, err := e.integer()
	return v, err == nil, err
}

// str returns the text of a string key, or of a hash field when field is
// not empty. Used to read sort weights.
func (t *txn) str(key string, field string) (string, bool, error) {
	if field != "" {
		return t.hget(key, field)
	}
	e, err := t.get(key)
	if err != nil || e == nil {
		return "", false, err
	}
	if e.Kind != KindString {
		return "", false, ErrWrongType
	}
	return e.Str, true, nil
}

func (t *txn) llen(key string) (int64, error) {
	e, err := t.typed(key, KindList)
	if err != nil {
		return 0, err
	}
	return int64(len(e.Members)), nil
}

func (t *txn) lindex(key string, index int64) (string, bool, error) {
	e, err := t.typed(key, KindList)
	if err != nil {
		return "", false, err
	}
	n := int64(len(e.Members))
	if index < 0 {
		index += n
	}
	if index < 0 || index >= n {
		return "", false, nil
	}
	return e.Members[index], true, nil
}
