package kvstore

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/andreyvit/ohm"
)

// Eval runs the save or delete unit of work in one write transaction.
func (s *Store) Eval(ctx context.Context, script ohm.Script, payloads ...[]byte) (result int64, err error) {
	switch script {
	case ohm.ScriptSave:
		args, err := ohm.DecodeSaveArgs(payloads)
		if err != nil {
			return 0, err
		}
		err = s.update(ctx, func(t *txn) error {
			result, err = t.save(args)
			return err
		})
		if s.logger.Enabled(ctx, slog.LevelDebug) {
			s.logger.LogAttrs(ctx, slog.LevelDebug, "kvstore: save", slog.String("model", args.Model.Name), slog.Int64("id", result), slog.Any("err", err))
		}
		return result, err

	case ohm.ScriptDelete:
		args, err := ohm.DecodeDeleteArgs(payloads)
		if err != nil {
			return 0, err
		}
		err = s.update(ctx, func(t *txn) error {
			return t.delete(args)
		})
		if s.logger.Enabled(ctx, slog.LevelDebug) {
			s.logger.LogAttrs(ctx, slog.LevelDebug, "kvstore: delete", slog.String("key", args.Model.Key), slog.Any("err", err))
		}
		return 0, err

	default:
		return 0, fmt.Errorf("kvstore: unknown script %q", script)
	}
}

func (t *txn) save(a *ohm.SaveArgs) (int64, error) {
	name := a.Model.Name
	if name == "" {
		return 0, fmt.Errorf("kvstore: save: missing model name")
	}
	if len(a.Attrs)%2 != 0 {
		return 0, fmt.Errorf("kvstore: save: wrong number of attribute/value pairs")
	}

	// verify before writing anything
	for _, field := range sortedKeys(a.Uniques) {
		owner, found, err := t.hget(ohm.UniqueKey(name, field), a.Uniques[field])
		if err != nil {
			return 0, err
		}
		if found && owner != a.Model.ID {
			return 0, &ohm.UniqueIndexViolationError{Field: field}
		}
	}

	id := a.Model.ID
	if id == "" {
		n, err := t.incrby(ohm.IDKey(name), 1)
		if err != nil {
			return 0, err
		}
		id = strconv.FormatInt(n, 10)
	}
	result, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("kvstore: save: invalid id %q", id)
	}
	key := name + ":" + id

	if _, err := t.sadd(ohm.AllKey(name), id); err != nil {
		return 0, err
	}
	if _, err := t.del(key); err != nil {
		return 0, err
	}
	if err := t.hmset(key, a.Attrs); err != nil {
		return 0, err
	}

	if err := t.removeIndices(key, id); err != nil {
		return 0, err
	}
	memo := ohm.IndicesMemoKey(key)
	for _, field := range sortedKeys(a.Indices) {
		for _, value := range a.Indices[field] {
			ikey := ohm.IndexKey(name, field, value)
			if _, err := t.sadd(memo, ikey); err != nil {
				return 0, err
			}
			if _, err := t.sadd(ikey, id); err != nil {
				return 0, err
			}
		}
	}

	if err := t.removeUniques(key, id); err != nil {
		return 0, err
	}
	umemo := ohm.UniquesMemoKey(key)
	for _, field := range sortedKeys(a.Uniques) {
		ukey := ohm.UniqueKey(name, field)
		if err := t.hset(umemo, ukey, a.Uniques[field]); err != nil {
			return 0, err
		}
		if err := t.hset(ukey, a.Uniques[field], id); err != nil {
			return 0, err
		}
	}
	return result, nil
}

func (t *txn) delete(a *ohm.DeleteArgs) error {
	name, id, key := a.Model.Name, a.Model.ID, a.Model.Key
	if name == "" || id == "" {
		return fmt.Errorf("kvstore: delete: missing model name or id")
	}
	if key == "" {
		key = name + ":" + id
	}

	if err := t.removeIndices(key, id); err != nil {
		return err
	}
	if err := t.removeUniques(key, id); err != nil {
		return err
	}
	// values the record holds now, in case the memo predates them
	for field, value := range a.Uniques {
		ukey := ohm.UniqueKey(name, field)
		owner, found, err := t.hget(ukey, value)
		if err != nil {
			return err
		}
		if found && owner == id {
			if _, err := t.hdel(ukey, value); err != nil {
				return err
			}
		}
	}
	for _, tracked := range a.Tracked {
		if _, err := t.del(tracked); err != nil {
			return err
		}
	}
	if _, err := t.srem(ohm.AllKey(name), id); err != nil {
		return err
	}
	for _, k := range []string{ohm.IndicesMemoKey(key), ohm.UniquesMemoKey(key), key} {
		if _, err := t.del(k); err != nil {
			return err
		}
	}
	return nil
}

// removeIndices takes the record out of every index set listed in its
// _indices memo.
func (t *txn) removeIndices(key, id string) error {
	memo := ohm.IndicesMemoKey(key)
	ikeys, err := t.smembers(memo)
	if err != nil {
		return err
	}
	for _, ikey := range ikeys {
		if _, err := t.srem(ikey, id); err != nil {
			return err
		}
	}
	_, err = t.del(memo)
	return err
}

// removeUniques releases every unique value listed in the record's
// _uniques memo.
func (t *txn) removeUniques(key, id string) error {
	memo := ohm.UniquesMemoKey(key)
	owned, err := t.hgetall(memo)
	if err != nil {
		return err
	}
	for _, ukey := range sortedKeys(owned) {
		owner, found, err := t.hget(ukey, owned[ukey])
		if err != nil {
			return err
		}
		if found && owner == id {
			if _, err := t.hdel(ukey, owned[ukey]); err != nil {
				return err
			}
		}
	}
	_, err = t.del(memo)
	return err
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
