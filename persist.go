package ohm

import (
	"context"
)

// Save persists m. A record with id 0 gets the next id of its type. The
// record hash, unique maps and index sets are updated in one atomic unit of
// work; on a uniqueness collision nothing is written and
// *UniqueIndexViolationError is returned.
func (db *DB) Save(ctx context.Context, m Model) error {
	enc, err := Encode(m)
	if err != nil {
		return err
	}
	uniques, indices, err := enc.partition()
	if err != nil {
		return err
	}

	args := SaveArgs{
		Model:   ScriptModel{Name: enc.Name},
		Attrs:   enc.Flat(),
		Indices: indices,
		Uniques: uniques,
	}
	if enc.ID != 0 {
		args.Model.ID = formatID(enc.ID)
		args.Model.Key = RecordKey(enc.Name, enc.ID)
	}
	payloads, err := args.Payloads()
	if err != nil {
		return &EncodingError{enc.Name, "", err}
	}

	id, err := db.store.Eval(ctx, ScriptSave, payloads...)
	if err != nil {
		if uv, ok := asUniqueViolation(enc.Name, err); ok {
			db.uniqueViolations.Inc()
			if db.verbose {
				db.logf("ohm: SAVE.UNIQUE %s/%d: %s", enc.Name, enc.ID, uv.Field)
			}
			return uv
		}
		return storeErrf("EVAL "+string(ScriptSave), args.Model.Key, err)
	}

	m.SetID(uint64(id))
	db.saves.Inc()
	if db.verbose {
		db.logf("ohm: SAVE %s/%d => %q", enc.Name, id, args.Attrs)
	}
	return nil
}

// Delete removes m's hash, membership, unique entries, index memberships and
// every counter, list and set it owns. m's id is reset to 0; the value must
// not be saved again.
func (db *DB) Delete(ctx context.Context, m Model) error {
	id := m.ID()
	if id == 0 {
		return ErrNotSaved
	}
	enc, err := Encode(m)
	if err != nil {
		return err
	}
	uniques, _, err := enc.partition()
	if err != nil {
		return err
	}

	key := RecordKey(enc.Name, id)
	args := DeleteArgs{
		Model:   ScriptModel{Name: enc.Name, ID: formatID(id), Key: key},
		Uniques: uniques,
		Tracked: enc.containerKeys(id),
	}
	payloads, err := args.Payloads()
	if err != nil {
		return &EncodingError{enc.Name, "", err}
	}
	_, err = db.store.Eval(ctx, ScriptDelete, payloads...)
	if err != nil {
		return storeErrf("EVAL "+string(ScriptDelete), key, err)
	}

	m.SetID(0)
	db.deletes.Inc()
	if db.verbose {
		db.logf("ohm: DELETE %s/%d", enc.Name, id)
	}
	return nil
}

// Load reads the record with the given id into m. A missing record yields
// a *DecoderError wrapping ErrNotFound. Optional fields absent from the
// stored hash keep m's current values.
func (db *DB) Load(ctx context.Context, m Model, id uint64) error {
	info := newModelInfo(m)
	key := RecordKey(info.Name, id)
	attrs, err := db.store.HGetAll(ctx, key)
	if err != nil {
		return storeErrf("HGETALL", key, err)
	}
	if len(attrs) == 0 {
		// a record without hash fields still exists if it is a member
		found, err := db.store.SIsMember(ctx, AllKey(info.Name), formatID(id))
		if err != nil {
			return storeErrf("SISMEMBER", AllKey(info.Name), err)
		}
		if !found || id == 0 {
			if db.verbose {
				db.logf("ohm: LOAD.NOTFOUND %s/%d", info.Name, id)
			}
			return &DecoderError{info.Name, "", ErrNotFound}
		}
		attrs = make(map[string]string, 1)
	}
	attrs[info.IDField] = formatID(id)

	err = Decode(attrs, m)
	if err != nil {
		return err
	}
	db.loads.Inc()
	if db.verbose {
		db.logf("ohm: LOAD %s/%d => %v", info.Name, id, attrs)
	}
	return nil
}

// Get loads the record of type M with the given id.
func Get[M any](ctx context.Context, db *DB, id uint64) (*M, error) {
	p, m := newModel[M]()
	err := db.Load(ctx, m, id)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// With finds the record of type M whose unique field equals value. It
// returns nil, nil if there is none.
func With[M any](ctx context.Context, db *DB, field, value string) (*M, error) {
	p, m := newModel[M]()
	key := UniqueKey(m.ModelName(), field)
	idStr, found, err := db.store.HGet(ctx, key, value)
	if err != nil {
		return nil, storeErrf("HGET", key, err)
	}
	if !found {
		if db.verbose {
			db.logf("ohm: WITH.NOTFOUND %s.%s=%q", m.ModelName(), field, value)
		}
		return nil, nil
	}
	id, err := parseID(idStr)
	if err != nil {
		return nil, decoderErrf(m.ModelName(), field, err, "unique map %s", key)
	}
	err = db.Load(ctx, m, id)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create builds a record like New and saves it.
func Create[M any](ctx context.Context, db *DB, overrides ...func(*M)) (*M, error) {
	p := New[M](overrides...)
	err := db.Save(ctx, asModel(p))
	if err != nil {
		return nil, err
	}
	return p, nil
}
