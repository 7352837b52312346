package ohm

import (
	"fmt"
	"strings"
)

// Model is implemented by every persisted record type. Fields declares the
// record's fields in a fixed order; the same declaration drives encoding,
// decoding and binding of relation fields, so no reflection is involved.
//
//	type Dog struct {
//		ohm.Identity
//		Name    string
//		Age     int
//		Friends ohm.Set[Dog]
//	}
//
//	func (*Dog) ModelName() string { return "Dog" }
//
//	func (d *Dog) Fields(f *ohm.Fields) {
//		f.String("name", &d.Name, ohm.Unique)
//		f.Int("age", &d.Age, ohm.Indexed)
//		f.Set("friends", &d.Friends)
//	}
type Model interface {
	ModelName() string
	ID() uint64
	SetID(id uint64)
	Fields(f *Fields)
}

// Defaulter is implemented by models whose zero value is not a suitable
// default. Defaults is called on every freshly allocated record, including
// decode targets.
type Defaulter interface {
	Defaults()
}

// IDFielder overrides the name of the id attribute (default "id").
type IDFielder interface {
	IDField() string
}

const defaultIDField = "id"

// Identity is meant to be embedded into model structs to supply ID and SetID.
type Identity struct {
	id uint64
}

func (r *Identity) ID() uint64 {
	return r.id
}

func (r *Identity) SetID(id uint64) {
	r.id = id
}

// ModelInfo is the per-type metadata collected while walking Fields.
type ModelInfo struct {
	Name     string
	IDField  string
	Uniques  []string
	Indices  []string
	Counters []string
	Lists    []string
	Sets     []string
}

func newModelInfo(m Model) *ModelInfo {
	info := &ModelInfo{
		Name:    m.ModelName(),
		IDField: defaultIDField,
	}
	if f, ok := m.(IDFielder); ok {
		info.IDField = f.IDField()
	}
	return info
}

func (info *ModelInfo) IsCounter(field string) bool {
	return containsString(info.Counters, field)
}

// containerKeys returns the keys of every counter, list and set owned by
// the record with the given id.
func (info *ModelInfo) containerKeys(id uint64) []string {
	keys := make([]string, 0, len(info.Counters)+len(info.Lists)+len(info.Sets))
	for _, name := range info.Sets {
		keys = append(keys, ContainerKey(info.Name, name, id))
	}
	for _, name := range info.Counters {
		keys = append(keys, CounterKey(info.Name, id, name))
	}
	for _, name := range info.Lists {
		keys = append(keys, ContainerKey(info.Name, name, id))
	}
	return keys
}

// Describe walks m's fields and returns its metadata. As a side effect,
// relation fields of m get bound to m.
func Describe(m Model) *ModelInfo {
	f := Fields{mode: modeBind, owner: m, info: newModelInfo(m)}
	m.Fields(&f)
	return f.info
}

func asModel[M any](p *M) Model {
	m, ok := any(p).(Model)
	if !ok {
		panic(fmt.Errorf("ohm: %T does not implement ohm.Model", p))
	}
	return m
}

func newModel[M any]() (*M, Model) {
	p := new(M)
	m := asModel(p)
	if d, ok := m.(Defaulter); ok {
		d.Defaults()
	}
	return p, m
}

// New allocates a record with default field values, binds its relation
// fields and applies the overrides. The record is not saved.
func New[M any](overrides ...func(*M)) *M {
	p, m := newModel[M]()
	Describe(m)
	for _, f := range overrides {
		f(p)
	}
	return p
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func defaultCollectionRef(owner string) string {
	return strings.ToLower(owner)
}
