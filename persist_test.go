package ohm_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/andreyvit/ohm"
	"github.com/andreyvit/ohm/kvstore"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	db, _ := setup(t)

	owner := must(ohm.Create(ctx, db, func(p *Person) { p.Name = "Alice" }))
	born := time.Date(2020, 5, 17, 10, 30, 0, 0, time.UTC)
	d := ohm.New(dog("Max", 3, "white"), func(d *Dog) {
		d.Born = born
		d.Tags = []string{"good", "fluffy"}
		d.Owner.Set(owner)
	})
	deepEqual(t, d.ID(), uint64(0))

	ok(t, db.Save(ctx, d))
	deepEqual(t, d.ID(), uint64(1))

	a := must(ohm.Get[Dog](ctx, db, d.ID()))
	deepEqual(t, a.ID(), d.ID())
	deepEqual(t, a.Name, "Max")
	deepEqual(t, a.Age, 3)
	deepEqual(t, a.Color, "white")
	deepEqual(t, a.Born, born)
	deepEqual(t, a.Tags, []string{"good", "fluffy"})
	deepEqual(t, a.Owner.ID(), owner.ID())
}

func TestNewAppliesDefaults(t *testing.T) {
	d := ohm.New[Dog]()
	deepEqual(t, d.Color, "brown")
	d = ohm.New(func(d *Dog) { d.Color = "red" })
	deepEqual(t, d.Color, "red")
}

func TestLoadMissing(t *testing.T) {
	ctx := context.Background()
	db, _ := setup(t)

	_, err := ohm.Get[Dog](ctx, db, 42)
	if !errors.Is(err, ohm.ErrNotFound) {
		t.Fatalf("Get = %v, wanted ErrNotFound", err)
	}
	var de *ohm.DecoderError
	if !errors.As(err, &de) {
		t.Fatalf("Get = %T, wanted *DecoderError", err)
	}
}

func TestResaveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, _ := setup(t)

	d := must(ohm.Create(ctx, db, dog("Max", 3, "white")))
	ok(t, db.Save(ctx, d))
	ok(t, db.Save(ctx, d))
	deepEqual(t, d.ID(), uint64(1))

	d.Age = 4
	ok(t, db.Save(ctx, d))
	deepEqual(t, must(ohm.Get[Dog](ctx, db, 1)).Age, 4)
	deepEqual(t, must(ohm.All[Dog](db).Count(ctx)), 1)
}

func TestUniqueViolationWritesNothing(t *testing.T) {
	ctx := context.Background()
	db, store := setup(t)

	must(ohm.Create(ctx, db, dog("Max", 3, "white")))
	before := must(store.Dump(ctx, "", kvstore.DumpAll))

	_, err := ohm.Create(ctx, db, dog("Max", 5, "black"))
	if !errors.Is(err, ohm.ErrUniqueIndexViolation) {
		t.Fatalf("Create = %v, wanted ErrUniqueIndexViolation", err)
	}
	var uv *ohm.UniqueIndexViolationError
	if !errors.As(err, &uv) {
		t.Fatalf("Create = %T, wanted *UniqueIndexViolationError", err)
	}
	deepEqual(t, uv.Field, "name")
	deepEqual(t, uv.Model, "Dog")

	deepEqual(t, must(store.Dump(ctx, "", kvstore.DumpAll)), before)

	var buf strings.Builder
	db.WriteMetrics(&buf)
	if !strings.Contains(buf.String(), "ohm_unique_violations_total 1") {
		t.Errorf("** metrics = %q, wanted one unique violation", buf.String())
	}
}

func TestUniqueValueIsReleasedOnChange(t *testing.T) {
	ctx := context.Background()
	db, _ := setup(t)

	d := must(ohm.Create(ctx, db, dog("Max", 3, "white")))
	d.Name = "Maximus"
	ok(t, db.Save(ctx, d))

	isnil(t, must(ohm.With[Dog](ctx, db, "name", "Max")))
	deepEqual(t, must(ohm.With[Dog](ctx, db, "name", "Maximus")).ID(), d.ID())
	must(ohm.Create(ctx, db, dog("Max", 1, "black")))
}

func TestWithAndExists(t *testing.T) {
	ctx := context.Background()
	db, _ := setup(t)
	createDogs(t, db)

	b := must(ohm.With[Dog](ctx, db, "name", "Bella"))
	isnonnil(t, b)
	deepEqual(t, b.ID(), uint64(3))
	isnil(t, must(ohm.With[Dog](ctx, db, "name", "Rex")))

	deepEqual(t, must(ohm.Exists[Dog](ctx, db, 3)), true)
	deepEqual(t, must(ohm.Exists[Dog](ctx, db, 5)), false)
}

func TestIndexInvariant(t *testing.T) {
	ctx := context.Background()
	db, _ := setup(t)
	createDogs(t, db)

	deepEqual(t, sorted(must(ohm.Find[Dog](db, "age", "3").IDs(ctx))), []uint64{1, 2, 4})
	deepEqual(t, sorted(must(ohm.Find[Dog](db, "color", "black").IDs(ctx))), []uint64{2, 3, 4})
	isempty(t, must(ohm.Find[Dog](db, "age", "7").IDs(ctx)))

	// moving a record between values updates both index sets
	d := must(ohm.Get[Dog](ctx, db, 1))
	d.Color = "black"
	ok(t, db.Save(ctx, d))
	isempty(t, must(ohm.Find[Dog](db, "color", "white").IDs(ctx)))
	deepEqual(t, sorted(must(ohm.Find[Dog](db, "color", "black").IDs(ctx))), []uint64{1, 2, 3, 4})
}

func TestDeleteCompleteness(t *testing.T) {
	ctx := context.Background()
	db, store := setup(t)
	dogs := createDogs(t, db)
	d, buddy := dogs[0], dogs[1]
	toy := must(ohm.Create(ctx, db, func(x *Toy) { x.Kind = "ball" }))

	must(d.Friends.Add(ctx, db, buddy))
	ok(t, d.Toys.PushBack(ctx, db, toy))
	must(d.Visits.Incr(ctx, db, 3))

	ok(t, db.Delete(ctx, d))
	deepEqual(t, d.ID(), uint64(0))

	_, err := ohm.Get[Dog](ctx, db, 1)
	if !errors.Is(err, ohm.ErrNotFound) {
		t.Fatalf("Get after Delete = %v, wanted ErrNotFound", err)
	}
	deepEqual(t, must(ohm.Exists[Dog](ctx, db, 1)), false)
	deepEqual(t, sorted(must(ohm.Find[Dog](db, "age", "3").IDs(ctx))), []uint64{2, 4})
	isempty(t, must(ohm.Find[Dog](db, "color", "white").IDs(ctx)))
	isnil(t, must(ohm.With[Dog](ctx, db, "name", "Max")))

	for _, key := range []string{"Dog:1", "Dog:friends:1", "Dog:toys:1", "Dog:1:visits", "Dog:1:_indices", "Dog:1:_uniques"} {
		deepEqual(t, must(store.Type(ctx, key)), kvstore.KindNone)
	}

	// a deleted record has no id, so its relations are unusable
	_, err = d.Visits.Incr(ctx, db, 1)
	deepEqual(t, err, ohm.ErrNotSaved)
	deepEqual(t, db.Delete(ctx, d), ohm.ErrNotSaved)
}

type Broken struct {
	ohm.Identity
	Name string
}

func (*Broken) ModelName() string { return "Broken" }

func (b *Broken) Fields(f *ohm.Fields) {
	f.String("name", &b.Name)
	f.Unique("email")
}

func TestUnknownUniqueIsConfigurationError(t *testing.T) {
	ctx := context.Background()
	db, store := setup(t)

	_, err := ohm.Create(ctx, db, func(b *Broken) { b.Name = "x" })
	if !errors.Is(err, ohm.ErrUnknownIndex) {
		t.Fatalf("Create = %v, wanted ErrUnknownIndex", err)
	}
	isempty(t, must(store.Keys(ctx, "Broken:")))
}

type Text struct {
	ohm.Identity
	Body []byte
}

func (*Text) ModelName() string { return "Text" }

func (x *Text) Fields(f *ohm.Fields) {
	f.Bytes("body", &x.Body)
}

func TestInvalidTextIsEncodingError(t *testing.T) {
	ctx := context.Background()
	db, _ := setup(t)

	_, err := ohm.Create(ctx, db, func(x *Text) { x.Body = []byte{0xff, 0xfe} })
	var ee *ohm.EncodingError
	if !errors.As(err, &ee) {
		t.Fatalf("Create = %v, wanted *EncodingError", err)
	}
	deepEqual(t, ee.Field, "body")
}

func TestBoltStore(t *testing.T) {
	ctx := context.Background()
	store, err := kvstore.Open(t.TempDir()+"/ohm.db", kvstore.Options{IsTesting: true})
	ok(t, err)
	db := ohm.Open(store, ohm.Options{Logf: t.Logf})
	defer db.Close()

	createDogs(t, db)
	it := must(ohm.Find[Dog](db, "age", "3").Inter("color", "black").Sort(ctx, ohm.SortOptions{By: "name", Alpha: true}))
	deepEqual(t, names(must(it.Collect())), []string{"Buddy", "Lola"})
}
