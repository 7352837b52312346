package ohm_test

import (
	"context"
	"log/slog"
	"reflect"
	"slices"
	"testing"
	"time"

	"github.com/andreyvit/ohm"
	"github.com/andreyvit/ohm/kvstore"
)

type (
	Dog struct {
		ohm.Identity
		Name    string
		Age     int
		Color   string
		Born    time.Time
		Tags    []string
		Owner   ohm.Reference[Person]
		Friends ohm.Set[Dog]
		Toys    ohm.List[Toy]
		Visits  ohm.Counter
	}

	Person struct {
		ohm.Identity
		Name string
		Dogs ohm.Collection[Dog]
	}

	Toy struct {
		ohm.Identity
		Kind string
	}
)

func (*Dog) ModelName() string { return "Dog" }

func (d *Dog) Defaults() {
	d.Color = "brown"
}

func (d *Dog) Fields(f *ohm.Fields) {
	f.String("name", &d.Name, ohm.Unique)
	f.Int("age", &d.Age, ohm.Indexed)
	f.String("color", &d.Color, ohm.Indexed)
	f.Time("born", &d.Born, ohm.Optional)
	f.JSON("tags", &d.Tags, ohm.Optional)
	f.Ref("owner", &d.Owner, ohm.Indexed)
	f.Set("friends", &d.Friends)
	f.List("toys", &d.Toys)
	f.Counter("visits", &d.Visits)
}

func (*Person) ModelName() string { return "Person" }

func (p *Person) Fields(f *ohm.Fields) {
	f.String("name", &p.Name)
	f.Collection("dogs", &p.Dogs, "owner")
}

func (*Toy) ModelName() string { return "Toy" }

func (t *Toy) Fields(f *ohm.Fields) {
	f.String("kind", &t.Kind, ohm.Indexed)
}

func init() {
	slog.SetLogLoggerLevel(slog.LevelDebug)
}

func setup(t testing.TB) (*ohm.DB, *kvstore.Store) {
	t.Helper()
	store := kvstore.NewMem(kvstore.Options{IsTesting: true})
	db := ohm.Open(store, ohm.Options{
		Logf:    t.Logf,
		Verbose: testing.Verbose(),
	})
	t.Cleanup(func() { db.Close() })
	return db, store
}

func dog(name string, age int, color string) func(*Dog) {
	return func(d *Dog) {
		d.Name, d.Age, d.Color = name, age, color
	}
}

func createDogs(t testing.TB, db *ohm.DB) []*Dog {
	t.Helper()
	return []*Dog{
		must(ohm.Create(context.Background(), db, dog("Max", 3, "white"))),
		must(ohm.Create(context.Background(), db, dog("Buddy", 3, "black"))),
		must(ohm.Create(context.Background(), db, dog("Bella", 2, "black"))),
		must(ohm.Create(context.Background(), db, dog("Lola", 3, "black"))),
	}
}

func names(dogs []*Dog) []string {
	result := make([]string, 0, len(dogs))
	for _, d := range dogs {
		result = append(result, d.Name)
	}
	return result
}

func sorted(ids []uint64) []uint64 {
	ids = slices.Clone(ids)
	slices.Sort(ids)
	return ids
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func ok(t testing.TB, err error) {
	if err != nil {
		t.Helper()
		t.Fatalf("** unexpected error: %v", err)
	}
}

func deepEqual[T any](t testing.TB, a, e T) {
	if !reflect.DeepEqual(a, e) {
		t.Helper()
		t.Errorf("** got %v, wanted %v", a, e)
	}
}

func isempty[T any, S ~[]T](t testing.TB, a S) {
	if len(a) > 0 {
		t.Helper()
		t.Errorf("** got %v, wanted empty slice", a)
	}
}

func isnil[T any, P ~*T](t testing.TB, a P) {
	if a != nil {
		t.Helper()
		t.Errorf("** got &%v, wanted nil", *a)
	}
}

func isnonnil[T any](t testing.TB, a *T) {
	if a == nil {
		t.Helper()
		t.Fatalf("** got nil %T, wanted non-nil", a)
	}
}
