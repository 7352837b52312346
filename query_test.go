package ohm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/andreyvit/ohm"
)

func TestDogScenario(t *testing.T) {
	ctx := context.Background()
	db, _ := setup(t)
	createDogs(t, db)

	it := must(ohm.Find[Dog](db, "age", "3").Inter("color", "black").Sort(ctx, ohm.SortOptions{By: "name", Alpha: true}))
	deepEqual(t, names(must(it.Collect())), []string{"Buddy", "Lola"})
}

func TestQueryComposition(t *testing.T) {
	ctx := context.Background()
	db, _ := setup(t)
	createDogs(t, db)

	ids := func(q *ohm.Query[Dog]) []uint64 {
		t.Helper()
		return sorted(must(q.IDs(ctx)))
	}

	age3 := ohm.Find[Dog](db, "age", "3")
	deepEqual(t, ids(age3.Inter("color", "black")), []uint64{2, 4})
	deepEqual(t, ids(ohm.Find[Dog](db, "color", "black").Inter("age", "3")), []uint64{2, 4})
	deepEqual(t, ids(age3.Union("color", "black")), []uint64{1, 2, 3, 4})
	deepEqual(t, ids(age3.Diff("color", "black")), []uint64{1})
	deepEqual(t, ids(ohm.All[Dog](db).Diff("age", "3")), []uint64{3})

	// composing does not change the receiver
	deepEqual(t, ids(age3), []uint64{1, 2, 4})

	deepEqual(t, ids(ohm.Match[Dog](db, map[string]string{"age": "3", "color": "black"})), []uint64{2, 4})
	deepEqual(t, ids(ohm.Match[Dog](db, nil)), []uint64{1, 2, 3, 4})

	white := ohm.Find[Dog](db, "color", "white")
	young := ohm.Find[Dog](db, "age", "2")
	deepEqual(t, ids(ohm.All[Dog](db).DiffSets(white, young)), []uint64{2, 4})
	deepEqual(t, ids(white.UnionSets(young).InterSets(ohm.Find[Dog](db, "color", "black"))), []uint64{3})

	deepEqual(t, age3.Inter("color", "black").String(), "(inter Dog:indices:age:3 Dog:indices:color:black)")
}

func TestSort(t *testing.T) {
	ctx := context.Background()
	db, _ := setup(t)
	dogs := createDogs(t, db)
	for i, n := range []int64{5, 1, 7, 3} {
		must(dogs[i].Visits.Incr(ctx, db, n))
	}

	sortNames := func(opt ohm.SortOptions) []string {
		t.Helper()
		it := must(ohm.All[Dog](db).Sort(ctx, opt))
		return names(must(it.Collect()))
	}

	deepEqual(t, sortNames(ohm.SortOptions{By: "name", Alpha: true}), []string{"Bella", "Buddy", "Lola", "Max"})
	deepEqual(t, sortNames(ohm.SortOptions{By: "name", Alpha: true, Desc: true}), []string{"Max", "Lola", "Buddy", "Bella"})
	deepEqual(t, sortNames(ohm.SortOptions{By: "name", Alpha: true, Limit: &ohm.Limit{Offset: 1, Count: 2}}), []string{"Buddy", "Lola"})
	deepEqual(t, sortNames(ohm.SortOptions{By: "age"}), []string{"Bella", "Max", "Buddy", "Lola"})
	deepEqual(t, sortNames(ohm.SortOptions{By: "visits", Desc: true}), []string{"Bella", "Max", "Lola", "Buddy"})
	deepEqual(t, sortNames(ohm.SortOptions{Desc: true}), []string{"Lola", "Bella", "Buddy", "Max"})
}

func TestIteratorStopsAtDeletedRecord(t *testing.T) {
	ctx := context.Background()
	db, _ := setup(t)
	dogs := createDogs(t, db)

	it := must(ohm.All[Dog](db).Sort(ctx, ohm.SortOptions{}))
	deepEqual(t, it.Remaining(), 4)
	ok(t, db.Delete(ctx, dogs[1]))

	deepEqual(t, it.Next(), true)
	deepEqual(t, it.Value().Name, "Max")
	deepEqual(t, it.Next(), false)
	if !errors.Is(it.Err(), ohm.ErrNotFound) {
		t.Fatalf("Err = %v, wanted ErrNotFound", it.Err())
	}
	deepEqual(t, it.Next(), false)
	deepEqual(t, it.Remaining(), 0)
}

func TestIteratorRangeFunc(t *testing.T) {
	ctx := context.Background()
	db, _ := setup(t)
	createDogs(t, db)

	it := must(ohm.Find[Dog](db, "color", "black").Sort(ctx, ohm.SortOptions{By: "name", Alpha: true}))
	var got []string
	for d := range it.All() {
		got = append(got, d.Name)
		if d.Name == "Buddy" {
			break
		}
	}
	ok(t, it.Err())
	deepEqual(t, got, []string{"Bella", "Buddy"})
	deepEqual(t, it.Remaining(), 1)
}

func TestInfo(t *testing.T) {
	db, _ := setup(t)
	deepEqual(t, db.Info(&Dog{}).Indices, []string{"age", "color", "owner"})
	deepEqual(t, db.Info(&Dog{}).Counters, []string{"visits"})
}
