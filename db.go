package ohm

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/VictoriaMetrics/metrics"
	"github.com/andreyvit/ohm/setalg"
	"github.com/puzpuzpuz/xsync/v3"
)

type DB struct {
	store   Store
	solver  Solver
	logf    func(format string, args ...any)
	verbose bool

	infos *xsync.MapOf[string, *ModelInfo]

	metrics          *metrics.Set
	saves            *metrics.Counter
	deletes          *metrics.Counter
	loads            *metrics.Counter
	queries          *metrics.Counter
	uniqueViolations *metrics.Counter
}

type Options struct {
	Logf    func(format string, args ...any)
	Verbose bool

	// Solver compiles query expressions; setalg.Solver{} by default.
	Solver Solver

	// Metrics receives the operation counters; a private set by default.
	Metrics *metrics.Set
}

// Open wraps a store. The DB does not own any connection state beyond the
// store itself; Close closes the store.
func Open(store Store, opt Options) *DB {
	if opt.Logf == nil {
		opt.Logf = log.Printf
	}
	if opt.Solver == nil {
		opt.Solver = setalg.Solver{}
	}
	if opt.Metrics == nil {
		opt.Metrics = metrics.NewSet()
	}
	ms := opt.Metrics
	return &DB{
		store:            store,
		solver:           opt.Solver,
		logf:             opt.Logf,
		verbose:          opt.Verbose,
		infos:            xsync.NewMapOf[string, *ModelInfo](),
		metrics:          ms,
		saves:            ms.GetOrCreateCounter("ohm_saves_total"),
		deletes:          ms.GetOrCreateCounter("ohm_deletes_total"),
		loads:            ms.GetOrCreateCounter("ohm_loads_total"),
		queries:          ms.GetOrCreateCounter("ohm_queries_total"),
		uniqueViolations: ms.GetOrCreateCounter("ohm_unique_violations_total"),
	}
}

func (db *DB) Store() Store {
	return db.store
}

func (db *DB) Close() error {
	return db.store.Close()
}

// WriteMetrics writes the operation counters in Prometheus text format.
func (db *DB) WriteMetrics(w io.Writer) {
	db.metrics.WritePrometheus(w)
}

// Info returns cached metadata for m's type.
func (db *DB) Info(m Model) *ModelInfo {
	info, _ := db.infos.LoadOrCompute(m.ModelName(), func() *ModelInfo {
		return Describe(m)
	})
	return info
}

// Exists reports whether a record of type M with the given id is live.
func Exists[M any](ctx context.Context, db *DB, id uint64) (bool, error) {
	_, m := newModel[M]()
	name := m.ModelName()
	found, err := db.store.SIsMember(ctx, AllKey(name), formatID(id))
	if err != nil {
		return false, storeErrf("SISMEMBER", AllKey(name), err)
	}
	if db.verbose {
		db.logf("ohm: EXISTS.%s %s/%d", map[bool]string{false: "NO", true: "YES"}[found], name, id)
	}
	return found, nil
}

func (db *DB) String() string {
	return fmt.Sprintf("ohm.DB(%T)", db.store)
}
