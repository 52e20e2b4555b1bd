// Package migration applies versioned index migrations to the document store.
//
// Migrations register themselves from database/migrations:
//
//	func init() {
//	    migration.Register("20260101000000_products_indexes", &ProductIndexes{})
//	}
//
// Run from the CLI:
//
//	kachra migrate             // run all pending
//	kachra migrate --rollback  // undo the last batch
//	kachra migrate --status
package migration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/shashiranjanraj/kachra/pkg/docstore"
	"github.com/shashiranjanraj/kachra/pkg/logger"
)

// LedgerCollection records which migrations have run.
const LedgerCollection = "kachra_migrations"

// Indexer is the index surface of the Mongo store.
type Indexer interface {
	EnsureIndexes(ctx context.Context, coll string, models []mongo.IndexModel) ([]string, error)
	DropIndex(ctx context.Context, coll, name string) error
}

// Migration is the interface every migration implements.
type Migration interface {
	Up(ctx context.Context, ix Indexer) error
	Down(ctx context.Context, ix Indexer) error
}

type record struct {
	Name  string    `bson:"_id"`
	Batch int       `bson:"batch"`
	RanAt time.Time `bson:"ranAt"`
}

type registered struct {
	name string
	m    Migration
}

var registry []registered

// Register adds a migration. Names are timestamp-prefixed and run in
// lexical order.
func Register(name string, m Migration) {
	registry = append(registry, registered{name: name, m: m})
}

// Reset clears the registry.
func Reset() { registry = nil }

// ErrNoMigrations is returned by Run when nothing is registered.
var ErrNoMigrations = errors.New("migration: no migrations registered")

type Runner struct {
	ix     Indexer
	ledger docstore.Collection[record]
	out    io.Writer
}

// New creates a Runner that applies index changes through ix and tracks
// progress in store. Progress lines are written to out.
func New(ix Indexer, store docstore.Store, out io.Writer) *Runner {
	if out == nil {
		out = io.Discard
	}
	return &Runner{ix: ix, ledger: docstore.NewCollection[record](store, LedgerCollection), out: out}
}

func (r *Runner) ran(ctx context.Context) (map[string]record, error) {
	recs, err := r.ledger.Find(ctx, nil)
	if err != nil {
		return nil, err
	}
	out := make(map[string]record, len(recs))
	for _, rec := range recs {
		out[rec.Name] = rec
	}
	return out, nil
}

func sorted() []registered {
	all := append([]registered(nil), registry...)
	sort.Slice(all, func(i, j int) bool { return all[i].name < all[j].name })
	return all
}

// Pending returns the names of migrations not yet run.
func (r *Runner) Pending(ctx context.Context) ([]string, error) {
	done, err := r.ran(ctx)
	if err != nil {
		return nil, fmt.Errorf("migration: read ledger: %w", err)
	}
	var names []string
	for _, reg := range sorted() {
		if _, ok := done[reg.name]; !ok {
			names = append(names, reg.name)
		}
	}
	return names, nil
}

// Run applies every pending migration as one batch.
func (r *Runner) Run(ctx context.Context) error {
	if len(registry) == 0 {
		return ErrNoMigrations
	}
	done, err := r.ran(ctx)
	if err != nil {
		return fmt.Errorf("migration: read ledger: %w", err)
	}

	batch := 1
	for _, rec := range done {
		if rec.Batch >= batch {
			batch = rec.Batch + 1
		}
	}

	count := 0
	for _, reg := range sorted() {
		if _, ok := done[reg.name]; ok {
			continue
		}
		logger.Info("migration: running", "name", reg.name, "batch", batch)
		if err := reg.m.Up(ctx, r.ix); err != nil {
			return fmt.Errorf("migration: %s up: %w", reg.name, err)
		}
		if _, err := r.ledger.Insert(ctx, &record{Name: reg.name, Batch: batch, RanAt: time.Now().UTC()}); err != nil {
			return fmt.Errorf("migration: record %s: %w", reg.name, err)
		}
		fmt.Fprintf(r.out, "  migrated  %s\n", reg.name)
		count++
	}

	if count == 0 {
		fmt.Fprintln(r.out, "Nothing to migrate.")
		return nil
	}
	logger.Info("migration: done", "ran", count, "batch", batch)
	return nil
}

// Rollback reverses the most recent batch in reverse order.
func (r *Runner) Rollback(ctx context.Context) error {
	done, err := r.ran(ctx)
	if err != nil {
		return fmt.Errorf("migration: read ledger: %w", err)
	}
	last := 0
	for _, rec := range done {
		if rec.Batch > last {
			last = rec.Batch
		}
	}
	if last == 0 {
		fmt.Fprintln(r.out, "Nothing to roll back.")
		return nil
	}

	byName := make(map[string]Migration, len(registry))
	for _, reg := range registry {
		byName[reg.name] = reg.m
	}

	var names []string
	for name, rec := range done {
		if rec.Batch == last {
			names = append(names, name)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	for _, name := range names {
		m, ok := byName[name]
		if !ok {
			return fmt.Errorf("migration: cannot roll back %s: not registered", name)
		}
		logger.Info("migration: rolling back", "name", name)
		if err := m.Down(ctx, r.ix); err != nil {
			return fmt.Errorf("migration: %s down: %w", name, err)
		}
		if err := r.ledger.Delete(ctx, name); err != nil && !errors.Is(err, docstore.ErrNotFound) {
			return fmt.Errorf("migration: unrecord %s: %w", name, err)
		}
		fmt.Fprintf(r.out, "  rolled back  %s\n", name)
	}
	return nil
}

// Status prints every registered migration and its batch.
func (r *Runner) Status(ctx context.Context) error {
	done, err := r.ran(ctx)
	if err != nil {
		return fmt.Errorf("migration: read ledger: %w", err)
	}
	fmt.Fprintf(r.out, "%-50s  %-8s  %s\n", "Migration", "Status", "Batch")
	for _, reg := range sorted() {
		if rec, ok := done[reg.name]; ok {
			fmt.Fprintf(r.out, "%-50s  %-8s  %d\n", reg.name, "Ran", rec.Batch)
		} else {
			fmt.Fprintf(r.out, "%-50s  %-8s  -\n", reg.name, "Pending")
		}
	}
	return nil
}
