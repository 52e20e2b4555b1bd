package app

import (
	"context"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/shashiranjanraj/kachra/pkg/migration"
)

// PrintRoutes writes the route table sorted by path, then method.
func (a *Application) PrintRoutes(out io.Writer) error {
	infos := a.RouteList()
	if len(infos) == 0 {
		fmt.Fprintln(out, "No routes registered.")
		return nil
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Path != infos[j].Path {
			return infos[i].Path < infos[j].Path
		}
		return infos[i].Method < infos[j].Method
	})

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "METHOD\tPATH\tNAME")
	fmt.Fprintln(w, "------\t----\t----")
	for _, ri := range infos {
		fmt.Fprintf(w, "%s\t%s\t%s\n", ri.Method, ri.Path, ri.Name)
	}
	return w.Flush()
}

// MigrateMode selects what Migrate does.
type MigrateMode int

const (
	MigrateUp MigrateMode = iota
	MigrateRollback
	MigrateStatus
)

// Migrate runs, rolls back or reports the registered index migrations.
func Migrate(ctx context.Context, runner *migration.Runner, mode MigrateMode) error {
	switch mode {
	case MigrateRollback:
		return runner.Rollback(ctx)
	case MigrateStatus:
		return runner.Status(ctx)
	default:
		return runner.Run(ctx)
	}
}

// IndexLister is the index listing surface of the Mongo store.
type IndexLister interface {
	ListIndexes(ctx context.Context, coll string) ([]string, error)
}

// PrintIndexes writes the index names of every collection.
func PrintIndexes(ctx context.Context, out io.Writer, ix IndexLister, colls []string) error {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "COLLECTION\tINDEX")
	fmt.Fprintln(w, "----------\t-----")
	for _, coll := range colls {
		names, err := ix.ListIndexes(ctx, coll)
		if err != nil {
			return fmt.Errorf("list indexes on %s: %w", coll, err)
		}
		for _, n := range names {
			fmt.Fprintf(w, "%s\t%s\n", coll, n)
		}
	}
	return w.Flush()
}
