// Package seeders fills a fresh store with data for local development.
//
// Seeders register themselves from init():
//
//	func init() {
//	    seeders.Register("demo", SeedDemo)
//	}
//
// and run through the services, so every listing is validated and every
// event fires as it would for a real request:
//
//	kachra db:seed
//	kachra db:seed demo
package seeders

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/shashiranjanraj/kachra/app/services"
)

// Deps are the services a seeder may call.
type Deps struct {
	Auth    *services.AuthService
	Catalog *services.CatalogService
}

// SeederFunc is the signature for a seed function. Seeders must be safe to
// run twice.
type SeederFunc func(ctx context.Context, d Deps) error

type seederEntry struct {
	name string
	fn   SeederFunc
}

var (
	mu      sync.Mutex
	entries []seederEntry
)

// Register adds a seeder to the global registry.
func Register(name string, fn SeederFunc) {
	mu.Lock()
	defer mu.Unlock()
	entries = append(entries, seederEntry{name: name, fn: fn})
}

// Names lists the registered seeders in registration order.
func Names() []string {
	mu.Lock()
	defer mu.Unlock()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.name
	}
	return out
}

// Run executes the named seeders, or all of them when names is empty, in
// registration order. It stops on the first error.
func Run(ctx context.Context, out io.Writer, d Deps, names ...string) error {
	mu.Lock()
	current := append([]seederEntry(nil), entries...)
	mu.Unlock()

	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	for n := range want {
		if !registered(current, n) {
			return fmt.Errorf("seeder %q is not registered", n)
		}
	}

	ran := 0
	for _, e := range current {
		if len(want) > 0 && !want[e.name] {
			continue
		}
		fmt.Fprintf(out, "  • Running seeder: %s … ", e.name)
		if err := e.fn(ctx, d); err != nil {
			fmt.Fprintln(out, "FAILED")
			return fmt.Errorf("seeder %q: %w", e.name, err)
		}
		fmt.Fprintln(out, "done")
		ran++
	}
	if ran == 0 {
		fmt.Fprintln(out, "  (no seeders registered)")
	}
	return nil
}

func registered(es []seederEntry, name string) bool {
	for _, e := range es {
		if e.name == name {
			return true
		}
	}
	return false
}
