// Package seeders fills a fresh store with a demo catalog and an admin
// account.
//
//	func init() {
//	    seeders.Register("catalog", SeedCatalog)
//	}
//
// Run them with: kirana seed
package seeders

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/shashiranjanraj/kirana/pkg/store"
)

// SeederFunc is the signature for a seed function.
type SeederFunc func(ctx context.Context, db store.Client) error

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

// RunAll executes every registered seeder in registration order, or only
// the named ones when names is non-empty. It stops on the first error.
func RunAll(ctx context.Context, db store.Client, out io.Writer, names ...string) error {
	mu.Lock()
	current := make([]seederEntry, len(entries))
	copy(current, entries)
	mu.Unlock()

	want := map[string]bool{}
	for _, n := range names {
		want[n] = true
	}

	ran := 0
	for _, e := range current {
		if len(want) > 0 && !want[e.name] {
			continue
		}
		fmt.Fprintf(out, "  • Running seeder: %s … ", e.name)
		if err := e.fn(ctx, db); err != nil {
			fmt.Fprintln(out, "FAILED")
			return fmt.Errorf("seeder %q: %w", e.name, err)
		}
		fmt.Fprintln(out, "done")
		ran++
	}
	if ran == 0 {
		fmt.Fprintln(out, "  (no seeders ran)")
	}
	return nil
}
