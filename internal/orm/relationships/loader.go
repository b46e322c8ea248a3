// Package relationships eager-loads related entities onto materialized
// results, one batched fetch per include path.
package relationships

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// LoadFunc populates one relation on every item. Items are passed as a slice
// so that value entities can be modified in place.
type LoadFunc[T any] func(ctx context.Context, items []T) error

// Relation is a named include path and the function that loads it
type Relation[T any] struct {
	Path string
	Load LoadFunc[T]
}

// Loader loads include paths onto items
type Loader[T any] interface {
	Load(ctx context.Context, items []T, paths []string) error
}

// Registry maps include paths to relations. Paths match case-insensitively.
type Registry[T any] struct {
	mu        sync.RWMutex
	relations map[string]Relation[T]
}

// NewRegistry creates a registry holding the given relations
func NewRegistry[T any](relations ...Relation[T]) (*Registry[T], error) {
	r := &Registry[T]{
		relations: make(map[string]Relation[T], len(relations)),
	}
	for _, rel := range relations {
		if err := r.Register(rel); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a relation
func (r *Registry[T]) Register(rel Relation[T]) error {
	key := normalize(rel.Path)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.relations[key]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateRelationship, rel.Path)
	}
	r.relations[key] = rel
	return nil
}

// Lookup finds the relation registered for path
func (r *Registry[T]) Lookup(path string) (Relation[T], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rel, ok := r.relations[normalize(path)]
	return rel, ok
}

// Paths returns the registered paths in sorted order
func (r *Registry[T]) Paths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	paths := make([]string, 0, len(r.relations))
	for _, rel := range r.relations {
		paths = append(paths, rel.Path)
	}
	sort.Strings(paths)
	return paths
}

// Load runs each requested relation once, in request order. Every path is
// checked before anything is loaded.
func (r *Registry[T]) Load(ctx context.Context, items []T, paths []string) error {
	if len(items) == 0 || len(paths) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(paths))
	rels := make([]Relation[T], 0, len(paths))
	for _, p := range paths {
		key := normalize(p)
		if seen[key] {
			continue
		}
		seen[key] = true

		rel, ok := r.Lookup(p)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownRelationship, p)
		}
		rels = append(rels, rel)
	}

	for _, rel := range rels {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := rel.Load(ctx, items); err != nil {
			return fmt.Errorf("failed to load relationship %s: %w", rel.Path, err)
		}
	}
	return nil
}

func normalize(path string) string {
	return strings.ToLower(strings.TrimSpace(path))
}
