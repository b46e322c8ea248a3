package query

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ScopeFunc applies a reusable set of builder operations
type ScopeFunc[T any] func(b *Builder[T]) (*Builder[T], error)

// Scopes holds the named scopes of one entity type. Names are matched
// case-insensitively.
type Scopes[T any] struct {
	mu     sync.RWMutex
	scopes map[string]ScopeFunc[T]
}

// NewScopes creates an empty scope registry
func NewScopes[T any]() *Scopes[T] {
	return &Scopes[T]{
		scopes: make(map[string]ScopeFunc[T]),
	}
}

func scopeKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register adds a scope, replacing any scope of the same name
func (s *Scopes[T]) Register(name string, fn ScopeFunc[T]) *Scopes[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scopes[scopeKey(name)] = fn
	return s
}

// Has checks if a scope exists
func (s *Scopes[T]) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.scopes[scopeKey(name)]
	return ok
}

// List returns all registered scope names in sorted order
func (s *Scopes[T]) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.scopes))
	for name := range s.scopes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply applies the named scope to b
func (s *Scopes[T]) Apply(b *Builder[T], name string) (*Builder[T], error) {
	s.mu.RLock()
	fn, ok := s.scopes[scopeKey(name)]
	s.mu.RUnlock()
	if !ok {
		return b, fmt.Errorf("%w: %s", ErrUnknownScope, name)
	}
	if _, err := fn(b); err != nil {
		return b, fmt.Errorf("scope %s: %w", name, err)
	}
	return b, nil
}
