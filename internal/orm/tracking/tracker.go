// Package tracking keeps identity snapshots of materialized entities so that
// later modifications can be detected field by field.
package tracking

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
)

var (
	// ErrNoIdentity is returned when an entity has nothing to key it by
	ErrNoIdentity = errors.New("tracked entity must be a non-nil pointer to a struct or a struct implementing Identifier")

	// ErrNotTracked is returned when asking about an entity that was never attached
	ErrNotTracked = errors.New("entity is not tracked")
)

// Identifier is implemented by value entities that carry their own key.
// Pointer entities are keyed by the pointer.
type Identifier interface {
	Identity() any
}

// FieldChange represents a change to a single field
type FieldChange struct {
	Field    string `json:"field"`
	OldValue any    `json:"old"`
	NewValue any    `json:"new"`
}

// Tracker records a snapshot of each attached entity keyed by its identity.
// Attaching the same identity twice keeps the first snapshot.
type Tracker struct {
	mu        sync.RWMutex
	snapshots map[any]map[string]any
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{
		snapshots: make(map[any]map[string]any),
	}
}

// Attach snapshots entity unless its identity is already tracked
func (t *Tracker) Attach(entity any) error {
	key, err := identity(entity)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.snapshots[key]; ok {
		return nil
	}
	t.snapshots[key] = capture(entity)
	return nil
}

// Detach stops tracking entity
func (t *Tracker) Detach(entity any) {
	key, err := identity(entity)
	if err != nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.snapshots, key)
}

// IsTracked reports whether entity has been attached
func (t *Tracker) IsTracked(entity any) bool {
	_, ok := t.snapshot(entity)
	return ok
}

// Len returns the number of tracked entities
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.snapshots)
}

func (t *Tracker) snapshot(entity any) (map[string]any, bool) {
	key, err := identity(entity)
	if err != nil {
		return nil, false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	original, ok := t.snapshots[key]
	return original, ok
}

// Changes compares entity with the snapshot of its identity and returns the
// modified fields sorted by name. Values with an Equal method, such as
// time.Time and decimal.Decimal, are compared with it.
func (t *Tracker) Changes(entity any) ([]FieldChange, error) {
	original, ok := t.snapshot(entity)
	if !ok {
		return nil, ErrNotTracked
	}

	current := capture(entity)
	changes := make([]FieldChange, 0)
	for field, newValue := range current {
		if oldValue := original[field]; !same(oldValue, newValue) {
			changes = append(changes, FieldChange{Field: field, OldValue: oldValue, NewValue: newValue})
		}
	}
	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Field < changes[j].Field
	})
	return changes, nil
}

// HasChanges reports whether any field of entity differs from its snapshot
func (t *Tracker) HasChanges(entity any) bool {
	changes, err := t.Changes(entity)
	return err == nil && len(changes) > 0
}

// Accept replaces the snapshot of entity with its current state
func (t *Tracker) Accept(entity any) error {
	key, err := identity(entity)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.snapshots[key]; !ok {
		return ErrNotTracked
	}
	t.snapshots[key] = capture(entity)
	return nil
}

// identity returns the key entity is tracked under
func identity(entity any) (any, error) {
	v := reflect.ValueOf(entity)
	isStruct := v.Kind() == reflect.Struct ||
		v.Kind() == reflect.Pointer && !v.IsNil() && v.Elem().Kind() == reflect.Struct
	if !isStruct {
		return nil, fmt.Errorf("%w, got %T", ErrNoIdentity, entity)
	}
	if id, ok := entity.(Identifier); ok {
		return id.Identity(), nil
	}
	if v.Kind() == reflect.Pointer {
		return entity, nil
	}
	return nil, fmt.Errorf("%w, got %T", ErrNoIdentity, entity)
}

// capture copies the exported fields of the struct entity is or points to
func capture(entity any) map[string]any {
	v := reflect.Indirect(reflect.ValueOf(entity))
	t := v.Type()

	values := make(map[string]any, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if !t.Field(i).IsExported() {
			continue
		}
		values[t.Field(i).Name] = deepCopy(v.Field(i))
	}
	return values
}

// same compares two captured field values. Empty slices and maps equal nil
// ones, and a value whose type has an Equal(T) bool method decides for
// itself.
func same(a, b any) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if empty(va) && empty(vb) {
		return true
	}
	if va.IsValid() && vb.IsValid() && va.Type() == vb.Type() {
		if eq := va.MethodByName("Equal"); eq.IsValid() {
			ft := eq.Type()
			if ft.NumIn() == 1 && ft.In(0) == va.Type() && ft.NumOut() == 1 && ft.Out(0).Kind() == reflect.Bool {
				return eq.Call([]reflect.Value{vb})[0].Bool()
			}
		}
	}
	return reflect.DeepEqual(a, b)
}

func empty(v reflect.Value) bool {
	return (v.Kind() == reflect.Slice || v.Kind() == reflect.Map) && v.Len() == 0
}

// deepCopy copies slices and maps so that later in-place edits show up as
// changes. Pointers are followed one level so a replaced nested value is
// detected too.
func deepCopy(v reflect.Value) any {
	switch v.Kind() {
	case reflect.Slice:
		if v.IsNil() {
			return v.Interface()
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		reflect.Copy(out, v)
		return out.Interface()
	case reflect.Map:
		if v.IsNil() {
			return v.Interface()
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), iter.Value())
		}
		return out.Interface()
	case reflect.Pointer:
		if v.IsNil() {
			return v.Interface()
		}
		out := reflect.New(v.Type().Elem())
		out.Elem().Set(v.Elem())
		return out.Interface()
	}
	return v.Interface()
}
