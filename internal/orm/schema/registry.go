package schema

import (
	"errors"
	"reflect"
	"strings"
	"sync"
)

// ErrNotEntity is returned when a type without fields is used as an entity
var ErrNotEntity = errors.New("not an entity type")

// Registry caches entity metadata by Go type. Entries are derived on first
// use and never evicted; entity shapes do not change while the process runs.
type Registry struct {
	entities map[reflect.Type]*EntityMeta
	mu       sync.RWMutex
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		entities: make(map[reflect.Type]*EntityMeta),
	}
}

// Default is the process-wide registry used when no registry is supplied
var Default = NewRegistry()

// Meta returns the metadata for t, deriving and caching it on first use.
// Pointer types are dereferenced.
func (r *Registry) Meta(t reflect.Type) (*EntityMeta, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	r.mu.RLock()
	meta, ok := r.entities[t]
	r.mu.RUnlock()
	if ok {
		return meta, nil
	}

	derived, err := derive(t)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another goroutine may have won the race; keep its entry
	if meta, ok := r.entities[t]; ok {
		return meta, nil
	}
	r.entities[t] = derived
	return derived, nil
}

// MetaFor is Meta for a type parameter
func MetaFor[T any](r *Registry) (*EntityMeta, error) {
	return r.Meta(reflect.TypeFor[T]())
}

// Len returns the number of cached entity types
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entities)
}

// Resolve walks segments through t and its nested struct fields. Each
// segment is matched exactly first, then case-insensitively. It returns
// false if any segment does not match or a non-final segment is not a
// single nested object.
func (r *Registry) Resolve(t reflect.Type, segments []string) (*Chain, bool) {
	if len(segments) == 0 {
		return nil, false
	}

	meta, err := r.Meta(t)
	if err != nil {
		return nil, false
	}

	chain := &Chain{
		Root:   meta.Type,
		Fields: make([]*FieldMeta, 0, len(segments)),
	}

	for i, seg := range segments {
		field, ok := meta.Field(seg)
		if !ok {
			return nil, false
		}
		chain.Fields = append(chain.Fields, field)

		if i == len(segments)-1 {
			break
		}
		if field.Type.Kind != KindObject || field.Type.Collection {
			return nil, false
		}
		meta, err = r.Meta(field.Type.Elem)
		if err != nil {
			return nil, false
		}
	}

	return chain, true
}

// ResolvePath splits path and resolves it
func (r *Registry) ResolvePath(t reflect.Type, path string) (*Chain, bool) {
	return r.Resolve(t, SplitPath(path))
}

// Chain is a resolved field path from a root entity type to a final field
type Chain struct {
	Root   reflect.Type
	Fields []*FieldMeta
}

// Last returns the final field of the chain
func (c *Chain) Last() *FieldMeta {
	return c.Fields[len(c.Fields)-1]
}

// Type returns the declared type of the final field
func (c *Chain) Type() FieldType {
	return c.Last().Type
}

// Nested reports whether the chain passes through a nested object
func (c *Chain) Nested() bool {
	return len(c.Fields) > 1
}

// Path returns the dotted Go field path
func (c *Chain) Path() string {
	names := make([]string, len(c.Fields))
	for i, f := range c.Fields {
		names[i] = f.Name
	}
	return strings.Join(names, ".")
}

// String returns the path
func (c *Chain) String() string {
	return c.Path()
}

// Get reads the final field from an entity value. The returned value is the
// field as declared (a nil pointer for an unset nullable field). ok is false
// when the entity itself or an intermediate object is nil.
func (c *Chain) Get(v reflect.Value) (reflect.Value, bool) {
	for _, f := range c.Fields {
		for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
			if v.IsNil() {
				return reflect.Value{}, false
			}
			v = v.Elem()
		}
		if !v.IsValid() || v.Kind() != reflect.Struct {
			return reflect.Value{}, false
		}
		fv, err := v.FieldByIndexErr(f.Index)
		if err != nil {
			// nil embedded pointer
			return reflect.Value{}, false
		}
		v = fv
	}
	return v, true
}

// Scalar reads the final field and strips the nullable pointer. ok is false
// when the field or any object on the way to it is nil.
func (c *Chain) Scalar(v reflect.Value) (reflect.Value, bool) {
	fv, ok := c.Get(v)
	if !ok {
		return reflect.Value{}, false
	}
	if fv.Kind() == reflect.Pointer {
		if fv.IsNil() {
			return reflect.Value{}, false
		}
		fv = fv.Elem()
	}
	return fv, true
}
