package relationships

import (
	"context"
)

// FetchFunc loads related values by key in a single round trip. Keys with no
// related value are simply absent from the result.
type FetchFunc[K comparable, R any] func(ctx context.Context, keys []K) (map[K]R, error)

// BelongsTo builds a relation that collects the distinct foreign keys of all
// items, fetches the related values once, and assigns each item its match.
// key reports ok=false for items without a foreign key.
func BelongsTo[T any, K comparable, R any](
	path string,
	key func(item T) (K, bool),
	fetch FetchFunc[K, R],
	assign func(item *T, related R),
) Relation[T] {
	return Relation[T]{
		Path: path,
		Load: func(ctx context.Context, items []T) error {
			keys := make([]K, 0, len(items))
			seen := make(map[K]bool, len(items))
			for _, item := range items {
				k, ok := key(item)
				if !ok || seen[k] {
					continue
				}
				seen[k] = true
				keys = append(keys, k)
			}
			if len(keys) == 0 {
				return nil
			}

			related, err := fetch(ctx, keys)
			if err != nil {
				return err
			}
			for i := range items {
				k, ok := key(items[i])
				if !ok {
					continue
				}
				if r, found := related[k]; found {
					assign(&items[i], r)
				}
			}
			return nil
		},
	}
}
