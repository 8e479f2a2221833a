package query

import (
	"context"
	"fmt"
)

// MutationFunc performs one write against the backend.
type MutationFunc func(ctx context.Context) (any, error)

// MutateOptions lists the key patterns a successful mutation invalidates.
type MutateOptions struct {
	Invalidates []Key
}

// MutationResult is the outcome of Mutate. Exactly one of Data or Err is
// meaningful.
type MutationResult struct {
	Data        any
	Err         error
	Invalidated int
}

// OK reports whether the mutation succeeded.
func (r MutationResult) OK() bool {
	return r.Err == nil
}

// Mutate runs fn once. On success every entry matching opts.Invalidates is
// invalidated before Mutate returns. On failure no entry is touched.
func (c *Cache) Mutate(ctx context.Context, fn MutationFunc, opts MutateOptions) MutationResult {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return MutationResult{Err: ErrClosed}
	}

	data, err := fn(ctx)
	if err != nil {
		c.logger.Info("mutation failed", "invalidates", patternList(opts.Invalidates), "error", err)
		return MutationResult{Err: err}
	}
	n := c.Invalidate(opts.Invalidates...)
	return MutationResult{Data: data, Invalidated: n}
}

// Do is the typed form of Mutate.
func Do[T any](ctx context.Context, c *Cache, fn func(context.Context) (T, error), opts MutateOptions) (T, error) {
	res := c.Mutate(ctx, func(ctx context.Context) (any, error) {
		return fn(ctx)
	}, opts)
	if res.Err != nil {
		var zero T
		return zero, res.Err
	}
	v, _ := res.Data.(T)
	return v, nil
}

// Get is the typed form of Fetch. It returns the cached value when the entry
// has data, even alongside a refetch error.
func Get[T any](ctx context.Context, c *Cache, key Key, fn func(context.Context) (T, error)) (T, Snapshot, error) {
	snap, err := c.Fetch(ctx, key, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	v, typeErr := Value[T](snap)
	if err == nil && typeErr != nil && snap.HasData {
		err = typeErr
	}
	return v, snap, err
}

// Value extracts typed data from a snapshot.
func Value[T any](snap Snapshot) (T, error) {
	var zero T
	if !snap.HasData {
		return zero, fmt.Errorf("query %s: no data", snap.Key)
	}
	v, ok := snap.Data.(T)
	if !ok {
		return zero, fmt.Errorf("query %s: data is %T, not %T", snap.Key, snap.Data, zero)
	}
	return v, nil
}
