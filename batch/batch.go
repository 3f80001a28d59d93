// Package batch provides generic helpers for batch-loading records: a
// single IN query fetches many keys at once, and these helpers restore
// the caller's key order afterwards. They pair with dataloader
// implementations such as github.com/graph-gophers/dataloader/v7 or
// github.com/vikstrous/dataloadgen.
package batch

import (
	"context"
	"errors"
)

// ErrNotFound is returned for a key absent from a batch result.
var ErrNotFound = errors.New("batch: record not found")

// KeyFunc extracts a key from a record.
type KeyFunc[K comparable, V any] func(V) K

// Func loads a batch of records by their keys.
type Func[K comparable, V any] func(ctx context.Context, keys []K) ([]V, []error)

// OrderByKeys reorders records to match the order of the requested keys.
// The result has the same length as keys; a missing record leaves a zero
// value with ErrNotFound at its position.
func OrderByKeys[K comparable, V any](keys []K, values []V, keyFn KeyFunc[K, V]) ([]V, []error) {
	lookup := make(map[K]V, len(values))
	for _, v := range values {
		lookup[keyFn(v)] = v
	}
	result := make([]V, len(keys))
	errs := make([]error, len(keys))
	for i, key := range keys {
		if v, ok := lookup[key]; ok {
			result[i] = v
		} else {
			errs[i] = ErrNotFound
		}
	}
	return result, errs
}

// OrderByKeysNoError reorders records to match the requested keys,
// leaving zero values for missing records without errors.
func OrderByKeysNoError[K comparable, V any](keys []K, values []V, keyFn KeyFunc[K, V]) []V {
	result, _ := OrderByKeys(keys, values, keyFn)
	return result
}

// GroupByKey groups records by a key function. Useful for one-to-many
// loads where many records share one foreign key.
func GroupByKey[K comparable, V any](values []V, keyFn KeyFunc[K, V]) map[K][]V {
	result := make(map[K][]V)
	for _, v := range values {
		key := keyFn(v)
		result[key] = append(result[key], v)
	}
	return result
}

// OrderGroupsByKeys reorders grouped records to match the requested keys:
// the i-th slice holds the records for keys[i].
func OrderGroupsByKeys[K comparable, V any](keys []K, groups map[K][]V) [][]V {
	result := make([][]V, len(keys))
	for i, key := range keys {
		result[i] = groups[key]
	}
	return result
}

// CachePrimer is implemented by dataloader caches that accept known
// values, e.g. after a mutation.
type CachePrimer[K comparable, V any] interface {
	Prime(key K, value V)
}

// PrimeMany primes multiple values into a cache.
func PrimeMany[K comparable, V any](cache CachePrimer[K, V], values []V, keyFn KeyFunc[K, V]) {
	for _, v := range values {
		cache.Prime(keyFn(v), v)
	}
}

// CacheClearer is implemented by dataloader caches that evict by key.
type CacheClearer[K comparable] interface {
	Clear(key K)
}

// ClearMany clears multiple keys from a cache.
func ClearMany[K comparable](cache CacheClearer[K], keys []K) {
	for _, key := range keys {
		cache.Clear(key)
	}
}
