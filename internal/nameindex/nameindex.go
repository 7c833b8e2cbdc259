// Package nameindex provides the ordered name→entry map used by a
// NameSpaceSnapshot (§4.3, §6): point lookup, insert, delete, prefix
// iteration, and a cheap structural-sharing copy suitable for
// copy-on-write snapshotting.
package nameindex

import "github.com/google/btree"

const degree = 32

// Index is an ordered map from filter name to a value of type V. It wraps
// github.com/google/btree's generic BTreeG, whose Clone is O(1) and
// shares structure with the original until one of the two copies is
// mutated (copy-on-write) — exactly the semantics a NameSpaceSnapshot
// needs when create/drop/clear produce a new snapshot from the previous
// one (§4.3).
type Index[V any] struct {
	tree *btree.BTreeG[entry[V]]
}

type entry[V any] struct {
	name  string
	value V
}

func less[V any](a, b entry[V]) bool {
	return a.name < b.name
}

// New returns an empty Index.
func New[V any]() *Index[V] {
	return &Index[V]{tree: btree.NewG(degree, less[V])}
}

// Get returns the value stored under name, if any.
func (idx *Index[V]) Get(name string) (V, bool) {
	e, ok := idx.tree.Get(entry[V]{name: name})
	return e.value, ok
}

// Set inserts or replaces the value stored under name, returning the
// previous value if one existed.
func (idx *Index[V]) Set(name string, value V) (V, bool) {
	prev, had := idx.tree.ReplaceOrInsert(entry[V]{name: name, value: value})
	return prev.value, had
}

// Delete removes name from the index, returning the removed value if it
// was present.
func (idx *Index[V]) Delete(name string) (V, bool) {
	e, ok := idx.tree.Delete(entry[V]{name: name})
	return e.value, ok
}

// Len reports the number of entries.
func (idx *Index[V]) Len() int {
	return idx.tree.Len()
}

// Clone returns a new Index sharing structure with idx until one of them
// is mutated. This is the snapshot-copy primitive: create/drop/clear
// build the next NameSpaceSnapshot's index by cloning the previous one
// and applying a single change, in O(log n) amortized rather than O(n).
func (idx *Index[V]) Clone() *Index[V] {
	return &Index[V]{tree: idx.tree.Clone()}
}

// Ascend calls fn for every entry in ascending name order, stopping early
// if fn returns false. Used by list(prefix="") (§4.1).
func (idx *Index[V]) Ascend(fn func(name string, value V) bool) {
	idx.tree.Ascend(func(e entry[V]) bool {
		return fn(e.name, e.value)
	})
}

// AscendPrefix calls fn for every entry whose name has the given prefix,
// in ascending order, stopping early if fn returns false. Used by
// list(prefix) (§4.1).
func (idx *Index[V]) AscendPrefix(prefix string, fn func(name string, value V) bool) {
	greaterOrEqual := entry[V]{name: prefix}
	idx.tree.AscendGreaterOrEqual(greaterOrEqual, func(e entry[V]) bool {
		if len(e.name) < len(prefix) || e.name[:len(prefix)] != prefix {
			return false
		}
		return fn(e.name, e.value)
	})
}
