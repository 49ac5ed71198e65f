// Package registry provides a concurrency-safe in-memory store for computed
// alignment transforms. The intended pattern inside a server process is:
// compute an alignment once per request pair, Put the engine here, and let
// concurrent readers Get it for read-only Transform and ComputeEpsilon calls.
package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/tidwall/btree"

	"github.com/awareness/walign/pkg/alignment"
)

// ErrNotFound is returned by Get for ids with no registered transform.
var ErrNotFound = errors.New("transform not found")

type entry struct {
	id     string
	engine *alignment.Engine
}

func entryLess(a, b entry) bool { return a.id < b.id }

// Registry holds Ready engines keyed by id. Iteration order is the
// lexicographic id order.
type Registry struct {
	mu   sync.RWMutex
	tree *btree.BTreeG[entry]
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{tree: btree.NewBTreeG[entry](entryLess)}
}

// Put registers an engine under a fresh id and returns the id. The engine
// must not have ComputeAlignment called on it afterwards; readers assume the
// stored transform is immutable.
func (r *Registry) Put(engine *alignment.Engine) (string, error) {
	if engine == nil || !engine.Ready() {
		return "", fmt.Errorf("registry: engine holds no computed transform")
	}

	id := uuid.New().String() // Generate a unique ID

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tree.Set(entry{id: id, engine: engine})
	return id, nil
}

// Get returns the engine registered under id, or ErrNotFound.
func (r *Registry) Get(id string) (*alignment.Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.tree.Get(entry{id: id})
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return item.engine, nil
}

// Delete removes the transform registered under id and reports whether it
// was present.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.tree.Delete(entry{id: id})
	return ok
}

// List returns all registered ids in lexicographic order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, r.tree.Len())
	r.tree.Scan(func(item entry) bool {
		ids = append(ids, item.id)
		return true
	})
	return ids
}

// Len returns the number of registered transforms.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tree.Len()
}
