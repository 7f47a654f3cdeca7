// Package idalloc hands out monotonically increasing integer IDs per entity type.
// Counters live in memory only and are re-derived from the data files on startup.
package idalloc

import (
	"fmt"
	"sync"
)

// Entity names an ID space
type Entity string

// Entity types with their own ID space
const (
	EntityProduct  Entity = "product"
	EntityCustomer Entity = "customer"
	EntityOrder    Entity = "order"
)

// Allocator issues IDs for one entity type
type Allocator struct {
	entity Entity
	mu     sync.Mutex
	last   int64
}

// New creates an allocator whose first ID will be seed+1
func New(entity Entity, seed int64) *Allocator {
	if seed < 0 {
		seed = 0
	}
	return &Allocator{entity: entity, last: seed}
}

// Entity returns the ID space this allocator serves
func (a *Allocator) Entity() Entity {
	return a.entity
}

// Next returns an ID strictly greater than any issued or observed
func (a *Allocator) Next() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.last++
	return a.last
}

// Observe raises the high-water mark to id if it is larger
func (a *Allocator) Observe(id int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if id > a.last {
		a.last = id
	}
}

// Seed resets the high-water mark, typically to the max ID found on disk
func (a *Allocator) Seed(max int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if max < 0 {
		max = 0
	}
	a.last = max
}

// Last returns the most recent ID issued or observed
func (a *Allocator) Last() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

// Registry owns one allocator per entity type
type Registry struct {
	mu         sync.Mutex
	allocators map[Entity]*Allocator
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{allocators: make(map[Entity]*Allocator)}
}

// For returns the allocator for an entity, creating it seeded at 0
func (r *Registry) For(entity Entity) *Allocator {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.allocators[entity]
	if !ok {
		a = New(entity, 0)
		r.allocators[entity] = a
	}
	return a
}

// Next issues the next ID for an entity
func (r *Registry) Next(entity Entity) int64 {
	return r.For(entity).Next()
}

// String lists the high-water marks, useful in startup logs
func (r *Registry) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fmt.Sprintf("product=%d customer=%d order=%d",
		r.lastLocked(EntityProduct), r.lastLocked(EntityCustomer), r.lastLocked(EntityOrder))
}

func (r *Registry) lastLocked(entity Entity) int64 {
	if a, ok := r.allocators[entity]; ok {
		return a.Last()
	}
	return 0
}
