package store

import (
	"fmt"
	"sort"
	"sync"
)

// Type names a Store implementation
type Type string

const (
	// MemoryType keeps the ledger in process memory
	MemoryType Type = "memory"
	// DBType keeps the ledger in a sqlite database
	DBType Type = "db"
)

// Constructor creates a Store from backend specific parameters
type Constructor func(params map[string]any) (Store, error)

// Registry manages the available Store implementations
type Registry interface {
	// Register adds a new implementation to the registry
	Register(t Type, constructor Constructor) error
	// SetDefault sets the default store type
	SetDefault(t Type) error
	// Open returns a new store of the given type
	Open(t Type, params map[string]any) (Store, error)
	// DefaultType returns the current default store type
	DefaultType() Type
	// ListRegistered returns the registered store types, sorted
	ListRegistered() []Type
}

type registry struct {
	mu        sync.RWMutex
	stores    map[Type]Constructor
	defaultTp Type
}

var defaultRegistry Registry = NewRegistry()

// NewRegistry returns an empty registry
func NewRegistry() Registry {
	return &registry{
		stores: make(map[Type]Constructor),
	}
}

// GetRegistry returns the global Registry instance
func GetRegistry() Registry {
	return defaultRegistry
}

// Register adds a new implementation to the registry
func (r *registry) Register(t Type, constructor Constructor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.stores[t]; exists {
		return fmt.Errorf("store type %s already registered", t)
	}

	r.stores[t] = constructor
	return nil
}

// SetDefault sets the default store type
func (r *registry) SetDefault(t Type) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.stores[t]; !exists {
		return fmt.Errorf("store type %s not registered", t)
	}

	r.defaultTp = t
	return nil
}

// Open returns a new store of the given type. An empty type selects the default.
func (r *registry) Open(t Type, params map[string]any) (Store, error) {
	if t == "" {
		t = r.DefaultType()
	}

	r.mu.RLock()
	constructor, exists := r.stores[t]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("store type %s not found", t)
	}

	return constructor(params)
}

// DefaultType returns the current default store type
func (r *registry) DefaultType() Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.defaultTp == "" {
		return MemoryType
	}
	return r.defaultTp
}

// ListRegistered returns the registered store types, sorted
func (r *registry) ListRegistered() []Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]Type, 0, len(r.stores))
	for t := range r.stores {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Package level functions that delegate to the default registry

// Register adds a new implementation to the default registry
func Register(t Type, constructor Constructor) error {
	return GetRegistry().Register(t, constructor)
}

// SetDefault sets the default store type
func SetDefault(t Type) error {
	return GetRegistry().SetDefault(t)
}

// Open returns a new store of the given type
func Open(t Type, params map[string]any) (Store, error) {
	return GetRegistry().Open(t, params)
}

// ListRegistered returns the registered store types
func ListRegistered() []Type {
	return GetRegistry().ListRegistered()
}
