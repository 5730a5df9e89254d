package migration

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/aqora-io/vectorctl/internal/backend"
)

// Context carries the backend handle and a heterogeneous resource map
// keyed by static type identity, used to inject auxiliary connections
// (e.g. a SQL handle) into user migrations. The resource map is
// read-mostly after construction: InsertResource is expected to run
// during setup, before any migration Up/Down call observes it.
type Context struct {
	backend   backend.Backend
	mu        sync.RWMutex
	resources map[reflect.Type]any
}

// NewContext builds a context around exactly one backend: there is no
// runtime multiplexing between backends.
func NewContext(b backend.Backend) *Context {
	return &Context{
		backend:   b,
		resources: make(map[reflect.Type]any),
	}
}

// Backend returns the backend this context was built around.
func (c *Context) Backend() backend.Backend {
	return c.backend
}

// resourceType returns the reflect.Type for T, including interface
// types, for which reflect.TypeOf(zeroValue) would otherwise return nil.
func resourceType[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// InsertResource stores v keyed by its static type, replacing any prior
// value of the same type.
func InsertResource[T any](c *Context, v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resources[resourceType[T]()] = v
}

// Resource looks up a value by its static type, returning a ContextError
// if absent.
func Resource[T any](c *Context) (T, error) {
	var zero T
	c.mu.RLock()
	defer c.mu.RUnlock()
	t := resourceType[T]()
	v, ok := c.resources[t]
	if !ok {
		return zero, contextErrorf("resource `%s` does not exist", t)
	}
	return v.(T), nil
}

// MustResource is Resource but panics if the resource is absent, for
// call sites that consider the absence a programming error.
func MustResource[T any](c *Context) T {
	v, err := Resource[T](c)
	if err != nil {
		panic(fmt.Sprintf("migration: %v", err))
	}
	return v
}
