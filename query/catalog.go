package query

import (
	"slices"
	"strings"
	"sync"

	"github.com/vegasq/qoq/relation"
)

// Environment resolves table names used in FROM and JOIN clauses.
// Lookup returns the bound value, which must be a *relation.Relation to be
// queryable.
type Environment interface {
	Lookup(name string) (any, bool)
}

// Catalog is a concurrency-safe Environment backed by a map. Names match
// case-insensitively, and a dotted name such as "variables.users" falls
// back to its last segment.
type Catalog struct {
	mu     sync.RWMutex
	tables map[string]any
	names  map[string]string
}

// NewCatalog creates an empty catalog
func NewCatalog() *Catalog {
	return &Catalog{
		tables: make(map[string]any),
		names:  make(map[string]string),
	}
}

// Register binds name to a value, replacing any previous binding
func (c *Catalog) Register(name string, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := strings.ToLower(name)
	c.tables[key] = v
	c.names[key] = name
}

// Unregister removes a binding
func (c *Catalog) Unregister(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := strings.ToLower(name)
	delete(c.tables, key)
	delete(c.names, key)
}

// Lookup implements Environment
func (c *Catalog) Lookup(name string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if v, ok := c.tables[strings.ToLower(name)]; ok {
		return v, true
	}
	if last := lastSegment(name); last != name {
		v, ok := c.tables[strings.ToLower(last)]
		return v, ok
	}
	return nil, false
}

// Relation returns the relation bound to name, if the binding is one
func (c *Catalog) Relation(name string) (*relation.Relation, bool) {
	v, ok := c.Lookup(name)
	if !ok {
		return nil, false
	}
	r, ok := v.(*relation.Relation)
	return r, ok
}

// Names returns the registered names in sorted order
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.names))
	for _, n := range c.names {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

func lastSegment(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}
