// Package catalog tracks what exists at the target store: the set of known
// namespaces (SQL Server schemas) and handles to bound tables.
//
// The catalog is a cache in front of the store's introspection queries. It
// is owned by one evolver and is not goroutine-safe: a sink drives schema
// evolution and loading from a single control flow.
package catalog

import (
	"context"
	"fmt"
	"strings"
)

// NamespaceLister enumerates the namespaces present at the store.
// Names are reported with their original casing.
type NamespaceLister interface {
	SchemaNames(ctx context.Context) ([]string, error)
}

// NamespaceCatalog is a case-insensitive set of known namespace names.
//
// SQL Server compares schema identifiers case-insensitively under the default
// collation but reports them with their original casing, so membership is
// tested on lower-cased names. The set is empty-until-first-use: the first
// Exists call loads it from the lister; Add updates it incrementally.
type NamespaceCatalog struct {
	lister NamespaceLister
	names  map[string]struct{}
	loaded bool
}

// NewNamespaceCatalog creates an unloaded catalog backed by lister.
func NewNamespaceCatalog(lister NamespaceLister) *NamespaceCatalog {
	return &NamespaceCatalog{lister: lister}
}

// Loaded reports whether the catalog has been populated from the store.
func (c *NamespaceCatalog) Loaded() bool {
	return c.loaded
}

// Exists reports whether a namespace with the given name exists under any casing.
// The first call loads the catalog from the store.
func (c *NamespaceCatalog) Exists(ctx context.Context, name string) (bool, error) {
	if err := c.load(ctx); err != nil {
		return false, err
	}
	_, ok := c.names[strings.ToLower(name)]
	return ok, nil
}

// Add records a namespace created by this process.
func (c *NamespaceCatalog) Add(name string) {
	if c.names == nil {
		c.names = make(map[string]struct{})
	}
	c.names[strings.ToLower(name)] = struct{}{}
}

// Reset drops the cached names; the next Exists call reloads them.
func (c *NamespaceCatalog) Reset() {
	c.names = nil
	c.loaded = false
}

func (c *NamespaceCatalog) load(ctx context.Context) error {
	if c.loaded {
		return nil
	}
	if c.lister == nil {
		return fmt.Errorf("namespace catalog has no lister")
	}
	names, err := c.lister.SchemaNames(ctx)
	if err != nil {
		return fmt.Errorf("failed to list namespaces: %w", err)
	}
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[strings.ToLower(n)] = struct{}{}
	}
	// Names added before the first load survive it.
	for n := range c.names {
		set[n] = struct{}{}
	}
	c.names = set
	c.loaded = true
	return nil
}
