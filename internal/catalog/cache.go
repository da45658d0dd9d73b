package catalog

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// NamedID is one catalog row: a display name and its backend identifier.
type NamedID struct {
	ID   string
	Name string
}

// Store loads the entity and institution catalogs from the collaborator
// database.
type Store interface {
	Entidades(ctx context.Context) ([]NamedID, error)
	Instituciones(ctx context.Context) ([]NamedID, error)
}

// Cache holds the name→ID maps for entities and institutions. It is loaded
// once before traffic begins and read by many concurrent requests; Refresh
// swaps the maps atomically under the lock, closing the read/refresh race.
type Cache struct {
	store Store

	mu            sync.RWMutex
	entidades     map[string]string
	instituciones map[string]string
}

func NewCache(store Store) *Cache {
	return &Cache{
		store:         store,
		entidades:     map[string]string{},
		instituciones: map[string]string{},
	}
}

// Refresh rebuilds both maps from the store. Both catalogs load in parallel;
// readers keep seeing the previous maps until the swap.
func (c *Cache) Refresh(ctx context.Context) error {
	var entidades, instituciones []NamedID

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entidades, err = c.store.Entidades(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		instituciones, err = c.store.Instituciones(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load catalogs: %w", err)
	}

	ent := make(map[string]string, len(entidades))
	for _, e := range entidades {
		ent[Normalize(e.Name)] = e.ID
	}
	inst := make(map[string]string, len(instituciones))
	for _, i := range instituciones {
		inst[Normalize(i.Name)] = i.ID
	}

	c.mu.Lock()
	c.entidades = ent
	c.instituciones = inst
	c.mu.Unlock()
	return nil
}

// ResolveEntidad returns the backend ID for an entity display name. Lookups
// normalize, so case and whitespace variants of the same name resolve alike.
func (c *Cache) ResolveEntidad(name string) (string, error) {
	c.mu.RLock()
	id, ok := c.entidades[Normalize(name)]
	c.mu.RUnlock()
	if !ok {
		return "", &NotFoundError{Field: CategoryEntidad, Value: name}
	}
	return id, nil
}

// ResolveInstitucion returns the backend ID for an institution display name.
func (c *Cache) ResolveInstitucion(name string) (string, error) {
	c.mu.RLock()
	id, ok := c.instituciones[Normalize(name)]
	c.mu.RUnlock()
	if !ok {
		return "", &NotFoundError{Field: CategoryInstitucion, Value: name}
	}
	return id, nil
}
