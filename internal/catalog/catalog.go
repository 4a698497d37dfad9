// Package catalog builds the immutable per-run index of monitored entities.
package catalog

import (
	"fmt"
	"log/slog"

	"github.com/mwhitton/chattersignal/internal/models"
	"github.com/mwhitton/chattersignal/pkg/textnorm"
)

// ErrAliasCollision is wrapped by Build when two active entities claim the
// same normalized name. Collisions are configuration errors and fatal to
// startup: failing fast beats silently misattributing signals.
var ErrAliasCollision = fmt.Errorf("alias collision")

// Entry is one indexed name with its owning entity.
type Entry struct {
	Entity *models.MonitoredEntity
	// Canonical is true when the name is the entity's canonical name rather
	// than an alias; canonical matches carry full confidence.
	Canonical bool
}

// Catalog is an immutable snapshot of the active monitored entities, indexed
// by normalized canonical name and alias. Build a fresh one per enrichment
// run; never mutate it in place.
type Catalog struct {
	entities []*models.MonitoredEntity
	byName   map[string]Entry
	byID     map[string]*models.MonitoredEntity
}

// Build indexes the given entities. Inactive entities are skipped. An entity
// whose alias list fails to decode is skipped with a warning; the rest of
// the catalog is unaffected. A normalized-name collision between two active
// entities returns an error wrapping ErrAliasCollision.
func Build(entities []models.MonitoredEntity, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Catalog{
		byName: make(map[string]Entry),
		byID:   make(map[string]*models.MonitoredEntity),
	}

	for i := range entities {
		e := &entities[i]
		if !e.Active {
			continue
		}

		aliases, err := e.Aliases()
		if err != nil {
			logger.Warn("catalog: malformed alias list, skipping entity",
				"entity", e.CanonicalName, "error", err)
			continue
		}

		names := make(map[string]bool, len(aliases)+1)
		canonical := textnorm.Normalize(e.CanonicalName)
		if canonical == "" {
			logger.Warn("catalog: empty canonical name, skipping entity", "id", e.ID)
			continue
		}

		if err := c.index(canonical, Entry{Entity: e, Canonical: true}); err != nil {
			return nil, err
		}
		names[canonical] = true

		for _, a := range aliases {
			norm := textnorm.Normalize(a)
			if norm == "" || names[norm] {
				continue
			}
			if err := c.index(norm, Entry{Entity: e}); err != nil {
				return nil, err
			}
			names[norm] = true
		}

		c.entities = append(c.entities, e)
		c.byID[e.ID] = e
	}

	logger.Debug("catalog built", "entities", len(c.entities), "names", len(c.byName))
	return c, nil
}

func (c *Catalog) index(name string, entry Entry) error {
	if existing, ok := c.byName[name]; ok && existing.Entity.ID != entry.Entity.ID {
		return fmt.Errorf("%w: %q claimed by both %q and %q",
			ErrAliasCollision, name, existing.Entity.CanonicalName, entry.Entity.CanonicalName)
	}
	c.byName[name] = entry
	return nil
}

// Lookup returns the entry for a normalized name, if any.
func (c *Catalog) Lookup(normalizedName string) (Entry, bool) {
	e, ok := c.byName[normalizedName]
	return e, ok
}

// ByID returns the entity with the given ID, if indexed.
func (c *Catalog) ByID(id string) (*models.MonitoredEntity, bool) {
	e, ok := c.byID[id]
	return e, ok
}

// Entities returns the indexed active entities.
func (c *Catalog) Entities() []*models.MonitoredEntity {
	return c.entities
}

// Names returns every indexed normalized name with its entry. The resolver
// iterates this to scan comment text.
func (c *Catalog) Names() map[string]Entry {
	return c.byName
}

// Len returns the number of indexed entities.
func (c *Catalog) Len() int {
	return len(c.entities)
}
