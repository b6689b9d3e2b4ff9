package catalog

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/samber/mo"

	"dwh/internal/model"
)

// Enricher resolves names, logins and product categories of an order from
// the catalog. Catalog values win over what the event carried; a miss
// leaves the order as it was.
type Enricher struct {
	store Store
}

func NewEnricher(store Store) *Enricher { return &Enricher{store: store} }

func (e *Enricher) Restaurant(id string) (mo.Option[Entry], error) { return e.store.Get(id) }

func (e *Enricher) User(id string) (mo.Option[Entry], error) { return e.store.Get(id) }

// Enrich fills o in place and returns the ids that were not found. An
// order naming a single entry is resolved through Restaurant or User;
// otherwise both ids go to the store in one GetMany.
func (e *Enricher) Enrich(o *model.Order) ([]string, error) {
	var ids []string
	if o.Restaurant != nil && o.Restaurant.ID != "" {
		ids = append(ids, o.Restaurant.ID)
	}
	if o.User != nil && o.User.ID != "" {
		ids = append(ids, o.User.ID)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	found, err := e.resolve(o, lo.Uniq(ids))
	if err != nil {
		return nil, fmt.Errorf("catalog lookup: %w", err)
	}
	misses := lo.Filter(ids, func(id string, _ int) bool { _, ok := found[id]; return !ok })

	if o.User != nil {
		if u, ok := found[o.User.ID]; ok {
			o.User.Name = lo.CoalesceOrEmpty(u.Name, o.User.Name)
			o.User.Login = lo.CoalesceOrEmpty(u.Login, o.User.Login)
		}
	}
	if o.Restaurant != nil {
		if r, ok := found[o.Restaurant.ID]; ok {
			o.Restaurant.Name = lo.CoalesceOrEmpty(r.Name, o.Restaurant.Name)
			menu := lo.KeyBy(r.Menu, func(m MenuItem) string { return m.ID })
			for i := range o.Products {
				p := &o.Products[i]
				if item, ok := menu[p.ID]; ok {
					p.Category = lo.CoalesceOrEmpty(item.Category, p.Category)
					p.Name = lo.CoalesceOrEmpty(p.Name, item.Name)
				}
			}
		}
	}
	return misses, nil
}

func (e *Enricher) resolve(o *model.Order, ids []string) (map[string]Entry, error) {
	if len(ids) > 1 {
		return e.store.GetMany(ids)
	}
	lookup := e.User
	if o.Restaurant != nil && o.Restaurant.ID == ids[0] {
		lookup = e.Restaurant
	}
	opt, err := lookup(ids[0])
	if err != nil {
		return nil, err
	}
	found := make(map[string]Entry, 1)
	if entry, ok := opt.Get(); ok {
		found[ids[0]] = entry
	}
	return found, nil
}
