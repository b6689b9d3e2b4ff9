package dds

import (
	"context"
	"time"

	"github.com/samber/lo"

	"dwh/internal/model"
	"dwh/internal/sqldb"
)

// Staged relations carry the load stamp and the surrogate key candidates
// (k_* columns) next to the business attributes. A candidate only becomes a
// key when its row turns out to be new.
var (
	orderColumns = []sqldb.Column{
		{Name: "order_id", Type: "text"},
		{Name: "order_dt", Type: "time"},
		{Name: "order_cost", Type: "money"},
		{Name: "order_payment", Type: "money"},
		{Name: "order_status", Type: "text"},
		{Name: "user_id", Type: "text"},
		{Name: "user_name", Type: "text"},
		{Name: "user_login", Type: "text"},
		{Name: "restaurant_id", Type: "text"},
		{Name: "restaurant_name", Type: "text"},
		{Name: "load_dt", Type: "time"},
		{Name: "load_src", Type: "text"},
		{Name: "k_order", Type: "key"},
		{Name: "k_user", Type: "key"},
		{Name: "k_restaurant", Type: "key"},
		{Name: "k_order_user", Type: "key"},
		{Name: "k_order_cost", Type: "key"},
		{Name: "k_order_status", Type: "key"},
		{Name: "k_user_names", Type: "key"},
		{Name: "k_restaurant_names", Type: "key"},
	}
	itemColumns = []sqldb.Column{
		{Name: "order_id", Type: "text"},
		{Name: "restaurant_id", Type: "text"},
		{Name: "product_id", Type: "text"},
		{Name: "product_name", Type: "text"},
		{Name: "product_category", Type: "text"},
		{Name: "load_dt", Type: "time"},
		{Name: "load_src", Type: "text"},
		{Name: "k_product", Type: "key"},
		{Name: "k_category", Type: "key"},
		{Name: "k_order_product", Type: "key"},
		{Name: "k_product_restaurant", Type: "key"},
		{Name: "k_product_category", Type: "key"},
		{Name: "k_product_names", Type: "key"},
	}
)

// batch is one order flattened into staging rows.
type batch struct {
	order []any
	items [][]any
}

type staged struct {
	orders string
	items  string
}

func (r *Repository) newBatch(o model.Order, loadDt time.Time) batch {
	key := r.opts.NewKey
	src := r.opts.Source

	var userID, userName, userLogin any
	if o.User != nil && o.User.ID != "" {
		userID, userName, userLogin = o.User.ID, o.User.Name, o.User.Login
	}
	var restaurantID, restaurantName any
	if o.Restaurant != nil && o.Restaurant.ID != "" {
		restaurantID, restaurantName = o.Restaurant.ID, o.Restaurant.Name
	}
	var orderDt any
	if !o.Date.IsZero() {
		orderDt = o.Date.UTC()
	}

	b := batch{order: []any{
		o.ID, orderDt, o.Cost, o.Payment, o.Status,
		userID, userName, userLogin, restaurantID, restaurantName,
		loadDt, src,
		key(), key(), key(), key(), key(), key(), key(), key(),
	}}

	categoryKeys := map[string]string{}
	for _, p := range dedupeProducts(o.Products) {
		var category any
		var categoryKey any
		if p.Category != "" {
			if _, ok := categoryKeys[p.Category]; !ok {
				categoryKeys[p.Category] = key()
			}
			category, categoryKey = p.Category, categoryKeys[p.Category]
		}
		b.items = append(b.items, []any{
			o.ID, restaurantID, p.ID, p.Name, category,
			loadDt, src,
			key(), categoryKey, key(), key(), key(), key(),
		})
	}
	return b
}

// dedupeProducts drops line items without a product id and collapses
// repeated products to the last occurrence, keeping first-seen order.
func dedupeProducts(products []model.Product) []model.Product {
	last := map[string]model.Product{}
	var order []string
	for _, p := range products {
		if p.ID == "" {
			continue
		}
		if _, seen := last[p.ID]; !seen {
			order = append(order, p.ID)
		}
		last[p.ID] = p
	}
	return lo.Map(order, func(id string, _ int) model.Product { return last[id] })
}

func stageBatch(ctx context.Context, ws *sqldb.Workspace, b batch) (staged, error) {
	var s staged
	var err error
	if s.orders, err = ws.Create(ctx, "stg_order", orderColumns); err != nil {
		return s, err
	}
	if s.items, err = ws.Create(ctx, "stg_order_item", itemColumns); err != nil {
		return s, err
	}
	if err := ws.Insert(ctx, s.orders, columnNames(orderColumns), [][]any{b.order}); err != nil {
		return s, err
	}
	if err := ws.Insert(ctx, s.items, columnNames(itemColumns), b.items); err != nil {
		return s, err
	}
	return s, nil
}

func columnNames(cols []sqldb.Column) []string {
	return lo.Map(cols, func(c sqldb.Column, _ int) string { return c.Name })
}
