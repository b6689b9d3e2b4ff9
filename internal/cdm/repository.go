// Package cdm maintains the per-user counter marts.
package cdm

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"dwh/internal/model"
	"dwh/internal/sqldb"
)

var statsColumns = []sqldb.Column{
	{Name: "user_id", Type: "text"},
	{Name: "product_id", Type: "text"},
	{Name: "product_name", Type: "text"},
	{Name: "category_id", Type: "text"},
	{Name: "category_name", Type: "text"},
	{Name: "order_cnt", Type: "bigint"},
}

const (
	mergeProductsSQL = `INSERT INTO user_product_counters (user_id, product_id, product_name, order_cnt)
SELECT s.user_id, s.product_id, MAX(s.product_name), SUM(s.order_cnt)
FROM %s AS s
WHERE s.product_id IS NOT NULL
GROUP BY s.user_id, s.product_id
ON CONFLICT (user_id, product_id) DO UPDATE
SET product_name = EXCLUDED.product_name,
    order_cnt = EXCLUDED.order_cnt`

	mergeCategoriesSQL = `INSERT INTO user_category_counters (user_id, category_id, category_name, order_cnt)
SELECT s.user_id, s.category_id, MAX(s.category_name), SUM(s.order_cnt)
FROM %s AS s
WHERE s.category_id IS NOT NULL
GROUP BY s.user_id, s.category_id
ON CONFLICT (user_id, category_id) DO UPDATE
SET category_name = EXCLUDED.category_name,
    order_cnt = EXCLUDED.order_cnt`
)

type Repository struct {
	db *sqldb.DB
}

func NewRepository(db *sqldb.DB) *Repository { return &Repository{db: db} }

// MergeCounters overwrites the mart rows for every (user, product) and
// (user, category) key present in rows. Rows carry full recomputed totals,
// so applying the same rows twice is a no-op. It returns the number of
// incoming rows staged.
func (r *Repository) MergeCounters(ctx context.Context, rows []model.StatsRow) (int, error) {
	rows = lo.Filter(rows, func(s model.StatsRow, _ int) bool {
		return s.UserID != "" && (s.ProductID != nil || s.CategoryID != nil)
	})
	if len(rows) == 0 {
		return 0, nil
	}
	values := lo.Map(rows, func(s model.StatsRow, _ int) []any {
		return []any{s.UserID, ptr(s.ProductID), ptr(s.ProductName), ptr(s.CategoryID), ptr(s.CategoryName), s.OrderCount}
	})
	err := r.db.InTx(ctx, func(tx *sqldb.Tx) error {
		ws := sqldb.NewWorkspace(tx)
		stg, err := ws.Create(ctx, "stg_user_stats", statsColumns)
		if err != nil {
			return err
		}
		cols := lo.Map(statsColumns, func(c sqldb.Column, _ int) string { return c.Name })
		if err := ws.Insert(ctx, stg, cols, values); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(mergeProductsSQL, stg)); err != nil {
			return fmt.Errorf("merge user_product_counters: %w", err)
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(mergeCategoriesSQL, stg)); err != nil {
			return fmt.Errorf("merge user_category_counters: %w", err)
		}
		return ws.Drop(ctx)
	})
	if err != nil {
		return 0, fmt.Errorf("merge counters: %w", err)
	}
	return len(rows), nil
}

// Counter is one mart row.
type Counter struct {
	UserID string
	ID     string
	Name   string
	Count  int64
}

// ProductCounters lists the user's product counters ordered by product id.
func (r *Repository) ProductCounters(ctx context.Context, userID string) ([]Counter, error) {
	return r.counters(ctx, "SELECT user_id, product_id, COALESCE(product_name, ''), order_cnt FROM user_product_counters WHERE user_id = ? ORDER BY product_id", userID)
}

// CategoryCounters lists the user's category counters ordered by category name.
func (r *Repository) CategoryCounters(ctx context.Context, userID string) ([]Counter, error) {
	return r.counters(ctx, "SELECT user_id, category_id, COALESCE(category_name, ''), order_cnt FROM user_category_counters WHERE user_id = ? ORDER BY category_name", userID)
}

func (r *Repository) counters(ctx context.Context, q, userID string) ([]Counter, error) {
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("query counters: %w", err)
	}
	defer rows.Close()
	var out []Counter
	for rows.Next() {
		var c Counter
		if err := rows.Scan(&c.UserID, &c.ID, &c.Name, &c.Count); err != nil {
			return nil, fmt.Errorf("scan counter: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func ptr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
