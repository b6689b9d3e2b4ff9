package dds

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/samber/lo"

	"dwh/internal/model"
)

// Orders count towards the stats when their latest status is the final one.
// Product names are taken from the latest satellite row.
const (
	finalOrders = `FROM h_user AS hu
JOIN l_order_user AS lou ON lou.h_user_pk = hu.h_user_pk
JOIN s_order_status AS sos ON sos.h_order_pk = lou.h_order_pk
 AND sos.load_dt = (SELECT MAX(x.load_dt) FROM s_order_status AS x WHERE x.h_order_pk = lou.h_order_pk)
JOIN l_order_product AS lop ON lop.h_order_pk = lou.h_order_pk`

	productStatsSQL = `SELECT hu.user_id, hp.product_id, MAX(spn.name), COUNT(DISTINCT lou.h_order_pk)
` + finalOrders + `
JOIN h_product AS hp ON hp.h_product_pk = lop.h_product_pk
LEFT JOIN s_product_names AS spn ON spn.h_product_pk = hp.h_product_pk
 AND spn.load_dt = (SELECT MAX(y.load_dt) FROM s_product_names AS y WHERE y.h_product_pk = hp.h_product_pk)
WHERE hu.user_id = ? AND sos.status = ?
GROUP BY hu.user_id, hp.product_id
ORDER BY hp.product_id`

	categoryStatsSQL = `SELECT hu.user_id, hc.h_category_pk, hc.category_name, COUNT(DISTINCT lou.h_order_pk)
` + finalOrders + `
JOIN l_product_category AS lpc ON lpc.h_product_pk = lop.h_product_pk
JOIN h_category AS hc ON hc.h_category_pk = lpc.h_category_pk
WHERE hu.user_id = ? AND sos.status = ?
GROUP BY hu.user_id, hc.h_category_pk, hc.category_name
ORDER BY hc.category_name`
)

// UserStats recomputes the user's full order counts per product and per
// category over every final order in the vault. Product rows come first,
// then category rows. The cost grows with the user's order history.
func (r *Repository) UserStats(ctx context.Context, userID string) ([]model.StatsRow, error) {
	products, err := r.queryStats(ctx, productStatsSQL, userID, func(row *model.StatsRow, id, name sql.NullString) {
		row.ProductID, row.ProductName = nullableString(id), nullableString(name)
	})
	if err != nil {
		return nil, fmt.Errorf("product stats: %w", err)
	}
	categories, err := r.queryStats(ctx, categoryStatsSQL, userID, func(row *model.StatsRow, id, name sql.NullString) {
		row.CategoryID, row.CategoryName = nullableString(id), nullableString(name)
	})
	if err != nil {
		return nil, fmt.Errorf("category stats: %w", err)
	}
	return append(products, categories...), nil
}

func (r *Repository) queryStats(ctx context.Context, q, userID string, set func(*model.StatsRow, sql.NullString, sql.NullString)) ([]model.StatsRow, error) {
	rows, err := r.db.QueryContext(ctx, q, userID, r.opts.FinalStatus)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.StatsRow
	for rows.Next() {
		var row model.StatsRow
		var id, name sql.NullString
		if err := rows.Scan(&row.UserID, &id, &name, &row.OrderCount); err != nil {
			return nil, err
		}
		set(&row, id, name)
		out = append(out, row)
	}
	return out, rows.Err()
}

func nullableString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return lo.ToPtr(s.String)
}
