package dds

import (
	"context"
	"fmt"

	"dwh/internal/sqldb"
)

type link struct {
	table     string
	pk        string
	a, b      string
	candidate string
	items     bool
}

var links = []link{
	{table: "l_order_user", pk: "hk_order_user_pk", a: "h_order_pk", b: "h_user_pk", candidate: "k_order_user"},
	{table: "l_order_product", pk: "hk_order_product_pk", a: "h_order_pk", b: "h_product_pk", candidate: "k_order_product", items: true},
	{table: "l_product_restaurant", pk: "hk_product_restaurant_pk", a: "h_product_pk", b: "h_restaurant_pk", candidate: "k_product_restaurant", items: true},
	{table: "l_product_category", pk: "hk_product_category_pk", a: "h_product_pk", b: "h_category_pk", candidate: "k_product_category", items: true},
}

func (l link) insertSQL(res string) string {
	return fmt.Sprintf(`INSERT INTO %[1]s (%[2]s, %[3]s, %[4]s, load_dt, load_src)
SELECT r.%[5]s, r.%[3]s, r.%[4]s, r.load_dt, r.load_src
FROM %[6]s AS r
WHERE r.%[3]s IS NOT NULL
  AND r.%[4]s IS NOT NULL
  AND NOT EXISTS (SELECT 1 FROM %[1]s AS l WHERE l.%[3]s = r.%[3]s AND l.%[4]s = r.%[4]s)
ON CONFLICT (%[3]s, %[4]s) DO NOTHING`, l.table, l.pk, l.a, l.b, l.candidate, res)
}

// loadLinks records every resolved pair not linked yet. Pairs with a missing
// side are skipped.
func loadLinks(ctx context.Context, tx *sqldb.Tx, r resolved) error {
	for _, l := range links {
		res := r.orders
		if l.items {
			res = r.items
		}
		if _, err := tx.ExecContext(ctx, l.insertSQL(res)); err != nil {
			return fmt.Errorf("load %s: %w", l.table, err)
		}
	}
	return nil
}
