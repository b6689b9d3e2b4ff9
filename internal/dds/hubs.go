package dds

import (
	"context"
	"fmt"

	"dwh/internal/sqldb"
)

type hub struct {
	table string
	pk    string
	bk    string
	// from is the staged column holding the business key, candidate is the
	// staged candidate key column.
	from      string
	candidate string
	// extra copies additional staged columns into the hub (target, source).
	extra [][2]string
	items bool
}

var hubs = []hub{
	{table: "h_order", pk: "h_order_pk", bk: "order_id", from: "order_id", candidate: "k_order", extra: [][2]string{{"order_dt", "order_dt"}}},
	{table: "h_user", pk: "h_user_pk", bk: "user_id", from: "user_id", candidate: "k_user"},
	{table: "h_restaurant", pk: "h_restaurant_pk", bk: "restaurant_id", from: "restaurant_id", candidate: "k_restaurant"},
	{table: "h_product", pk: "h_product_pk", bk: "product_id", from: "product_id", candidate: "k_product", items: true},
	{table: "h_category", pk: "h_category_pk", bk: "category_name", from: "product_category", candidate: "k_category", items: true},
}

func (h hub) insertSQL(stg string) string {
	cols, sel := h.pk+", "+h.bk, "s."+h.candidate+", s."+h.from
	for _, e := range h.extra {
		cols += ", " + e[0]
		sel += ", s." + e[1]
	}
	return fmt.Sprintf(`INSERT INTO %[1]s (%[2]s, load_dt, load_src)
SELECT DISTINCT %[3]s, s.load_dt, s.load_src
FROM %[4]s AS s
WHERE s.%[5]s IS NOT NULL
  AND NOT EXISTS (SELECT 1 FROM %[1]s AS h WHERE h.%[6]s = s.%[5]s)
ON CONFLICT (%[6]s) DO NOTHING`, h.table, cols, sel, stg, h.from, h.bk)
}

// loadHubs inserts every staged business key that has no hub row yet. The
// first writer of a key wins; later candidates for it are discarded.
func loadHubs(ctx context.Context, tx *sqldb.Tx, s staged) error {
	for _, h := range hubs {
		stg := s.orders
		if h.items {
			stg = s.items
		}
		if _, err := tx.ExecContext(ctx, h.insertSQL(stg)); err != nil {
			return fmt.Errorf("load %s: %w", h.table, err)
		}
	}
	return nil
}
