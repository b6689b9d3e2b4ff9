package dds

import (
	"context"
	"fmt"
	"strings"

	"dwh/internal/sqldb"
)

type satellite struct {
	table     string
	pk        string
	hub       string
	candidate string
	// attrs maps satellite columns to resolved columns.
	attrs [][2]string
	items bool
}

var satellites = []satellite{
	{table: "s_order_cost", pk: "hk_order_cost_pk", hub: "h_order_pk", candidate: "k_order_cost",
		attrs: [][2]string{{"cost", "order_cost"}, {"payment", "order_payment"}}},
	{table: "s_order_status", pk: "hk_order_status_pk", hub: "h_order_pk", candidate: "k_order_status",
		attrs: [][2]string{{"status", "order_status"}}},
	{table: "s_restaurant_names", pk: "hk_restaurant_names_pk", hub: "h_restaurant_pk", candidate: "k_restaurant_names",
		attrs: [][2]string{{"name", "restaurant_name"}}},
	{table: "s_user_names", pk: "hk_user_names_pk", hub: "h_user_pk", candidate: "k_user_names",
		attrs: [][2]string{{"username", "user_name"}, {"userlogin", "user_login"}}},
	{table: "s_product_names", pk: "hk_product_names_pk", hub: "h_product_pk", candidate: "k_product_names",
		attrs: [][2]string{{"name", "product_name"}}, items: true},
}

// insertSQL appends a row unless a row at the latest load_dt for the same
// key already carries identical attribute values.
func (s satellite) insertSQL(res string) string {
	cols := make([]string, len(s.attrs))
	sel := make([]string, len(s.attrs))
	same := make([]string, len(s.attrs))
	for i, a := range s.attrs {
		cols[i] = a[0]
		sel[i] = "r." + a[1]
		same[i] = fmt.Sprintf("c.%s IS NOT DISTINCT FROM r.%s", a[0], a[1])
	}
	return fmt.Sprintf(`INSERT INTO %[1]s (%[2]s, %[3]s, %[4]s, load_dt, load_src)
SELECT r.%[5]s, r.%[3]s, %[6]s, r.load_dt, r.load_src
FROM %[7]s AS r
WHERE r.%[3]s IS NOT NULL
  AND NOT EXISTS (
    SELECT 1 FROM %[1]s AS c
    WHERE c.%[3]s = r.%[3]s
      AND c.load_dt = (SELECT MAX(m.load_dt) FROM %[1]s AS m WHERE m.%[3]s = r.%[3]s)
      AND %[8]s)`,
		s.table, s.pk, s.hub, strings.Join(cols, ", "), s.candidate, strings.Join(sel, ", "), res,
		strings.Join(same, "\n      AND "))
}

// loadSatellites appends attribute rows that changed since the latest
// historized version. Each attribute group is compared on its own.
func loadSatellites(ctx context.Context, tx *sqldb.Tx, r resolved) error {
	for _, s := range satellites {
		res := r.orders
		if s.items {
			res = r.items
		}
		if _, err := tx.ExecContext(ctx, s.insertSQL(res)); err != nil {
			return fmt.Errorf("load %s: %w", s.table, err)
		}
	}
	return nil
}
