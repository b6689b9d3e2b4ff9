package dds

import (
	"context"
	"fmt"

	"dwh/internal/sqldb"
)

// resolved relations hold the staged rows with hub keys attached. A NULL
// key means the entity was absent from the order.
type resolved struct {
	orders string
	items  string
}

func resolve(ctx context.Context, ws *sqldb.Workspace, s staged) (resolved, error) {
	var r resolved
	var err error
	r.orders, err = ws.CreateAs(ctx, "res_order", fmt.Sprintf(`SELECT
    ho.h_order_pk        AS h_order_pk,
    hu.h_user_pk         AS h_user_pk,
    hr.h_restaurant_pk   AS h_restaurant_pk,
    s.order_cost         AS order_cost,
    s.order_payment      AS order_payment,
    s.order_status       AS order_status,
    s.user_name          AS user_name,
    s.user_login         AS user_login,
    s.restaurant_name    AS restaurant_name,
    s.load_dt            AS load_dt,
    s.load_src           AS load_src,
    s.k_order_user       AS k_order_user,
    s.k_order_cost       AS k_order_cost,
    s.k_order_status     AS k_order_status,
    s.k_user_names       AS k_user_names,
    s.k_restaurant_names AS k_restaurant_names
FROM %s AS s
LEFT JOIN h_order AS ho ON ho.order_id = s.order_id
LEFT JOIN h_user AS hu ON hu.user_id = s.user_id
LEFT JOIN h_restaurant AS hr ON hr.restaurant_id = s.restaurant_id`, s.orders))
	if err != nil {
		return r, fmt.Errorf("resolve orders: %w", err)
	}
	r.items, err = ws.CreateAs(ctx, "res_order_item", fmt.Sprintf(`SELECT
    ho.h_order_pk          AS h_order_pk,
    hr.h_restaurant_pk     AS h_restaurant_pk,
    hp.h_product_pk        AS h_product_pk,
    hc.h_category_pk       AS h_category_pk,
    s.product_name         AS product_name,
    s.load_dt              AS load_dt,
    s.load_src             AS load_src,
    s.k_order_product      AS k_order_product,
    s.k_product_restaurant AS k_product_restaurant,
    s.k_product_category   AS k_product_category,
    s.k_product_names      AS k_product_names
FROM %s AS s
LEFT JOIN h_order AS ho ON ho.order_id = s.order_id
LEFT JOIN h_restaurant AS hr ON hr.restaurant_id = s.restaurant_id
LEFT JOIN h_product AS hp ON hp.product_id = s.product_id
LEFT JOIN h_category AS hc ON hc.category_name = s.product_category`, s.items))
	if err != nil {
		return r, fmt.Errorf("resolve items: %w", err)
	}
	return r, nil
}
