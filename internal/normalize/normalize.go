// Package normalize turns raw order messages into validated canonical
// orders. Both camelCase and snake_case field names are accepted.
package normalize

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"dwh/internal/catalog"
	"dwh/internal/model"
)

var (
	ErrInvalidEvent   = errors.New("invalid event")
	ErrUnexpectedType = errors.New("unexpected object type")
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// Normalizer validates messages of one object type and optionally enriches
// them from the catalog.
type Normalizer struct {
	objectType string
	enricher   *catalog.Enricher
}

// New returns a Normalizer for objectType. enricher may be nil.
func New(objectType string, enricher *catalog.Enricher) *Normalizer {
	return &Normalizer{objectType: objectType, enricher: enricher}
}

// Parse validates the envelope of raw without decoding the payload.
func (n *Normalizer) Parse(raw []byte) (model.Envelope, error) {
	if !gjson.ValidBytes(raw) {
		return model.Envelope{}, fmt.Errorf("%w: malformed json", ErrInvalidEvent)
	}
	r := gjson.ParseBytes(raw)
	if !r.IsObject() {
		return model.Envelope{}, fmt.Errorf("%w: not an object", ErrInvalidEvent)
	}
	env := model.Envelope{
		ObjectID:   strings.TrimSpace(first(r, "objectId", "object_id").String()),
		ObjectType: strings.TrimSpace(first(r, "objectType", "object_type").String()),
	}
	if env.ObjectType == "" {
		return model.Envelope{}, fmt.Errorf("%w: missing objectType", ErrInvalidEvent)
	}
	if n.objectType != "" && env.ObjectType != n.objectType {
		return model.Envelope{}, fmt.Errorf("%w: %q", ErrUnexpectedType, env.ObjectType)
	}
	if env.ObjectID == "" {
		return model.Envelope{}, fmt.Errorf("%w: missing objectId", ErrInvalidEvent)
	}
	if v := first(r, "sentAt", "sent_dttm"); v.Exists() {
		t, err := parseTime(v)
		if err != nil {
			return model.Envelope{}, fmt.Errorf("%w: sentAt: %v", ErrInvalidEvent, err)
		}
		env.SentAt = t
	}
	payload := r.Get("payload")
	if !payload.IsObject() {
		return model.Envelope{}, fmt.Errorf("%w: payload is not an object", ErrInvalidEvent)
	}
	env.Payload = []byte(payload.Raw)
	return env, nil
}

// Decode reads the canonical order from the envelope payload. The order id
// falls back to the envelope object id.
func (n *Normalizer) Decode(env model.Envelope) (model.Order, error) {
	p := gjson.ParseBytes(env.Payload)
	o := model.Order{
		ID:     strings.TrimSpace(first(p, "id", "_id").String()),
		Status: first(p, "status", "final_status").String(),
	}
	if o.ID == "" {
		o.ID = env.ObjectID
	}
	if o.ID == "" {
		return model.Order{}, fmt.Errorf("%w: missing order id", ErrInvalidEvent)
	}
	var err error
	if v := first(p, "date"); v.Exists() {
		if o.Date, err = parseTime(v); err != nil {
			return model.Order{}, fmt.Errorf("%w: date: %v", ErrInvalidEvent, err)
		}
	}
	if o.Cost, err = decimal(first(p, "cost")); err != nil {
		return model.Order{}, fmt.Errorf("%w: cost: %v", ErrInvalidEvent, err)
	}
	if o.Payment, err = decimal(first(p, "payment")); err != nil {
		return model.Order{}, fmt.Errorf("%w: payment: %v", ErrInvalidEvent, err)
	}
	if v := p.Get("restaurant"); v.IsObject() {
		o.Restaurant = &model.Restaurant{ID: first(v, "id", "_id").String(), Name: v.Get("name").String()}
	}
	if v := p.Get("user"); v.IsObject() {
		o.User = &model.User{ID: first(v, "id", "_id").String(), Name: v.Get("name").String(), Login: v.Get("login").String()}
	}
	items := first(p, "products", "order_items")
	if items.Exists() && !items.IsArray() {
		return model.Order{}, fmt.Errorf("%w: products is not an array", ErrInvalidEvent)
	}
	for i, it := range items.Array() {
		if !it.IsObject() {
			return model.Order{}, fmt.Errorf("%w: product %d is not an object", ErrInvalidEvent, i)
		}
		price, err := decimal(it.Get("price"))
		if err != nil {
			return model.Order{}, fmt.Errorf("%w: product %d price: %v", ErrInvalidEvent, i, err)
		}
		o.Products = append(o.Products, model.Product{
			ID:       first(it, "id", "_id").String(),
			Name:     it.Get("name").String(),
			Category: it.Get("category").String(),
			Price:    price,
			Quantity: it.Get("quantity").Int(),
		})
	}
	return o, nil
}

// Normalize parses, decodes and enriches raw.
func (n *Normalizer) Normalize(ctx context.Context, raw []byte) (model.Event, error) {
	if err := ctx.Err(); err != nil {
		return model.Event{}, err
	}
	env, err := n.Parse(raw)
	if err != nil {
		return model.Event{}, err
	}
	return n.Canonical(ctx, env)
}

// Canonical decodes and enriches an already parsed envelope. Catalog misses
// are logged and leave the order as carried by the message.
func (n *Normalizer) Canonical(ctx context.Context, env model.Envelope) (model.Event, error) {
	if err := ctx.Err(); err != nil {
		return model.Event{}, err
	}
	o, err := n.Decode(env)
	if err != nil {
		return model.Event{}, err
	}
	if n.enricher != nil {
		misses, err := n.enricher.Enrich(&o)
		if err != nil {
			return model.Event{}, fmt.Errorf("enrich: %w", err)
		}
		if len(misses) > 0 {
			log.Printf("enrich miss object_id=%s ids=%s", env.ObjectID, strings.Join(misses, ","))
		}
	}
	return model.Event{ObjectID: env.ObjectID, ObjectType: env.ObjectType, SentAt: env.SentAt, Payload: o}, nil
}

// first returns the first present, non-null value among paths.
func first(r gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		if v := r.Get(p); v.Exists() && v.Type != gjson.Null {
			return v
		}
	}
	return gjson.Result{}
}

func decimal(v gjson.Result) (model.Decimal, error) {
	var raw string
	switch v.Type {
	case gjson.Null:
		return model.Decimal{}, nil
	case gjson.Number:
		raw = v.Raw
	case gjson.String:
		raw = strings.TrimSpace(v.Str)
		if raw == "" {
			return model.Decimal{}, nil
		}
	default:
		return model.Decimal{}, fmt.Errorf("unexpected %s", v.Type)
	}
	d, err := model.NewDecimal(raw)
	if err != nil {
		return model.Decimal{}, err
	}
	if err := d.CheckMoney(); err != nil {
		return model.Decimal{}, err
	}
	return d, nil
}

func parseTime(v gjson.Result) (time.Time, error) {
	if v.Type == gjson.Number {
		return time.Unix(v.Int(), 0).UTC(), nil
	}
	s := strings.TrimSpace(v.String())
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}
