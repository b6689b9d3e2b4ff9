package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"dwh/internal/catalog"
	"dwh/internal/model"
	"dwh/internal/queue"
)

type rawItem struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Price    model.Decimal `json:"price"`
	Quantity int64         `json:"quantity"`
}

type rawPayload struct {
	ID         string            `json:"id"`
	Date       string            `json:"date"`
	Cost       model.Decimal     `json:"cost"`
	Payment    model.Decimal     `json:"payment"`
	Status     string            `json:"status"`
	Restaurant map[string]string `json:"restaurant"`
	User       map[string]string `json:"user"`
	Products   []rawItem         `json:"products"`
}

type rawEvent struct {
	ObjectID   string     `json:"objectId"`
	ObjectType string     `json:"objectType"`
	SentAt     string     `json:"sentAt"`
	Payload    rawPayload `json:"payload"`
}

var (
	statuses   = []string{"OPEN", "COOKING", "DELIVERING", "CLOSED", "CANCELLED"}
	categories = []string{"drinks", "soups", "mains", "desserts"}
)

func main() {
	var (
		count       int
		users       int
		seed        int64
		outputFile  string
		catalogFile string
		sink        string
		bootstrap   string
		topic       string
	)
	flag.IntVar(&count, "count", 100, "number of events to generate")
	flag.IntVar(&users, "users", 10, "number of distinct users")
	flag.Int64Var(&seed, "seed", 1, "random seed")
	flag.StringVar(&outputFile, "output", "order-service_orders.jsonl", "output file for -sink=file")
	flag.StringVar(&catalogFile, "catalog", "catalog.json", "catalog seed file to write, empty to skip")
	flag.StringVar(&sink, "sink", "file", "event sink: file|kafka")
	flag.StringVar(&bootstrap, "bootstrap", "localhost:9092", "kafka bootstrap for -sink=kafka")
	flag.StringVar(&topic, "topic", "order-service_orders", "kafka topic for -sink=kafka")
	flag.Parse()

	g := newGenerator(rand.New(rand.NewSource(seed)), users)
	if catalogFile != "" {
		if err := g.writeCatalog(catalogFile); err != nil {
			log.Fatalf("write catalog: %v", err)
		}
	}
	if err := generate(g, count, sink, outputFile, bootstrap, topic); err != nil {
		log.Fatalf("generation failed: %v", err)
	}
}

func generate(g *generator, count int, sink, outputFile, bootstrap, topic string) error {
	ctx := context.Background()
	var pub queue.Publisher
	switch sink {
	case "kafka":
		kp := queue.NewKafkaPublisher(bootstrap, topic)
		defer kp.Close()
		pub = kp
	case "file":
		file, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("create file: %w", err)
		}
		defer file.Close()
		enc := json.NewEncoder(file)
		pub = publisherFunc(func(_ context.Context, _ string, v any) error { return enc.Encode(v) })
	default:
		return fmt.Errorf("unknown sink %q", sink)
	}

	base := time.Now().UTC().Add(-time.Duration(count) * time.Minute)
	for i := 0; i < count; i++ {
		ev := g.event(i, base.Add(time.Duration(i)*time.Minute))
		if err := pub.Publish(ctx, ev.ObjectID, ev); err != nil {
			return fmt.Errorf("publish event %d: %w", i+1, err)
		}
	}
	log.Printf("generated %d events sink=%s", count, sink)
	return nil
}

type publisherFunc func(ctx context.Context, key string, v any) error

func (f publisherFunc) Publish(ctx context.Context, key string, v any) error { return f(ctx, key, v) }

type generator struct {
	rnd         *rand.Rand
	users       int
	restaurants []catalog.Entry
}

func newGenerator(rnd *rand.Rand, users int) *generator {
	g := &generator{rnd: rnd, users: users}
	for r := 1; r <= 3; r++ {
		e := catalog.Entry{ID: fmt.Sprintf("r%d", r), Name: fmt.Sprintf("Restaurant %d", r)}
		for p := 1; p <= 5; p++ {
			e.Menu = append(e.Menu, catalog.MenuItem{
				ID:       fmt.Sprintf("r%d-p%d", r, p),
				Name:     fmt.Sprintf("Dish %d.%d", r, p),
				Category: categories[rnd.Intn(len(categories))],
				Price:    model.NewDecimalFromInt64(int64(100 + rnd.Intn(900))),
			})
		}
		g.restaurants = append(g.restaurants, e)
	}
	return g
}

// event builds the i-th event. Orders are revisited so that statuses move
// forward over time.
func (g *generator) event(i int, at time.Time) rawEvent {
	orderNo := g.rnd.Intn(i/2 + 1)
	r := g.restaurants[orderNo%len(g.restaurants)]
	user := fmt.Sprintf("u%d", orderNo%g.users+1)

	var items []rawItem
	cost := model.NewDecimalFromInt64(0)
	for _, m := range r.Menu[:1+orderNo%len(r.Menu)] {
		qty := int64(1 + g.rnd.Intn(3))
		items = append(items, rawItem{ID: m.ID, Name: m.Name, Price: m.Price, Quantity: qty})
		cost = cost.Add(m.Price.Mul(model.NewDecimalFromInt64(qty)))
	}
	return rawEvent{
		ObjectID:   fmt.Sprintf("%d", 1000+orderNo),
		ObjectType: "order",
		SentAt:     at.Format("2006-01-02 15:04:05"),
		Payload: rawPayload{
			ID:         fmt.Sprintf("o%d", orderNo),
			Date:       at.Add(-time.Minute).Format("2006-01-02 15:04:05"),
			Cost:       cost,
			Payment:    cost,
			Status:     statuses[g.rnd.Intn(len(statuses))],
			Restaurant: map[string]string{"id": r.ID},
			User:       map[string]string{"id": user},
			Products:   items,
		},
	}
}

func (g *generator) writeCatalog(path string) error {
	entries := append([]catalog.Entry(nil), g.restaurants...)
	for u := 1; u <= g.users; u++ {
		entries = append(entries, catalog.Entry{ID: fmt.Sprintf("u%d", u), Name: fmt.Sprintf("User %d", u), Login: fmt.Sprintf("user%d", u)})
	}
	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
