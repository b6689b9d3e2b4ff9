package model

import "time"

// User is the order owner. Name and login come from the reference catalog.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Login string `json:"login"`
}

// Restaurant is the order's restaurant. The menu lives in the catalog only.
type Restaurant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Product is one order line item. Category is resolved from the restaurant menu.
type Product struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    Decimal `json:"price"`
	Quantity int64   `json:"quantity"`
}

// Order is the canonical, validated order aggregate passed between stages.
type Order struct {
	ID         string      `json:"id"`
	Date       time.Time   `json:"date"`
	Cost       Decimal     `json:"cost"`
	Payment    Decimal     `json:"payment"`
	Status     string      `json:"status"`
	Restaurant *Restaurant `json:"restaurant,omitempty"`
	User       *User       `json:"user,omitempty"`
	Products   []Product   `json:"products"`
}

// Event is the envelope shared by raw, enriched and normalized messages.
type Event struct {
	ObjectID   string    `json:"objectId"`
	ObjectType string    `json:"objectType"`
	SentAt     time.Time `json:"sentAt"`
	Payload    Order     `json:"payload"`
}

// StatsRow is one line of the per-user aggregation published after an order
// reaches the terminal status. A row carries either the product or the
// category dimension.
type StatsRow struct {
	UserID       string  `json:"userId"`
	ProductID    *string `json:"productId,omitempty"`
	ProductName  *string `json:"productName,omitempty"`
	CategoryID   *string `json:"categoryId,omitempty"`
	CategoryName *string `json:"categoryName,omitempty"`
	OrderCount   int64   `json:"orderCount"`
}

// Envelope is a validated inbound message before its payload is decoded.
type Envelope struct {
	ObjectID   string
	ObjectType string
	SentAt     time.Time
	Payload    []byte
}
