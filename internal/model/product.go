package model

import "time"

// Product is a single raffle: a fixed pool of numbered tickets sold
// while the product is active.  The JSON field names match what the
// storefront consumes, including the Portuguese legacy names for the
// ticket counters.  Slug is the unique routing key; Price is the
// per-ticket value as a decimal string ("10.00"); LuckDay is the
// announced draw date, display only.  Remaining counts tickets not yet
// paid, and Rifas carries the grid ordered by number ascending.
type Product struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Description  string    `json:"description"`
	ImgSrc       string    `json:"imgSrc"`
	VideoSrc     string    `json:"videoSrc"`
	LuckDay      string    `json:"luckDay"`
	Price        string    `json:"price"`
	IsActivate   bool      `json:"isActivate"`
	TotalTickets uint32    `json:"quantidadeDeRifas"`
	Remaining    uint32    `json:"rifasRestantes"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	Rifas        []Ticket  `json:"rifas,omitempty"`
}

// ProductSummary is the trimmed listing shape returned by GET /products.
type ProductSummary struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Slug    string `json:"slug"`
	ImgSrc  string `json:"imgSrc"`
	LuckDay string `json:"luckDay"`
	Price   string `json:"price"`
}
