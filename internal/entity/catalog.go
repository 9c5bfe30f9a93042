package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// Product is a catalog entity. The order pipeline reads it as the
// authoritative price/stock source and only ever mutates StockCount
// (and the derived InStock flag) on payment.
type Product struct {
	bun.BaseModel `bun:"table:products"`

	ID          int64     `bun:",pk,autoincrement"`
	Name        string    `bun:"name"`
	Description string    `bun:"description"`
	PriceCents  int64     `bun:"price_cents"`
	TaxRate     int       `bun:"tax_rate"`
	StockCount  int       `bun:"stock_count"`
	InStock     bool      `bun:"in_stock"`
	ImageURL    string    `bun:"image_url"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero"`
}

// Event is a ticketable entity with an optional early-bird pricing window.
type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID                int64     `bun:",pk,autoincrement"`
	Name              string    `bun:"name"`
	Date              time.Time `bun:"date"`
	Capacity          int       `bun:"capacity"`
	Paid              bool      `bun:"paid"`
	TicketPriceCents  int64     `bun:"ticket_price_cents"`
	EarlyBirdCents    int64     `bun:"early_bird_cents"`
	EarlyBirdDeadline time.Time `bun:"early_bird_deadline,nullzero"`
	TicketsSold       int       `bun:"tickets_sold"`
	CreatedAt         time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt         time.Time `bun:"updated_at,nullzero"`
}

// CurrentTicketPrice resolves the ticket price at a given moment, honouring
// the early-bird window when one is configured.
func (e *Event) CurrentTicketPrice(at time.Time) int64 {
	if e.EarlyBirdCents > 0 && !e.EarlyBirdDeadline.IsZero() && at.Before(e.EarlyBirdDeadline) {
		return e.EarlyBirdCents
	}
	return e.TicketPriceCents
}

// Subscriber is a newsletter signup keyed by email.
type Subscriber struct {
	bun.BaseModel `bun:"table:subscribers"`

	ID        int64     `bun:",pk,autoincrement"`
	Email     string    `bun:"email"`
	Name      string    `bun:"name"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `bun:"updated_at,nullzero"`
}
