package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// Order status values. The customer-facing pipeline only ever drives
// pending_payment -> paid and pending_payment -> cancelled; shipped and
// completed are administrative.
const (
	OrderStatusPendingPayment = "pending_payment"
	OrderStatusPaid           = "paid"
	OrderStatusShipped        = "shipped"
	OrderStatusCompleted      = "completed"
	OrderStatusCancelled      = "cancelled"
)

// Shipping methods accepted at checkout.
const (
	ShippingMethodPickup   = "pickup"
	ShippingMethodShipment = "shipment"
)

// Order represents a single customer transaction stored in the relational
// database. TotalCents is authoritative and always server-computed.
type Order struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID            int64  `bun:",pk,autoincrement"`
	Number        string `bun:"number"`
	CustomerName  string `bun:"customer_name"`
	CustomerEmail string `bun:"customer_email"`
	CustomerPhone string `bun:"customer_phone"`

	ShippingMethod string `bun:"shipping_method"`
	Street         string `bun:"street"`
	City           string `bun:"city"`
	Zip            string `bun:"zip"`
	Country        string `bun:"country"`

	TotalCents    int64  `bun:"total_cents"`
	Status        string `bun:"status"`
	PaymentMethod string `bun:"payment_method"`
	InvoiceURL    string `bun:"invoice_url"`

	// Comment is an additive column that may lag behind on deployments still
	// running the previous schema; writes exclude it when absent.
	Comment string `bun:"comment"`

	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `bun:"updated_at,nullzero"`

	Items   []*OrderItem   `bun:"rel:has-many,join:id=order_id"`
	Tickets []*EventTicket `bun:"rel:has-many,join:id=order_id"`
}

// OrderItem is a product line captured at order time. UnitPriceCents and
// TaxRate are snapshots so invoices stay reproducible when the catalog
// changes later.
type OrderItem struct {
	bun.BaseModel `bun:"table:order_items"`

	ID             int64  `bun:",pk,autoincrement"`
	OrderID        int64  `bun:"order_id"`
	ProductID      int64  `bun:"product_id"`
	Name           string `bun:"name"`
	Quantity       int    `bun:"quantity"`
	UnitPriceCents int64  `bun:"unit_price_cents"`
	TaxRate        int    `bun:"tax_rate"`
}

// EventTicket is a ticket line for an event, distinct from OrderItem because
// it also drives the event's sold-ticket counter.
type EventTicket struct {
	bun.BaseModel `bun:"table:event_tickets"`

	ID             int64  `bun:",pk,autoincrement"`
	OrderID        int64  `bun:"order_id"`
	EventID        int64  `bun:"event_id"`
	BuyerName      string `bun:"buyer_name"`
	BuyerEmail     string `bun:"buyer_email"`
	Quantity       int    `bun:"quantity"`
	UnitPriceCents int64  `bun:"unit_price_cents"`
	TaxRate        int    `bun:"tax_rate"`
}
