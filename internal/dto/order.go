package dto

import "time"

// Cart line item kinds.
const (
	ItemTypeProduct = "product"
	ItemTypeTicket  = "ticket"
)

// CartLine is one requested line of a checkout cart. Client-supplied prices
// never appear here; the server recomputes everything from the catalog.
type CartLine struct {
	ID       int64  `json:"id"`
	Quantity int    `json:"quantity"`
	ItemType string `json:"itemType"`
	EventID  int64  `json:"eventId,omitempty"`
}

// CheckoutRequest is the checkout submission payload.
type CheckoutRequest struct {
	CustomerName   string     `json:"customerName"`
	CustomerEmail  string     `json:"customerEmail"`
	CustomerPhone  string     `json:"customerPhone"`
	ShippingMethod string     `json:"shippingMethod"`
	Street         string     `json:"street"`
	City           string     `json:"city"`
	Zip            string     `json:"zip"`
	Country        string     `json:"country"`
	Newsletter     string     `json:"newsletter,omitempty"`
	Comment        string     `json:"comment,omitempty"`
	Cart           []CartLine `json:"cart"`
}

// CheckoutResponse reports the created order.
type CheckoutResponse struct {
	OrderID     int64  `json:"orderId"`
	OrderNumber string `json:"orderNumber"`
	TotalCents  int64  `json:"totalCents"`
}

// SummaryRequest asks for a server-priced cart total before submission.
type SummaryRequest struct {
	Cart           []CartLine `json:"cart"`
	ShippingMethod string     `json:"shippingMethod"`
}

// TaxBracketResponse is one BTW category of a summary or invoice total.
type TaxBracketResponse struct {
	Rate          int   `json:"rate"`
	SubtotalCents int64 `json:"subtotalCents"`
	BTWCents      int64 `json:"btwCents"`
}

// SummaryResponse carries the authoritative cart total and its BTW breakdown.
type SummaryResponse struct {
	TotalCents int64                `json:"totalCents"`
	Brackets   []TaxBracketResponse `json:"brackets"`
}

// SessionRequest asks for a hosted payment session for an existing order.
type SessionRequest struct {
	OrderID       int64  `json:"orderId"`
	PaymentMethod string `json:"paymentMethod"`
}

// SessionResponse carries the provider redirect.
type SessionResponse struct {
	RedirectURL string `json:"redirectUrl"`
}

// OrderItemResponse is a product line as exposed via transport layers.
type OrderItemResponse struct {
	ProductID      int64  `json:"productId"`
	Name           string `json:"name"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unitPriceCents"`
	TaxRate        int    `json:"taxRate"`
}

// EventTicketResponse is a ticket line as exposed via transport layers.
type EventTicketResponse struct {
	EventID        int64  `json:"eventId"`
	BuyerName      string `json:"buyerName"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unitPriceCents"`
}

// OrderResponse represents an order as exposed via transport layers.
type OrderResponse struct {
	ID             int64                 `json:"id"`
	Number         string                `json:"number"`
	Status         string                `json:"status"`
	CustomerName   string                `json:"customerName"`
	CustomerEmail  string                `json:"customerEmail"`
	ShippingMethod string                `json:"shippingMethod"`
	TotalCents     int64                 `json:"totalCents"`
	PaymentMethod  string                `json:"paymentMethod,omitempty"`
	InvoiceURL     string                `json:"invoiceUrl,omitempty"`
	Items          []OrderItemResponse   `json:"items,omitempty"`
	Tickets        []EventTicketResponse `json:"tickets,omitempty"`
	CreatedAt      time.Time             `json:"createdAt"`
	UpdatedAt      time.Time             `json:"updatedAt"`
}
