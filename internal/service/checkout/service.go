package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/sibrendebast/manenbrouw-website-sub000/internal/config"
	"github.com/sibrendebast/manenbrouw-website-sub000/internal/dto"
	"github.com/sibrendebast/manenbrouw-website-sub000/internal/entity"
	"github.com/sibrendebast/manenbrouw-website-sub000/internal/messaging"
	"github.com/sibrendebast/manenbrouw-website-sub000/internal/payment"
	catalogrepo "github.com/sibrendebast/manenbrouw-website-sub000/internal/repository/catalog"
	newsletterrepo "github.com/sibrendebast/manenbrouw-website-sub000/internal/repository/newsletter"
	orderrepo "github.com/sibrendebast/manenbrouw-website-sub000/internal/repository/order"
	"github.com/sibrendebast/manenbrouw-website-sub000/internal/tax"
	"github.com/sibrendebast/manenbrouw-website-sub000/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/sibrendebast/manenbrouw-website-sub000/service/checkout")

// Catalog is the authoritative price/stock source.
type Catalog interface {
	GetProduct(ctx context.Context, id int64) (*entity.Product, error)
	GetEvent(ctx context.Context, id int64) (*entity.Event, error)
}

// Orders persists assembled orders.
type Orders interface {
	Create(ctx context.Context, order *entity.Order, items []*entity.OrderItem, tickets []*entity.EventTicket) error
	GetWithLines(ctx context.Context, id int64) (*entity.Order, error)
}

// Newsletter records opt-in subscribers.
type Newsletter interface {
	Upsert(ctx context.Context, email, name string) error
}

// Service assembles orders out of submitted carts: it validates input and
// stock, recomputes the authoritative total server-side, allocates the order
// number and persists everything atomically.
type Service struct {
	catalog    Catalog
	orders     Orders
	newsletter Newsletter
	sessions   payment.SessionCreator
	publisher  messaging.Client
	shop       config.Shop
	messaging  messagingConfig
	logger     *zap.Logger
}

type messagingConfig struct {
	enabled bool
	topic   string
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Catalog    *catalogrepo.Repository
	Orders     *orderrepo.Repository
	Newsletter *newsletterrepo.Repository
	Sessions   payment.SessionCreator
	Publisher  messaging.Client
	Config     config.Config
	Logger     *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		catalog:    p.Catalog,
		orders:     p.Orders,
		newsletter: p.Newsletter,
		sessions:   p.Sessions,
		publisher:  p.Publisher,
		shop:       p.Config.Shop,
		logger:     p.Logger,
		messaging: messagingConfig{
			enabled: p.Config.Messaging.Enabled,
			topic:   p.Config.Messaging.Kafka.Topic,
		},
	}
}

// pricedLine is a cart line after server-side repricing: exactly one of
// product/event is set. The two sellable kinds share the checkout flow but
// never a shape.
type pricedLine struct {
	quantity int
	product  *entity.Product
	event    *entity.Event
	unit     int64
	rate     int
}

// Submit runs the full order assembly for a proposed cart. It returns the
// created order; every failure is an errorbank error and leaves no partial
// state behind (the order insert is the only durable step and is atomic).
func (s *Service) Submit(ctx context.Context, req dto.CheckoutRequest) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "CheckoutService.Submit", trace.WithAttributes(
		attribute.Int("cart.lines", len(req.Cart)),
	))
	defer span.End()

	if err := validateCustomer(req); err != nil {
		return nil, err
	}
	if len(req.Cart) == 0 {
		return nil, errorbank.BadRequest("cart is empty")
	}

	lines, err := s.priceLines(ctx, req.Cart)
	if err != nil {
		return nil, err
	}

	hasProducts := false
	for _, line := range lines {
		if line.product != nil {
			hasProducts = true
			break
		}
	}

	if hasProducts && req.ShippingMethod == entity.ShippingMethodShipment {
		if err := s.validateAddress(req); err != nil {
			return nil, err
		}
	}

	if err := s.validateStock(lines); err != nil {
		return nil, err
	}

	// Authoritative total: server prices only, shipping surcharge applied
	// once iff physical goods actually ship.
	var total int64
	for _, line := range lines {
		total += line.unit * int64(line.quantity)
	}
	if hasProducts && req.ShippingMethod == entity.ShippingMethodShipment {
		total += s.shop.ShippingFeeCents
	}

	now := time.Now().UTC()
	order := &entity.Order{
		CustomerName:   strings.TrimSpace(req.CustomerName),
		CustomerEmail:  strings.TrimSpace(req.CustomerEmail),
		CustomerPhone:  strings.TrimSpace(req.CustomerPhone),
		ShippingMethod: req.ShippingMethod,
		TotalCents:     total,
		Status:         entity.OrderStatusPendingPayment,
		Comment:        strings.TrimSpace(req.Comment),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if hasProducts && req.ShippingMethod == entity.ShippingMethodShipment {
		order.Street = strings.TrimSpace(req.Street)
		order.City = strings.TrimSpace(req.City)
		order.Zip = strings.TrimSpace(req.Zip)
		order.Country = strings.TrimSpace(req.Country)
	}

	var items []*entity.OrderItem
	var tickets []*entity.EventTicket
	for _, line := range lines {
		switch {
		case line.product != nil:
			items = append(items, &entity.OrderItem{
				ProductID:      line.product.ID,
				Name:           line.product.Name,
				Quantity:       line.quantity,
				UnitPriceCents: line.unit,
				TaxRate:        line.rate,
			})
		case line.event != nil:
			tickets = append(tickets, &entity.EventTicket{
				EventID:        line.event.ID,
				BuyerName:      order.CustomerName,
				BuyerEmail:     order.CustomerEmail,
				Quantity:       line.quantity,
				UnitPriceCents: line.unit,
				TaxRate:        line.rate,
			})
		}
	}

	if err := s.orders.Create(ctx, order, items, tickets); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		return nil, errorbank.Internal("failed to create order", errorbank.WithCause(err))
	}
	order.Items = items
	order.Tickets = tickets

	// Newsletter opt-in is best effort and must never fail the order.
	if s.shop.NewsletterEnabled && strings.EqualFold(req.Newsletter, "on") {
		if err := s.newsletter.Upsert(ctx, order.CustomerEmail, order.CustomerName); err != nil {
			s.logger.Warn("newsletter signup failed",
				zap.String("email", order.CustomerEmail),
				zap.Error(err),
			)
		}
	}

	s.publishOrderCreated(ctx, order)

	return order, nil
}

// CreateSession validates stock once more and asks the provider for a hosted
// checkout session for a pending order.
func (s *Service) CreateSession(ctx context.Context, orderID int64, paymentMethod string) (string, error) {
	ctx, span := serviceTracer.Start(ctx, "CheckoutService.CreateSession", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	order, err := s.orders.GetWithLines(ctx, orderID)
	if err != nil {
		if errors.Is(err, orderrepo.ErrNotFound) {
			return "", errorbank.NotFound("order not found")
		}
		span.RecordError(err)
		return "", errorbank.Internal("failed to load order", errorbank.WithCause(err))
	}
	if order.Status != entity.OrderStatusPendingPayment {
		return "", errorbank.Conflict("order is not awaiting payment")
	}

	// Stock may have moved since cart submission; reject here rather than
	// let the customer pay for goods that are gone.
	for _, item := range order.Items {
		product, err := s.catalog.GetProduct(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, catalogrepo.ErrNotFound) {
				return "", errorbank.NotFound(fmt.Sprintf("product %d not found", item.ProductID))
			}
			return "", errorbank.Internal("failed to load product", errorbank.WithCause(err))
		}
		if !product.InStock || product.StockCount < item.Quantity {
			return "", stockError(product)
		}
	}

	redirect, err := s.sessions.CreateSession(ctx, payment.SessionParams{
		OrderID:       order.ID,
		OrderNumber:   order.Number,
		AmountCents:   order.TotalCents,
		CustomerName:  order.CustomerName,
		CustomerEmail: order.CustomerEmail,
		PaymentMethod: paymentMethod,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "payment session failed")
		return "", errorbank.External("failed to create payment session", errorbank.WithCause(err))
	}
	return redirect, nil
}

// Summary recomputes the authoritative totals and BTW breakdown for a cart,
// for the checkout page. Uses exactly the same repricing and tax paths as
// Submit and the invoice renderer, so the figures always agree.
func (s *Service) Summary(ctx context.Context, cart []dto.CartLine, shippingMethod string) (int64, []tax.Bracket, error) {
	lines, err := s.priceLines(ctx, cart)
	if err != nil {
		return 0, nil, err
	}

	var total int64
	hasProducts := false
	taxLines := make([]tax.Line, 0, len(lines))
	for _, line := range lines {
		total += line.unit * int64(line.quantity)
		if line.product != nil {
			hasProducts = true
		}
		taxLines = append(taxLines, tax.Line{PriceCents: line.unit, Quantity: line.quantity, Rate: line.rate})
	}
	if hasProducts && shippingMethod == entity.ShippingMethodShipment {
		total += s.shop.ShippingFeeCents
		taxLines = append(taxLines, tax.Line{PriceCents: s.shop.ShippingFeeCents, Quantity: 1, Rate: tax.DefaultRate})
	}

	return total, tax.Breakdown(taxLines), nil
}

// priceLines re-fetches every referenced catalog record and snapshots the
// server-side price and tax category. Client-supplied prices never survive
// this step.
func (s *Service) priceLines(ctx context.Context, cart []dto.CartLine) ([]pricedLine, error) {
	now := time.Now().UTC()
	lines := make([]pricedLine, 0, len(cart))
	for _, raw := range cart {
		if raw.Quantity <= 0 {
			return nil, errorbank.BadRequest("line quantity must be positive")
		}
		switch raw.ItemType {
		case dto.ItemTypeProduct:
			product, err := s.catalog.GetProduct(ctx, raw.ID)
			if err != nil {
				if errors.Is(err, catalogrepo.ErrNotFound) {
					return nil, errorbank.NotFound(fmt.Sprintf("product %d not found", raw.ID))
				}
				return nil, errorbank.Internal("failed to load product", errorbank.WithCause(err))
			}
			rate := product.TaxRate
			if rate == 0 {
				rate = s.shop.DefaultTaxRate
			}
			lines = append(lines, pricedLine{
				quantity: raw.Quantity,
				product:  product,
				unit:     product.PriceCents,
				rate:     rate,
			})
		case dto.ItemTypeTicket:
			eventID := raw.EventID
			if eventID == 0 {
				eventID = raw.ID
			}
			event, err := s.catalog.GetEvent(ctx, eventID)
			if err != nil {
				if errors.Is(err, catalogrepo.ErrNotFound) {
					return nil, errorbank.NotFound(fmt.Sprintf("event %d not found", eventID))
				}
				return nil, errorbank.Internal("failed to load event", errorbank.WithCause(err))
			}
			if !event.Paid {
				return nil, errorbank.Unprocessable(fmt.Sprintf("event %d does not sell tickets", eventID))
			}
			lines = append(lines, pricedLine{
				quantity: raw.Quantity,
				event:    event,
				unit:     event.CurrentTicketPrice(now),
				rate:     s.shop.DefaultTaxRate,
			})
		default:
			return nil, errorbank.BadRequest(fmt.Sprintf("unknown cart item type %q", raw.ItemType))
		}
	}
	return lines, nil
}

// validateStock requires every product line to be coverable by live stock.
// Read-only: the decrement itself happens at payment time.
func (s *Service) validateStock(lines []pricedLine) error {
	for _, line := range lines {
		if line.product == nil {
			continue
		}
		if !line.product.InStock || line.product.StockCount < line.quantity {
			return stockError(line.product)
		}
	}
	return nil
}

func (s *Service) validateAddress(req dto.CheckoutRequest) error {
	if strings.TrimSpace(req.Street) == "" ||
		strings.TrimSpace(req.City) == "" ||
		strings.TrimSpace(req.Zip) == "" ||
		strings.TrimSpace(req.Country) == "" {
		return errorbank.BadRequest("a full shipping address is required for shipment orders")
	}
	if !strings.EqualFold(strings.TrimSpace(req.Country), s.shop.Country) {
		return errorbank.UnsupportedRegion(fmt.Sprintf("we only ship within %s", s.shop.Country))
	}
	return nil
}

func validateCustomer(req dto.CheckoutRequest) error {
	if strings.TrimSpace(req.CustomerName) == "" ||
		strings.TrimSpace(req.CustomerEmail) == "" ||
		strings.TrimSpace(req.CustomerPhone) == "" {
		return errorbank.BadRequest("name, email and phone are required")
	}
	switch req.ShippingMethod {
	case entity.ShippingMethodPickup, entity.ShippingMethodShipment:
		return nil
	default:
		return errorbank.BadRequest("shipping method must be pickup or shipment")
	}
}

func stockError(product *entity.Product) error {
	available := product.StockCount
	if !product.InStock {
		available = 0
	}
	return errorbank.InsufficientStock(
		fmt.Sprintf("insufficient stock for %s", product.Name),
		errorbank.WithDetail("product_id", product.ID),
		errorbank.WithDetail("available", available),
	)
}

func (s *Service) publishOrderCreated(ctx context.Context, order *entity.Order) {
	if !s.messaging.enabled || s.publisher == nil {
		return
	}
	event := OrderCreatedEvent{
		Type:       "order.created",
		ID:         order.ID,
		Number:     order.Number,
		Status:     order.Status,
		TotalCents: order.TotalCents,
		CreatedAt:  order.CreatedAt,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal order created", zap.Error(err))
		return
	}
	if err := s.publisher.Publish(ctx, []byte(fmt.Sprintf("order-%d", order.ID)), payload); err != nil {
		s.logger.Error("publish order created", zap.Error(err))
	}
}

// OrderCreatedEvent is emitted when a new order is persisted.
type OrderCreatedEvent struct {
	Type       string    `json:"type"`
	ID         int64     `json:"id"`
	Number     string    `json:"number"`
	Status     string    `json:"status"`
	TotalCents int64     `json:"total_cents"`
	CreatedAt  time.Time `json:"created_at"`
}
