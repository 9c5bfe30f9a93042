package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/sibrendebast/manenbrouw-website-sub000/internal/cache"
	"github.com/sibrendebast/manenbrouw-website-sub000/internal/config"
	"github.com/sibrendebast/manenbrouw-website-sub000/internal/entity"
	"github.com/sibrendebast/manenbrouw-website-sub000/internal/invoice"
	"github.com/sibrendebast/manenbrouw-website-sub000/internal/mailer"
	"github.com/sibrendebast/manenbrouw-website-sub000/internal/messaging"
	"github.com/sibrendebast/manenbrouw-website-sub000/internal/payment"
	catalogrepo "github.com/sibrendebast/manenbrouw-website-sub000/internal/repository/catalog"
	repo "github.com/sibrendebast/manenbrouw-website-sub000/internal/repository/order"
	"github.com/sibrendebast/manenbrouw-website-sub000/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/sibrendebast/manenbrouw-website-sub000/service/order")

// Orders is the persistence surface the state machine drives.
type Orders interface {
	GetWithLines(ctx context.Context, id int64) (*entity.Order, error)
	MarkPaid(ctx context.Context, id int64, paymentMethod, invoiceURL string) (bool, error)
	MarkCancelled(ctx context.Context, id int64) (bool, error)
}

// Stock mutates product inventory.
type Stock interface {
	DecrementStock(ctx context.Context, productID int64, qty int) error
}

// Service consumes payment-provider events and drives the order state
// machine: pending_payment -> paid (with invoice, stock decrement and
// notification fan-out) and pending_payment -> cancelled.
type Service struct {
	orders    Orders
	stock     Stock
	generator *invoice.Generator
	documents invoice.DocumentStore
	mail      mailer.Sender
	cache     cache.Store
	cacheTTL  time.Duration
	publisher messaging.Client
	messaging messagingConfig
	mailCfg   config.Mail
	logger    *zap.Logger
}

type messagingConfig struct {
	enabled bool
	topic   string
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Orders    *repo.Repository
	Catalog   *catalogrepo.Repository
	Generator *invoice.Generator
	Documents invoice.DocumentStore
	Mail      mailer.Sender
	Cache     cache.Store
	Publisher messaging.Client
	Config    config.Config
	Logger    *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		orders:    p.Orders,
		stock:     p.Catalog,
		generator: p.Generator,
		documents: p.Documents,
		mail:      p.Mail,
		cache:     p.Cache,
		cacheTTL:  p.Config.Cache.DefaultTTL,
		publisher: p.Publisher,
		mailCfg:   p.Config.Mail,
		logger:    p.Logger,
		messaging: messagingConfig{
			enabled: p.Config.Messaging.Enabled,
			topic:   p.Config.Messaging.Kafka.Topic,
		},
	}
}

// HandleEvent dispatches one provider webhook delivery. The transport always
// acknowledges the provider once the envelope parsed; errors returned here
// are for logging only and must never reach the provider, so a retry storm
// cannot duplicate side effects.
func (s *Service) HandleEvent(ctx context.Context, event payment.Event) error {
	ctx, span := serviceTracer.Start(ctx, "OrderService.HandleEvent", trace.WithAttributes(
		attribute.String("event.type", event.Type),
	))
	defer span.End()

	switch event.Type {
	case payment.EventCheckoutCompleted:
		return s.handleCompleted(ctx, event)
	case payment.EventCheckoutExpired:
		return s.handleExpired(ctx, event)
	default:
		s.logger.Debug("ignoring webhook event", zap.String("type", event.Type))
		return nil
	}
}

func (s *Service) handleCompleted(ctx context.Context, event payment.Event) error {
	orderID, err := strconv.ParseInt(event.Data.Object.Metadata.OrderID, 10, 64)
	if err != nil {
		s.logger.Error("webhook carries no usable order id",
			zap.String("event_id", event.Data.Object.ID),
			zap.Error(err),
		)
		return nil
	}

	// First-seen guard on the provider event id. Best effort: the
	// conditional paid transition below stays authoritative.
	guardKey := "webhook:" + event.Data.Object.ID
	if event.Data.Object.ID != "" {
		stored, err := s.cache.Add(ctx, guardKey, []byte("1"), 24*time.Hour)
		if err != nil {
			s.logger.Warn("webhook dedup guard unavailable", zap.Error(err))
		} else if !stored {
			s.logger.Info("duplicate webhook delivery skipped",
				zap.String("event_id", event.Data.Object.ID),
				zap.Int64("order_id", orderID),
			)
			return nil
		}
	}

	if err := s.markPaid(ctx, orderID, event.Data.Object.Metadata.PaymentMethod); err != nil {
		// Release the guard so a provider redelivery can retry.
		if event.Data.Object.ID != "" {
			if delErr := s.cache.Delete(ctx, guardKey); delErr != nil {
				s.logger.Warn("failed to release webhook guard", zap.Error(delErr))
			}
		}
		return err
	}
	return nil
}

// markPaid performs the payment-completed transition: invoice, conditional
// status update, stock decrement, notification fan-out. Replays on an
// already-paid order are no-ops.
func (s *Service) markPaid(ctx context.Context, orderID int64, paymentMethod string) error {
	ctx, span := serviceTracer.Start(ctx, "OrderService.markPaid", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	order, err := s.orders.GetWithLines(ctx, orderID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			// Fatal for this delivery: nothing to transition, nothing to
			// retry. Logged for manual reconciliation.
			s.logger.Error("paid webhook for unknown order", zap.Int64("order_id", orderID))
			return nil
		}
		span.RecordError(err)
		return fmt.Errorf("load order %d: %w", orderID, err)
	}

	if order.Status != entity.OrderStatusPendingPayment {
		s.logger.Info("order already processed; skipping",
			zap.Int64("order_id", orderID),
			zap.String("status", order.Status),
		)
		return nil
	}

	// Invoice first: rendering is pure and storage idempotent, so doing
	// this before the transition can at worst rewrite identical bytes.
	document, err := s.generator.Render(order)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("render invoice for order %d: %w", orderID, err)
	}
	invoiceURL, err := s.documents.Put(ctx, s.generator.Filename(order), document)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("store invoice for order %d: %w", orderID, err)
	}

	transitioned, err := s.orders.MarkPaid(ctx, orderID, paymentMethod, invoiceURL)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("mark order %d paid: %w", orderID, err)
	}
	if !transitioned {
		// A concurrent delivery won the conditional update; it owns the
		// side effects.
		s.logger.Info("order paid by concurrent delivery", zap.Int64("order_id", orderID))
		return nil
	}

	order.Status = entity.OrderStatusPaid
	order.PaymentMethod = paymentMethod
	order.InvoiceURL = invoiceURL

	// Stock was validated at cart submission and may be stale by now; the
	// decrement clamps at zero so it never goes negative, and a shortfall
	// is logged for manual reconciliation rather than compensated.
	for _, item := range order.Items {
		if err := s.stock.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			s.logger.Error("stock decrement failed",
				zap.Int64("order_id", orderID),
				zap.Int64("product_id", item.ProductID),
				zap.Error(err),
			)
		}
	}

	s.invalidateCache(ctx, orderID)
	s.sendPaidNotifications(ctx, order)
	s.publishOrderPaid(ctx, order)

	s.logger.Info("order paid",
		zap.Int64("order_id", order.ID),
		zap.String("number", order.Number),
		zap.String("payment_method", paymentMethod),
	)
	return nil
}

func (s *Service) handleExpired(ctx context.Context, event payment.Event) error {
	orderID, err := strconv.ParseInt(event.Data.Object.Metadata.OrderID, 10, 64)
	if err != nil {
		s.logger.Error("expired webhook carries no usable order id", zap.Error(err))
		return nil
	}

	transitioned, err := s.orders.MarkCancelled(ctx, orderID)
	if err != nil {
		return fmt.Errorf("cancel order %d: %w", orderID, err)
	}
	if transitioned {
		s.invalidateCache(ctx, orderID)
		s.logger.Info("order cancelled after payment session expiry", zap.Int64("order_id", orderID))
	}
	return nil
}

// RegenerateInvoice re-renders and re-stores the invoice document from the
// persisted order snapshot. Safe at any time: same snapshot, same bytes.
func (s *Service) RegenerateInvoice(ctx context.Context, orderID int64) (string, error) {
	order, err := s.orders.GetWithLines(ctx, orderID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", errorbank.NotFound("order not found")
		}
		return "", errorbank.Internal("failed to load order", errorbank.WithCause(err))
	}

	document, err := s.generator.Render(order)
	if err != nil {
		return "", errorbank.Internal("failed to render invoice", errorbank.WithCause(err))
	}
	url, err := s.documents.Put(ctx, s.generator.Filename(order), document)
	if err != nil {
		return "", errorbank.External("failed to store invoice", errorbank.WithCause(err))
	}
	return url, nil
}

// Get retrieves an order with its lines, consulting cache when available.
func (s *Service) Get(ctx context.Context, id int64) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Get", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	if order, err := s.getFromCache(ctx, id); err == nil {
		return order, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("orders cache read failed", zap.Int64("id", id), zap.Error(err))
	}

	order, err := s.orders.GetWithLines(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("order not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load order", errorbank.WithCause(err))
	}

	if err := s.storeInCache(ctx, order); err != nil {
		s.logger.Warn("orders cache write failed", zap.Int64("id", id), zap.Error(err))
	}

	return order, nil
}

// sendPaidNotifications delivers the customer confirmation (admin in copy)
// and a separate administrative notification. Strictly best effort: the
// order stays paid whatever happens here.
func (s *Service) sendPaidNotifications(ctx context.Context, order *entity.Order) {
	customer := mailer.Message{
		To:      []string{order.CustomerEmail, s.mailCfg.AdminAddr},
		Subject: fmt.Sprintf("Bedankt voor je bestelling %s", order.Number),
		Body: fmt.Sprintf(
			"Dag %s,\n\nWe hebben je betaling voor bestelling %s goed ontvangen.\nTotaal: %s\nFactuur: %s\n\nProost!\nBrouwerij Manenbrouw\n",
			order.CustomerName, order.Number, invoice.FormatCents(order.TotalCents), order.InvoiceURL,
		),
	}
	if err := s.mail.Send(ctx, customer); err != nil {
		s.logger.Error("customer confirmation failed",
			zap.Int64("order_id", order.ID),
			zap.Error(err),
		)
	}

	admin := mailer.Message{
		To:      []string{s.mailCfg.AdminAddr},
		Subject: fmt.Sprintf("Nieuwe betaalde bestelling %s", order.Number),
		Body: fmt.Sprintf(
			"Bestelling %s van %s (%s) is betaald.\nTotaal: %s\nVerzending: %s\n",
			order.Number, order.CustomerName, order.CustomerEmail,
			invoice.FormatCents(order.TotalCents), order.ShippingMethod,
		),
	}
	if err := s.mail.Send(ctx, admin); err != nil {
		s.logger.Error("admin notification failed",
			zap.Int64("order_id", order.ID),
			zap.Error(err),
		)
	}
}

func (s *Service) publishOrderPaid(ctx context.Context, order *entity.Order) {
	if !s.messaging.enabled || s.publisher == nil {
		return
	}
	event := OrderPaidEvent{
		Type:          "order.paid",
		ID:            order.ID,
		Number:        order.Number,
		TotalCents:    order.TotalCents,
		PaymentMethod: order.PaymentMethod,
		InvoiceURL:    order.InvoiceURL,
		PaidAt:        time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal order paid", zap.Error(err))
		return
	}
	if err := s.publisher.Publish(ctx, []byte(fmt.Sprintf("order-%d", order.ID)), payload); err != nil {
		s.logger.Error("publish order paid", zap.Error(err))
	}
}

func (s *Service) cacheKey(id int64) string {
	return fmt.Sprintf("orders:%d", id)
}

func (s *Service) getFromCache(ctx context.Context, id int64) (*entity.Order, error) {
	if s.cache == nil {
		return nil, cache.ErrCacheMiss
	}
	bytes, err := s.cache.Get(ctx, s.cacheKey(id))
	if err != nil {
		return nil, err
	}
	var order entity.Order
	if err := json.Unmarshal(bytes, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Service) storeInCache(ctx context.Context, order *entity.Order) error {
	if s.cache == nil || order == nil {
		return nil
	}
	bytes, err := json.Marshal(order)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, s.cacheKey(order.ID), bytes, s.cacheTTL)
}

func (s *Service) invalidateCache(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, s.cacheKey(id)); err != nil {
		s.logger.Warn("orders cache invalidation failed", zap.Int64("id", id), zap.Error(err))
	}
}

// OrderPaidEvent is emitted once per order when payment completes.
type OrderPaidEvent struct {
	Type          string    `json:"type"`
	ID            int64     `json:"id"`
	Number        string    `json:"number"`
	TotalCents    int64     `json:"total_cents"`
	PaymentMethod string    `json:"payment_method"`
	InvoiceURL    string    `json:"invoice_url"`
	PaidAt        time.Time `json:"paid_at"`
}
