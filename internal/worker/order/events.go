package order

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/sibrendebast/manenbrouw-website-sub000/internal/config"
	"github.com/sibrendebast/manenbrouw-website-sub000/internal/invoice"
	"github.com/sibrendebast/manenbrouw-website-sub000/internal/messaging"
	"github.com/sibrendebast/manenbrouw-website-sub000/internal/notify"
	checkoutsvc "github.com/sibrendebast/manenbrouw-website-sub000/internal/service/checkout"
	ordersvc "github.com/sibrendebast/manenbrouw-website-sub000/internal/service/order"
	"github.com/sibrendebast/manenbrouw-website-sub000/internal/worker"
)

var workerTracer = otel.Tracer("github.com/sibrendebast/manenbrouw-website-sub000/worker/order")

// Module registers order-related worker handlers.
var Module = fx.Module("worker_order",
	fx.Provide(
		fx.Annotate(
			NewOrderEventsHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// NewOrderEventsHandler consumes the order event stream and fans paid and
// created orders out to operator notifications.
func NewOrderEventsHandler(logger *zap.Logger, notifier notify.Notifier, cfg config.Config) worker.HandlerRegistration {
	handler := func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.orders.process", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
		))
		defer span.End()

		var envelope struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(msg.Value, &envelope); err != nil {
			logger.Error("failed to decode order event", zap.Error(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return err
		}
		span.SetAttributes(attribute.String("event.type", envelope.Type))

		switch envelope.Type {
		case "order.created":
			return handleCreated(ctx, logger, notifier, msg.Value)
		case "order.paid":
			return handlePaid(ctx, logger, notifier, msg.Value)
		default:
			logger.Debug("ignoring order event", zap.String("type", envelope.Type))
			return nil
		}
	}

	return worker.HandlerRegistration{
		Topic:   cfg.Messaging.Kafka.Topic,
		Handler: handler,
	}
}

func handleCreated(ctx context.Context, logger *zap.Logger, notifier notify.Notifier, value []byte) error {
	var event checkoutsvc.OrderCreatedEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return err
	}
	logger.Info("order created",
		zap.Int64("id", event.ID),
		zap.String("number", event.Number),
		zap.Int64("total_cents", event.TotalCents),
	)
	return notifier.Push(ctx, notify.Notification{
		Title: fmt.Sprintf("Nieuwe bestelling %s", event.Number),
		Body:  fmt.Sprintf("Wacht op betaling, totaal %s", invoice.FormatCents(event.TotalCents)),
	})
}

func handlePaid(ctx context.Context, logger *zap.Logger, notifier notify.Notifier, value []byte) error {
	var event ordersvc.OrderPaidEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return err
	}
	logger.Info("order paid",
		zap.Int64("id", event.ID),
		zap.String("number", event.Number),
		zap.String("payment_method", event.PaymentMethod),
	)
	return notifier.Push(ctx, notify.Notification{
		Title: fmt.Sprintf("Bestelling %s betaald", event.Number),
		Body:  fmt.Sprintf("%s via %s", invoice.FormatCents(event.TotalCents), event.PaymentMethod),
	})
}
