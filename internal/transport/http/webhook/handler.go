package webhook

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sibrendebast/manenbrouw-website-sub000/internal/payment"
	"github.com/sibrendebast/manenbrouw-website-sub000/internal/presentation/http/response"
	service "github.com/sibrendebast/manenbrouw-website-sub000/internal/service/order"
	"github.com/sibrendebast/manenbrouw-website-sub000/pkg/errorbank"
)

// EventHandler consumes parsed provider events.
type EventHandler interface {
	HandleEvent(ctx context.Context, event payment.Event) error
}

// Handler receives payment-provider webhook deliveries.
type Handler struct {
	svc    EventHandler
	logger *zap.Logger
}

// NewHandler constructs a webhook Handler.
func NewHandler(svc *service.Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	e.POST("/webhooks/payment", h.receive)
}

// receive acknowledges every parseable delivery with 200 so the provider
// stops retrying; processing failures are logged and reconciled out of band.
func (h *Handler) receive(c echo.Context) error {
	b := response.New(c)

	var event payment.Event
	if err := json.NewDecoder(c.Request().Body).Decode(&event); err != nil {
		return b.WithError(errorbank.BadRequest("invalid webhook payload", errorbank.WithCause(err))).Build()
	}

	if err := h.svc.HandleEvent(c.Request().Context(), event); err != nil {
		h.logger.Error("webhook processing failed",
			zap.String("event_id", event.Data.Object.ID),
			zap.String("type", event.Type),
			zap.Error(err),
		)
	}

	return c.JSON(http.StatusOK, map[string]bool{"received": true})
}
