package order

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sibrendebast/manenbrouw-website-sub000/internal/dto"
	"github.com/sibrendebast/manenbrouw-website-sub000/internal/entity"
	"github.com/sibrendebast/manenbrouw-website-sub000/internal/presentation/http/response"
	service "github.com/sibrendebast/manenbrouw-website-sub000/internal/service/order"
	"github.com/sibrendebast/manenbrouw-website-sub000/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/sibrendebast/manenbrouw-website-sub000/transport/http/order")

// Handler exposes the back-office order read surface over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs an order Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/orders")
	g.GET("/:id", h.getByID)
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid id", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.getByID", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := h.svc.Get(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(toDTO(order)).Build()
}

func toDTO(order *entity.Order) dto.OrderResponse {
	resp := dto.OrderResponse{
		ID:             order.ID,
		Number:         order.Number,
		Status:         order.Status,
		CustomerName:   order.CustomerName,
		CustomerEmail:  order.CustomerEmail,
		ShippingMethod: order.ShippingMethod,
		TotalCents:     order.TotalCents,
		PaymentMethod:  order.PaymentMethod,
		InvoiceURL:     order.InvoiceURL,
		CreatedAt:      order.CreatedAt,
		UpdatedAt:      order.UpdatedAt,
	}
	for _, item := range order.Items {
		resp.Items = append(resp.Items, dto.OrderItemResponse{
			ProductID:      item.ProductID,
			Name:           item.Name,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			TaxRate:        item.TaxRate,
		})
	}
	for _, ticket := range order.Tickets {
		resp.Tickets = append(resp.Tickets, dto.EventTicketResponse{
			EventID:        ticket.EventID,
			BuyerName:      ticket.BuyerName,
			Quantity:       ticket.Quantity,
			UnitPriceCents: ticket.UnitPriceCents,
		})
	}
	return resp
}
