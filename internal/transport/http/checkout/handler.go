package checkout

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/sibrendebast/manenbrouw-website-sub000/internal/dto"
	"github.com/sibrendebast/manenbrouw-website-sub000/internal/presentation/http/response"
	service "github.com/sibrendebast/manenbrouw-website-sub000/internal/service/checkout"
	"github.com/sibrendebast/manenbrouw-website-sub000/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/sibrendebast/manenbrouw-website-sub000/transport/http/checkout")

// Handler exposes the storefront checkout endpoints.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs a checkout Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/checkout")
	g.POST("", h.submit)
	g.POST("/summary", h.summary)
	g.POST("/session", h.session)
}

func (h *Handler) submit(c echo.Context) error {
	b := response.New(c)

	var req dto.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "checkout.submit")
	defer span.End()

	order, err := h.svc.Submit(ctx, req)
	if err != nil {
		return b.WithError(err).Build()
	}
	span.SetAttributes(attribute.String("order.number", order.Number))

	return b.WithStatus(http.StatusCreated).WithData(dto.CheckoutResponse{
		OrderID:     order.ID,
		OrderNumber: order.Number,
		TotalCents:  order.TotalCents,
	}).Build()
}

func (h *Handler) summary(c echo.Context) error {
	b := response.New(c)

	var req dto.SummaryRequest
	if err := c.Bind(&req); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "checkout.summary")
	defer span.End()

	total, brackets, err := h.svc.Summary(ctx, req.Cart, req.ShippingMethod)
	if err != nil {
		return b.WithError(err).Build()
	}

	resp := dto.SummaryResponse{TotalCents: total}
	for _, br := range brackets {
		resp.Brackets = append(resp.Brackets, dto.TaxBracketResponse{
			Rate:          br.Rate,
			SubtotalCents: br.SubtotalCents,
			BTWCents:      br.BTWCents,
		})
	}
	return b.WithData(resp).Build()
}

func (h *Handler) session(c echo.Context) error {
	b := response.New(c)

	var req dto.SessionRequest
	if err := c.Bind(&req); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}
	if req.OrderID <= 0 {
		return b.WithError(errorbank.BadRequest("orderId is required")).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "checkout.session")
	span.SetAttributes(attribute.Int64("order.id", req.OrderID))
	defer span.End()

	redirect, err := h.svc.CreateSession(ctx, req.OrderID, req.PaymentMethod)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.SessionResponse{RedirectURL: redirect}).Build()
}
