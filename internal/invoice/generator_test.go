package invoice_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sibrendebast/manenbrouw-website-sub000/internal/config"
	"github.com/sibrendebast/manenbrouw-website-sub000/internal/entity"
	"github.com/sibrendebast/manenbrouw-website-sub000/internal/invoice"
)

func newGenerator(t *testing.T) *invoice.Generator {
	t.Helper()
	cfg := config.Config{
		Invoice: config.Invoice{
			IssuerName:    "Brouwerij Manenbrouw",
			IssuerAddress: "Dorpsstraat 1, 3000 Leuven, Belgium",
			IssuerVAT:     "BE 0123.456.789",
			IssuerIBAN:    "BE12 3456 7890 1234",
		},
	}
	gen, err := invoice.NewGenerator(cfg)
	require.NoError(t, err)
	return gen
}

func sampleOrder() *entity.Order {
	return &entity.Order{
		ID:             7,
		Number:         "2025/0042",
		CustomerName:   "Jan Peeters",
		CustomerEmail:  "jan@example.be",
		CustomerPhone:  "+32 470 00 00 00",
		ShippingMethod: entity.ShippingMethodShipment,
		Street:         "Kerkstraat 5",
		City:           "Gent",
		Zip:            "9000",
		Country:        "Belgium",
		TotalCents:     660 + 695,
		Status:         entity.OrderStatusPendingPayment,
		CreatedAt:      time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
		Items: []*entity.OrderItem{
			{ProductID: 1, Name: "Tripel Manenbrouw 33cl", Quantity: 3, UnitPriceCents: 220, TaxRate: 21},
		},
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	gen := newGenerator(t)
	order := sampleOrder()

	first, err := gen.Render(order)
	require.NoError(t, err)
	second, err := gen.Render(order)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRenderContainsTotalsAndShippingLine(t *testing.T) {
	gen := newGenerator(t)
	order := sampleOrder()

	doc, err := gen.Render(order)
	require.NoError(t, err)
	text := string(doc)

	assert.Contains(t, text, "FACTUUR 2025/0042")
	assert.Contains(t, text, "Tripel Manenbrouw 33cl")
	assert.Contains(t, text, "Verzending")
	// 660 items + 695 shipping, all at 21%.
	assert.Contains(t, text, "TOTAAL: € 13,55")
	assert.Contains(t, text, "21%")
	assert.Contains(t, text, invoice.FormatCents(1355))
}

func TestRenderPickupOrderHasNoShippingLine(t *testing.T) {
	gen := newGenerator(t)
	order := sampleOrder()
	order.ShippingMethod = entity.ShippingMethodPickup
	order.TotalCents = 660

	doc, err := gen.Render(order)
	require.NoError(t, err)

	assert.NotContains(t, string(doc), "Verzending")
	assert.Contains(t, string(doc), "Afhaling")
}

func TestRenderTicketLines(t *testing.T) {
	gen := newGenerator(t)
	order := sampleOrder()
	order.ShippingMethod = entity.ShippingMethodPickup
	order.Items = nil
	order.Tickets = []*entity.EventTicket{
		{EventID: 3, BuyerName: "Jan Peeters", Quantity: 2, UnitPriceCents: 1500, TaxRate: 21},
	}
	order.TotalCents = 3000

	doc, err := gen.Render(order)
	require.NoError(t, err)

	assert.Contains(t, string(doc), "Ticket evenement #3")
	assert.Contains(t, string(doc), "TOTAAL: € 30,00")
}

func TestFilename(t *testing.T) {
	gen := newGenerator(t)
	got := gen.Filename(sampleOrder())
	assert.Equal(t, "invoice-2025-0042.txt", got)
	assert.False(t, strings.Contains(got, "/"))
}

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "€ 0,05", invoice.FormatCents(5))
	assert.Equal(t, "€ 2,20", invoice.FormatCents(220))
	assert.Equal(t, "-€ 1,00", invoice.FormatCents(-100))
}
