package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sibrendebast/manenbrouw-website-sub000/internal/config"
	"github.com/sibrendebast/manenbrouw-website-sub000/internal/dto"
	"github.com/sibrendebast/manenbrouw-website-sub000/internal/entity"
	"github.com/sibrendebast/manenbrouw-website-sub000/internal/payment"
	catalogrepo "github.com/sibrendebast/manenbrouw-website-sub000/internal/repository/catalog"
	orderrepo "github.com/sibrendebast/manenbrouw-website-sub000/internal/repository/order"
	"github.com/sibrendebast/manenbrouw-website-sub000/pkg/errorbank"
)

type fakeCatalog struct {
	products map[int64]*entity.Product
	events   map[int64]*entity.Event
}

func (f *fakeCatalog) GetProduct(_ context.Context, id int64) (*entity.Product, error) {
	if p, ok := f.products[id]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, catalogrepo.ErrNotFound
}

func (f *fakeCatalog) GetEvent(_ context.Context, id int64) (*entity.Event, error) {
	if e, ok := f.events[id]; ok {
		copied := *e
		return &copied, nil
	}
	return nil, catalogrepo.ErrNotFound
}

type fakeOrders struct {
	created *entity.Order
	items   []*entity.OrderItem
	tickets []*entity.EventTicket
	err     error
	stored  map[int64]*entity.Order
}

func (f *fakeOrders) Create(_ context.Context, order *entity.Order, items []*entity.OrderItem, tickets []*entity.EventTicket) error {
	if f.err != nil {
		return f.err
	}
	order.ID = 1
	order.Number = "2025/0001"
	f.created = order
	f.items = items
	f.tickets = tickets
	return nil
}

func (f *fakeOrders) GetWithLines(_ context.Context, id int64) (*entity.Order, error) {
	if o, ok := f.stored[id]; ok {
		return o, nil
	}
	return nil, orderrepo.ErrNotFound
}

type fakeNewsletter struct {
	err    error
	emails []string
}

func (f *fakeNewsletter) Upsert(_ context.Context, email, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.emails = append(f.emails, email)
	return nil
}

type fakeSessions struct {
	url string
	err error
}

func (f *fakeSessions) CreateSession(context.Context, payment.SessionParams) (string, error) {
	return f.url, f.err
}

func newTestService(catalog *fakeCatalog, orders *fakeOrders, news *fakeNewsletter, sessions *fakeSessions) *Service {
	return &Service{
		catalog:    catalog,
		orders:     orders,
		newsletter: news,
		sessions:   sessions,
		shop: config.Shop{
			Country:           "Belgium",
			ShippingFeeCents:  695,
			DefaultTaxRate:    21,
			NewsletterEnabled: true,
		},
		logger: zap.NewNop(),
	}
}

func testCatalog() *fakeCatalog {
	return &fakeCatalog{
		products: map[int64]*entity.Product{
			1: {ID: 1, Name: "Tripel 33cl", PriceCents: 220, TaxRate: 21, StockCount: 10, InStock: true},
			2: {ID: 2, Name: "Geschenkmand", PriceCents: 3500, TaxRate: 21, StockCount: 2, InStock: true},
		},
		events: map[int64]*entity.Event{
			3: {ID: 3, Name: "Brouwerijbezoek", Paid: true, TicketPriceCents: 1500},
			4: {ID: 4, Name: "Open deurdag", Paid: false},
		},
	}
}

func validRequest() dto.CheckoutRequest {
	return dto.CheckoutRequest{
		CustomerName:   "Jan Peeters",
		CustomerEmail:  "jan@example.be",
		CustomerPhone:  "+32 470 00 00 00",
		ShippingMethod: entity.ShippingMethodShipment,
		Street:         "Kerkstraat 5",
		City:           "Gent",
		Zip:            "9000",
		Country:        "Belgium",
		Cart: []dto.CartLine{
			{ID: 1, Quantity: 3, ItemType: dto.ItemTypeProduct},
		},
	}
}

func TestSubmitComputesAuthoritativeTotal(t *testing.T) {
	orders := &fakeOrders{}
	svc := newTestService(testCatalog(), orders, &fakeNewsletter{}, &fakeSessions{})

	order, err := svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)

	// 3 x 220 + 695 shipping, whatever the client claimed.
	assert.Equal(t, int64(3*220+695), order.TotalCents)
	assert.Equal(t, entity.OrderStatusPendingPayment, order.Status)
	require.Len(t, orders.items, 1)
	assert.Equal(t, int64(220), orders.items[0].UnitPriceCents)
	assert.Equal(t, 21, orders.items[0].TaxRate)
}

func TestSubmitPickupSkipsShippingFee(t *testing.T) {
	orders := &fakeOrders{}
	svc := newTestService(testCatalog(), orders, &fakeNewsletter{}, &fakeSessions{})

	req := validRequest()
	req.ShippingMethod = entity.ShippingMethodPickup
	req.Street, req.City, req.Zip, req.Country = "", "", "", ""

	order, err := svc.Submit(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(660), order.TotalCents)
}

func TestSubmitRequiresCustomerFields(t *testing.T) {
	svc := newTestService(testCatalog(), &fakeOrders{}, &fakeNewsletter{}, &fakeSessions{})

	req := validRequest()
	req.CustomerPhone = ""

	_, err := svc.Submit(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())
}

func TestSubmitRejectsForeignCountry(t *testing.T) {
	svc := newTestService(testCatalog(), &fakeOrders{}, &fakeNewsletter{}, &fakeSessions{})

	req := validRequest()
	req.Country = "France"

	_, err := svc.Submit(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindUnsupportedRegion, errorbank.From(err).Kind())
	assert.Contains(t, err.Error(), "Belgium")
}

func TestSubmitRequiresFullAddressForShipment(t *testing.T) {
	svc := newTestService(testCatalog(), &fakeOrders{}, &fakeNewsletter{}, &fakeSessions{})

	req := validRequest()
	req.Zip = ""

	_, err := svc.Submit(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())
}

func TestSubmitTicketOnlyOrderNeedsNoAddress(t *testing.T) {
	orders := &fakeOrders{}
	svc := newTestService(testCatalog(), orders, &fakeNewsletter{}, &fakeSessions{})

	req := validRequest()
	req.ShippingMethod = entity.ShippingMethodPickup
	req.Street, req.City, req.Zip, req.Country = "", "", "", ""
	req.Cart = []dto.CartLine{{ID: 3, Quantity: 2, ItemType: dto.ItemTypeTicket}}

	order, err := svc.Submit(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), order.TotalCents)
	require.Len(t, orders.tickets, 1)
	assert.Equal(t, int64(3), orders.tickets[0].EventID)
	assert.Equal(t, "jan@example.be", orders.tickets[0].BuyerEmail)
}

func TestSubmitRejectsTicketForFreeEvent(t *testing.T) {
	svc := newTestService(testCatalog(), &fakeOrders{}, &fakeNewsletter{}, &fakeSessions{})

	req := validRequest()
	req.Cart = []dto.CartLine{{ID: 4, Quantity: 1, ItemType: dto.ItemTypeTicket}}

	_, err := svc.Submit(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindUnprocessableEntity, errorbank.From(err).Kind())
}

func TestSubmitRejectsUnknownProduct(t *testing.T) {
	svc := newTestService(testCatalog(), &fakeOrders{}, &fakeNewsletter{}, &fakeSessions{})

	req := validRequest()
	req.Cart = []dto.CartLine{{ID: 99, Quantity: 1, ItemType: dto.ItemTypeProduct}}

	_, err := svc.Submit(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindNotFound, errorbank.From(err).Kind())
}

func TestSubmitRejectsInsufficientStock(t *testing.T) {
	catalog := testCatalog()
	catalog.products[2].StockCount = 2
	svc := newTestService(catalog, &fakeOrders{}, &fakeNewsletter{}, &fakeSessions{})

	req := validRequest()
	req.Cart = []dto.CartLine{{ID: 2, Quantity: 3, ItemType: dto.ItemTypeProduct}}

	_, err := svc.Submit(context.Background(), req)
	require.Error(t, err)
	appErr := errorbank.From(err)
	assert.Equal(t, errorbank.KindInsufficientStock, appErr.Kind())
	assert.Equal(t, 2, appErr.Details()["available"])
	assert.Equal(t, int64(2), appErr.Details()["product_id"])
}

func TestSubmitNewsletterFailureDoesNotFailOrder(t *testing.T) {
	orders := &fakeOrders{}
	news := &fakeNewsletter{err: errors.New("smtp down")}
	svc := newTestService(testCatalog(), orders, news, &fakeSessions{})

	req := validRequest()
	req.Newsletter = "on"

	_, err := svc.Submit(context.Background(), req)
	require.NoError(t, err)
	assert.NotNil(t, orders.created)
}

func TestSubmitNewsletterOptIn(t *testing.T) {
	news := &fakeNewsletter{}
	svc := newTestService(testCatalog(), &fakeOrders{}, news, &fakeSessions{})

	req := validRequest()
	req.Newsletter = "on"

	_, err := svc.Submit(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"jan@example.be"}, news.emails)
}

func TestCreateSessionRevalidatesStock(t *testing.T) {
	catalog := testCatalog()
	orders := &fakeOrders{stored: map[int64]*entity.Order{
		1: {
			ID:     1,
			Status: entity.OrderStatusPendingPayment,
			Items: []*entity.OrderItem{
				{ProductID: 2, Quantity: 3, UnitPriceCents: 3500},
			},
		},
	}}
	svc := newTestService(catalog, orders, &fakeNewsletter{}, &fakeSessions{url: "https://pay.example.com/s/1"})

	_, err := svc.CreateSession(context.Background(), 1, "bancontact")
	require.Error(t, err)
	assert.Equal(t, errorbank.KindInsufficientStock, errorbank.From(err).Kind())

	catalog.products[2].StockCount = 5
	redirect, err := svc.CreateSession(context.Background(), 1, "bancontact")
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example.com/s/1", redirect)
}

func TestSummaryMatchesSubmitTotals(t *testing.T) {
	svc := newTestService(testCatalog(), &fakeOrders{}, &fakeNewsletter{}, &fakeSessions{})

	cart := []dto.CartLine{{ID: 1, Quantity: 3, ItemType: dto.ItemTypeProduct}}
	total, brackets, err := svc.Summary(context.Background(), cart, entity.ShippingMethodShipment)
	require.NoError(t, err)
	assert.Equal(t, int64(3*220+695), total)
	require.Len(t, brackets, 1)
	assert.Equal(t, 21, brackets[0].Rate)
	assert.Equal(t, total, brackets[0].SubtotalCents)

	time.Sleep(time.Millisecond) // summary must not depend on call time for fixed-price carts
	again, _, err := svc.Summary(context.Background(), cart, entity.ShippingMethodShipment)
	require.NoError(t, err)
	assert.Equal(t, total, again)
}
