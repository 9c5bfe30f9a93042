package order

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sibrendebast/manenbrouw-website-sub000/internal/database"
	"github.com/sibrendebast/manenbrouw-website-sub000/internal/entity"
	"github.com/sibrendebast/manenbrouw-website-sub000/internal/ordernumber"
	"github.com/sibrendebast/manenbrouw-website-sub000/internal/repository/catalog"
)

const ordersDDL = `CREATE TABLE orders (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	number TEXT NOT NULL,
	customer_name TEXT NOT NULL,
	customer_email TEXT NOT NULL,
	customer_phone TEXT NOT NULL DEFAULT '',
	shipping_method TEXT NOT NULL,
	street TEXT NOT NULL DEFAULT '',
	city TEXT NOT NULL DEFAULT '',
	zip TEXT NOT NULL DEFAULT '',
	country TEXT NOT NULL DEFAULT '',
	total_cents INTEGER NOT NULL,
	status TEXT NOT NULL,
	payment_method TEXT NOT NULL DEFAULT '',
	invoice_url TEXT NOT NULL DEFAULT '',
	%s
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP
)`

const orderItemsDDL = `CREATE TABLE order_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	order_id INTEGER NOT NULL,
	product_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	unit_price_cents INTEGER NOT NULL,
	tax_rate INTEGER NOT NULL
)`

const eventTicketsDDL = `CREATE TABLE event_tickets (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	order_id INTEGER NOT NULL,
	event_id INTEGER NOT NULL,
	buyer_name TEXT NOT NULL DEFAULT '',
	buyer_email TEXT NOT NULL DEFAULT '',
	quantity INTEGER NOT NULL,
	unit_price_cents INTEGER NOT NULL,
	tax_rate INTEGER NOT NULL
)`

const testEventsDDL = `CREATE TABLE events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	date TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	capacity INTEGER NOT NULL DEFAULT 0,
	paid INTEGER NOT NULL DEFAULT 0,
	ticket_price_cents INTEGER NOT NULL DEFAULT 0,
	early_bird_cents INTEGER NOT NULL DEFAULT 0,
	early_bird_deadline TIMESTAMP,
	tickets_sold INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP
)`

type repoEnv struct {
	repo    *Repository
	catalog *catalog.Repository
	db      *bun.DB
}

// newRepoEnv builds a repository pair over an in-memory database. The
// withComment flag selects between the current schema and one from before
// the comment column was added.
func newRepoEnv(t *testing.T, withComment bool) *repoEnv {
	t.Helper()
	sqldb, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	commentColumn := "comment TEXT NOT NULL DEFAULT '',"
	if !withComment {
		commentColumn = ""
	}
	ddls := []string{
		fmt.Sprintf(ordersDDL, commentColumn),
		`CREATE UNIQUE INDEX orders_number_idx ON orders (number)`,
		orderItemsDDL,
		eventTicketsDDL,
		testEventsDDL,
	}
	for _, ddl := range ddls {
		_, err := db.ExecContext(ctx, ddl)
		require.NoError(t, err)
	}

	conns := &database.Connections{Writer: db, Reader: db}
	catalogRepo := catalog.NewRepository(conns)
	repo := NewRepository(conns, catalogRepo, zap.NewNop())

	// Settle the schema probe before any transaction holds the single
	// test connection.
	repo.commentColumnPresent(ctx)

	return &repoEnv{repo: repo, catalog: catalogRepo, db: db}
}

func sampleOrder() *entity.Order {
	return &entity.Order{
		CustomerName:   "Jos Vermeulen",
		CustomerEmail:  "jos@example.be",
		ShippingMethod: entity.ShippingMethodPickup,
		TotalCents:     640,
		Status:         entity.OrderStatusPendingPayment,
	}
}

func TestCreateAllocatesSequentialNumbers(t *testing.T) {
	env := newRepoEnv(t, true)
	ctx := context.Background()
	prefix := ordernumber.Prefix(time.Now().UTC().Year())

	first := sampleOrder()
	items := []*entity.OrderItem{{ProductID: 1, Name: "Tripel 33cl", Quantity: 2, UnitPriceCents: 320, TaxRate: 21}}
	require.NoError(t, env.repo.Create(ctx, first, items, nil))
	assert.Equal(t, prefix+"0001", first.Number)
	assert.NotZero(t, first.ID)

	second := sampleOrder()
	require.NoError(t, env.repo.Create(ctx, second, nil, nil))
	assert.Equal(t, prefix+"0002", second.Number)

	got, err := env.repo.GetWithLines(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, first.ID, got.Items[0].OrderID)
	assert.Equal(t, "Tripel 33cl", got.Items[0].Name)
}

func TestCreateIncrementsTicketsSold(t *testing.T) {
	env := newRepoEnv(t, true)
	ctx := context.Background()

	event := &entity.Event{Name: "Brouwerijbezoek", Paid: true, TicketPriceCents: 1500}
	_, err := env.db.NewInsert().Model(event).Exec(ctx)
	require.NoError(t, err)

	order := sampleOrder()
	tickets := []*entity.EventTicket{{
		EventID:        event.ID,
		BuyerName:      order.CustomerName,
		BuyerEmail:     order.CustomerEmail,
		Quantity:       2,
		UnitPriceCents: 1500,
		TaxRate:        21,
	}}
	require.NoError(t, env.repo.Create(ctx, order, nil, tickets))

	gotEvent, err := env.catalog.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, gotEvent.TicketsSold)

	gotOrder, err := env.repo.GetWithLines(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, gotOrder.Tickets, 1)
	assert.Equal(t, event.ID, gotOrder.Tickets[0].EventID)
}

func TestCreateSurvivesMissingCommentColumn(t *testing.T) {
	env := newRepoEnv(t, false)
	ctx := context.Background()

	order := sampleOrder()
	order.Comment = "zonder alcohol indien mogelijk"
	require.NoError(t, env.repo.Create(ctx, order, nil, nil))

	got, err := env.repo.GetWithLines(ctx, order.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Comment)
	assert.Equal(t, order.Number, got.Number)
}

func TestMarkPaidTransitionsExactlyOnce(t *testing.T) {
	env := newRepoEnv(t, true)
	ctx := context.Background()

	order := sampleOrder()
	require.NoError(t, env.repo.Create(ctx, order, nil, nil))

	did, err := env.repo.MarkPaid(ctx, order.ID, "bancontact", "invoices/2026-0001.txt")
	require.NoError(t, err)
	assert.True(t, did)

	did, err = env.repo.MarkPaid(ctx, order.ID, "bancontact", "invoices/2026-0001.txt")
	require.NoError(t, err)
	assert.False(t, did)

	did, err = env.repo.MarkCancelled(ctx, order.ID)
	require.NoError(t, err)
	assert.False(t, did)

	got, err := env.repo.GetWithLines(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusPaid, got.Status)
	assert.Equal(t, "bancontact", got.PaymentMethod)
}
