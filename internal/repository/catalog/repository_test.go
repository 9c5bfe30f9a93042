package catalog

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite"

	"github.com/sibrendebast/manenbrouw-website-sub000/internal/database"
	"github.com/sibrendebast/manenbrouw-website-sub000/internal/entity"
)

const productsDDL = `CREATE TABLE products (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	price_cents INTEGER NOT NULL,
	tax_rate INTEGER NOT NULL DEFAULT 21,
	stock_count INTEGER NOT NULL DEFAULT 0,
	in_stock INTEGER NOT NULL DEFAULT 0,
	image_url TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP
)`

const eventsDDL = `CREATE TABLE events (
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

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	sqldb, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	for _, ddl := range []string{productsDDL, eventsDDL} {
		_, err := db.ExecContext(ctx, ddl)
		require.NoError(t, err)
	}

	return NewRepository(&database.Connections{Writer: db, Reader: db})
}

func seedProduct(t *testing.T, repo *Repository, stock int) *entity.Product {
	t.Helper()
	product := &entity.Product{
		Name:       "Tripel 33cl",
		PriceCents: 320,
		TaxRate:    21,
		StockCount: stock,
		InStock:    stock > 0,
	}
	_, err := repo.writer.NewInsert().Model(product).Exec(context.Background())
	require.NoError(t, err)
	return product
}

func TestDecrementStockKeepsProductOnSaleWhileStockRemains(t *testing.T) {
	repo := newTestRepo(t)
	product := seedProduct(t, repo, 4)

	require.NoError(t, repo.DecrementStock(context.Background(), product.ID, 2))

	got, err := repo.GetProduct(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.StockCount)
	assert.True(t, got.InStock)
}

func TestDecrementStockFlipsOffSaleAtExactlyZero(t *testing.T) {
	repo := newTestRepo(t)
	product := seedProduct(t, repo, 2)

	require.NoError(t, repo.DecrementStock(context.Background(), product.ID, 2))

	got, err := repo.GetProduct(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.StockCount)
	assert.False(t, got.InStock)
}

func TestDecrementStockClampsAtZero(t *testing.T) {
	repo := newTestRepo(t)
	product := seedProduct(t, repo, 1)

	require.NoError(t, repo.DecrementStock(context.Background(), product.ID, 5))

	got, err := repo.GetProduct(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.StockCount)
	assert.False(t, got.InStock)
}

func TestIncrementTicketsSold(t *testing.T) {
	repo := newTestRepo(t)
	event := &entity.Event{Name: "Brouwerijbezoek", Paid: true, TicketPriceCents: 1500}
	_, err := repo.writer.NewInsert().Model(event).Exec(context.Background())
	require.NoError(t, err)

	require.NoError(t, repo.IncrementTicketsSold(context.Background(), nil, event.ID, 3))

	got, err := repo.GetEvent(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.TicketsSold)
}
