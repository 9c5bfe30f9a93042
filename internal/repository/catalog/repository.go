package catalog

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sibrendebast/manenbrouw-website-sub000/internal/database"
	"github.com/sibrendebast/manenbrouw-website-sub000/internal/entity"
)

var repoTracer = otel.Tracer("github.com/sibrendebast/manenbrouw-website-sub000/repository/catalog")

// ErrNotFound is returned when a product or event is missing.
var ErrNotFound = errors.New("catalog entity not found")

// Repository encapsulates read access to the catalog plus the two counter
// mutations the order pipeline owns: stock decrement and sold-ticket
// increment.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// GetProduct fetches the authoritative product record. Always reads the
// primary so stock validation never sees replica lag.
func (r *Repository) GetProduct(ctx context.Context, id int64) (*entity.Product, error) {
	ctx, span := repoTracer.Start(ctx, "CatalogRepository.GetProduct", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	product := new(entity.Product)
	err := r.writer.NewSelect().Model(product).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return product, nil
}

// GetEvent fetches the authoritative event record.
func (r *Repository) GetEvent(ctx context.Context, id int64) (*entity.Event, error) {
	ctx, span := repoTracer.Start(ctx, "CatalogRepository.GetEvent", trace.WithAttributes(attribute.Int64("event.id", id)))
	defer span.End()

	event := new(entity.Event)
	err := r.writer.NewSelect().Model(event).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return event, nil
}

// DecrementStock lowers a product's stock by qty in a single statement,
// clamped at zero, and flips in_stock off when the result is zero. The clamp
// means a concurrent oversell never drives stock negative.
func (r *Repository) DecrementStock(ctx context.Context, productID int64, qty int) error {
	ctx, span := repoTracer.Start(ctx, "CatalogRepository.DecrementStock", trace.WithAttributes(
		attribute.Int64("product.id", productID),
		attribute.Int("quantity", qty),
	))
	defer span.End()

	// MySQL applies SET clauses left to right against already-assigned
	// values, so in_stock must read stock_count before it is decremented.
	// Postgres and sqlite evaluate every clause against the old row, which
	// yields the same result in this order.
	_, err := r.writer.NewUpdate().
		Model((*entity.Product)(nil)).
		Set("in_stock = (stock_count > ?)", qty).
		Set("stock_count = CASE WHEN stock_count > ? THEN stock_count - ? ELSE 0 END", qty, qty).
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("id = ?", productID).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
	}
	return err
}

// IncrementTicketsSold raises an event's sold-ticket counter atomically.
// Callers inside a transaction pass their tx as db; others pass nil to use
// the writer directly.
func (r *Repository) IncrementTicketsSold(ctx context.Context, db bun.IDB, eventID int64, qty int) error {
	ctx, span := repoTracer.Start(ctx, "CatalogRepository.IncrementTicketsSold", trace.WithAttributes(
		attribute.Int64("event.id", eventID),
		attribute.Int("quantity", qty),
	))
	defer span.End()

	if db == nil {
		db = r.writer
	}
	_, err := db.NewUpdate().
		Model((*entity.Event)(nil)).
		Set("tickets_sold = tickets_sold + ?", qty).
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("id = ?", eventID).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
	}
	return err
}
