package order

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/sibrendebast/manenbrouw-website-sub000/internal/database"
	"github.com/sibrendebast/manenbrouw-website-sub000/internal/entity"
	"github.com/sibrendebast/manenbrouw-website-sub000/internal/ordernumber"
	"github.com/sibrendebast/manenbrouw-website-sub000/internal/repository/catalog"
)

var repoTracer = otel.Tracer("github.com/sibrendebast/manenbrouw-website-sub000/repository/order")

// ErrNotFound is returned when an order is missing.
var ErrNotFound = errors.New("order not found")

// numberAttempts bounds the retry loop on order-number unique conflicts.
const numberAttempts = 3

// Repository encapsulates read/write access for orders, their line items and
// ticket children. Order creation is a single transaction covering number
// allocation, the three inserts and the sold-ticket counters.
type Repository struct {
	writer  *bun.DB
	reader  *bun.DB
	catalog *catalog.Repository
	logger  *zap.Logger

	// The comment column is additive and may not exist yet on a database
	// that lags behind the rolling migration; probed once per process. The
	// flag is read concurrently and rewritten by the fallback in insertOrder.
	probeComment sync.Once
	hasComment   atomic.Bool
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections, catalogRepo *catalog.Repository, logger *zap.Logger) *Repository {
	return &Repository{
		writer:  conns.Writer,
		reader:  conns.Reader,
		catalog: catalogRepo,
		logger:  logger,
	}
}

// Create persists an order with its items and tickets atomically, allocating
// the next order number for the current year inside the same transaction.
// The number carries a unique constraint; allocation races are resolved by
// retrying the whole transaction a bounded number of times.
func (r *Repository) Create(ctx context.Context, order *entity.Order, items []*entity.OrderItem, tickets []*entity.EventTicket) error {
	if order == nil {
		return errors.New("nil order")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Create", trace.WithAttributes(
		attribute.Int("items", len(items)),
		attribute.Int("tickets", len(tickets)),
	))
	defer span.End()

	var lastErr error
	for attempt := 0; attempt < numberAttempts; attempt++ {
		err := r.createOnce(ctx, order, items, tickets)
		if err == nil {
			return nil
		}
		if !isUniqueViolation(err) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "insert failed")
			return err
		}
		lastErr = err
		r.logger.Warn("order number conflict, retrying",
			zap.String("number", order.Number),
			zap.Int("attempt", attempt+1),
		)
	}

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, "number allocation exhausted")
	return lastErr
}

func (r *Repository) createOnce(ctx context.Context, order *entity.Order, items []*entity.OrderItem, tickets []*entity.EventTicket) error {
	order.ID = 0
	return r.writer.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		number, err := r.nextNumber(ctx, tx, time.Now().UTC().Year())
		if err != nil {
			return err
		}
		order.Number = number

		if err := r.insertOrder(ctx, tx, order); err != nil {
			return err
		}

		for _, item := range items {
			item.OrderID = order.ID
		}
		if len(items) > 0 {
			if _, err := tx.NewInsert().Model(&items).Exec(ctx); err != nil {
				return err
			}
		}

		for _, ticket := range tickets {
			ticket.OrderID = order.ID
		}
		if len(tickets) > 0 {
			if _, err := tx.NewInsert().Model(&tickets).Exec(ctx); err != nil {
				return err
			}
			for _, ticket := range tickets {
				if err := r.catalog.IncrementTicketsSold(ctx, tx, ticket.EventID, ticket.Quantity); err != nil {
					return err
				}
			}
		}

		return nil
	})
}

// insertOrder writes the order row, leaving out the comment column when the
// schema does not carry it yet. A one-shot undefined-column retry remains as
// a belt for databases migrated between probe and insert.
func (r *Repository) insertOrder(ctx context.Context, tx bun.Tx, order *entity.Order) error {
	insert := tx.NewInsert().Model(order)
	if !r.commentColumnPresent(ctx) {
		insert = insert.ExcludeColumn("comment")
	}
	_, err := insert.Exec(ctx)
	if err != nil && isUndefinedColumn(err) {
		r.logger.Warn("orders.comment column missing, retrying without it", zap.Error(err))
		r.hasComment.Store(false)
		_, err = tx.NewInsert().Model(order).ExcludeColumn("comment").Exec(ctx)
	}
	return err
}

// nextNumber finds the greatest existing number with the current year prefix,
// locking it for the duration of the transaction, and increments its suffix.
// sqlite rejects FOR UPDATE; there the whole-database write lock plus the
// unique index on number (backed by the retry in Create) serializes allocation.
func (r *Repository) nextNumber(ctx context.Context, tx bun.Tx, year int) (string, error) {
	query := tx.NewSelect().
		Model((*entity.Order)(nil)).
		Column("number").
		Where("number LIKE ?", ordernumber.Prefix(year)+"%").
		OrderExpr("number DESC").
		Limit(1)
	if tx.Dialect().Name() != dialect.SQLite {
		query = query.For("UPDATE")
	}

	var last string
	err := query.Scan(ctx, &last)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}
	return ordernumber.Next(year, last)
}

// GetWithLines fetches an order together with its product and ticket lines.
func (r *Repository) GetWithLines(ctx context.Context, id int64) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetWithLines", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order := new(entity.Order)
	query := r.reader.NewSelect().
		Model(order).
		Relation("Items").
		Relation("Tickets").
		Where("o.id = ?", id)
	if !r.commentColumnPresent(ctx) {
		query = query.ExcludeColumn("comment")
	}
	err := query.Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return order, nil
}

// MarkPaid transitions pending_payment -> paid in one conditional update,
// recording payment method and invoice reference. The returned bool reports
// whether this call performed the transition; false means another delivery
// already did, and the caller must skip all paid side effects.
func (r *Repository) MarkPaid(ctx context.Context, id int64, paymentMethod, invoiceURL string) (bool, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.MarkPaid", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	res, err := r.writer.NewUpdate().
		Model((*entity.Order)(nil)).
		Set("status = ?", entity.OrderStatusPaid).
		Set("payment_method = ?", paymentMethod).
		Set("invoice_url = ?", invoiceURL).
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("id = ?", id).
		Where("status = ?", entity.OrderStatusPendingPayment).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// MarkCancelled transitions pending_payment -> cancelled. Orders in any
// other state are left untouched.
func (r *Repository) MarkCancelled(ctx context.Context, id int64) (bool, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.MarkCancelled", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	res, err := r.writer.NewUpdate().
		Model((*entity.Order)(nil)).
		Set("status = ?", entity.OrderStatusCancelled).
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("id = ?", id).
		Where("status = ?", entity.OrderStatusPendingPayment).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// commentColumnPresent probes the schema once per process. The probe is a
// dialect-free zero-row select against the column itself.
func (r *Repository) commentColumnPresent(ctx context.Context) bool {
	r.probeComment.Do(func() {
		var out string
		err := r.writer.NewSelect().
			ColumnExpr("comment").
			Table("orders").
			Limit(0).
			Scan(ctx, &out)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			r.logger.Info("orders.comment column not present; writes will omit it", zap.Error(err))
			return
		}
		r.hasComment.Store(true)
	})
	return r.hasComment.Load()
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == "23505"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	return false
}

func isUndefinedColumn(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == "42703"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1054
	}
	return false
}
