package newsletter

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/sibrendebast/manenbrouw-website-sub000/internal/database"
	"github.com/sibrendebast/manenbrouw-website-sub000/internal/entity"
)

var repoTracer = otel.Tracer("github.com/sibrendebast/manenbrouw-website-sub000/repository/newsletter")

// Repository persists newsletter subscribers.
type Repository struct {
	writer *bun.DB
}

// NewRepository wires a repository backed by the primary connection.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{writer: conns.Writer}
}

// Upsert subscribes an email address, merging the name only when the
// existing record has none. Keyed by email, so repeated signups are
// idempotent.
func (r *Repository) Upsert(ctx context.Context, email, name string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return errors.New("subscriber email is required")
	}

	ctx, span := repoTracer.Start(ctx, "NewsletterRepository.Upsert")
	defer span.End()

	now := time.Now().UTC()
	subscriber := &entity.Subscriber{
		Email:     email,
		Name:      strings.TrimSpace(name),
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := r.writer.NewInsert().
		Model(subscriber).
		On("CONFLICT (email) DO UPDATE").
		Set("name = CASE WHEN subscriber.name = '' THEN EXCLUDED.name ELSE subscriber.name END").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upsert failed")
	}
	return err
}
