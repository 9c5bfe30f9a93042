package seeder

import (
	"context"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/sibrendebast/manenbrouw-website-sub000/internal/database"
	"github.com/sibrendebast/manenbrouw-website-sub000/internal/entity"
	"github.com/sibrendebast/manenbrouw-website-sub000/internal/tax"
)

// Module provides the seeder to Fx.
var Module = fx.Provide(New)

// Seeder performs database seeding for local/dev setups.
type Seeder struct {
	db     *bun.DB
	logger *zap.Logger
}

// New constructs a Seeder backed by the primary database connection.
func New(conns *database.Connections, logger *zap.Logger) *Seeder {
	return &Seeder{db: conns.Writer, logger: logger}
}

// Catalog seeds a small beer catalog and an upcoming tasting event so the
// checkout flow can be exercised locally.
func (s *Seeder) Catalog(ctx context.Context) error {
	if err := s.products(ctx); err != nil {
		return err
	}
	return s.events(ctx)
}

func (s *Seeder) products(ctx context.Context) error {
	samples := []entity.Product{
		{Name: "Tripel 33cl", Description: "Blonde tripel, 8.5%", PriceCents: 320, TaxRate: tax.DefaultRate, StockCount: 120, InStock: true},
		{Name: "Dubbel 33cl", Description: "Donkere dubbel, 7%", PriceCents: 300, TaxRate: tax.DefaultRate, StockCount: 96, InStock: true},
		{Name: "Saison 75cl", Description: "Seizoensbier, 6.2%", PriceCents: 650, TaxRate: tax.DefaultRate, StockCount: 40, InStock: true},
		{Name: "Cadeaubon", Description: "Waardebon voor de brouwerijwinkel", PriceCents: 2500, TaxRate: tax.ZeroRated, StockCount: 999, InStock: true},
	}

	for _, sample := range samples {
		product := sample
		_, err := s.db.NewInsert().Model(&product).
			On("CONFLICT (name) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}
	}

	if s.logger != nil {
		s.logger.Info("seeded products", zap.Int("count", len(samples)))
	}
	return nil
}

func (s *Seeder) events(ctx context.Context) error {
	opening := time.Date(time.Now().Year()+1, time.April, 18, 14, 0, 0, 0, time.UTC)
	samples := []entity.Event{
		{
			Name:              "Brouwerijbezoek met proeverij",
			Date:              opening,
			Capacity:          60,
			Paid:              true,
			TicketPriceCents:  1500,
			EarlyBirdCents:    1200,
			EarlyBirdDeadline: opening.AddDate(0, -1, 0),
		},
		{
			Name:     "Open brouwdag",
			Date:     opening.AddDate(0, 2, 0),
			Capacity: 200,
			Paid:     false,
		},
	}

	for _, sample := range samples {
		event := sample
		_, err := s.db.NewInsert().Model(&event).
			On("CONFLICT (name) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}
	}

	if s.logger != nil {
		s.logger.Info("seeded events", zap.Int("count", len(samples)))
	}
	return nil
}
