package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/zawlinn/boostline-backend/internal/notify"
	"github.com/zawlinn/boostline-backend/pkg/db/models"
	"github.com/zawlinn/boostline-backend/pkg/enums"
	"github.com/zawlinn/boostline-backend/pkg/logger"
	"github.com/zawlinn/boostline-backend/pkg/provider"
)

const (
	priceScale = 4
	// Buy-price drift below this is noise and not worth a write.
	rateDriftTolerance = "0.0001"

	defaultPerQuantity = 1000
)

var (
	viewsMarkup   = decimal.RequireFromString("3.0")
	defaultMarkup = decimal.RequireFromString("1.4")
)

// ServicesLister is the slice of the provider client the sync jobs need.
type ServicesLister interface {
	Services(ctx context.Context) ([]provider.ServiceInfo, error)
}

// Service keeps the local catalog aligned with the provider's service list.
type Service interface {
	// SyncRates refreshes buy prices for entries whose provider rate drifted.
	SyncRates(ctx context.Context) (SyncStats, error)
	// ImportNewServices inserts provider services the catalog does not carry
	// yet, with a sell price marked up from the provider rate.
	ImportNewServices(ctx context.Context) (ImportStats, error)
}

// SyncStats summarizes one rate sync cycle.
type SyncStats struct {
	Checked int
	Updated int
}

// ImportStats summarizes one auto-import cycle.
type ImportStats struct {
	Seen     int
	Imported int
}

// ServiceParams wires the catalog sync dependencies.
type ServiceParams struct {
	Repo     Repository
	Provider ServicesLister
	Notifier notify.Notifier
	Logger   *logger.Logger
}

type service struct {
	repo     Repository
	provider ServicesLister
	notifier notify.Notifier
	logger   *logger.Logger
	drift    decimal.Decimal
}

// NewService builds the catalog sync service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("catalog repository is required")
	}
	if params.Provider == nil {
		return nil, fmt.Errorf("provider client is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		repo:     params.Repo,
		provider: params.Provider,
		notifier: params.Notifier,
		logger:   params.Logger,
		drift:    decimal.RequireFromString(rateDriftTolerance),
	}, nil
}

func (s *service) SyncRates(ctx context.Context) (SyncStats, error) {
	var stats SyncStats

	remote, err := s.provider.Services(ctx)
	if err != nil {
		return stats, err
	}
	rates := make(map[string]decimal.Decimal, len(remote))
	for _, svc := range remote {
		rate, err := decimal.NewFromString(svc.Rate)
		if err != nil {
			s.logger.Warn(ctx, fmt.Sprintf("skipping service %s with unparseable rate %q", svc.ServiceID, svc.Rate))
			continue
		}
		rates[svc.ServiceID] = rate
	}

	entries, err := s.repo.List(ctx)
	if err != nil {
		return stats, err
	}

	for i := range entries {
		entry := entries[i]
		rate, ok := rates[entry.ProviderServiceID]
		if !ok {
			continue
		}
		stats.Checked++
		if entry.BuyPrice.Sub(rate).Abs().LessThanOrEqual(s.drift) {
			continue
		}
		if err := s.repo.UpdateBuyPrice(ctx, entry.ID, rate.Round(priceScale)); err != nil {
			s.logger.Error(ctx, fmt.Sprintf("failed to update buy price for entry %d", entry.ID), err)
			continue
		}
		stats.Updated++
	}

	if stats.Updated > 0 && s.notifier != nil {
		s.notifier.Notify(ctx, enums.NotifyChannelCatalog, fmt.Sprintf(
			"rate sync: %d of %d tracked services repriced", stats.Updated, stats.Checked))
	}
	return stats, nil
}

func (s *service) ImportNewServices(ctx context.Context) (ImportStats, error) {
	var stats ImportStats

	remote, err := s.provider.Services(ctx)
	if err != nil {
		return stats, err
	}
	stats.Seen = len(remote)

	existing, err := s.repo.ExistingProviderServiceIDs(ctx)
	if err != nil {
		return stats, err
	}

	var batch []models.CatalogEntry
	for _, svc := range remote {
		if existing[svc.ServiceID] {
			continue
		}
		rate, err := decimal.NewFromString(svc.Rate)
		if err != nil {
			s.logger.Warn(ctx, fmt.Sprintf("skipping import of service %s with unparseable rate %q", svc.ServiceID, svc.Rate))
			continue
		}
		batch = append(batch, models.CatalogEntry{
			ProviderServiceID: svc.ServiceID,
			Name:              svc.Name,
			Category:          svc.Category,
			MinQuantity:       svc.Min,
			MaxQuantity:       svc.Max,
			PerQuantity:       defaultPerQuantity,
			BuyPrice:          rate.Round(priceScale),
			SellPrice:         sellPriceFor(svc, rate),
		})
	}

	if len(batch) == 0 {
		return stats, nil
	}
	inserted, err := s.repo.InsertBatch(ctx, batch)
	if err != nil {
		return stats, err
	}
	stats.Imported = len(inserted)

	if s.notifier != nil {
		s.notifier.Notify(ctx, enums.NotifyChannelCatalog, fmt.Sprintf(
			"auto-import: %d new services added to the catalog", stats.Imported))
	}
	return stats, nil
}

// sellPriceFor applies the resale markup. View packages resell at triple the
// provider rate; everything else gets the standard margin.
func sellPriceFor(svc provider.ServiceInfo, rate decimal.Decimal) decimal.Decimal {
	markup := defaultMarkup
	if strings.Contains(strings.ToLower(svc.Name), "views") ||
		strings.Contains(strings.ToLower(svc.Category), "views") {
		markup = viewsMarkup
	}
	return rate.Mul(markup).Round(priceScale)
}
