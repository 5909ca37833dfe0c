package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/zawlinn/boostline-backend/internal/catalog"
	"github.com/zawlinn/boostline-backend/pkg/logger"
)

// CatalogJobParams configure the rate sync and auto-import workers.
type CatalogJobParams struct {
	Logger   *logger.Logger
	Catalog  catalog.Service
	Interval time.Duration
}

// NewRateSyncJob builds the job that refreshes buy prices from the provider.
func NewRateSyncJob(params CatalogJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	return &rateSyncJob{logg: params.Logger, catalog: params.Catalog, interval: params.Interval}, nil
}

type rateSyncJob struct {
	logg     *logger.Logger
	catalog  catalog.Service
	interval time.Duration
}

func (j *rateSyncJob) Name() string            { return "rate-sync" }
func (j *rateSyncJob) Interval() time.Duration { return j.interval }

func (j *rateSyncJob) Run(ctx context.Context) error {
	stats, err := j.catalog.SyncRates(ctx)
	if err != nil {
		return fmt.Errorf("sync provider rates: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"checked": stats.Checked,
		"updated": stats.Updated,
	})
	j.logg.Info(logCtx, "rate sync complete")
	return nil
}

// NewCatalogImportJob builds the job that imports new provider services.
func NewCatalogImportJob(params CatalogJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	return &catalogImportJob{logg: params.Logger, catalog: params.Catalog, interval: params.Interval}, nil
}

type catalogImportJob struct {
	logg     *logger.Logger
	catalog  catalog.Service
	interval time.Duration
}

func (j *catalogImportJob) Name() string            { return "catalog-import" }
func (j *catalogImportJob) Interval() time.Duration { return j.interval }

func (j *catalogImportJob) Run(ctx context.Context) error {
	stats, err := j.catalog.ImportNewServices(ctx)
	if err != nil {
		return fmt.Errorf("import provider services: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"seen":     stats.Seen,
		"imported": stats.Imported,
	})
	j.logg.Info(logCtx, "catalog import complete")
	return nil
}
