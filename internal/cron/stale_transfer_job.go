package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/packfinderz-inventory/pkg/db/models"
	"github.com/angelmondragon/packfinderz-inventory/pkg/logger"
)

const (
	defaultStaleTransferAge   = 72 * time.Hour
	defaultStaleTransferLimit = 200
)

type staleTransferLister interface {
	ListStale(ctx context.Context, maxAge time.Duration, limit int) ([]models.TransferPackage, error)
}

type StaleTransferJobParams struct {
	Logger    *logger.Logger
	Transfers staleTransferLister
	MaxAge    time.Duration
	Limit     int
}

// NewStaleTransferJob reports packages that have been in transit longer than
// MaxAge so someone chases the receiving location. It never changes them.
func NewStaleTransferJob(params StaleTransferJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Transfers == nil {
		return nil, fmt.Errorf("transfer service required")
	}
	if params.MaxAge <= 0 {
		params.MaxAge = defaultStaleTransferAge
	}
	if params.Limit <= 0 {
		params.Limit = defaultStaleTransferLimit
	}
	return &staleTransferJob{
		logg:      params.Logger,
		transfers: params.Transfers,
		maxAge:    params.MaxAge,
		limit:     params.Limit,
	}, nil
}

type staleTransferJob struct {
	logg      *logger.Logger
	transfers staleTransferLister
	maxAge    time.Duration
	limit     int
}

func (j *staleTransferJob) Name() string { return "stale-transfers" }

func (j *staleTransferJob) Run(ctx context.Context) error {
	stale, err := j.transfers.ListStale(ctx, j.maxAge, j.limit)
	if err != nil {
		return fmt.Errorf("list stale transfers: %w", err)
	}
	for _, pkg := range stale {
		j.logg.Warn(j.logg.WithFields(ctx, map[string]any{
			"transfer_id":             pkg.ID.String(),
			"transfer_number":         pkg.TransferNumber,
			"destination_location_id": pkg.DestinationLocationID.String(),
			"shipped_at":              pkg.ShippedAt,
		}), "transfer still in transit")
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"stale_count": len(stale),
		"max_age":     j.maxAge.String(),
	}), "stale transfer sweep complete")
	return nil
}
