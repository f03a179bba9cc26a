package batch

import (
	"context"

	"github.com/lox/demandpeaks/internal/models"
	"github.com/lox/demandpeaks/internal/store"
)

// StoreSink checkpoints records into the demand_scores table under one run.
type StoreSink struct {
	Store *store.Store
	RunID string
}

func (s StoreSink) Write(ctx context.Context, rec models.DemandScore) error {
	return s.Store.UpsertDemandScore(ctx, s.RunID, rec)
}
