package status

import (
	"context"

	"github.com/google/uuid"

	"gitlab.com/dutbench.net/internal/domain"
)

// IStatusService answers progress and history queries about batches
type IStatusService interface {
	// LatestBatchID returns the most recent batch known to any store
	LatestBatchID(ctx context.Context) (uuid.UUID, error)

	// RunStates returns live run progress for a batch
	RunStates(ctx context.Context, batchID uuid.UUID) ([]domain.RunStateRecord, error)

	// BatchReport aggregates the stored outcomes of a batch
	BatchReport(ctx context.Context, batchID uuid.UUID) (domain.Report, error)
}
