package secondary

import (
	"context"

	"github.com/google/uuid"

	"gitlab.com/dutbench.net/internal/domain"
)

// OutcomeRepository keeps the history of batch executions
type OutcomeRepository interface {
	// SaveBatch records a batch and its configured run order
	SaveBatch(ctx context.Context, batchID uuid.UUID, runNames []string) error

	// SaveOutcome stores one run outcome and its test results
	SaveOutcome(ctx context.Context, batchID uuid.UUID, runIndex int, outcome domain.RunOutcome) error

	// GetBatch returns the configured run order and the recorded outcomes
	GetBatch(ctx context.Context, batchID uuid.UUID) ([]string, []domain.RunOutcome, error)

	// LatestBatchID returns the most recently started batch
	LatestBatchID(ctx context.Context) (uuid.UUID, error)
}
