package secondary

import (
	"context"

	"github.com/google/uuid"

	"gitlab.com/dutbench.net/internal/domain"
)

// RunStateRepository tracks live run progress
type RunStateRepository interface {
	SaveRunState(ctx context.Context, batchID uuid.UUID, runName string, state domain.RunState) error
	GetRunStates(ctx context.Context, batchID uuid.UUID) ([]domain.RunStateRecord, error)
	LatestBatchID(ctx context.Context) (uuid.UUID, error)
}
