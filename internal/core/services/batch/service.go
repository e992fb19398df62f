package batch

import (
	"context"

	"gitlab.com/dutbench.net/internal/domain"
)

// IBatchService executes batch configurations
type IBatchService interface {
	// RunBatch executes every run of cfg in order and returns one outcome per executed run
	RunBatch(ctx context.Context, cfg *domain.BatchConfig) (*domain.BatchResult, error)
}
