package status

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"gitlab.com/dutbench.net/internal/core/ports/primary"
	"gitlab.com/dutbench.net/internal/core/ports/secondary"
	"gitlab.com/dutbench.net/internal/core/services/report"
	"gitlab.com/dutbench.net/internal/domain"
	"gitlab.com/dutbench.net/internal/static/errs"
)

var _ IStatusService = (*StatusService)(nil)

// ErrStoreDisabled is returned when the store needed for a query is not configured
var ErrStoreDisabled = errors.New("store not configured")

// StatusService reads the run progress and outcome history stores. Either may be nil.
type StatusService struct {
	outcomes  secondary.OutcomeRepository
	runStates secondary.RunStateRepository
	reporter  report.IReportService
	logger    primary.Logger
}

func NewStatusService(
	outcomes secondary.OutcomeRepository,
	runStates secondary.RunStateRepository,
	reporter report.IReportService,
	logger primary.Logger,
) *StatusService {
	return &StatusService{
		outcomes:  outcomes,
		runStates: runStates,
		reporter:  reporter,
		logger:    logger,
	}
}

// LatestBatchID prefers the progress store, which sees a batch as soon as it starts
func (s *StatusService) LatestBatchID(ctx context.Context) (uuid.UUID, error) {
	if s.runStates != nil {
		id, err := s.runStates.LatestBatchID(ctx)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, errs.ErrBatchNotFound) {
			s.logger.Warn("Failed to read latest batch from progress store", "error", err)
		}
	}

	if s.outcomes != nil {
		return s.outcomes.LatestBatchID(ctx)
	}

	if s.runStates == nil {
		return uuid.Nil, ErrStoreDisabled
	}
	return uuid.Nil, errs.ErrBatchNotFound
}

func (s *StatusService) RunStates(ctx context.Context, batchID uuid.UUID) ([]domain.RunStateRecord, error) {
	if s.runStates == nil {
		return nil, ErrStoreDisabled
	}
	return s.runStates.GetRunStates(ctx, batchID)
}

func (s *StatusService) BatchReport(ctx context.Context, batchID uuid.UUID) (domain.Report, error) {
	if s.outcomes == nil {
		return domain.Report{}, ErrStoreDisabled
	}

	runNames, outcomes, err := s.outcomes.GetBatch(ctx, batchID)
	if err != nil {
		return domain.Report{}, fmt.Errorf("failed to load batch %s: %w", batchID, err)
	}

	runs := make([]domain.RunSpec, len(runNames))
	for i, name := range runNames {
		runs[i] = domain.RunSpec{Name: name}
	}
	return s.reporter.Aggregate(runs, outcomes), nil
}
