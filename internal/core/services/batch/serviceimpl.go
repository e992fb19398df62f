package batch

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"gitlab.com/dutbench.net/internal/core/ports/primary"
	"gitlab.com/dutbench.net/internal/core/ports/secondary"
	"gitlab.com/dutbench.net/internal/domain"
	"gitlab.com/dutbench.net/internal/static/errs"
	"gitlab.com/dutbench.net/internal/tcp/codec"
)

var _ IBatchService = (*BatchService)(nil)

// BatchService runs batches strictly sequentially
type BatchService struct {
	dutClient  secondary.DutClient
	instrument secondary.Instrument
	outcomes   secondary.OutcomeRepository
	runStates  secondary.RunStateRepository
	logger     primary.Logger
	now        func() time.Time
}

// Option configures a BatchService
type Option func(*BatchService)

// WithOutcomeRepository persists every run outcome
func WithOutcomeRepository(repo secondary.OutcomeRepository) Option {
	return func(s *BatchService) { s.outcomes = repo }
}

// WithRunStateRepository publishes run state transitions
func WithRunStateRepository(repo secondary.RunStateRepository) Option {
	return func(s *BatchService) { s.runStates = repo }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *BatchService) { s.now = now }
}

// NewBatchService creates a new batch service
func NewBatchService(
	dutClient secondary.DutClient,
	instrument secondary.Instrument,
	logger primary.Logger,
	opts ...Option,
) *BatchService {
	s := &BatchService{
		dutClient:  dutClient,
		instrument: instrument,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunBatch executes the runs in configured order. Failures inside a run are
// recorded on that run's outcome and never stop the batch. When ctx is
// cancelled between runs the remaining runs are not started.
func (s *BatchService) RunBatch(ctx context.Context, cfg *domain.BatchConfig) (*domain.BatchResult, error) {
	if cfg == nil {
		return nil, errs.ErrInvalidConfig
	}

	result := &domain.BatchResult{
		ID:        uuid.New(),
		StartedAt: s.now(),
		Outcomes:  make([]domain.RunOutcome, 0, len(cfg.Runs)),
	}

	s.logger.Info("Starting batch",
		"batchId", result.ID,
		"runs", len(cfg.Runs),
		"dutServer", cfg.CommonSettings.DutServerAddress)

	if s.outcomes != nil {
		if err := s.outcomes.SaveBatch(ctx, result.ID, cfg.RunNames()); err != nil {
			s.logger.Error("Failed to save batch", "batchId", result.ID, "error", err)
		}
	}
	for _, run := range cfg.Runs {
		s.publishState(ctx, result.ID, run.Name, domain.RunStatePending)
	}

	for i, run := range cfg.Runs {
		if ctx.Err() != nil {
			s.logger.Warn("Batch cancelled, skipping remaining runs", "batchId", result.ID, "remaining", len(cfg.Runs)-i)
			for _, skipped := range cfg.Runs[i:] {
				s.publishState(context.WithoutCancel(ctx), result.ID, skipped.Name, domain.RunStateSkipped)
			}
			break
		}

		// a started run always completes
		runCtx := context.WithoutCancel(ctx)
		outcome := s.executeRun(runCtx, result.ID, &cfg.CommonSettings, run)
		result.Outcomes = append(result.Outcomes, outcome)

		if s.outcomes != nil {
			if err := s.outcomes.SaveOutcome(runCtx, result.ID, i, outcome); err != nil {
				s.logger.Error("Failed to save run outcome", "batchId", result.ID, "run", run.Name, "error", err)
			}
		}
		s.publishState(runCtx, result.ID, run.Name, domain.RunStateDone)
	}

	result.Elapsed = s.now().Sub(result.StartedAt)
	s.logger.Info("Batch finished", "batchId", result.ID, "executed", len(result.Outcomes), "elapsed", result.Elapsed.String())

	return result, nil
}

func (s *BatchService) executeRun(ctx context.Context, batchID uuid.UUID, common *domain.CommonSettings, run domain.RunSpec) domain.RunOutcome {
	start := s.now()
	s.logger.Info("Starting run", "run", run.Name)

	s.publishState(ctx, batchID, run.Name, domain.RunStateConfiguringDUT)
	failures := s.configureDUT(ctx, run)

	s.publishState(ctx, batchID, run.Name, domain.RunStateRunningInstrument)
	testIDs := run.EffectiveTestIDs(common.DefaultTestIDs)
	results, err := s.instrument.RunTests(ctx, secondary.InstrumentRequest{
		Address:             common.InstrumentAddress,
		ProjectName:         run.ProjectName,
		ReportName:          run.ReportName,
		TestIDs:             testIDs,
		OutputBaseDirectory: common.OutputBaseDirectory,
		SettingsFile:        common.InstrumentSettings,
		ProjectTemplate:     common.ProjectTemplate,
	})

	s.publishState(ctx, batchID, run.Name, domain.RunStateCollectingResults)
	outcome := domain.RunOutcome{
		RunName:         run.Name,
		Results:         results,
		CommandFailures: failures,
	}
	if err != nil {
		s.logger.Error("Instrument tests failed", "run", run.Name, "error", err)
		outcome.Results = []domain.TestResult{}
		outcome.ExecutionError = true
		outcome.ErrorReason = err.Error()
	}
	if outcome.Results == nil {
		outcome.Results = []domain.TestResult{}
	}
	outcome.Duration = s.now().Sub(start)

	s.logger.Info("Run complete",
		"run", run.Name,
		"passed", outcome.PassedCount(),
		"total", len(outcome.Results),
		"commandFailures", failures,
		"duration", outcome.Duration.String())

	return outcome
}

// configureDUT sends the run's setup commands and returns how many failed
func (s *BatchService) configureDUT(ctx context.Context, run domain.RunSpec) int {
	failures := 0
	for _, line := range run.DutCommands {
		var (
			resp string
			err  error
		)

		switch cmd := domain.ClassifyDutCommand(line).(type) {
		case domain.CommentLine:
			continue
		case domain.RegisterWrite:
			resp, err = s.dutClient.WriteRegister(ctx, cmd.Command.Slave, cmd.Command.Address, cmd.Command.Value)
		case domain.RawCommand:
			resp, err = s.dutClient.SendCommand(ctx, cmd.Text)
		case domain.MalformedCommand:
			s.logger.Error("Malformed register command, not sent", "run", run.Name, "command", cmd.Text, "reason", cmd.Reason)
			failures++
			continue
		}

		if commandFailed(resp, err) {
			s.logger.Warn("Command failed, continuing run",
				"run", run.Name,
				"command", line,
				"response", resp,
				"error", err)
			failures++
			continue
		}
		s.logger.Debug("Command sent", "run", run.Name, "command", line, "response", resp)
	}
	return failures
}

func commandFailed(resp string, err error) bool {
	if err != nil {
		return true
	}
	return strings.Contains(resp, "Error") || codec.DecodeResponse([]byte(resp)).IsFailure()
}

func (s *BatchService) publishState(ctx context.Context, batchID uuid.UUID, runName string, state domain.RunState) {
	if s.runStates == nil {
		return
	}
	if err := s.runStates.SaveRunState(ctx, batchID, runName, state); err != nil {
		s.logger.Error("Failed to publish run state", "run", runName, "state", state, "error", err)
	}
}
