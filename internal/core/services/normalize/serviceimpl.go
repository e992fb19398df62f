package normalize

import (
	"context"
	"fmt"

	"gitlab.com/dutbench.net/internal/adapter/batchconfig"
	"gitlab.com/dutbench.net/internal/core/ports/primary"
	"gitlab.com/dutbench.net/internal/static/errs"
)

var _ INormalizeService = (*NormalizeService)(nil)

// NormalizeService implements INormalizeService on batch config files
type NormalizeService struct {
	logger   primary.Logger
	defaults map[byte]byte
}

// NewNormalizeService creates a normalize service. A nil defaults map uses DefaultRegisterValues.
func NewNormalizeService(logger primary.Logger, defaults map[byte]byte) *NormalizeService {
	if defaults == nil {
		defaults = DefaultRegisterValues
	}
	return &NormalizeService{
		logger:   logger,
		defaults: defaults,
	}
}

// FillMissing returns the number of runs that were changed. The file is only
// rewritten when something changed.
func (s *NormalizeService) FillMissing(_ context.Context, path string) (int, error) {
	doc, err := batchconfig.LoadDocument(path)
	if err != nil {
		return 0, err
	}

	runs := doc.Config.Runs
	ref, changed := FillMissingRegisters(runs)
	if ref < 0 {
		return 0, errs.ErrNoReferenceRun
	}

	s.logger.Info("Reference run found",
		"run", runs[ref].Name,
		"registers", len(collectRegisters(runs[ref].DutCommands).order))

	if changed == 0 {
		s.logger.Info("No updates needed", "path", path)
		return 0, nil
	}

	if err := batchconfig.SaveDocument(doc); err != nil {
		return 0, fmt.Errorf("failed to save normalized config: %w", err)
	}

	s.logger.Info("Normalized batch config", "path", path, "runsUpdated", changed)
	return changed, nil
}

// UpdateDefaults returns the number of register lines that were rewritten
func (s *NormalizeService) UpdateDefaults(_ context.Context, path string) (int, error) {
	doc, err := batchconfig.LoadDocument(path)
	if err != nil {
		return 0, err
	}

	changes := ApplyDefaults(doc.Config.Runs, s.defaults)
	for _, c := range changes {
		s.logger.Info("Updated default", "run", c.RunName, "from", c.Before, "to", c.After)
	}

	if len(changes) == 0 {
		s.logger.Info("No updates needed", "path", path)
		return 0, nil
	}

	if err := batchconfig.SaveDocument(doc); err != nil {
		return 0, fmt.Errorf("failed to save updated config: %w", err)
	}

	return len(changes), nil
}
