package instrument

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"gitlab.com/dutbench.net/internal/core/ports/primary"
	"gitlab.com/dutbench.net/internal/core/ports/secondary"
	"gitlab.com/dutbench.net/internal/domain"
	"gitlab.com/dutbench.net/internal/static/errs"
)

var _ secondary.Instrument = (*Controller)(nil)

const invalidFileChars = `\/:*?"<>|`

// Controller runs one full test cycle per RunTests call:
// connect, new project, settings, select, run, results, save, export.
type Controller struct {
	connect Connector
	logger  primary.Logger
}

func NewController(connect Connector, logger primary.Logger) *Controller {
	return &Controller{
		connect: connect,
		logger:  logger,
	}
}

// RunTests implements secondary.Instrument. Saving the project and exporting
// the PDF are best effort; their failures are logged and do not fail the cycle.
func (c *Controller) RunTests(ctx context.Context, req secondary.InstrumentRequest) ([]domain.TestResult, error) {
	c.logger.Info("Connecting to instrument", "address", req.Address)
	app, err := c.connect(ctx, req.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrNotConnected, err)
	}

	if req.ProjectTemplate != "" {
		c.logger.Info("Opening project template", "path", req.ProjectTemplate)
		opts := OpenProjectOptions{FullPath: req.ProjectTemplate, DiscardUnsaved: true}
		if err := app.OpenProject(ctx, opts); err != nil {
			return nil, fmt.Errorf("failed to open project %s: %w", req.ProjectTemplate, err)
		}
	} else if err := app.NewProject(ctx, true); err != nil {
		return nil, fmt.Errorf("failed to create new project: %w", err)
	}

	if req.SettingsFile != "" {
		if err := c.applySettings(ctx, app, req.SettingsFile); err != nil {
			return nil, err
		}
	}

	c.logger.Info("Selecting tests", "testIds", req.TestIDs)
	if err := app.SelectTests(ctx, req.TestIDs); err != nil {
		return nil, fmt.Errorf("failed to select tests: %w", err)
	}

	c.logger.Info("Starting test execution", "project", req.ProjectName)
	if err := app.Run(ctx); err != nil {
		return nil, fmt.Errorf("failed to run tests: %w", err)
	}

	raw, err := app.GetResults(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get results: %w", err)
	}
	c.logger.Debug("Raw results", "results", raw)

	results, err := ParseResults(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse results: %w", err)
	}

	c.saveArtifacts(ctx, app, req)

	return results, nil
}

func (c *Controller) applySettings(ctx context.Context, app RemoteApp, path string) error {
	settings, err := LoadSettings(path)
	if err != nil {
		return err
	}

	c.logger.Info("Applying instrument settings", "file", path, "count", len(settings))
	for _, s := range settings {
		if err := app.SetConfig(ctx, s.Key, s.Value); err != nil {
			return fmt.Errorf("failed to set %s: %w", s.Key, err)
		}
	}
	return nil
}

func (c *Controller) saveArtifacts(ctx context.Context, app RemoteApp, req secondary.InstrumentRequest) {
	if req.ProjectName != "" {
		opts := ProjectSaveOptions(req.ProjectName, req.OutputBaseDirectory)
		if path, err := app.SaveProject(ctx, opts); err != nil {
			c.logger.Error("Failed to save project", "project", req.ProjectName, "error", err)
		} else {
			c.logger.Info("Project saved", "path", path)
		}
	}

	if req.ReportName != "" {
		opts := PdfExportOptions(req.ReportName, req.OutputBaseDirectory)
		if path, err := app.ExportPdf(ctx, opts); err != nil {
			c.logger.Error("Failed to export PDF", "report", req.ReportName, "error", err)
		} else {
			c.logger.Info("PDF exported", "path", path)
		}
	}
}

// ProjectSaveOptions builds the save options for a project name. An absolute
// name overrides the base directory; the file name is stripped of characters
// the instrument's file system rejects.
func ProjectSaveOptions(name, baseDirectory string) SaveProjectOptions {
	opts := SaveProjectOptions{BaseDirectory: baseDirectory, OverwriteExisting: true}

	if isAbs(name) {
		opts.BaseDirectory = dirName(name)
	}
	opts.Name = SanitizeFileName(baseName(name))

	return opts
}

// PdfExportOptions builds the export options for a report name
func PdfExportOptions(report, directory string) ExportPdfOptions {
	fileName := baseName(report)
	if !strings.HasSuffix(strings.ToLower(fileName), ".pdf") {
		fileName += ".pdf"
	}

	if directory == "" {
		directory = dirName(report)
	}

	return ExportPdfOptions{
		Path:              directory,
		FileName:          fileName,
		OverwriteExisting: true,
		ForcePageBreaks:   true,
	}
}

// SanitizeFileName drops \ / : * ? " < > |
func SanitizeFileName(name string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(invalidFileChars, r) {
			return -1
		}
		return r
	}, name)
}

// Instrument paths use Windows separators; both forms are accepted.
func toSlash(p string) string { return strings.ReplaceAll(p, `\`, "/") }

func baseName(p string) string {
	s := toSlash(p)
	if i := strings.LastIndex(s, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}

func dirName(p string) string {
	s := toSlash(p)
	if i := strings.LastIndex(s, "/"); i >= 0 {
		return p[:i]
	}
	return ""
}

func isAbs(p string) bool {
	s := toSlash(p)
	return filepath.IsAbs(p) || strings.HasPrefix(s, "/") || (len(s) > 2 && s[1] == ':' && s[2] == '/')
}
