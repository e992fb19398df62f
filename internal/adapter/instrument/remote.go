// Package instrument drives the compliance test application on the
// measurement instrument through its remote automation interface.
package instrument

import "context"

// OpenProjectOptions mirrors the remote OpenProjectCustom options
type OpenProjectOptions struct {
	FullPath       string
	DiscardUnsaved bool
}

// SaveProjectOptions mirrors the remote SaveProjectCustom options
type SaveProjectOptions struct {
	BaseDirectory     string
	Name              string
	OverwriteExisting bool
}

// ExportPdfOptions mirrors the remote ExportResultsPdfCustom options
type ExportPdfOptions struct {
	Path              string
	FileName          string
	OverwriteExisting bool
	ForcePageBreaks   bool
}

// RemoteApp is one session with the remote test application
type RemoteApp interface {
	NewProject(ctx context.Context, discardUnsaved bool) error
	OpenProject(ctx context.Context, opts OpenProjectOptions) error
	SetConfig(ctx context.Context, key, value string) error
	SelectTests(ctx context.Context, testIDs []int) error

	// Run blocks until the selected tests finished
	Run(ctx context.Context) error

	// GetResults returns the raw results text of the last run
	GetResults(ctx context.Context) (string, error)

	SaveProject(ctx context.Context, opts SaveProjectOptions) (string, error)
	ExportPdf(ctx context.Context, opts ExportPdfOptions) (string, error)
}

// Connector opens a RemoteApp session to the instrument at address
type Connector func(ctx context.Context, address string) (RemoteApp, error)
