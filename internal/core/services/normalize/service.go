package normalize

import "context"

// INormalizeService rewrites batch files in place
type INormalizeService interface {
	// FillMissing makes every run write the full register set of the reference run
	FillMissing(ctx context.Context, path string) (int, error)

	// UpdateDefaults rewrites marked default register values
	UpdateDefaults(ctx context.Context, path string) (int, error)
}
