package artifact

import "context"

// Gateway defines access to the files logged alongside a model run
type Gateway interface {
	// Download returns the content of the artifact name stored under runID
	Download(ctx context.Context, runID, name string) ([]byte, error)
}
