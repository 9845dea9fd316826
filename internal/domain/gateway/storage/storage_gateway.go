package storage

import "context"

// Gateway defines the durable object store results are published to
type Gateway interface {
	// Upload copies the file at localPath to key, replacing any previous object
	Upload(ctx context.Context, localPath, key string) error
	// Location describes where key ends up, for logs and notifications
	Location(key string) string
}
