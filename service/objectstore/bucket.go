package objectstore

import "context"

// Bucket is the object-storage collaborator. The sync core only ever
// resolves thumbnail keys embedded in attachment payloads; uploads and
// the rest of the item-photo pipeline live outside this repo.
type Bucket interface {
	// PublicURL resolves a stored object key to a fetchable URL.
	PublicURL(ctx context.Context, key string) (string, error)
}

// Noop resolves nothing; used when no bucket is configured, attachment
// cards then render without a thumbnail.
type Noop struct{}

func (Noop) PublicURL(ctx context.Context, key string) (string, error) { return "", nil }
