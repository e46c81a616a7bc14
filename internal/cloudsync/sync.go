// Package cloudsync pushes the local collections to a per-user cloud
// store and pulls them back with a cloud-wins merge. Sync is
// best-effort: failures are returned to the caller and never block
// local gameplay, and the batch writes are not transactional across
// collections.
package cloudsync

import "context"

// Syncer is the cloud sync collaborator.
type Syncer interface {
	// Push uploads every local record, overwriting the cloud copies.
	Push(ctx context.Context) error
	// Pull downloads the cloud records and replaces the local
	// collections when the cloud has data (cloud wins).
	Pull(ctx context.Context) error
	// Wipe deletes all cloud data for the user.
	Wipe(ctx context.Context) error
	Close() error
}
