package upload

import "context"

// Uploader publishes recorded run summaries to remote storage.
type Uploader interface {
	// Preflight verifies that the remote storage is reachable and writable.
	// Writes a small test object to the bucket to fail fast on misconfiguration.
	Preflight(ctx context.Context) error

	// UploadRunSummary uploads one run's summary document. The run id
	// becomes part of the object key.
	UploadRunSummary(ctx context.Context, runID uint, data []byte) error
}
