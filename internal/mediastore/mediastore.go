// Package mediastore declares the contract for photo storage backends.
// Two implementations exist: localdisk writes into a served directory,
// gcs uploads into a public object-store bucket. The backend is selected
// once at startup by configuration, never per request.
package mediastore

import "context"

// Store persists photo bytes under a derived name and returns a public
// reference. Stored objects are never deduplicated, deleted or garbage
// collected.
type Store interface {
	// Save writes data under name with the given content type and returns
	// the publicly resolvable reference. Backend failures surface as
	// models.ErrStorageUnavailable (wrapped), never as a process fault.
	Save(ctx context.Context, data []byte, name, contentType string) (string, error)
}
