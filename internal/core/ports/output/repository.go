package ports

import (
	"context"

	"model-artifact-registry/internal/core/domain"
)

// MetadataStore persists the whole catalog. Save always writes the complete
// state, never a diff.
type MetadataStore interface {
	// Load returns an empty catalog when nothing has been saved yet and an
	// error wrapping domain.ErrMetadataDecode when stored state is unreadable.
	Load(ctx context.Context) (*domain.Catalog, error)
	Save(ctx context.Context, catalog *domain.Catalog) error
	// Location describes where metadata lives, for diagnostics.
	Location() string
}

// ArtifactStore places artifact files under the registry's storage root.
type ArtifactStore interface {
	// Store copies src into the (family, version) directory and returns the
	// destination relative to the storage root's parent directory.
	Store(ctx context.Context, family, version, src string) (string, error)
	// Verify reports whether a stored relative path still resolves. It never fails.
	Verify(relPath string) bool
	// Exists reports whether an external source file is present.
	Exists(src string) bool
}
