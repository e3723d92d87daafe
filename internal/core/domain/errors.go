package domain

import "errors"

// ============================================================================
// Registry Errors
// ============================================================================

// Not found errors
var (
	ErrArtifactNotFound = errors.New("model artifact not found")
	ErrFamilyNotFound   = errors.New("model family not found")
	ErrVersionNotFound  = errors.New("model version not found")
)

// Validation errors
var (
	ErrInvalidFamily      = errors.New("model family name is required and must be a single path segment")
	ErrInvalidVersion     = errors.New("invalid model version")
	ErrUnsupportedBackend = errors.New("unsupported metadata backend")
)

// ============================================================================
// Metadata Store Errors
// ============================================================================

var (
	ErrMetadataIO     = errors.New("metadata store I/O failed")
	ErrMetadataDecode = errors.New("metadata store is corrupt")
)
