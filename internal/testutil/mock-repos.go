package testutil

import (
	"context"
	"path"
	"path/filepath"
	"sync"

	"github.com/stretchr/testify/mock"

	"model-artifact-registry/internal/core/domain"
	"model-artifact-registry/internal/core/ports/output"
)

var (
	_ ports.MetadataStore = (*MockMetadataStore)(nil)
	_ ports.MetadataStore = (*MemoryMetadataStore)(nil)
	_ ports.ArtifactStore = (*MockArtifactStore)(nil)
	_ ports.ArtifactStore = (*MemoryArtifactStore)(nil)
)

// MockMetadataStore is a mock of MetadataStore.
type MockMetadataStore struct {
	mock.Mock
}

func (m *MockMetadataStore) Load(ctx context.Context) (*domain.Catalog, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Catalog), args.Error(1)
}

func (m *MockMetadataStore) Save(ctx context.Context, catalog *domain.Catalog) error {
	args := m.Called(ctx, catalog)
	return args.Error(0)
}

func (m *MockMetadataStore) Location() string {
	return "mock"
}

// MockArtifactStore is a mock of ArtifactStore.
type MockArtifactStore struct {
	mock.Mock
}

func (m *MockArtifactStore) Store(ctx context.Context, family, version, src string) (string, error) {
	args := m.Called(ctx, family, version, src)
	return args.String(0), args.Error(1)
}

func (m *MockArtifactStore) Verify(relPath string) bool {
	args := m.Called(relPath)
	return args.Bool(0)
}

func (m *MockArtifactStore) Exists(src string) bool {
	args := m.Called(src)
	return args.Bool(0)
}

// MemoryMetadataStore keeps a deep copy of the last saved catalog.
type MemoryMetadataStore struct {
	mu      sync.Mutex
	catalog *domain.Catalog
	Saves   int
	SaveErr error
}

func NewMemoryMetadataStore() *MemoryMetadataStore {
	return &MemoryMetadataStore{catalog: domain.NewCatalog()}
}

func (s *MemoryMetadataStore) Load(ctx context.Context) (*domain.Catalog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.Clone(), nil
}

func (s *MemoryMetadataStore) Save(ctx context.Context, catalog *domain.Catalog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.catalog = catalog.Clone()
	s.Saves++
	return nil
}

func (s *MemoryMetadataStore) Location() string {
	return "memory"
}

// Snapshot returns a copy of what was last persisted.
func (s *MemoryMetadataStore) Snapshot() *domain.Catalog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.Clone()
}

// MemoryArtifactStore pretends to copy files. Sources must be added with
// AddSource before they can be stored.
type MemoryArtifactStore struct {
	mu      sync.Mutex
	sources map[string]bool
	stored  map[string]string
}

func NewMemoryArtifactStore(sources ...string) *MemoryArtifactStore {
	s := &MemoryArtifactStore{sources: map[string]bool{}, stored: map[string]string{}}
	for _, src := range sources {
		s.sources[src] = true
	}
	return s
}

func (s *MemoryArtifactStore) AddSource(src string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[src] = true
}

// Remove simulates an operator deleting a stored artifact.
func (s *MemoryArtifactStore) Remove(relPath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.stored, relPath)
}

func (s *MemoryArtifactStore) Store(ctx context.Context, family, version, src string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.sources[src] {
		return "", domain.ErrArtifactNotFound
	}
	rel := path.Join("models", family, version, filepath.Base(src))
	s.stored[rel] = src
	return rel, nil
}

func (s *MemoryArtifactStore) Verify(relPath string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.stored[relPath]
	return ok
}

func (s *MemoryArtifactStore) Exists(src string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sources[src]
}

// StoredCount reports how many artifact paths are present.
func (s *MemoryArtifactStore) StoredCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stored)
}
