package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"model-artifact-registry/internal/core/domain"
	"model-artifact-registry/internal/core/ports/output"
)

const tracerName = "model-artifact-registry/registry"

// RegisterRequest carries the inputs of a registration. Empty Version asks
// for the next numbered version; empty Framework and Architecture take their
// defaults.
type RegisterRequest struct {
	Family       string
	SourcePath   string
	Version      string
	Framework    string
	Metrics      domain.Metrics
	Architecture string
	InputShape   []int
	Dataset      *string
	Description  *string
}

// RegistryService owns the in-memory catalog for one (storage root,
// metadata store) pair. One instance must not share its paths with another.
type RegistryService struct {
	mu        sync.RWMutex
	metadata  ports.MetadataStore
	artifacts ports.ArtifactStore
	catalog   *domain.Catalog
	best      BestPolicy
	now       func() time.Time
	tracer    trace.Tracer
}

type Option func(*RegistryService)

func WithBestPolicy(p BestPolicy) Option {
	return func(s *RegistryService) { s.best = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *RegistryService) { s.now = now }
}

func WithTracer(t trace.Tracer) Option {
	return func(s *RegistryService) { s.tracer = t }
}

// NewRegistryService loads the current catalog from metadata. A corrupt
// metadata store is reported, never replaced by an empty registry.
func NewRegistryService(ctx context.Context, metadata ports.MetadataStore, artifacts ports.ArtifactStore, opts ...Option) (*RegistryService, error) {
	s := &RegistryService{
		metadata:  metadata,
		artifacts: artifacts,
		now:       time.Now,
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}

	catalog, err := metadata.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load metadata from %s: %w", metadata.Location(), err)
	}
	s.catalog = catalog

	log.WithFields(log.Fields{
		"metadata": metadata.Location(),
		"families": len(catalog.Families()),
		"versions": catalog.Len(),
	}).Debug("registry loaded")
	return s, nil
}

// Register copies the source artifact into storage and records its metadata.
// It returns the composite "family/version" key.
func (s *RegistryService) Register(ctx context.Context, req RegisterRequest) (string, error) {
	ctx, span := s.tracer.Start(ctx, "registry.Register", trace.WithAttributes(
		attribute.String("registry.family", req.Family),
		attribute.String("registry.version", req.Version),
	))
	defer span.End()

	key, err := s.register(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	span.SetAttributes(attribute.String("registry.key", key))
	return key, nil
}

func (s *RegistryService) register(ctx context.Context, req RegisterRequest) (string, error) {
	if !s.artifacts.Exists(req.SourcePath) {
		return "", fmt.Errorf("%w: %s", domain.ErrArtifactNotFound, req.SourcePath)
	}
	if err := domain.ValidateFamily(req.Family); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	version := req.Version
	if version == "" {
		version = NextVersion(s.catalog.Versions(req.Family))
	} else if err := domain.ValidateVersion(version); err != nil {
		return "", err
	}

	relPath, err := s.artifacts.Store(ctx, req.Family, version, req.SourcePath)
	if err != nil {
		return "", err
	}

	rec := &domain.VersionRecord{
		Name:         req.Family,
		Version:      version,
		FilePath:     relPath,
		Framework:    req.Framework,
		Architecture: req.Architecture,
		Metrics:      domain.Metrics{},
		Dataset:      req.Dataset,
		Description:  req.Description,
		RegisteredAt: s.now(),
	}
	if rec.Framework == "" {
		rec.Framework = domain.DefaultFramework
	}
	if rec.Architecture == "" {
		rec.Architecture = req.Family
	}
	if len(req.InputShape) > 0 {
		rec.InputShape = append([]int(nil), req.InputShape...)
	}
	for k, v := range req.Metrics {
		rec.Metrics[k] = v
	}

	previous := s.catalog.Clone()
	_, replaced := s.catalog.Record(req.Family, version)
	s.catalog.Upsert(rec)
	if err := s.metadata.Save(ctx, s.catalog); err != nil {
		s.catalog = previous
		log.WithError(err).WithField("key", rec.Key()).Error("persist metadata failed")
		return "", err
	}

	log.WithFields(log.Fields{
		"key":       rec.Key(),
		"file_path": rec.FilePath,
		"replaced":  replaced,
	}).Info("model registered")
	return rec.Key(), nil
}

// Get resolves version ("", "latest", "best" or a literal identifier) and
// returns a copy of the record. Misses are logged and reported through the
// boolean, never as errors. A record whose artifact file has disappeared is
// still returned after a warning.
func (s *RegistryService) Get(ctx context.Context, family, version string) (*domain.VersionRecord, bool) {
	_, span := s.tracer.Start(ctx, "registry.Get", trace.WithAttributes(
		attribute.String("registry.family", family),
		attribute.String("registry.selector", version),
	))
	defer span.End()

	s.mu.RLock()
	rec, ok := s.lookup(family, version)
	if ok {
		rec = rec.Clone()
	}
	s.mu.RUnlock()

	if !ok {
		span.SetAttributes(attribute.Bool("registry.found", false))
		return nil, false
	}
	span.SetAttributes(
		attribute.Bool("registry.found", true),
		attribute.String("registry.version", rec.Version),
	)

	if !s.artifacts.Verify(rec.FilePath) {
		span.AddEvent("dangling artifact reference")
		log.WithFields(log.Fields{
			"key":       rec.Key(),
			"file_path": rec.FilePath,
		}).Warn("metadata exists but artifact file is missing")
	}
	return rec, true
}

// ArtifactPresent reports whether the record's artifact file is still on disk.
func (s *RegistryService) ArtifactPresent(rec *domain.VersionRecord) bool {
	return rec != nil && s.artifacts.Verify(rec.FilePath)
}

// Resolve maps a selector to a concrete version without copying the record.
func (s *RegistryService) Resolve(family, version string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.lookup(family, version)
	if !ok {
		return "", false
	}
	return rec.Version, true
}

// lookup must be called with s.mu held.
func (s *RegistryService) lookup(family, version string) (*domain.VersionRecord, bool) {
	if !s.catalog.HasFamily(family) {
		log.WithField("family", family).Info(domain.ErrFamilyNotFound.Error())
		return nil, false
	}

	resolved := version
	switch version {
	case "", domain.SelectorLatest:
		v, ok := ResolveLatest(s.catalog.Versions(family))
		if !ok {
			log.WithField("family", family).Info("family has no versions")
			return nil, false
		}
		resolved = v
	case domain.SelectorBest:
		v, ok := ResolveBest(s.catalog.Records(family), s.best)
		if !ok {
			log.WithFields(log.Fields{
				"family": family,
				"metric": s.best.Metric,
			}).Info("no version recorded the ranking metric")
			return nil, false
		}
		resolved = v
	}

	rec, ok := s.catalog.Record(family, resolved)
	if !ok {
		log.WithFields(log.Fields{
			"key":       domain.Key(family, resolved),
			"available": s.catalog.Versions(family),
		}).Info(domain.ErrVersionNotFound.Error())
		return nil, false
	}
	return rec, true
}

// List returns "family/version" keys in insertion order, for one family or,
// when family is empty, for every family. Unknown families yield an empty slice.
func (s *RegistryService) List(ctx context.Context, family string) []string {
	_, span := s.tracer.Start(ctx, "registry.List", trace.WithAttributes(
		attribute.String("registry.family", family),
	))
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()

	families := s.catalog.Families()
	if family != "" {
		if !s.catalog.HasFamily(family) {
			log.WithField("family", family).Info(domain.ErrFamilyNotFound.Error())
			return []string{}
		}
		families = []string{family}
	}

	keys := []string{}
	for _, f := range families {
		for _, v := range s.catalog.Versions(f) {
			keys = append(keys, domain.Key(f, v))
		}
	}
	span.SetAttributes(attribute.Int("registry.count", len(keys)))
	return keys
}

// ListFamilies returns every known family name in insertion order.
func (s *RegistryService) ListFamilies(ctx context.Context) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog.Families()
}

// Reload replaces the in-memory catalog with the metadata store's current
// content. On failure the current catalog is kept. Registrations wait for
// the reload to finish so none is lost between the load and the swap.
func (s *RegistryService) Reload(ctx context.Context) error {
	s.mu.Lock()
	catalog, err := s.metadata.Load(ctx)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("reload metadata from %s: %w", s.metadata.Location(), err)
	}
	s.catalog = catalog
	s.mu.Unlock()

	log.WithField("versions", catalog.Len()).Info("registry reloaded")
	return nil
}
