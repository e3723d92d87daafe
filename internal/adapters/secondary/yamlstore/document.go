package yamlstore

import (
	"fmt"
	"time"

	"model-artifact-registry/internal/core/domain"
)

// Layouts accepted for registered_at. The zone-less form is what Python's
// datetime.isoformat() writes and is read in local time.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// recordDoc is the on-disk shape of a version record. Every field is always
// written; absent values appear as null.
type recordDoc struct {
	Name         string              `yaml:"name"`
	Version      string              `yaml:"version"`
	FilePath     string              `yaml:"file_path"`
	Framework    string              `yaml:"framework"`
	Architecture string              `yaml:"architecture"`
	InputShape   *[]int              `yaml:"input_shape"`
	Metrics      *map[string]float64 `yaml:"metrics"`
	Dataset      *string             `yaml:"dataset"`
	Description  *string             `yaml:"description"`
	RegisteredAt *string             `yaml:"registered_at"`
}

func fromDomain(rec *domain.VersionRecord) recordDoc {
	doc := recordDoc{
		Name:         rec.Name,
		Version:      rec.Version,
		FilePath:     rec.FilePath,
		Framework:    rec.Framework,
		Architecture: rec.Architecture,
		Dataset:      rec.Dataset,
		Description:  rec.Description,
	}
	if rec.InputShape != nil {
		shape := rec.InputShape
		doc.InputShape = &shape
	}
	if rec.Metrics != nil {
		metrics := map[string]float64(rec.Metrics)
		doc.Metrics = &metrics
	}
	if !rec.RegisteredAt.IsZero() {
		ts := rec.RegisteredAt.Format(time.RFC3339Nano)
		doc.RegisteredAt = &ts
	}
	return doc
}

func (d recordDoc) toDomain() (*domain.VersionRecord, error) {
	rec := &domain.VersionRecord{
		Name:         d.Name,
		Version:      d.Version,
		FilePath:     d.FilePath,
		Framework:    d.Framework,
		Architecture: d.Architecture,
		Dataset:      d.Dataset,
		Description:  d.Description,
	}
	if d.InputShape != nil {
		rec.InputShape = *d.InputShape
		if rec.InputShape == nil {
			rec.InputShape = []int{}
		}
	}
	if d.Metrics != nil {
		rec.Metrics = domain.Metrics(*d.Metrics)
		if rec.Metrics == nil {
			rec.Metrics = domain.Metrics{}
		}
	}
	if d.RegisteredAt != nil {
		ts, err := parseTimestamp(*d.RegisteredAt)
		if err != nil {
			return nil, err
		}
		rec.RegisteredAt = ts
	}
	return rec, nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised registered_at %q", s)
}
