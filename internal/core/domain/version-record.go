package domain

import (
	"strings"
	"time"
)

// DefaultFramework is recorded when the caller does not name one.
const DefaultFramework = "pytorch"

// Metrics maps a metric name to its value. Key order carries no meaning.
type Metrics map[string]float64

// VersionRecord is one registered artifact instance of a family.
type VersionRecord struct {
	Name         string    `json:"name"`
	Version      string    `json:"version"`
	FilePath     string    `json:"file_path"`
	Framework    string    `json:"framework"`
	Architecture string    `json:"architecture"`
	InputShape   []int     `json:"input_shape"`
	Metrics      Metrics   `json:"metrics"`
	Dataset      *string   `json:"dataset"`
	Description  *string   `json:"description"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Key returns the composite "family/version" identifier of the record.
func (r *VersionRecord) Key() string {
	return Key(r.Name, r.Version)
}

// Clone returns a deep copy so callers cannot mutate catalog state.
func (r *VersionRecord) Clone() *VersionRecord {
	if r == nil {
		return nil
	}
	out := *r
	if r.InputShape != nil {
		out.InputShape = append([]int(nil), r.InputShape...)
	}
	if r.Metrics != nil {
		out.Metrics = make(Metrics, len(r.Metrics))
		for k, v := range r.Metrics {
			out.Metrics[k] = v
		}
	}
	if r.Dataset != nil {
		s := *r.Dataset
		out.Dataset = &s
	}
	if r.Description != nil {
		s := *r.Description
		out.Description = &s
	}
	return &out
}

// Key renders the composite identifier used by list operations.
func Key(family, version string) string {
	return family + "/" + version
}

// SplitKey is the inverse of Key. Family names never contain a slash.
func SplitKey(key string) (family, version string, ok bool) {
	return strings.Cut(key, "/")
}

// StringPtr returns nil for "" so optional text fields stay absent.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
