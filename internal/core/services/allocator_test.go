package services

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"model-artifact-registry/internal/core/domain"
)

func TestNextVersion(t *testing.T) {
	tests := []struct {
		name     string
		versions []string
		want     string
	}{
		{"empty family", nil, "v1"},
		{"single", []string{"v1"}, "v2"},
		{"gap", []string{"v1", "v7", "v3"}, "v8"},
		{"only opaque", []string{"baseline", "prod"}, "v1"},
		{"mixed", []string{"baseline", "v2", "rc1"}, "v3"},
		{"leading zeros", []string{"v009"}, "v10"},
		{"no successor", []string{"v3", "v9223372036854775807"}, "v4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextVersion(tt.versions))
		})
	}
}

func TestNextVersion_NeverCollidesWithNumbered(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		numbers := rapid.SliceOf(rapid.IntRange(0, 5000)).Draw(rt, "numbers")
		opaque := rapid.SliceOf(rapid.StringMatching(`[a-z]{1,6}`)).Draw(rt, "opaque")

		versions := append([]string{}, opaque...)
		for _, n := range numbers {
			versions = append(versions, fmt.Sprintf("v%d", n))
		}

		next := domain.ParseVersion(NextVersion(versions))
		if !next.IsNumbered() {
			rt.Fatalf("allocated opaque version %q", next.Raw)
		}
		for _, raw := range versions {
			if v := domain.ParseVersion(raw); v.IsNumbered() && v.Number >= next.Number {
				rt.Fatalf("allocated %s not above existing %s", next.Raw, raw)
			}
		}
	})
}

func TestResolveLatest(t *testing.T) {
	tests := []struct {
		name     string
		versions []string
		want     string
		ok       bool
	}{
		{"empty", nil, "", false},
		{"numeric order beats insertion", []string{"v10", "v2", "v9"}, "v10", true},
		{"opaque ignored when numbered exist", []string{"v1", "prod"}, "v1", true},
		{"only opaque falls back to last inserted", []string{"alpha", "beta"}, "beta", true},
		{"equal numbers resolve to later insertion", []string{"v01", "v1"}, "v1", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveLatest(tt.versions)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func withMetrics(version string, metrics domain.Metrics) *domain.VersionRecord {
	return &domain.VersionRecord{
		Name: "m", Version: version, Metrics: metrics, RegisteredAt: time.Now(),
	}
}

func TestResolveBest_PicksHighestMetricNotRecency(t *testing.T) {
	records := []*domain.VersionRecord{
		withMetrics("v1", domain.Metrics{"accuracy": 0.95}),
		withMetrics("v2", domain.Metrics{"accuracy": 0.88}),
	}
	got, ok := ResolveBest(records, BestPolicy{})
	assert.True(t, ok)
	assert.Equal(t, "v1", got)
}

func TestResolveBest_DefaultMetricComesFromLatest(t *testing.T) {
	records := []*domain.VersionRecord{
		withMetrics("v1", domain.Metrics{"auc": 0.99, "f1": 0.10}),
		withMetrics("v2", domain.Metrics{"f1": 0.80, "loss": 0.3}),
	}
	// latest (v2) ranks by "f1", its alphabetically first metric
	got, ok := ResolveBest(records, BestPolicy{})
	assert.True(t, ok)
	assert.Equal(t, "v2", got)
}

func TestResolveBest_ConfiguredMetric(t *testing.T) {
	records := []*domain.VersionRecord{
		withMetrics("v1", domain.Metrics{"accuracy": 0.90, "loss": 0.20}),
		withMetrics("v2", domain.Metrics{"accuracy": 0.80, "loss": 0.10}),
		withMetrics("v3", domain.Metrics{"accuracy": 0.70}),
	}

	got, ok := ResolveBest(records, BestPolicy{Metric: "loss", LowerIsBetter: true})
	assert.True(t, ok)
	assert.Equal(t, "v2", got)

	got, ok = ResolveBest(records, BestPolicy{Metric: "accuracy"})
	assert.True(t, ok)
	assert.Equal(t, "v1", got)

	_, ok = ResolveBest(records, BestPolicy{Metric: "bleu"})
	assert.False(t, ok)
}

func TestResolveBest_Ties(t *testing.T) {
	records := []*domain.VersionRecord{
		withMetrics("v10", domain.Metrics{"acc": 0.5}),
		withMetrics("v9", domain.Metrics{"acc": 0.5}),
		withMetrics("rc", domain.Metrics{"acc": 0.4}),
	}
	got, ok := ResolveBest(records, BestPolicy{})
	assert.True(t, ok)
	assert.Equal(t, "v10", got, "numbered ties rank by N")

	records = []*domain.VersionRecord{
		withMetrics("alpha", domain.Metrics{"acc": 0.5}),
		withMetrics("beta", domain.Metrics{"acc": 0.5}),
	}
	got, ok = ResolveBest(records, BestPolicy{})
	assert.True(t, ok)
	assert.Equal(t, "beta", got, "opaque ties rank by insertion")
}

func TestResolveBest_SkipsNaN(t *testing.T) {
	records := []*domain.VersionRecord{
		withMetrics("v1", domain.Metrics{"acc": math.NaN()}),
		withMetrics("v2", domain.Metrics{"acc": 0.9}),
		withMetrics("v3", domain.Metrics{"acc": 0.8}),
	}
	got, ok := ResolveBest(records, BestPolicy{})
	assert.True(t, ok)
	assert.Equal(t, "v2", got)

	got, ok = ResolveBest(records, BestPolicy{Metric: "acc", LowerIsBetter: true})
	assert.True(t, ok)
	assert.Equal(t, "v3", got)

	_, ok = ResolveBest(records[:1], BestPolicy{})
	assert.False(t, ok)
}

func TestResolveBest_NoMetrics(t *testing.T) {
	_, ok := ResolveBest(nil, BestPolicy{})
	assert.False(t, ok)

	records := []*domain.VersionRecord{
		withMetrics("v1", domain.Metrics{}),
		withMetrics("v2", nil),
	}
	_, ok = ResolveBest(records, BestPolicy{})
	assert.False(t, ok)
}

func TestResolveBest_LatestWithoutMetricsFallsBack(t *testing.T) {
	records := []*domain.VersionRecord{
		withMetrics("v1", domain.Metrics{"top1": 0.6}),
		withMetrics("v2", domain.Metrics{"top1": 0.7}),
		withMetrics("v3", domain.Metrics{}),
	}
	got, ok := ResolveBest(records, BestPolicy{})
	assert.True(t, ok)
	assert.Equal(t, "v2", got)
}
