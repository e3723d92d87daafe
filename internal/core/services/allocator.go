package services

import (
	"math"
	"sort"

	"model-artifact-registry/internal/core/domain"
)

// BestPolicy controls how the "best" selector ranks versions.
type BestPolicy struct {
	// Metric names the metric to rank by. When empty, the alphabetically
	// first metric of the latest version is used.
	Metric string
	// LowerIsBetter ranks ascending, for loss-like metrics.
	LowerIsBetter bool
}

// NextVersion allocates the identifier following the highest v<N> in versions.
// Non-numbered identifiers are ignored, so a family holding only opaque
// versions restarts at v1. v<MaxInt> has no successor and is ignored too.
func NextVersion(versions []string) string {
	highest := 0
	for _, raw := range versions {
		v := domain.ParseVersion(raw)
		if v.IsNumbered() && v.Number > highest && v.Number < math.MaxInt {
			highest = v.Number
		}
	}
	return domain.NumberedVersion(highest + 1)
}

// ResolveLatest picks the numbered version with the greatest N; equal
// numbers (v1, v01) resolve to the later one in insertion order. Without any
// numbered version the most recently inserted identifier wins.
func ResolveLatest(versions []string) (string, bool) {
	if len(versions) == 0 {
		return "", false
	}
	latest := ""
	best := -1
	for _, raw := range versions {
		v := domain.ParseVersion(raw)
		if v.IsNumbered() && v.Number >= best {
			best = v.Number
			latest = raw
		}
	}
	if best < 0 {
		return versions[len(versions)-1], true
	}
	return latest, true
}

// ResolveBest picks the version whose ranking metric is best. records must be
// in insertion order. Versions that did not record the metric, or recorded
// NaN for it, are skipped.
// Ties go to the version that ranks later: by N when both are numbered,
// otherwise by insertion order.
func ResolveBest(records []*domain.VersionRecord, policy BestPolicy) (string, bool) {
	metric := policy.Metric
	if metric == "" {
		metric = primaryMetric(records)
	}
	if metric == "" {
		return "", false
	}

	var (
		winner    *domain.VersionRecord
		winnerPos int
	)
	for pos, rec := range records {
		value, ok := rec.Metrics[metric]
		if !ok || math.IsNaN(value) {
			continue
		}
		if winner == nil {
			winner, winnerPos = rec, pos
			continue
		}
		current := winner.Metrics[metric]
		switch {
		case better(value, current, policy.LowerIsBetter):
			winner, winnerPos = rec, pos
		case value == current && ranksAfter(rec.Version, pos, winner.Version, winnerPos):
			winner, winnerPos = rec, pos
		}
	}
	if winner == nil {
		return "", false
	}
	return winner.Version, true
}

func better(candidate, current float64, lowerIsBetter bool) bool {
	if lowerIsBetter {
		return candidate < current
	}
	return candidate > current
}

func ranksAfter(a string, posA int, b string, posB int) bool {
	va, vb := domain.ParseVersion(a), domain.ParseVersion(b)
	if va.IsNumbered() && vb.IsNumbered() && va.Number != vb.Number {
		return va.Number > vb.Number
	}
	return posA > posB
}

// primaryMetric returns the alphabetically first metric key of the latest
// version, falling back to older versions when the latest recorded none.
func primaryMetric(records []*domain.VersionRecord) string {
	if len(records) == 0 {
		return ""
	}
	versions := make([]string, len(records))
	byVersion := make(map[string]*domain.VersionRecord, len(records))
	for i, rec := range records {
		versions[i] = rec.Version
		byVersion[rec.Version] = rec
	}
	if latest, ok := ResolveLatest(versions); ok {
		if key := firstKey(byVersion[latest].Metrics); key != "" {
			return key
		}
	}
	for i := len(records) - 1; i >= 0; i-- {
		if key := firstKey(records[i].Metrics); key != "" {
			return key
		}
	}
	return ""
}

func firstKey(m domain.Metrics) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys[0]
}
