package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseInputShape reads a comma separated dimension list such as
// "3,224,224". Blank input means no shape.
func ParseInputShape(s string) ([]int, error) {
	s = strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "[]()"))
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	shape := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("input shape %q: dimension %q is not an integer", s, p)
		}
		shape = append(shape, n)
	}
	return shape, nil
}

// ParseMetric reads one "name=value" pair. NaN and infinities are rejected.
func ParseMetric(s string) (string, float64, error) {
	name, raw, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", 0, fmt.Errorf("metric %q: expected name=value", s)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return "", 0, fmt.Errorf("metric %q: %w", s, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "", 0, fmt.Errorf("metric %q: value must be finite", s)
	}
	return name, v, nil
}

// ParseMetrics folds name=value pairs into Metrics; later pairs win.
func ParseMetrics(pairs []string) (Metrics, error) {
	m := Metrics{}
	for _, p := range pairs {
		name, v, err := ParseMetric(p)
		if err != nil {
			return nil, err
		}
		m[name] = v
	}
	return m, nil
}
