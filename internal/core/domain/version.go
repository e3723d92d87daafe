package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Symbolic selectors accepted wherever a version identifier is expected.
const (
	SelectorLatest = "latest"
	SelectorBest   = "best"
)

// VersionKind tags the two shapes a version identifier can take.
type VersionKind int

const (
	VersionOpaque VersionKind = iota
	VersionNumbered
)

// Version is a parsed version identifier. Identifiers of the form v<digits>
// are Numbered and totally ordered by their number; anything else is Opaque
// and only comparable by insertion order.
type Version struct {
	Kind   VersionKind
	Number int
	Raw    string
}

// ParseVersion classifies raw. It never fails: identifiers that do not match
// v<digits>, or whose number overflows int, are Opaque.
func ParseVersion(raw string) Version {
	if len(raw) < 2 || raw[0] != 'v' {
		return Version{Kind: VersionOpaque, Raw: raw}
	}
	digits := raw[1:]
	for _, r := range digits {
		if r < '0' || r > '9' {
			return Version{Kind: VersionOpaque, Raw: raw}
		}
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return Version{Kind: VersionOpaque, Raw: raw}
	}
	return Version{Kind: VersionNumbered, Number: n, Raw: raw}
}

// NumberedVersion renders the identifier for n.
func NumberedVersion(n int) string {
	return fmt.Sprintf("v%d", n)
}

func (v Version) IsNumbered() bool {
	return v.Kind == VersionNumbered
}

func (v Version) String() string {
	return v.Raw
}

// IsSelector reports whether s is a symbolic selector rather than a concrete version.
func IsSelector(s string) bool {
	return s == SelectorLatest || s == SelectorBest
}

// ValidateVersion rejects identifiers that cannot be used as a storage
// directory or that would be shadowed by a selector.
func ValidateVersion(version string) error {
	switch {
	case strings.TrimSpace(version) == "":
		return fmt.Errorf("%w: empty identifier", ErrInvalidVersion)
	case IsSelector(version):
		return fmt.Errorf("%w: %q is reserved", ErrInvalidVersion, version)
	case !isPathSegment(version):
		return fmt.Errorf("%w: %q is not a valid path segment", ErrInvalidVersion, version)
	}
	return nil
}

// ValidateFamily rejects empty names and names that escape the storage root.
func ValidateFamily(family string) error {
	if strings.TrimSpace(family) == "" || !isPathSegment(family) {
		return ErrInvalidFamily
	}
	return nil
}

func isPathSegment(s string) bool {
	return s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}
