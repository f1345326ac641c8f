package registry

import (
	"errors"
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/killrvideo/vector-acceptor/types"
)

var (
	ErrInvalidDimension   = errors.New("invalid dimension")
	ErrDuplicateDimension = errors.New("duplicate dimension")
)

// SurfaceTitle returns the display name of a surface, eg. "Tables"
func SurfaceTitle(s types.ApiSurface) string {
	return cases.Title(language.English).String(string(s))
}

// Expand turns dimensions x surfaces x Catalog into an ordered list of cases using the
// default expectations. An empty dimension or surface list yields an empty case list.
func Expand(dimensions []int, surfaces []types.ApiSurface) []types.TestCase {
	return ExpandWith(dimensions, surfaces, DefaultExpectations, "")
}

// ExpandWith is Expand with explicit expectations and a keyspace passed through to every case.
// Value classes missing from expectations fall back to DefaultExpectations.
func ExpandWith(dimensions []int, surfaces []types.ApiSurface, expectations map[types.ValueClass]bool, keyspace string) []types.TestCase {
	out := make([]types.TestCase, 0, len(dimensions)*len(surfaces)*len(Catalog))
	for _, dim := range dimensions {
		for _, surface := range surfaces {
			for _, entry := range Catalog {
				out = append(out, types.TestCase{
					Name:          fmt.Sprintf("%s: %s (dim=%d)", SurfaceTitle(surface), entry.Description, dim),
					Dimension:     dim,
					ValueClass:    entry.ValueClass,
					Variant:       entry.Variant,
					Surface:       surface,
					Operation:     entry.Operation,
					ShouldSucceed: expectation(expectations, entry),
					Keyspace:      keyspace,
				})
			}
		}
	}
	return out
}

// Schema setup must always succeed, regardless of overrides for its value class.
func expectation(expectations map[types.ValueClass]bool, entry CatalogEntry) bool {
	if entry.Operation == types.OpSchemaSetup {
		return true
	}
	if v, ok := expectations[entry.ValueClass]; ok {
		return v
	}
	return DefaultExpectations[entry.ValueClass]
}

// ValidateDimensions rejects non-positive and repeated dimensions
func ValidateDimensions(dimensions []int) error {
	seen := make(map[int]bool, len(dimensions))
	for _, d := range dimensions {
		if d <= 0 {
			return fmt.Errorf("%w: %d", ErrInvalidDimension, d)
		}
		if seen[d] {
			return fmt.Errorf("%w: %d", ErrDuplicateDimension, d)
		}
		seen[d] = true
	}
	return nil
}

// Filter keeps the cases whose surface is in surfaces, preserving order
func Filter(tcs []types.TestCase, surfaces []types.ApiSurface) []types.TestCase {
	keep := make(map[types.ApiSurface]bool, len(surfaces))
	for _, s := range surfaces {
		keep[s] = true
	}
	out := make([]types.TestCase, 0, len(tcs))
	for _, tc := range tcs {
		if keep[tc.Surface] {
			out = append(out, tc)
		}
	}
	return out
}
