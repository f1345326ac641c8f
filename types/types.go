// Package types contains shared types used across the vector acceptance framework
package types

import (
	"fmt"
	"strings"
)

// ApiSurface identifies the data API a case is executed against
type ApiSurface string

// ApiSurface enum values
const (
	SurfaceTables      ApiSurface = "tables"
	SurfaceCollections ApiSurface = "collections"
)

// AllSurfaces lists every surface in reporting order
var AllSurfaces = []ApiSurface{SurfaceTables, SurfaceCollections}

// String implements the Stringer interface for ApiSurface
func (s ApiSurface) String() string {
	return string(s)
}

// ParseApiSurface parses a surface name, ignoring case
func ParseApiSurface(s string) (ApiSurface, error) {
	switch ApiSurface(strings.ToLower(strings.TrimSpace(s))) {
	case SurfaceTables:
		return SurfaceTables, nil
	case SurfaceCollections:
		return SurfaceCollections, nil
	}
	return "", fmt.Errorf("unknown api surface %q", s)
}

// ValueClass is a named category of vector input
type ValueClass string

// ValueClass enum values
const (
	ValueValid              ValueClass = "valid"
	ValueWrongDimension     ValueClass = "wrong-dimension"
	ValueEmpty              ValueClass = "empty"
	ValueNaN                ValueClass = "nan"
	ValueInfinite           ValueClass = "infinite"
	ValueNonNumericEncoding ValueClass = "non-numeric-encoding"
	ValueNull               ValueClass = "null"
)

// AllValueClasses lists every value class
var AllValueClasses = []ValueClass{
	ValueValid,
	ValueWrongDimension,
	ValueEmpty,
	ValueNaN,
	ValueInfinite,
	ValueNonNumericEncoding,
	ValueNull,
}

// String implements the Stringer interface for ValueClass
func (v ValueClass) String() string {
	return string(v)
}

// ParseValueClass parses a value class name, ignoring case
func ParseValueClass(s string) (ValueClass, error) {
	candidate := ValueClass(strings.ToLower(strings.TrimSpace(s)))
	for _, vc := range AllValueClasses {
		if vc == candidate {
			return vc, nil
		}
	}
	return "", fmt.Errorf("unknown value class %q", s)
}

// Variant selects a sub-variant of a value class fixture
type Variant string

// Variant enum values. VariantNone is used by classes without sub-variants.
const (
	VariantNone          Variant = ""
	VariantStandard      Variant = "standard"
	VariantVerySmall     Variant = "very-small"
	VariantVeryLarge     Variant = "very-large"
	VariantHighPrecision Variant = "high-precision"
	VariantMixedRange    Variant = "mixed-range"
	VariantShort         Variant = "short"
	VariantLong          Variant = "long"
)

// Operation is the kind of backend call a case performs
type Operation string

// Operation enum values
const (
	OpSchemaSetup      Operation = "schema-setup"
	OpSingleInsert     Operation = "single-insert"
	OpBatchInsert      Operation = "batch-insert"
	OpSimilaritySearch Operation = "similarity-search"
)

// String implements the Stringer interface for Operation
func (o Operation) String() string {
	return string(o)
}
