package registry

import "github.com/killrvideo/vector-acceptor/types"

// CatalogEntry is one (operation, value class, variant) combination emitted per dimension and surface
type CatalogEntry struct {
	Operation   types.Operation
	ValueClass  types.ValueClass
	Variant     types.Variant
	Description string
}

// Catalog is the fixed list of cases run for every dimension and surface, in execution order.
// Schema setup comes first so that provisioning failures show up in the same summary.
var Catalog = []CatalogEntry{
	{types.OpSchemaSetup, types.ValueValid, types.VariantStandard, "create vector schema"},
	{types.OpSingleInsert, types.ValueValid, types.VariantStandard, "insert float list"},
	{types.OpSingleInsert, types.ValueValid, types.VariantVerySmall, "insert very small values (1e-38)"},
	{types.OpSingleInsert, types.ValueValid, types.VariantVeryLarge, "insert very large values (1e38)"},
	{types.OpSingleInsert, types.ValueValid, types.VariantHighPrecision, "insert high precision floats"},
	{types.OpSingleInsert, types.ValueValid, types.VariantMixedRange, "insert mixed range values"},
	{types.OpSingleInsert, types.ValueNull, types.VariantNone, "insert null vector"},
	{types.OpSingleInsert, types.ValueNonNumericEncoding, types.VariantNone, "insert vector as JSON string"},
	{types.OpSingleInsert, types.ValueEmpty, types.VariantNone, "insert empty vector"},
	{types.OpSingleInsert, types.ValueWrongDimension, types.VariantShort, "insert vector one element short"},
	{types.OpSingleInsert, types.ValueWrongDimension, types.VariantLong, "insert vector one element long"},
	{types.OpSingleInsert, types.ValueNaN, types.VariantNone, "insert vector containing NaN"},
	{types.OpSingleInsert, types.ValueInfinite, types.VariantNone, "insert vector containing Infinity"},
	{types.OpBatchInsert, types.ValueValid, types.VariantStandard, "batch insert"},
	{types.OpSimilaritySearch, types.ValueValid, types.VariantStandard, "vector similarity search"},
}

// DefaultExpectations declares whether the backend must accept each value class.
// Null is accepted because the vector column is nullable.
var DefaultExpectations = map[types.ValueClass]bool{
	types.ValueValid:              true,
	types.ValueNull:               true,
	types.ValueEmpty:              false,
	types.ValueWrongDimension:     false,
	types.ValueNaN:                false,
	types.ValueInfinite:           false,
	types.ValueNonNumericEncoding: false,
}
