// Package fixtures generates vector payloads for every value class exercised by the suite.
// Generation is pure: the same seed, dimension, class and variant always produce the same payload.
package fixtures

import (
	"math"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/killrvideo/vector-acceptor/types"
)

const (
	DefaultSeed = 42

	VerySmallValue     = 1e-38
	VeryLargeValue     = 1e38
	HighPrecisionValue = 1.123456789123456789
)

// PayloadKind tags the shape of a Payload
type PayloadKind int

const (
	KindVector PayloadKind = iota
	KindText
	KindNull
)

// Payload is a generated vector input. Exactly one of Values or Text is meaningful,
// depending on Kind; a KindNull payload carries neither.
type Payload struct {
	Kind   PayloadKind
	Values []float64
	Text   string
}

// Len returns the number of vector elements, or -1 for text and null payloads
func (p Payload) Len() int {
	if p.Kind != KindVector {
		return -1
	}
	return len(p.Values)
}

// Literal renders the payload in the bracketed list form shared by JSON, CQL and pgvector
func (p Payload) Literal() string {
	switch p.Kind {
	case KindVector:
		return FormatVector(p.Values)
	case KindText:
		return p.Text
	default:
		return "null"
	}
}

// Generator produces payloads deterministically from Seed
type Generator struct {
	Seed uint64
}

// NewGenerator returns a generator using seed
func NewGenerator(seed uint64) *Generator {
	return &Generator{Seed: seed}
}

// Generate produces the payload for a value class and variant at the given dimension.
// Classes that are expected to be rejected still produce a well formed payload.
func (g *Generator) Generate(dimension int, class types.ValueClass, variant types.Variant) Payload {
	switch class {
	case types.ValueValid:
		return Payload{Kind: KindVector, Values: g.valid(dimension, variant)}
	case types.ValueWrongDimension:
		n := dimension + 1
		if variant == types.VariantShort {
			n = dimension - 1
		}
		return Payload{Kind: KindVector, Values: g.Vector(max(n, 0), g.Seed)}
	case types.ValueEmpty:
		return Payload{Kind: KindVector, Values: []float64{}}
	case types.ValueNaN:
		return Payload{Kind: KindVector, Values: withSpecial(g.Vector(dimension, g.Seed), math.NaN())}
	case types.ValueInfinite:
		return Payload{Kind: KindVector, Values: withSpecial(g.Vector(dimension, g.Seed), math.Inf(1))}
	case types.ValueNonNumericEncoding:
		return Payload{Kind: KindText, Text: FormatVector(g.Vector(dimension, g.Seed))}
	default:
		return Payload{Kind: KindNull}
	}
}

func (g *Generator) valid(dimension int, variant types.Variant) []float64 {
	switch variant {
	case types.VariantVerySmall:
		return constant(dimension, VerySmallValue)
	case types.VariantVeryLarge:
		return constant(dimension, VeryLargeValue)
	case types.VariantHighPrecision:
		return constant(dimension, HighPrecisionValue)
	case types.VariantMixedRange:
		cycle := []float64{VerySmallValue, VeryLargeValue, 0, 1}
		out := make([]float64, dimension)
		for i := range out {
			out[i] = cycle[i%len(cycle)]
		}
		return out
	default:
		return g.Vector(dimension, g.Seed)
	}
}

// Vector returns a unit length vector drawn from a standard normal distribution seeded by seed
func (g *Generator) Vector(dimension int, seed uint64) []float64 {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	out := make([]float64, dimension)
	var norm float64
	for i := range out {
		out[i] = rng.NormFloat64()
		norm += out[i] * out[i]
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return out
	}
	for i := range out {
		// round-trip through float32 to match what a vector<float> column stores
		out[i] = float64(float32(out[i] / norm))
	}
	return out
}

// Batch returns n valid vectors, the i-th seeded with Seed+i
func (g *Generator) Batch(dimension, n int) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		out[i] = g.Vector(dimension, g.Seed+uint64(i))
	}
	return out
}

// Neighbors returns n deterministic perturbations of ref with normally distributed noise
func (g *Generator) Neighbors(ref []float64, n int, noise float64) [][]float64 {
	rng := rand.New(rand.NewPCG(g.Seed+99, uint64(len(ref))))
	out := make([][]float64, n)
	for i := range out {
		v := make([]float64, len(ref))
		for j, x := range ref {
			v[j] = x + rng.NormFloat64()*noise
		}
		out[i] = v
	}
	return out
}

// FormatVector renders values as a bracketed, comma separated list. Special values are
// written as the NaN, Infinity and -Infinity tokens accepted by CQL and lenient JSON parsers.
func FormatVector(values []float64) string {
	var b strings.Builder
	b.Grow(len(values) * 12)
	b.WriteByte('[')
	for i, v := range values {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(FormatFloat(v))
	}
	b.WriteByte(']')
	return b.String()
}

// FormatFloat renders a single element using the same tokens as FormatVector
func FormatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// withSpecial replaces the middle element; a zero length vector is returned unchanged
func withSpecial(values []float64, special float64) []float64 {
	if len(values) == 0 {
		return values
	}
	values[len(values)/2] = special
	return values
}
