package registry

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"sync"

	"github.com/ethereum/go-ethereum/log"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/killrvideo/vector-acceptor/types"
)

//go:embed matrix.schema.json
var matrixSchemaJSON []byte

var (
	matrixSchema *jsonschema.Schema
	compileOnce  sync.Once
	compileErr   error
)

// MatrixConfig is the optional YAML file that overrides the default test matrix
type MatrixConfig struct {
	Dimensions   []int           `yaml:"dimensions,omitempty"`
	Surfaces     []string        `yaml:"surfaces,omitempty"`
	Expectations map[string]bool `yaml:"expectations,omitempty"`
}

// Registry holds the expanded, ordered case list for a run. It is not modified after
// NewRegistry returns.
type Registry struct {
	cases []types.TestCase
}

// Config contains registry configuration
type Config struct {
	Log        log.Logger
	Dimensions []int
	Surfaces   []types.ApiSurface
	Keyspace   string
	MatrixFile string // optional; its dimensions and surfaces replace the flag values
}

// NewRegistry creates a registry and expands its case list
func NewRegistry(cfg Config) (*Registry, error) {
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}

	expectations := make(map[types.ValueClass]bool, len(DefaultExpectations))
	for k, v := range DefaultExpectations {
		expectations[k] = v
	}

	dimensions := cfg.Dimensions
	surfaces := cfg.Surfaces
	if cfg.MatrixFile != "" {
		matrix, err := LoadMatrix(cfg.MatrixFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load matrix: %w", err)
		}
		if len(matrix.Dimensions) > 0 {
			dimensions = matrix.Dimensions
		}
		if len(matrix.Surfaces) > 0 {
			fromFile, err := parseSurfaces(matrix.Surfaces)
			if err != nil {
				return nil, err
			}
			// skip flags still apply on top of the file
			surfaces = intersect(fromFile, cfg.Surfaces)
		}
		for name, v := range matrix.Expectations {
			vc, err := types.ParseValueClass(name)
			if err != nil {
				return nil, fmt.Errorf("invalid expectation override: %w", err)
			}
			if DefaultExpectations[vc] != v {
				cfg.Log.Warn("Overriding default expectation", "value_class", vc, "should_succeed", v)
			}
			expectations[vc] = v
		}
	}

	if err := ValidateDimensions(dimensions); err != nil {
		return nil, err
	}

	r := &Registry{
		cases: ExpandWith(dimensions, surfaces, expectations, cfg.Keyspace),
	}
	cfg.Log.Debug("Registry loaded", "dimensions", dimensions, "surfaces", surfaces, "len(cases)", len(r.cases))
	return r, nil
}

// Cases returns a copy of the ordered case list
func (r *Registry) Cases() []types.TestCase {
	out := make([]types.TestCase, len(r.cases))
	copy(out, r.cases)
	return out
}

// Surfaces returns the distinct surfaces present in the case list, in order of first use
func (r *Registry) Surfaces() []types.ApiSurface {
	var out []types.ApiSurface
	for _, tc := range r.cases {
		if !slices.Contains(out, tc.Surface) {
			out = append(out, tc.Surface)
		}
	}
	return out
}

// Dimensions returns the distinct dimensions present in the case list, in order of first use
func (r *Registry) Dimensions() []int {
	var out []int
	for _, tc := range r.cases {
		if !slices.Contains(out, tc.Dimension) {
			out = append(out, tc.Dimension)
		}
	}
	return out
}

// LoadMatrix reads a YAML matrix file and validates it against the embedded schema
func LoadMatrix(path string) (*MatrixConfig, error) {
	log.Debug("Reading matrix file", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading matrix file: %w", err)
	}
	return ParseMatrix(data)
}

// ParseMatrix validates YAML matrix data and decodes it
func ParseMatrix(data []byte) (*MatrixConfig, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing matrix file: %w", err)
	}
	if raw == nil {
		return &MatrixConfig{}, nil
	}
	// the schema validator works on JSON-shaped values
	asJSON, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("converting matrix file: %w", err)
	}
	if err := ValidateMatrix(asJSON); err != nil {
		return nil, err
	}

	var cfg MatrixConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing matrix file: %w", err)
	}
	return &cfg, nil
}

func compileSchema() error {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(matrixSchemaJSON))
		if err != nil {
			compileErr = fmt.Errorf("unmarshal matrix schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("matrix.schema.json", doc); err != nil {
			compileErr = fmt.Errorf("add matrix schema resource: %w", err)
			return
		}
		matrixSchema, err = compiler.Compile("matrix.schema.json")
		if err != nil {
			compileErr = fmt.Errorf("compile matrix schema: %w", err)
		}
	})
	return compileErr
}

// ValidateMatrix validates JSON data against the matrix schema
func ValidateMatrix(data []byte) error {
	if err := compileSchema(); err != nil {
		return err
	}

	v, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := matrixSchema.Validate(v); err != nil {
		return fmt.Errorf("matrix validation failed: %w", err)
	}
	return nil
}

func parseSurfaces(names []string) ([]types.ApiSurface, error) {
	out := make([]types.ApiSurface, 0, len(names))
	for _, name := range names {
		s, err := types.ParseApiSurface(name)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func intersect(a, b []types.ApiSurface) []types.ApiSurface {
	allowed := make(map[types.ApiSurface]bool, len(b))
	for _, s := range b {
		allowed[s] = true
	}
	var out []types.ApiSurface
	for _, s := range a {
		if allowed[s] {
			out = append(out, s)
		}
	}
	return out
}
