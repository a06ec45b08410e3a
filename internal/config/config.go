// Package config loads compiler settings from HCL files.
//
// A configuration file looks like:
//
//	compiler {
//	  backends            = ["NpuAcc", "CpuRef"]
//	  shape_inference     = "infer_and_validate"
//	  reduce_fp32_to_fp16 = false
//	  allow_unsupported   = false
//	  fuse_activations    = ["ReLu", "BoundedReLu"]
//	}
//
//	backend "NpuAcc" {
//	  layer "Convolution2d" {
//	    data_types = ["qasymmu8"]
//	    layouts    = ["NHWC"]
//	  }
//	  layer "Activation" {
//	    data_types = concat(types.quantized, ["float16"])
//	    max_rank   = 4
//	  }
//	}
//
// Every backend block becomes a capability profile; the compiler block picks
// the candidate backends in priority order. Expressions may use the
// types.float, types.quantized and types.all element type lists and the
// concat function.
package config

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"

	"github.com/born-ml/graphc/internal/backend"
	"github.com/born-ml/graphc/internal/backend/cpu"
	"github.com/born-ml/graphc/internal/backend/profile"
	"github.com/born-ml/graphc/internal/graph"
	"github.com/born-ml/graphc/internal/optimizer"
	"github.com/born-ml/graphc/internal/tensor"
)

// Shape inference modes accepted by compiler.shape_inference.
const (
	InferAndValidate = "infer_and_validate"
	ValidateOnly     = "validate_only"
)

// hclFile is the decoding target of a configuration file.
type hclFile struct {
	Compiler *hclCompiler  `hcl:"compiler,block"`
	Backends []*hclBackend `hcl:"backend,block"`
}

type hclCompiler struct {
	Backends         []string `hcl:"backends,optional"`
	ShapeInference   string   `hcl:"shape_inference,optional"`
	ReduceFp32ToFp16 bool     `hcl:"reduce_fp32_to_fp16,optional"`
	AllowUnsupported bool     `hcl:"allow_unsupported,optional"`
	FuseActivations  []string `hcl:"fuse_activations,optional"`
	Passes           []string `hcl:"passes,optional"`
}

type hclBackend struct {
	ID     string      `hcl:"id,label"`
	Layers []*hclLayer `hcl:"layer,block"`
}

type hclLayer struct {
	Type      string   `hcl:"type,label"`
	DataTypes []string `hcl:"data_types,optional"`
	Layouts   []string `hcl:"layouts,optional"`
	MaxRank   int      `hcl:"max_rank,optional"`
}

// Config is a resolved configuration.
type Config struct {
	// Candidates lists the backends to try, in priority order.
	Candidates []backend.ID
	// Options are passed to optimizer.Optimize. Logger is left unset.
	Options optimizer.Options
	// Profiles are the declared backends.
	Profiles []profile.Profile
}

// Default returns the configuration used without a file: the reference CPU
// backend and default optimizer options.
func Default() *Config {
	return &Config{Candidates: []backend.ID{backend.CpuRef}}
}

// Load reads and resolves an HCL configuration file.
func Load(path string) (*Config, error) {
	parser := hclparse.NewParser()
	f, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}
	return decode(f.Body, path)
}

// Parse resolves configuration source; filename is used in diagnostics.
func Parse(src []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	f, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	return decode(f.Body, filename)
}

func decode(body hcl.Body, filename string) (*Config, error) {
	var parsed hclFile
	if diags := gohcl.DecodeBody(body, evalContext(), &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}
	cfg, err := parsed.resolve()
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", filename, err)
	}
	return cfg, nil
}

// evalContext exposes the element type groups to configuration expressions.
func evalContext() *hcl.EvalContext {
	var float, quantized, all []cty.Value
	for dt := tensor.Float32; dt <= tensor.Boolean; dt++ {
		v := cty.StringVal(dt.String())
		all = append(all, v)
		switch {
		case dt.IsFloat():
			float = append(float, v)
		case dt.IsQuantized():
			quantized = append(quantized, v)
		}
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"types": cty.ObjectVal(map[string]cty.Value{
				"float":     cty.ListVal(float),
				"quantized": cty.ListVal(quantized),
				"all":       cty.ListVal(all),
			}),
		},
		Functions: map[string]function.Function{
			"concat": stdlib.ConcatFunc,
		},
	}
}

func (f *hclFile) resolve() (*Config, error) {
	cfg := Default()

	for _, b := range f.Backends {
		p, err := b.profile()
		if err != nil {
			return nil, err
		}
		if p.ID == backend.CpuRef || slices.ContainsFunc(cfg.Profiles, func(q profile.Profile) bool { return q.ID == p.ID }) {
			return nil, fmt.Errorf("backend %q declared twice", p.ID)
		}
		cfg.Profiles = append(cfg.Profiles, p)
	}

	c := f.Compiler
	if c == nil {
		return cfg, nil
	}
	if len(c.Backends) > 0 {
		cfg.Candidates = cfg.Candidates[:0]
		for _, name := range c.Backends {
			id := backend.ID(name)
			if !cfg.known(id) {
				return nil, fmt.Errorf("compiler.backends: unknown backend %q", name)
			}
			cfg.Candidates = append(cfg.Candidates, id)
		}
	}

	switch c.ShapeInference {
	case "", InferAndValidate:
	case ValidateOnly:
		cfg.Options.ValidateOnly = true
	default:
		return nil, fmt.Errorf("compiler.shape_inference: %q is neither %q nor %q", c.ShapeInference, InferAndValidate, ValidateOnly)
	}
	cfg.Options.ReduceFp32ToFp16 = c.ReduceFp32ToFp16
	cfg.Options.AllowUnsupported = c.AllowUnsupported

	if c.FuseActivations != nil {
		cfg.Options.FuseActivations = []graph.ActivationFunction{}
		for _, name := range c.FuseActivations {
			fn, err := parseActivation(name)
			if err != nil {
				return nil, fmt.Errorf("compiler.fuse_activations: %w", err)
			}
			cfg.Options.FuseActivations = append(cfg.Options.FuseActivations, fn)
		}
	}

	if c.Passes != nil {
		byName := make(map[string]optimizer.Pass)
		for _, p := range optimizer.DefaultPasses() {
			byName[p.Name()] = p
		}
		cfg.Options.Passes = []optimizer.Pass{}
		for _, name := range c.Passes {
			p, ok := byName[name]
			if !ok {
				return nil, fmt.Errorf("compiler.passes: unknown pass %q", name)
			}
			cfg.Options.Passes = append(cfg.Options.Passes, p)
		}
	}
	return cfg, nil
}

func (c *Config) known(id backend.ID) bool {
	if id == backend.CpuRef {
		return true
	}
	return slices.ContainsFunc(c.Profiles, func(p profile.Profile) bool { return p.ID == id })
}

func (b *hclBackend) profile() (profile.Profile, error) {
	p := profile.Profile{ID: backend.ID(b.ID), Rules: make(map[graph.LayerType]profile.Rule, len(b.Layers))}
	if err := p.Validate(); err != nil {
		return profile.Profile{}, err
	}
	for _, l := range b.Layers {
		lt, err := graph.ParseLayerType(l.Type)
		if err != nil {
			return profile.Profile{}, fmt.Errorf("backend %q: %w", b.ID, err)
		}
		if _, dup := p.Rules[lt]; dup {
			return profile.Profile{}, fmt.Errorf("backend %q: layer %q declared twice", b.ID, l.Type)
		}
		if l.MaxRank < 0 {
			return profile.Profile{}, fmt.Errorf("backend %q: layer %q: negative max_rank %d", b.ID, l.Type, l.MaxRank)
		}

		rule := profile.Rule{MaxRank: l.MaxRank}
		for _, name := range l.DataTypes {
			dt, err := tensor.ParseDataType(name)
			if err != nil {
				return profile.Profile{}, fmt.Errorf("backend %q: layer %q: %w", b.ID, l.Type, err)
			}
			rule.DataTypes = append(rule.DataTypes, dt)
		}
		for _, name := range l.Layouts {
			layout, err := graph.ParseDataLayout(name)
			if err != nil {
				return profile.Profile{}, fmt.Errorf("backend %q: layer %q: %w", b.ID, l.Type, err)
			}
			rule.Layouts = append(rule.Layouts, layout)
		}
		p.Rules[lt] = rule
	}
	return p, nil
}

func parseActivation(name string) (graph.ActivationFunction, error) {
	for f := graph.ActivationSigmoid; f <= graph.ActivationGelu; f++ {
		if strings.EqualFold(f.String(), name) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown activation %q", name)
}

// Registry builds a backend registry holding the reference CPU backend and
// every declared profile.
func (c *Config) Registry(logger *slog.Logger) (*backend.Registry, error) {
	backends := []backend.Backend{cpu.New()}
	for _, p := range c.Profiles {
		b, err := profile.New(p)
		if err != nil {
			return nil, err
		}
		backends = append(backends, b)
	}
	return backend.NewRegistry(logger, backends...)
}
