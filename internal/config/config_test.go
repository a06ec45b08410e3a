package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/graphc/internal/backend"
	"github.com/born-ml/graphc/internal/backend/profile"
	"github.com/born-ml/graphc/internal/graph"
	"github.com/born-ml/graphc/internal/tensor"
)

const sample = `
compiler {
  backends            = ["NpuAcc", "CpuRef"]
  shape_inference     = "validate_only"
  reduce_fp32_to_fp16 = true
  fuse_activations    = ["relu", "BoundedReLu"]
  passes              = ["FoldPadIntoLayer2d", "FuseLayerSequence"]
}

backend "NpuAcc" {
  layer "Convolution2d" {
    data_types = ["qasymmu8", "float32"]
    layouts    = ["NHWC"]
  }
  layer "Activation" {
    max_rank = 4
  }
}
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sample), "sample.hcl")
	require.NoError(t, err)

	assert.Equal(t, []backend.ID{"NpuAcc", backend.CpuRef}, cfg.Candidates)
	assert.True(t, cfg.Options.ValidateOnly)
	assert.True(t, cfg.Options.ReduceFp32ToFp16)
	assert.False(t, cfg.Options.AllowUnsupported)
	assert.Equal(t, []graph.ActivationFunction{graph.ActivationReLu, graph.ActivationBoundedReLu}, cfg.Options.FuseActivations)

	var passes []string
	for _, p := range cfg.Options.Passes {
		passes = append(passes, p.Name())
	}
	assert.Equal(t, []string{"FoldPadIntoLayer2d", "FuseLayerSequence"}, passes)

	want := []profile.Profile{{
		ID: "NpuAcc",
		Rules: map[graph.LayerType]profile.Rule{
			graph.LayerConvolution2d: {
				DataTypes: []tensor.DataType{tensor.QAsymmU8, tensor.Float32},
				Layouts:   []graph.DataLayout{graph.NHWC},
			},
			graph.LayerActivation: {MaxRank: 4},
		},
	}}
	if diff := cmp.Diff(want, cfg.Profiles); diff != "" {
		t.Errorf("profiles mismatch (-want +got):\n%s", diff)
	}
}

func TestParseEmptyUsesDefaults(t *testing.T) {
	cfg, err := Parse(nil, "empty.hcl")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = Parse([]byte("compiler {}\n"), "bare.hcl")
	require.NoError(t, err)
	assert.Equal(t, []backend.ID{backend.CpuRef}, cfg.Candidates)
	assert.Nil(t, cfg.Options.Passes)
	assert.Nil(t, cfg.Options.FuseActivations)
}

func TestParseEmptyListsDisable(t *testing.T) {
	cfg, err := Parse([]byte("compiler {\n  passes = []\n  fuse_activations = []\n}\n"), "off.hcl")
	require.NoError(t, err)
	assert.NotNil(t, cfg.Options.Passes)
	assert.Empty(t, cfg.Options.Passes)
	assert.NotNil(t, cfg.Options.FuseActivations)
	assert.Empty(t, cfg.Options.FuseActivations)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		msg  string
	}{
		{"syntax", "compiler {", "failed to parse HCL file"},
		{"unknown attribute", "compiler {\n  colour = \"red\"\n}\n", "failed to decode HCL file"},
		{"unknown backend", "compiler {\n  backends = [\"GpuAcc\"]\n}\n", `unknown backend "GpuAcc"`},
		{"shape inference", "compiler {\n  shape_inference = \"guess\"\n}\n", "compiler.shape_inference"},
		{"activation", "compiler {\n  fuse_activations = [\"swish\"]\n}\n", `unknown activation "swish"`},
		{"pass", "compiler {\n  passes = [\"Inline\"]\n}\n", `unknown pass "Inline"`},
		{"layer type", "backend \"X\" {\n  layer \"Conv\" {}\n}\n", `unknown layer type "Conv"`},
		{"data type", "backend \"X\" {\n  layer \"Pad\" {\n    data_types = [\"complex64\"]\n  }\n}\n", "complex64"},
		{"layout", "backend \"X\" {\n  layer \"Pad\" {\n    layouts = [\"HWCN\"]\n  }\n}\n", `unknown data layout "HWCN"`},
		{"max rank", "backend \"X\" {\n  layer \"Pad\" {\n    max_rank = -1\n  }\n}\n", "negative max_rank"},
		{"duplicate layer", "backend \"X\" {\n  layer \"Pad\" {}\n  layer \"Pad\" {}\n}\n", "declared twice"},
		{"duplicate backend", "backend \"X\" {}\nbackend \"X\" {}\n", `backend "X" declared twice`},
		{"shadow reference", "backend \"CpuRef\" {}\n", "declared twice"},
		{"empty id", "backend \"\" {}\n", "empty backend id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), "bad.hcl")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graphc.hcl")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Profiles, 1)

	_, err = Load(filepath.Join(t.TempDir(), "missing.hcl"))
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	cfg, err := Parse([]byte(sample), "sample.hcl")
	require.NoError(t, err)

	reg, err := cfg.Registry(slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	assert.ElementsMatch(t, []backend.ID{backend.CpuRef, "NpuAcc"}, reg.IDs())

	npu, ok := reg.Get("NpuAcc")
	require.True(t, ok)
	in := tensor.NewTensorInfo(tensor.NewShape(1, 8, 8, 3), tensor.Float32)
	out := tensor.NewTensorInfo(tensor.NewShape(1, 8, 8, 3), tensor.Float32)
	supported, _ := npu.LayerSupport().IsSoftmaxSupported(in, out, graph.SoftmaxDescriptor{Beta: 1, Axis: -1})
	assert.False(t, supported, "softmax is not declared by the profile")
}

func TestParseTypeGroups(t *testing.T) {
	src := `
backend "NpuAcc" {
  layer "Activation" {
    data_types = concat(types.quantized, ["float16"])
  }
  layer "Softmax" {
    data_types = types.float
  }
}
`
	cfg, err := Parse([]byte(src), "groups.hcl")
	require.NoError(t, err)
	require.Len(t, cfg.Profiles, 1)

	rules := cfg.Profiles[0].Rules
	assert.Equal(t, []tensor.DataType{tensor.QAsymmU8, tensor.QAsymmS8, tensor.QSymmS8, tensor.QSymmS16, tensor.Float16},
		rules[graph.LayerActivation].DataTypes)
	assert.Equal(t, []tensor.DataType{tensor.Float32, tensor.Float16, tensor.BFloat16},
		rules[graph.LayerSoftmax].DataTypes)
}
