package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/born-ml/graphc/internal/backend"
	"github.com/born-ml/graphc/internal/config"
	"github.com/born-ml/graphc/internal/graph"
	"github.com/born-ml/graphc/internal/onnx"
	"github.com/born-ml/graphc/internal/optimizer"
)

// NewCLI builds the root command.
func NewCLI(out, logW io.Writer) *cobra.Command {
	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:           "graphc",
		Short:         "Neural network graph compiler",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(logW)

	rootCmd.PersistentFlags().StringP("config", "c", "", "HCL compiler configuration file")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("stand-in", false, "Keep operators without a converter as StandIn layers")

	rootCmd.AddCommand(
		newOptimizeCmd(),
		newLayersCmd(),
		newSupportCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

func newOptimizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "optimize MODEL [MODEL...]",
		Short: "Compile ONNX models and summarize the result",
		Args:  cobra.MinimumNArgs(1),
		RunE:  OptimizeHandler,
	}
	cmd.Flags().Bool("passes", false, "Show what every pass changed")
	cmd.Flags().IntP("jobs", "j", 0, "Models compiled concurrently (default: GOMAXPROCS)")
	return cmd
}

func newLayersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "layers MODEL",
		Short: "Compile an ONNX model and list its layers in execution order",
		Args:  cobra.ExactArgs(1),
		RunE:  LayersHandler,
	}
}

func newSupportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "support",
		Short: "List supported ONNX operators and declared backend capabilities",
		Args:  cobra.NoArgs,
		RunE:  SupportHandler,
	}
	cmd.Flags().Bool("onnx", false, "List ONNX operators only")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "graphc version %s (%s)\n", version, runtime.Version())
		},
	}
}

// session is the state shared by the compiling commands.
type session struct {
	cfg      *config.Config
	registry *backend.Registry
	logger   *slog.Logger
	standIn  bool
}

func newSession(cmd *cobra.Command) (*session, error) {
	logger, err := newLogger(cmd)
	if err != nil {
		return nil, err
	}

	cfg := config.Default()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
		logger.Debug("loaded configuration", "path", path, "candidates", cfg.Candidates, "profiles", len(cfg.Profiles))
	}
	cfg.Options.Logger = logger

	reg, err := cfg.Registry(logger)
	if err != nil {
		return nil, err
	}
	standIn, _ := cmd.Flags().GetBool("stand-in")
	return &session{cfg: cfg, registry: reg, logger: logger, standIn: standIn}, nil
}

func newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	name, _ := cmd.Flags().GetString("log-level")
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", name, err)
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})), nil
}

// compile imports and optimizes one model. Every call builds its own graph.
func (s *session) compile(path string) (*optimizer.OptimizedNetwork, error) {
	logger := s.logger.With("model", filepath.Base(path))
	model, err := onnx.ImportFile(path, onnx.ImportOptions{StandInUnknown: s.standIn, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	opts := s.cfg.Options
	opts.Logger = logger
	net, err := optimizer.Optimize(model.Graph, s.registry, s.cfg.Candidates, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return net, nil
}

// OptimizeHandler compiles every model argument concurrently.
func OptimizeHandler(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	jobs, _ := cmd.Flags().GetInt("jobs")
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	nets := make([]*optimizer.OptimizedNetwork, len(args))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(jobs)
	for i, path := range args {
		g.Go(func() error {
			if err := context.Cause(ctx); err != nil {
				return err
			}
			net, err := s.compile(path)
			if err != nil {
				return err
			}
			nets[i] = net
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var data [][]string
	for i, net := range nets {
		blocks, err := net.Blocks()
		if err != nil {
			return fmt.Errorf("%s: %w", args[i], err)
		}
		data = append(data, []string{
			filepath.Base(args[i]),
			strconv.Itoa(net.Graph.CountLayers()),
			strconv.Itoa(len(blocks)),
			backendCounts(net.Graph),
			strconv.Itoa(len(net.Unsupported)),
		})
	}
	out := cmd.OutOrStdout()
	renderTable(out, []string{"MODEL", "LAYERS", "BLOCKS", "BACKENDS", "UNSUPPORTED"}, data)

	if showPasses, _ := cmd.Flags().GetBool("passes"); showPasses {
		var passes [][]string
		for i, net := range nets {
			for _, p := range net.Passes {
				passes = append(passes, []string{
					filepath.Base(args[i]), p.Pass,
					strconv.Itoa(p.Substitutions), strconv.Itoa(p.Deletions),
				})
			}
		}
		fmt.Fprintln(out)
		renderTable(out, []string{"MODEL", "PASS", "SUBSTITUTIONS", "DELETIONS"}, passes)
	}

	for i, net := range nets {
		for _, u := range net.Unsupported {
			fmt.Fprintf(out, "%s: %s %q: %s\n", filepath.Base(args[i]), u.Layer.Type(), u.Layer.DisplayName(), u.Reason)
		}
	}
	return nil
}

// backendCounts formats how many layers each backend received.
func backendCounts(g *graph.Graph) string {
	counts := make(map[backend.ID]int)
	for _, l := range g.Layers() {
		if id := l.BackendID(); id != "" {
			counts[id]++
		}
	}
	ids := make([]backend.ID, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%s=%d", id, counts[id])
	}
	return strings.Join(parts, " ")
}

// LayersHandler prints the operator blocks of one compiled model.
func LayersHandler(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	net, err := s.compile(args[0])
	if err != nil {
		return err
	}
	blocks, err := net.Blocks()
	if err != nil {
		return err
	}

	data := make([][]string, 0, len(blocks))
	for i, b := range blocks {
		l := b.Layer
		var outputs []string
		for j := 0; j < l.NumOutputSlots(); j++ {
			outputs = append(outputs, l.OutputSlot(j).TensorInfo().String())
		}
		data = append(data, []string{
			strconv.Itoa(i), l.DisplayName(), l.Type().String(), string(l.BackendID()), strings.Join(outputs, "; "),
		})
	}
	renderTable(cmd.OutOrStdout(), []string{"#", "NAME", "TYPE", "BACKEND", "OUTPUT"}, data)
	return nil
}

// SupportHandler lists the converters of the ONNX importer and the rules of
// every configured backend profile.
func SupportHandler(cmd *cobra.Command, _ []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	ops := onnx.NewRegistry().SupportedOps()
	data := make([][]string, len(ops))
	for i, op := range ops {
		data[i] = []string{op}
	}
	renderTable(out, []string{"ONNX OPERATOR"}, data)

	if onlyONNX, _ := cmd.Flags().GetBool("onnx"); onlyONNX {
		return nil
	}

	fmt.Fprintf(out, "\ncandidates: %s\n", joinIDs(s.cfg.Candidates))
	var rules [][]string
	for _, p := range s.cfg.Profiles {
		for _, lt := range graph.LayerTypes() {
			r, ok := p.Rules[lt]
			if !ok {
				continue
			}
			rank := "-"
			if r.MaxRank > 0 {
				rank = strconv.Itoa(r.MaxRank)
			}
			rules = append(rules, []string{string(p.ID), lt.String(), joinAny(r.DataTypes), joinAny(r.Layouts), rank})
		}
	}
	if len(rules) > 0 {
		fmt.Fprintln(out)
		renderTable(out, []string{"BACKEND", "LAYER", "DATA TYPES", "LAYOUTS", "MAX RANK"}, rules)
	}
	return nil
}

func joinIDs(ids []backend.ID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ", ")
}

func joinAny[T fmt.Stringer](vs []T) string {
	if len(vs) == 0 {
		return "any"
	}
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return strings.Join(parts, ",")
}

func renderTable(w io.Writer, header []string, data [][]string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()
}
