// Command treefold folds the component fixtures under pkg/fixture and
// prints what the reconciler did with every component.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/speakeasy-api/treefold/pkg/fixture"
	"github.com/speakeasy-api/treefold/reconciler"
)

type foldFlags struct {
	firstRenderOnly bool
	logLevel        string
	format          string
	verbose         bool
	metrics         bool
	color           string
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "treefold",
		Short:        "Fold component trees ahead of time",
		SilenceUsage: true,
	}
	root.AddCommand(newFoldCmd())
	return root
}

func newFoldCmd() *cobra.Command {
	var flags foldFlags
	cmd := &cobra.Command{
		Use:   "fold <fixture.yaml>",
		Short: "Fold a fixture root and every tree it queues",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFold(cmd, args[0], flags)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&flags.firstRenderOnly, "first-render-only", false, "fold for the initial mount only")
	f.StringVar(&flags.logLevel, "log-level", "", "log level: error, warn, info or debug")
	f.StringVar(&flags.format, "format", "text", "output format: text or yaml")
	f.BoolVar(&flags.verbose, "verbose", false, "log every inlined component")
	f.BoolVar(&flags.metrics, "metrics", false, "print the reconciler counters")
	f.StringVar(&flags.color, "color", "auto", "colour status tags: auto, always or never")
	return cmd
}

func runFold(cmd *cobra.Command, path string, flags foldFlags) error {
	p, err := fixture.LoadFile(path)
	if err != nil {
		return err
	}

	opts := p.Options
	if cmd.Flags().Changed("first-render-only") {
		opts.FirstRenderOnly = flags.firstRenderOnly
	}
	if cmd.Flags().Changed("log-level") {
		opts.LogLevel = flags.logLevel
	}
	if flags.verbose {
		opts.Verbose = true
		if opts.LogLevel == "" || reconciler.ParseLogLevel(opts.LogLevel) < reconciler.LevelInfo {
			opts.LogLevel = "info"
		}
	}
	opts.LogOutput = cmd.ErrOrStderr()

	reg := prometheus.NewRegistry()
	opts.Metrics = reconciler.NewMetrics(reg)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	res, foldErr := fixture.Fold(ctx, p, opts)
	if res == nil {
		return foldErr
	}

	out := cmd.OutOrStdout()
	switch flags.format {
	case "text":
		err = writeText(out, res, foldErr, useColor(out, flags.color))
	case "yaml":
		err = writeYAML(out, res, foldErr)
	default:
		return errors.Errorf("unknown format %q", flags.format)
	}
	if err != nil {
		return errors.Wrap(err, "failed to write report")
	}

	if flags.metrics {
		if err := writeMetrics(out, reg); err != nil {
			return err
		}
	}
	return foldErr
}

func useColor(w io.Writer, mode string) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func writeText(w io.Writer, res *fixture.Result, foldErr error, color bool) error {
	if err := res.Root.Render(w, color); err != nil {
		return err
	}
	sections := []struct {
		title string
		nodes []*reconciler.EvaluatedNode
	}{
		{"branches", res.Branches},
		{"closures", res.Closures},
	}
	for _, s := range sections {
		if len(s.nodes) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s:\n", s.title)
		for _, n := range s.nodes {
			if err := n.Render(w, color); err != nil {
				return err
			}
		}
	}
	failures := failureMessages(res, foldErr)
	if len(failures) > 0 {
		fmt.Fprintf(w, "\nfailures:\n")
		for _, msg := range failures {
			fmt.Fprintf(w, "  %s\n", msg)
		}
	}
	st := res.Statistics
	_, err := fmt.Fprintf(w, "\noptimized trees: %d, inlined components: %d, nested closures: %d, components evaluated: %d\n",
		st.OptimizedTrees, st.InlinedComponents, st.OptimizedNestedClosures, st.ComponentsEvaluated)
	return err
}

type yamlReport struct {
	Root       *reconciler.EvaluatedNode   `yaml:"root"`
	Branches   []*reconciler.EvaluatedNode `yaml:"branches,omitempty"`
	Closures   []*reconciler.EvaluatedNode `yaml:"closures,omitempty"`
	Failures   []string                    `yaml:"failures,omitempty"`
	Statistics reconciler.Statistics       `yaml:"statistics"`
}

func writeYAML(w io.Writer, res *fixture.Result, foldErr error) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(yamlReport{
		Root:       res.Root,
		Branches:   res.Branches,
		Closures:   res.Closures,
		Failures:   failureMessages(res, foldErr),
		Statistics: res.Statistics,
	}); err != nil {
		return err
	}
	return enc.Close()
}

func failureMessages(res *fixture.Result, foldErr error) []string {
	var out []string
	if foldErr != nil && !errors.Is(foldErr, context.Canceled) {
		out = append(out, foldErr.Error())
	}
	for _, err := range res.Failures {
		out = append(out, err.Error())
	}
	return out
}

func writeMetrics(w io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return errors.Wrap(err, "failed to gather metrics")
	}
	sort.Slice(families, func(i, j int) bool { return families[i].GetName() < families[j].GetName() })
	fmt.Fprintln(w)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			fmt.Fprintf(w, "%s %g\n", mf.GetName(), m.GetCounter().GetValue())
		}
	}
	return nil
}
