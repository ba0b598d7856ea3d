package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	json "github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/agentic-research/shape/api"
	"github.com/agentic-research/shape/internal/analyzer"
	"github.com/agentic-research/shape/internal/config"
	"github.com/agentic-research/shape/internal/ingest"
	"github.com/agentic-research/shape/internal/store"
	"github.com/agentic-research/shape/internal/structure"
)

// app is the state shared by every command of one invocation.
type app struct {
	fs  billy.Filesystem
	log *logrus.Logger
	cfg config.Config

	configPath string
	logLevel   string
	snapshot   string
	rootType   string
	strict     bool
	onError    string
	selector   string
	noUpgrade  bool
	upgradeSet bool
}

func newRootCmd() *cobra.Command {
	a := &app{
		fs:  osfs.New("/"),
		log: logrus.New(),
	}
	a.log.SetOutput(os.Stderr)

	root := &cobra.Command{
		Use:           "shape",
		Short:         "Infer and reconcile the structure of JSON documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "Path to HCL config (default ./"+config.DefaultFile+" when present)")
	pf.StringVar(&a.logLevel, "log-level", "info", "Log level: panic, fatal, error, warn, info, debug, trace")
	pf.StringVarP(&a.snapshot, "snapshot", "s", "", "Start from a snapshot file (.json, .yaml)")
	pf.StringVar(&a.rootType, "root-type", "", "Top-level type name documents are recorded under")
	pf.BoolVar(&a.strict, "strict-types", false, "Record string, integer, double and boolean instead of scalar")
	pf.StringVar(&a.onError, "on-error", "", "Per-document error policy: abort or skip")
	pf.StringVar(&a.selector, "selector", "", "JSONPath applied to every record")
	pf.BoolVar(&a.noUpgrade, "no-auto-upgrade", false, "Disable reinterpreting values as arrays")

	root.AddCommand(
		a.analyzeCmd(),
		a.headersCmd(),
		a.columnsCmd(),
		a.treeCmd(),
		a.exportCmd(),
		a.schemaCmd(),
		a.serveCmd(),
		a.snapshotCmd(),
	)
	return root
}

// setup configures logging and resolves the configuration: file values
// over defaults, flags over both.
func (a *app) setup(cmd *cobra.Command) error {
	level, err := logrus.ParseLevel(a.logLevel)
	if err != nil {
		return err
	}
	a.log.SetLevel(level)

	path, required := a.configPath, true
	if path == "" {
		path, required = config.DefaultFile, false
	}
	if path, err = filepath.Abs(path); err != nil {
		return err
	}
	if a.cfg, err = config.Load(a.fs, path, required); err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("root-type") {
		a.cfg.RootType = a.rootType
	}
	if flags.Changed("strict-types") {
		a.cfg.StrictTypes = a.strict
	}
	if flags.Changed("no-auto-upgrade") {
		a.cfg.AutoUpgradeToArray = !a.noUpgrade
		a.upgradeSet = true
	}
	if flags.Changed("selector") {
		a.cfg.Selector = a.selector
	}
	if flags.Changed("on-error") {
		if a.cfg.OnError, err = analyzer.ParseErrorPolicy(a.onError); err != nil {
			return err
		}
	}
	return a.cfg.Validate()
}

func (a *app) abs(path string) (string, error) {
	p, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	return p, nil
}

// source opens the inputs named on the command line.
func (a *app) source(paths []string) (ingest.Source, error) {
	var sel *ingest.Selector
	if a.cfg.Selector != "" {
		var err error
		if sel, err = ingest.NewSelector(a.cfg.Selector); err != nil {
			return nil, err
		}
	}
	abs := make([]string, 0, len(paths))
	for _, p := range paths {
		ap, err := a.abs(p)
		if err != nil {
			return nil, err
		}
		abs = append(abs, ap)
	}
	return ingest.Open(a.fs, abs, sel, a.log), nil
}

// newTree starts from --snapshot when given, otherwise from an empty tree.
// A restored tree keeps its recorded auto-upgrade setting unless
// --no-auto-upgrade is passed.
func (a *app) newTree(extra ...structure.Option) (*structure.Structure, error) {
	opts := a.cfg.StructureOptions()
	if a.snapshot != "" && !a.upgradeSet {
		opts = []structure.Option{structure.WithMetadataKeys(a.cfg.MetadataKeys...)}
	}
	opts = append(opts, structure.WithLogger(a.log))
	opts = append(opts, extra...)
	if a.snapshot == "" {
		return structure.New(opts...), nil
	}
	path, err := a.abs(a.snapshot)
	if err != nil {
		return nil, err
	}
	snap, err := store.ReadFile(a.fs, path)
	if err != nil {
		return nil, err
	}
	return store.Restore(snap, opts...)
}

var errNoInput = errors.New("no input: pass files, directories or .db files, or --snapshot")

// analyze builds the tree for the command: the snapshot, if any, extended
// with every record of paths.
func (a *app) analyze(ctx context.Context, paths []string, opts ...analyzer.Option) (*analyzer.Analyzer, api.AnalyzeResult, error) {
	var res api.AnalyzeResult
	if len(paths) == 0 && a.snapshot == "" {
		return nil, res, errNoInput
	}
	tree, err := a.newTree()
	if err != nil {
		return nil, res, err
	}
	return a.run(ctx, tree, paths, opts...)
}

func (a *app) run(ctx context.Context, tree *structure.Structure, paths []string, opts ...analyzer.Option) (*analyzer.Analyzer, api.AnalyzeResult, error) {
	var res api.AnalyzeResult
	opts = append([]analyzer.Option{analyzer.WithLogger(a.log)}, opts...)
	an := analyzer.New(tree, a.cfg.Analyzer(), opts...)
	if len(paths) == 0 {
		return an, res, nil
	}
	src, err := a.source(paths)
	if err != nil {
		return nil, res, err
	}
	res, err = an.Run(ctx, src)
	if err != nil {
		return nil, res, err
	}
	a.log.WithFields(logrus.Fields{
		"documents": res.Documents,
		"failed":    res.Failed,
	}).Info("analyzed")
	return an, res, nil
}

func writeJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// Execute runs the root command.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
