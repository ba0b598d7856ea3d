package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/agentic-research/shape/internal/store"
)

func (a *app) analyzeCmd() *cobra.Command {
	var out, name string
	c := &cobra.Command{
		Use:   "analyze [source...]",
		Short: "Reconcile the structure of JSON documents",
		Long: `Analyze walks every record of the given files, directories and SQLite
databases and prints the reconciled structure tree. With --out the tree is
written as a snapshot file instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			an, res, err := a.analyze(cmd.Context(), args)
			if err != nil {
				return err
			}
			a.log.WithField("elapsed", time.Since(start)).Debug("analyze done")
			if len(res.FailedRecords) > 0 {
				a.log.WithField("records", res.FailedRecords).Warn("some records were skipped")
			}
			if out == "" {
				return writeJSON(cmd.OutOrStdout(), an.Tree().GetData())
			}
			if name == "" {
				name = a.cfg.Store.Name
			}
			path, err := a.abs(out)
			if err != nil {
				return err
			}
			return store.WriteFile(a.fs, path, store.Take(name, an.Tree()))
		},
	}
	c.Flags().StringVarP(&out, "out", "o", "", "Write a snapshot file (.json, .yaml) instead of printing")
	c.Flags().StringVar(&name, "name", "", "Snapshot name (default from config store.name)")
	return c
}

func (a *app) headersCmd() *cobra.Command {
	var out string
	c := &cobra.Command{
		Use:   "headers [source...]",
		Short: "Assign tabular header names to every node",
		RunE: func(cmd *cobra.Command, args []string) error {
			an, _, err := a.analyze(cmd.Context(), args)
			if err != nil {
				return err
			}
			tree := an.Tree()
			tree.GenerateHeaderNames()
			if out == "" {
				return writeJSON(cmd.OutOrStdout(), tree.GetData())
			}
			path, err := a.abs(out)
			if err != nil {
				return err
			}
			return store.WriteFile(a.fs, path, store.Take(a.cfg.Store.Name, tree))
		},
	}
	c.Flags().StringVarP(&out, "out", "o", "", "Write a snapshot file (.json, .yaml) instead of printing")
	return c
}
