package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentic-research/shape/api"
	"github.com/agentic-research/shape/internal/store"
)

func (a *app) snapshotCmd() *cobra.Command {
	var dbPath string
	c := &cobra.Command{
		Use:   "snapshot",
		Short: "Keep a history of structure trees in a SQLite database",
	}
	c.PersistentFlags().StringVar(&dbPath, "db", "", "Snapshot database (default from config store.path)")

	open := func(cmd *cobra.Command) (*store.DB, error) {
		if dbPath == "" {
			dbPath = a.cfg.Store.Path
		}
		path, err := a.abs(dbPath)
		if err != nil {
			return nil, err
		}
		return store.Open(cmd.Context(), path)
	}

	var name string
	save := &cobra.Command{
		Use:   "save [source...]",
		Short: "Analyze sources and append the tree to the history",
		RunE: func(cmd *cobra.Command, args []string) error {
			an, _, err := a.analyze(cmd.Context(), args)
			if err != nil {
				return err
			}
			db, err := open(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()
			if name == "" {
				name = a.cfg.Store.Name
			}
			id, err := db.Save(cmd.Context(), store.Take(name, an.Tree()))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
			return err
		},
	}
	save.Flags().StringVar(&name, "name", "", "Snapshot name (default from config store.name)")

	var out string
	restore := &cobra.Command{
		Use:   "restore [id]",
		Short: "Write a saved tree to a snapshot file, by id or the latest of --name",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := open(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			var snap api.Snapshot
			if len(args) == 1 {
				snap, err = db.Get(cmd.Context(), args[0])
			} else {
				if name == "" {
					name = a.cfg.Store.Name
				}
				snap, err = db.Latest(cmd.Context(), name)
			}
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("no snapshot found: %w", err)
			}
			if err != nil {
				return err
			}
			if _, err := store.Restore(snap); err != nil {
				return err
			}
			if out == "" {
				return writeJSON(cmd.OutOrStdout(), snap)
			}
			path, err := a.abs(out)
			if err != nil {
				return err
			}
			return store.WriteFile(a.fs, path, snap)
		},
	}
	restore.Flags().StringVar(&name, "name", "", "Snapshot name (default from config store.name)")
	restore.Flags().StringVarP(&out, "out", "o", "", "Snapshot file to write (.json, .yaml)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List saved snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := open(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()
			snaps, err := db.List(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "ID\tNAME\tCREATED")
			for _, s := range snaps {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", s.ID, s.Name, s.Created.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}

	c.AddCommand(save, restore, list)
	return c
}
