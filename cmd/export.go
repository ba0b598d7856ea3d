package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentic-research/shape/internal/flatten"
	"github.com/agentic-research/shape/internal/ingest"
	"github.com/agentic-research/shape/internal/schemagen"
)

func (a *app) exportCmd() *cobra.Command {
	var format, out string
	c := &cobra.Command{
		Use:   "export --out PATH source...",
		Short: "Flatten documents into CSV files or an XLSX workbook",
		Long: `Export analyzes the sources, then reads them again and writes one table
per array of the reconciled tree. Child tables reference their parent
row through the JSON_parentId column. Records the analysis skipped are
left out of the tables.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			an, res, err := a.analyze(ctx, args)
			if err != nil {
				return err
			}
			skipped := make(map[string]bool, len(res.FailedRecords))
			for _, id := range res.FailedRecords {
				skipped[id] = true
			}
			f, err := flatten.New(an.Tree(), a.cfg.RootType)
			if err != nil {
				return err
			}
			src, err := a.source(args)
			if err != nil {
				return err
			}
			err = src.Records(ctx, func(r ingest.Record) error {
				if skipped[r.ID] {
					return nil
				}
				if err := f.AddJSON(r.Raw); err != nil {
					return fmt.Errorf("record %s: %w", r.ID, err)
				}
				return nil
			})
			if err != nil {
				return err
			}
			path, err := a.abs(out)
			if err != nil {
				return err
			}
			switch format {
			case "csv":
				err = flatten.WriteCSV(a.fs, path, f.Tables())
			case "xlsx":
				err = flatten.WriteXLSX(a.fs, path, f.Tables())
			default:
				return fmt.Errorf("unknown format %q: want csv or xlsx", format)
			}
			if err != nil {
				return err
			}
			a.log.WithField("tables", len(f.Tables())).WithField("out", path).Info("exported")
			return nil
		},
	}
	c.Flags().StringVarP(&format, "format", "f", "csv", "Output format: csv (a directory) or xlsx (a file)")
	c.Flags().StringVarP(&out, "out", "o", "", "Output directory (csv) or file (xlsx)")
	_ = c.MarkFlagRequired("out")
	return c
}

func (a *app) schemaCmd() *cobra.Command {
	var format, pkg string
	c := &cobra.Command{
		Use:   "schema [source...]",
		Short: "Generate an OpenAPI schema or Go types from the structure",
		RunE: func(cmd *cobra.Command, args []string) error {
			an, _, err := a.analyze(cmd.Context(), args)
			if err != nil {
				return err
			}
			tree := an.Tree()
			switch format {
			case "openapi":
				tree.GenerateHeaderNames()
				s, err := schemagen.OpenAPI(tree, a.cfg.RootType)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), s)
			case "go":
				src, err := schemagen.GoTypes(tree, a.cfg.RootType, pkg)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(src)
				return err
			}
			return fmt.Errorf("unknown format %q: want openapi or go", format)
		},
	}
	c.Flags().StringVarP(&format, "format", "f", "openapi", "Output format: openapi or go")
	c.Flags().StringVar(&pkg, "package", "model", "Package name of generated Go source")
	return c
}
