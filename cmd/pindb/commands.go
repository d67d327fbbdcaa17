package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/data-power-io/excavator-pins/internal/formats"
	"github.com/data-power-io/excavator-pins/internal/pins"
	"github.com/data-power-io/excavator-pins/internal/schema"
	"github.com/data-power-io/excavator-pins/internal/toolkit"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

// errValidation is returned by validate --strict when the report lists issues
var errValidation = errors.New("validation failed")

func (a *app) load(ctx context.Context) (*pins.Catalog, error) {
	loc, err := a.location()
	if err != nil {
		return nil, err
	}
	return a.svc.Load(ctx, loc)
}

func (a *app) validateCmd() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the dataset quality properties and print the report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			catalog, err := a.load(ctx)
			if err != nil {
				return err
			}

			report := a.svc.Validate(catalog)
			if err := printJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if strict && !report.OK() {
				return fmt.Errorf("%w: %d issues", errValidation, len(report.Issues))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when any issue is found")
	return cmd
}

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print dataset statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			catalog, err := a.load(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), a.svc.Statistics(catalog))
		},
	}
}

func (a *app) searchCmd() *cobra.Command {
	var (
		criteria       pins.Criteria
		minPin, maxPin float64
		asJSON         bool
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search records by manufacturer, model, source and stick pin diameter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			if cmd.Flags().Changed("min") {
				criteria.MinPinMM = &minPin
			}
			if cmd.Flags().Changed("max") {
				criteria.MaxPinMM = &maxPin
			}

			catalog, err := a.load(ctx)
			if err != nil {
				return err
			}

			results := catalog.Search(criteria)
			if asJSON {
				rows := make([]json.RawMessage, len(results))
				for i := range results {
					data, err := formats.MarshalRecord(&results[i])
					if err != nil {
						return err
					}
					rows[i] = data
				}
				return printJSON(cmd.OutOrStdout(), rows)
			}

			rows := make([][]string, len(results))
			for i, rec := range results {
				rows[i] = []string{rec.Manufacturer, rec.Model, pinText(rec.StickPinDiameter.MM)}
			}
			renderTable(cmd.OutOrStdout(), []string{"Manufacturer", "Model", "Stick pin mm"}, rows)
			fmt.Fprintf(cmd.OutOrStdout(), "%d records\n", len(results))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&criteria.Manufacturer, "manufacturer", "m", "", "manufacturer contains")
	flags.StringVarP(&criteria.Model, "model", "s", "", "model contains")
	flags.StringVar(&criteria.DataSource, "source", "", "data source contains")
	flags.Float64Var(&minPin, "min", 0, "minimum stick pin diameter in mm")
	flags.Float64Var(&maxPin, "max", 0, "maximum stick pin diameter in mm")
	flags.IntVar(&criteria.Limit, "limit", 0, "maximum number of results (0 for all)")
	flags.BoolVar(&asJSON, "json", false, "print full records as JSON")
	return cmd
}

func (a *app) lookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup MANUFACTURER MODEL",
		Short: "Print the pin specification of one model",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			catalog, err := a.load(ctx)
			if err != nil {
				return err
			}

			rec, err := catalog.Lookup(args[0], args[1])
			if err != nil {
				return fmt.Errorf("%s %s: %w", args[0], args[1], err)
			}

			data, err := formats.MarshalRecord(rec)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
}

func (a *app) manufacturersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "manufacturers",
		Short: "List manufacturers, one per line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			catalog, err := a.load(ctx)
			if err != nil {
				return err
			}
			for _, name := range catalog.Manufacturers() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func (a *app) exportCmd() *cobra.Command {
	var (
		targets        []string
		outDir         string
		deriveImperial bool
		publish        string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the dataset in one or more distribution formats",
		Long: `Write the dataset in one or more distribution formats.

Formats: csv, excel, json, xml, pdf, sqlite, arrow, charts, postgres.
charts writes three PNG charts of the statistics.
"all" writes every file format. postgres is only written when named.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			catalog, err := a.load(ctx)
			if err != nil {
				return err
			}
			if deriveImperial {
				a.svc.DeriveImperial(catalog)
			}

			results, exportErr := a.svc.Export(ctx, catalog, targets, outDir)
			renderResults(cmd.OutOrStdout(), results)

			if publish != "" {
				uploaded, err := a.svc.Publish(ctx, results, publish)
				for _, loc := range uploaded {
					fmt.Fprintf(cmd.OutOrStdout(), "published %s\n", loc)
				}
				exportErr = errors.Join(exportErr, err)
			}
			return exportErr
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVarP(&targets, "format", "f", []string{"all"}, "formats to write, comma separated")
	flags.StringVarP(&outDir, "output", "o", "", "output directory (default $PINDB_OUTPUT_DIR or ./output)")
	flags.BoolVar(&deriveImperial, "derive-imperial", false, "fill unpublished inch values from millimetres")
	flags.StringVar(&publish, "publish", "", "upload file exports under s3://bucket/prefix")
	return cmd
}

func (a *app) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify that the dataset location is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			loc, err := a.location()
			if err != nil {
				return err
			}
			if err := a.svc.Check(ctx, loc); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok %s\n", loc)
			return nil
		},
	}
}

func (a *app) schemaCmd() *cobra.Command {
	var ipcPath string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the table schema, or describe an exported Arrow stream",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if ipcPath == "" {
				out, err := a.svc.Schema()
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
				return err
			}

			f, err := os.Open(ipcPath)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", ipcPath, err)
			}
			defer f.Close()

			summary, err := schema.Describe(f)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]interface{}{
				"fields":         summary.Schema.NumFields(),
				"batches":        summary.Batches,
				"rows":           summary.Rows,
				"matches_schema": schema.NewManager().Matches(summary.Schema),
			})
		},
	}

	cmd.Flags().StringVar(&ipcPath, "ipc", "", "describe an Arrow IPC stream written by export")
	return cmd
}

func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func renderTable(w io.Writer, headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...)
	fmt.Fprintln(w, t.String())
}

func renderResults(w io.Writer, results []toolkit.ExportResult) {
	rows := make([][]string, len(results))
	for i, r := range results {
		status := "ok"
		if r.Err != nil {
			status = r.Err.Error()
		}
		rows[i] = []string{string(r.Format), r.Path, strconv.Itoa(r.Records), r.Duration.String(), status}
	}
	renderTable(w, []string{"Format", "Path", "Records", "Duration", "Status"}, rows)
}

func pinText(m pins.Measure) string {
	if !m.Valid {
		return "-"
	}
	return m.String()
}
