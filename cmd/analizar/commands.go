package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"analizador/internal/aggregate"
	"analizador/internal/cli"
	"analizador/internal/core"
	"analizador/internal/export"
	applog "analizador/internal/log"
	"analizador/internal/loader"
	"analizador/internal/render"
	"analizador/internal/sheets/xlsx"
)

type settings struct {
	EntriesSheet  string
	FamiliesSheet string
	LogLevel      string
}

func newRootCommand(out io.Writer) *cobra.Command {
	s := &settings{}
	root := &cobra.Command{
		Use:           "analizar",
		Short:         "Analyze an Entradas/Familias workbook",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&s.EntriesSheet, "entries-sheet", core.SheetEntries, "Name of the entries sheet")
	root.PersistentFlags().StringVar(&s.FamiliesSheet, "families-sheet", core.SheetFamilies, "Name of the families sheet")
	root.PersistentFlags().StringVar(&s.LogLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	root.AddCommand(
		summaryCommand(s),
		chartCommand(s),
		exportCommand(s),
		modesCommand(),
		authCommand(),
	)
	return root
}

// load reads and joins the workbook at path.
func (s *settings) load(ctx context.Context, path string) (*core.Dataset, error) {
	logger := cli.SetupLogger(os.Stderr, s.LogLevel, applog.ComponentCLI)
	r, err := xlsx.Open(path)
	if err != nil {
		return nil, &core.LoadError{Source: path, Err: err}
	}
	defer r.Close()

	ds, err := loader.New(loader.Options{EntriesSheet: s.EntriesSheet, FamiliesSheet: s.FamiliesSheet}).Load(ctx, r)
	if err != nil {
		return nil, err
	}
	logger.Debug("Workbook loaded", applog.FieldFile, path, applog.FieldIdentity, ds.Identity, applog.FieldRows, ds.Joined.Len())
	return ds, nil
}

func summaryCommand(s *settings) *cobra.Command {
	var columns bool
	cmd := &cobra.Command{
		Use:   "summary [workbook.xlsx]",
		Short: "Print row counts and unmatched codes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := s.load(cmd.Context(), args[0])
			if err != nil {
				return errors.New(core.UserMessage(err))
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, loader.Summarize(ds))
			if !columns {
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "COLUMNA\tTIPO\tNO NULOS")
			for _, c := range ds.Joined.ColumnTypes() {
				fmt.Fprintf(tw, "%s\t%s\t%d\n", c.Name, c.Kind, c.NonNull)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVarP(&columns, "columns", "c", false, "Also list the joined columns and their types")
	return cmd
}

func chartCommand(s *settings) *cobra.Command {
	var (
		mode   string
		png    string
		width  int
		height int
	)
	cmd := &cobra.Command{
		Use:   "chart [workbook.xlsx]",
		Short: "Print the data behind one chart as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := aggregate.ParseMode(mode)
			if err != nil {
				return err
			}
			ds, err := s.load(cmd.Context(), args[0])
			if err != nil {
				return errors.New(core.UserMessage(err))
			}
			cd, err := aggregate.Aggregate(ds.Joined, m)
			if err != nil {
				return errors.New(core.UserMessage(err))
			}
			if png != "" {
				return writeFile(png, func(w io.Writer) error { return render.PNG(w, cd, width, height) })
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(cd)
		},
	}
	cmd.Flags().StringVarP(&mode, "mode", "m", aggregate.QualityByMonth.Slug(), "Chart mode: slug, label or number (see 'analizar modes')")
	cmd.Flags().StringVar(&png, "png", "", "Render the chart to this PNG file instead of printing JSON")
	cmd.Flags().IntVar(&width, "width", render.DefaultWidth, "PNG width in pixels")
	cmd.Flags().IntVar(&height, "height", render.DefaultHeight, "PNG height in pixels")
	return cmd
}

func exportCommand(s *settings) *cobra.Command {
	var (
		output string
		format string
	)
	cmd := &cobra.Command{
		Use:   "export [workbook.xlsx]",
		Short: "Write the combined table as CSV or XLSX",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var write func(io.Writer, *core.Dataset) error
			switch format {
			case "csv":
				write = func(w io.Writer, ds *core.Dataset) error { return export.WriteCSV(w, ds.Joined) }
				if output == "" {
					output = export.CSVFileName
				}
			case "xlsx":
				write = export.WriteXLSX
				if output == "" {
					output = export.XLSXFileName
				}
			default:
				return fmt.Errorf("unknown format %q: must be csv or xlsx", format)
			}

			ds, err := s.load(cmd.Context(), args[0])
			if err != nil {
				return errors.New(core.UserMessage(err))
			}
			if output == "-" {
				return write(cmd.OutOrStdout(), ds)
			}
			if err := writeFile(output, func(w io.Writer) error { return write(w, ds) }); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d filas escritas en %s\n", ds.Joined.Len(), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path, '-' for stdout (default "+export.CSVFileName+")")
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "Output format: csv, xlsx")
	return cmd
}

func modesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "modes",
		Short: "List the available chart modes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, m := range aggregate.Modes() {
				fmt.Fprintf(tw, "%d\t%s\t%s\n", int(m), m.Slug(), m.Label())
			}
			return tw.Flush()
		},
	}
}

// writeFile creates path and removes it again if write fails.
func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
