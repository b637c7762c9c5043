package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"salespulse/internal/exporter"
	"salespulse/internal/services"
	"salespulse/internal/validation"
)

// DefaultQuestion is the insights prompt used when --question is not given.
const DefaultQuestion = "Analyze the data: Provide 5 Insights with numbers, a short summary, and 3 actionable recommendations."

func newKPIsCommand(env *environment) *cobra.Command {
	var (
		filters filterFlags
		top     int
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "kpis",
		Short: "Compute KPIs for the filtered rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := filters.spec()
			if err != nil {
				return err
			}
			sales, err := env.sales(cmd)
			if err != nil {
				return err
			}

			report, err := sales.KPIs(cmd.Context(), spec, top)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			renderKPIs(cmd.OutOrStdout(), report)
			return nil
		},
	}

	filters.register(cmd)
	cmd.Flags().IntVar(&top, "top", 0, "length of the top products ranking (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func newFilterCommand(env *environment) *cobra.Command {
	var (
		filters filterFlags
		limit   int
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Count matching rows and preview the first ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := filters.spec()
			if err != nil {
				return err
			}
			sales, err := env.sales(cmd)
			if err != nil {
				return err
			}

			result, err := sales.Filter(cmd.Context(), spec, limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			renderPreview(cmd.OutOrStdout(), result)
			return nil
		},
	}

	filters.register(cmd)
	cmd.Flags().IntVar(&limit, "limit", 0, "preview rows (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func newInsightsCommand(env *environment) *cobra.Command {
	var (
		filters  filterFlags
		question string
		kpisFile string
	)

	cmd := &cobra.Command{
		Use:   "insights",
		Short: "Generate an insight narrative from the KPIs",
		Long:  `Computes KPIs for the filtered rows (or reads them from --kpis) and asks the completion API for insights, a summary and recommendations.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := filters.spec()
			if err != nil {
				return err
			}

			in := services.InsightsInput{Filters: spec, Question: question}
			if kpisFile != "" {
				data, err := os.ReadFile(kpisFile)
				if err != nil {
					return fmt.Errorf("failed to read kpis: %w", err)
				}
				in.KPIs = data
			}

			sales, err := env.sales(cmd)
			if err != nil {
				return err
			}

			report, err := sales.Insights(cmd.Context(), in)
			if err != nil {
				return err
			}
			renderInsights(cmd.OutOrStdout(), report)
			return nil
		},
	}

	filters.register(cmd)
	cmd.Flags().StringVar(&question, "question", DefaultQuestion, "question for the analyst")
	cmd.Flags().StringVar(&kpisFile, "kpis", "", "KPI report JSON file to use instead of computing one")
	return cmd
}

func newExportCommand(env *environment) *cobra.Command {
	var (
		filters filterFlags
		top     int
		format  string
		out     string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the KPI report to a CSV or XLSX file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := exporter.ParseFormat(format)
			if err != nil {
				return err
			}
			spec, err := filters.spec()
			if err != nil {
				return err
			}
			sales, err := env.sales(cmd)
			if err != nil {
				return err
			}

			report, err := sales.KPIs(cmd.Context(), spec, top)
			if err != nil {
				return err
			}

			if err := validation.NewFileValidator(env.logger).ValidateOutputDirectory(filepath.Dir(out)); err != nil {
				return err
			}
			file, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", out, err)
			}
			if err := exporter.NewReportExporter(env.logger).Export(file, report, f); err != nil {
				file.Close()
				return err
			}
			if err := file.Close(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s report to %s\n", f, out)
			return nil
		},
	}

	filters.register(cmd)
	cmd.Flags().IntVar(&top, "top", 0, "length of the top products ranking (default from config)")
	cmd.Flags().StringVar(&format, "format", string(exporter.FormatCSV), "csv or xlsx")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func newDatasetCommand(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "dataset",
		Short: "Load the dataset and print its load statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sales, err := env.sales(cmd)
			if err != nil {
				return err
			}
			if _, err := sales.Rows(cmd.Context()); err != nil {
				return err
			}
			renderDataset(cmd.OutOrStdout(), sales.DatasetInfo(cmd.Context()))
			return nil
		},
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
