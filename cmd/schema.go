package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/lead-scorer/internal/registry"
	"github.com/sells-group/lead-scorer/pkg/notion"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Check the Notion lead database has the properties the scorer uses",
	Long: `Sample one page of the lead database and check every property the
scorer reads or writes exists with a usable type. Exits 4 when a property is
missing or mistyped.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, _ := cmd.Flags().GetString("format")
		if err := validateFormat(format); err != nil {
			return err
		}
		if err := cfg.Validate("score"); err != nil {
			return err
		}

		client := notion.NewClient(cfg.Notion.Token, notion.WithRateLimit(cfg.Notion.RateLimit))
		report, err := registry.CheckLeadSchema(cmd.Context(), client, cfg.Notion.LeadDB)
		if err != nil {
			return err
		}

		if format != "table" {
			err = writeStructured(os.Stdout, format, report)
		} else {
			formatSchemaReport(os.Stdout, report)
		}
		if err != nil {
			return err
		}
		if !report.OK() {
			return &exitError{code: exitValidation, err: eris.Errorf("schema: %d property problems", len(report.Problems))}
		}
		return nil
	},
}

func init() {
	schemaCmd.Flags().String("format", "table", "output format: table, json or yaml")
	rootCmd.AddCommand(schemaCmd)
}

func formatSchemaReport(out io.Writer, r *registry.SchemaReport) {
	if r.OK() {
		_, _ = fmt.Fprintf(out, "Lead database OK: %d properties checked (sample page %s)\n", r.Checked, r.SamplePage)
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "PROPERTY\tACCESS\tWANT\tGOT")
	for _, p := range r.Problems {
		got := string(p.Got)
		if got == "" {
			got = "missing"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Property, p.Access, p.Want, got)
	}
	_ = w.Flush()
}
