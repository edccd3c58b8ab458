package cli

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"aquaculture-risk/internal/export"
	"aquaculture-risk/internal/logging"
	"aquaculture-risk/internal/models"
	"aquaculture-risk/internal/risk"
)

func newReportCmd(app *App) *cobra.Command {
	var reportPath string

	cmd := &cobra.Command{
		Use:   "report <results.json|scenarios.csv>",
		Short: "Rebuild the risk report of an exported run",
		Long: `Read a result document or scenario CSV written by 'aquarisk run', recompute
the summary statistics from its scenarios and print the risk report.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			logger := logging.WithOperation(logging.FromContext(commandContext(cmd)), "report")

			doc, err := readDocument(args[0])
			if err != nil {
				return err
			}

			report, err := risk.Report(doc.Scenarios)
			if err != nil {
				return err
			}
			logger.Debug().
				Str("run_id", doc.Metadata.RunID).
				Int("scenarios", len(doc.Scenarios)).
				Msg("Report rebuilt")

			if reportPath != "" {
				err := export.WriteReport(reportPath, report)
				logging.LogExport(logger, "report", reportPath, err)
				if err != nil {
					return err
				}
			}

			if output.IsJSON() {
				return output.JSON(report)
			}
			printReport(output, doc.Metadata, report)
			if !doc.Metadata.GeneratedAt.IsZero() {
				output.Dim("Generated at %s", doc.Metadata.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&reportPath, "output", "o", "", "write the rebuilt report as JSON")
	return cmd
}

// readDocument loads a result document, or the scenarios of a CSV export with
// the metadata the rows carry.
func readDocument(path string) (export.Document, error) {
	if !strings.EqualFold(filepath.Ext(path), ".csv") {
		return export.Read(path)
	}

	scenarios, err := export.ReadCSV(path)
	if err != nil {
		return export.Document{}, err
	}
	doc := export.Document{
		Metadata: models.RunMetadata{
			SimulationType: models.SimulationType,
			NSimulations:   len(scenarios),
		},
		Scenarios: scenarios,
	}
	if len(scenarios) > 0 {
		doc.Metadata.SiteID = scenarios[0].SiteID
		doc.Metadata.Species = scenarios[0].Species
	}
	return doc, nil
}
