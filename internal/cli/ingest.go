package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"docrag/internal/app"
	"docrag/internal/domain"
)

var reportJSON bool

var scanCmd = &cobra.Command{
	Use:   "scan [dir]",
	Short: "Ingest new documents from the upload folder",
	Long: `Reconciles the store with a folder: every supported file that is not
stored yet is ingested, files already stored are skipped.
Without an argument the configured upload folder is scanned.`,
	Args: cobra.MaximumNArgs(1),
	RunE: withApp(runScan),
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [files...]",
	Short: "Ingest the given documents",
	Args:  cobra.MinimumNArgs(1),
	RunE:  withApp(runIngest),
}

func init() {
	scanCmd.Flags().BoolVar(&reportJSON, "json", false, "output the report as JSON")
	ingestCmd.Flags().BoolVar(&reportJSON, "json", false, "output the report as JSON")
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(ingestCmd)
}

func runScan(cmd *cobra.Command, args []string, a *app.App) error {
	dir := a.Ingester.UploadDir()
	if len(args) > 0 {
		dir = args[0]
	}
	report := a.Ingester.ScanFolder(cmd.Context(), dir)
	return writeReport(cmd.OutOrStdout(), report)
}

func runIngest(cmd *cobra.Command, args []string, a *app.App) error {
	report := domain.NewIngestReport()
	for _, path := range args {
		report.Add(a.Ingester.IngestFile(cmd.Context(), path))
	}
	if err := writeReport(cmd.OutOrStdout(), report); err != nil {
		return err
	}
	if len(report.Errors) > 0 && len(report.Processed) == 0 && len(report.Skipped) == 0 {
		return fmt.Errorf("no documents ingested")
	}
	return nil
}

func writeReport(w io.Writer, r domain.IngestReport) error {
	if reportJSON {
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	for _, o := range r.Processed {
		fmt.Fprintf(w, "  + %s (%d chunks)\n", o.Filename, o.ChunkCount)
		if o.Warning != "" {
			fmt.Fprintf(w, "      warning: %s\n", o.Warning)
		}
	}
	for _, name := range r.Skipped {
		fmt.Fprintf(w, "  = %s (already ingested)\n", name)
	}
	for _, o := range r.Errors {
		fmt.Fprintf(w, "  ! %s: %s\n", o.Filename, o.Reason)
	}
	fmt.Fprintf(w, "%d processed, %d skipped, %d errors, %d chunks added\n",
		len(r.Processed), len(r.Skipped), len(r.Errors), r.TotalChunks)
	return nil
}
