package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"docrag/internal/app"
	"docrag/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Ingest documents as they appear in the upload folder",
	Long: `Scans the upload folder once, then watches it and re-scans shortly after
documents are added or changed. Runs until interrupted.`,
	Args: cobra.NoArgs,
	RunE: withApp(runWatch),
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string, a *app.App) error {
	dir := a.Ingester.UploadDir()
	if dir == "" {
		return fmt.Errorf("no upload folder configured")
	}
	out := cmd.OutOrStdout()
	scan := func(ctx context.Context) {
		if err := writeReport(out, a.Ingester.ScanFolder(ctx, dir)); err != nil {
			cmd.PrintErrln(err)
		}
	}
	scan(cmd.Context())
	fmt.Fprintf(out, "Watching %s, press Ctrl+C to stop.\n", dir)
	return watcher.New(dir, a.Config.Watch.Debounce(), scan).Run(cmd.Context())
}
