package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"docrag/internal/app"
)

var (
	docsJSON bool
	clearYes bool
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "List stored documents",
	Args:  cobra.NoArgs,
	RunE:  withApp(runDocs),
}

var deleteCmd = &cobra.Command{
	Use:   "delete [filename]",
	Short: "Remove a document and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runDelete),
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every document",
	Long:  `Removes all documents from the store and all files from the upload folder.`,
	Args:  cobra.NoArgs,
	RunE:  withApp(runClear),
}

var statsCmd = &cobra.Command{
	Use:   "stats [file]",
	Short: "Show store statistics, or the text statistics of a file",
	Long: `Without an argument, prints the number of stored documents and chunks.
With a file, extracts and chunks it without storing anything and prints
its character, word and chunk counts.`,
	Args: cobra.MaximumNArgs(1),
	RunE: withApp(runStats),
}

func init() {
	docsCmd.Flags().BoolVar(&docsJSON, "json", false, "output documents as JSON")
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "confirm removal of all documents")
	rootCmd.AddCommand(docsCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(statsCmd)
}

func runDocs(cmd *cobra.Command, _ []string, a *app.App) error {
	docs := a.Store.ListDocuments()
	out := cmd.OutOrStdout()
	if docsJSON {
		data, err := json.MarshalIndent(docs, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal documents: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}
	if len(docs) == 0 {
		fmt.Fprintln(out, "No documents.")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILENAME\tCHUNKS\tSIZE\tINGESTED")
	for _, d := range docs {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", d.Filename, d.ChunkCount, d.Size, d.IngestedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

func runDelete(cmd *cobra.Command, args []string, a *app.App) error {
	removed, err := a.Ingester.DeleteDocument(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	if !removed {
		fmt.Fprintf(cmd.OutOrStdout(), "%s is not stored, nothing to delete.\n", args[0])
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s.\n", args[0])
	return nil
}

func runClear(cmd *cobra.Command, _ []string, a *app.App) error {
	if !clearYes {
		return errors.New("refusing to clear without --yes")
	}
	n, err := a.Ingester.ClearAll(cmd.Context())
	if err != nil {
		return fmt.Errorf("clear failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d documents.\n", n)
	return nil
}

func runStats(cmd *cobra.Command, args []string, a *app.App) error {
	out := cmd.OutOrStdout()
	if len(args) == 0 {
		st := a.Store.Stats()
		fmt.Fprintf(out, "Documents: %d\nChunks:    %d\nDimension: %d\nModel:     %s\n", st.Documents, st.Chunks, st.Dimension, st.Model)
		return nil
	}
	in, err := a.Ingester.Inspect(args[0])
	if err != nil {
		return fmt.Errorf("stats failed: %w", err)
	}
	fmt.Fprintf(out, "File:       %s (%s)\nCharacters: %d\nWords:      %d\nChunks:     %d\n", in.Filename, in.Type, in.Characters, in.Words, in.Chunks)
	return nil
}
