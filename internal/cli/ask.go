package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"docrag/internal/app"
)

var (
	askJSON   bool
	askNoScan bool
	askShow   bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question...]",
	Short: "Answer a question from the stored documents",
	Long: `Retrieves the chunks most similar to the question, sends them to the
language model together with the question and prints the answer and its
source documents. The upload folder is scanned first unless --no-scan is set.`,
	Args: cobra.MinimumNArgs(1),
	RunE: withApp(runAsk),
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	askCmd.Flags().BoolVar(&askNoScan, "no-scan", false, "do not scan the upload folder first")
	askCmd.Flags().BoolVar(&askShow, "evidence", false, "print the retrieved chunks")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string, a *app.App) error {
	rag, err := a.RAG()
	if err != nil {
		return err
	}
	if !askNoScan {
		a.Ingester.ScanFolder(cmd.Context(), a.Ingester.UploadDir())
	}

	turn := rag.Query(cmd.Context(), strings.Join(args, " "))
	out := cmd.OutOrStdout()
	if askJSON {
		data, err := json.MarshalIndent(turn.Answer, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		fmt.Fprintln(out, string(data))
	} else {
		fmt.Fprintln(out, turn.Answer.Text)
		if len(turn.Answer.Sources) > 0 {
			fmt.Fprintf(out, "\nSources: %s\n", strings.Join(turn.Answer.Sources, ", "))
		}
		if askShow {
			for i, r := range turn.Evidence {
				fmt.Fprintf(out, "\n  [%d] %s#%d (%.3f)\n      %s\n", i+1, r.Chunk.Filename, r.Chunk.Index, r.Score, r.Chunk.Text)
			}
		}
	}
	if turn.Answer.Failed {
		return fmt.Errorf("query failed: %s", turn.Answer.ErrorKind)
	}
	return nil
}
