package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"docrag/internal/app"
	"docrag/internal/tui"
)

var chatNoScan bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Launch the interactive chat UI",
	Long: `Launch the interactive terminal chat over the stored documents.

Controls:
  Enter      - Ask
  Up/Down    - Cycle through the evidence of the last answer
  PgUp/PgDn  - Scroll
  Ctrl+C     - Quit`,
	Args: cobra.NoArgs,
	RunE: withApp(runChat),
}

func init() {
	chatCmd.Flags().BoolVar(&chatNoScan, "no-scan", false, "do not scan the upload folder first")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string, a *app.App) error {
	rag, err := a.RAG()
	if err != nil {
		return err
	}
	if !chatNoScan {
		a.Ingester.ScanFolder(cmd.Context(), a.Ingester.UploadDir())
	}
	st := a.Store.Stats()
	header := fmt.Sprintf("%d documents, %d chunks (%s)", st.Documents, st.Chunks, st.Model)

	p := tea.NewProgram(tui.New(cmd.Context(), rag, header), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	return nil
}
