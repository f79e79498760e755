package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docrag/internal/domain"
)

// Querier is the TUI-facing subset of the RAG service.
type Querier interface {
	Query(ctx context.Context, query string) domain.ConversationTurn
	Suggestions() []string
}

// answerMsg carries a finished turn back into the update loop.
type answerMsg struct {
	turn domain.ConversationTurn
}

// Model is the Bubble Tea model for the chat application.
type Model struct {
	ctx      context.Context
	service  Querier
	input    textinput.Model
	viewport viewport.Model
	turn     *domain.ConversationTurn
	header   string
	status   string
	cursor   int
	ready    bool
	busy     bool
}

// New creates a new TUI model instance. header is shown under the title.
func New(ctx context.Context, service Querier, header string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question about your documents and press Enter"
	if s := service.Suggestions(); len(s) > 0 {
		ti.Placeholder = s[0]
	}
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{ctx: ctx, service: service, input: ti, viewport: vp, header: header, status: "Ready. Type a question."}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around answer and query boxes
		_, rh := answerBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		totalHeaderLines := 2                                    // title + header
		totalFooterLines := 1                                    // status
		reserved := totalHeaderLines + totalFooterLines + qh + 1 // 1 spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderTurn())
		return m, nil
	case answerMsg:
		m.busy = false
		m.turn = &msg.turn
		m.cursor = 0
		if msg.turn.Answer.Failed {
			m.status = fmt.Sprintf("Failed (%s) in %s", msg.turn.Answer.ErrorKind, msg.turn.Duration.Round(1e6))
		} else {
			m.status = fmt.Sprintf("Answered in %s, %d evidence chunks", msg.turn.Duration.Round(1e6), len(msg.turn.Evidence))
		}
		m.viewport.SetContent(m.renderTurn())
		return m, nil
	case tea.KeyMsg:
		// Global quits
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" && !m.busy {
				m.busy = true
				m.status = fmt.Sprintf("Thinking about %q ...", q)
				m.input.SetValue("")
				return m, m.ask(q)
			}
		case "down":
			if n := m.evidenceCount(); n > 0 {
				m.cursor = (m.cursor + 1) % n
				m.viewport.SetContent(m.renderTurn())
				return m, nil
			}
		case "up":
			if n := m.evidenceCount(); n > 0 {
				m.cursor = (m.cursor - 1 + n) % n
				m.viewport.SetContent(m.renderTurn())
				return m, nil
			}
		case "pgdown", "pgup":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// ask runs the query off the update loop.
func (m Model) ask(q string) tea.Cmd {
	ctx, service := m.ctx, m.service
	return func() tea.Msg {
		return answerMsg{turn: service.Query(ctx, q)}
	}
}

func (m Model) evidenceCount() int {
	if m.turn == nil {
		return 0
	}
	return len(m.turn.Evidence)
}

// View renders the TUI layout and current answer.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	title := lipgloss.NewStyle().Bold(true).Render("docrag")
	header := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.header)
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	answer := answerBoxStyle.Render(m.viewport.View())
	return title + "\n" + header + "\n" + answer + "\n" + input + "\n" + status
}

func (m Model) renderTurn() string {
	if m.turn == nil {
		suggestions := m.service.Suggestions()
		if len(suggestions) == 0 {
			return "No answer yet."
		}
		return "Try asking:\n  - " + strings.Join(suggestions, "\n  - ")
	}
	t := m.turn
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render("Q: " + t.Query))
	b.WriteString("\n\n")
	if t.Answer.Failed {
		b.WriteString(errorStyle.Render(t.Answer.Text))
	} else {
		b.WriteString(t.Answer.Text)
	}
	if len(t.Answer.Sources) > 0 {
		b.WriteString("\n\n")
		b.WriteString(sourceStyle.Render("Sources: " + strings.Join(t.Answer.Sources, ", ")))
	}
	if len(t.Evidence) > 0 {
		r := t.Evidence[m.cursor]
		fmt.Fprintf(&b, "\n\nEvidence %d/%d  %s#%d  score=%.3f\n\n", m.cursor+1, len(t.Evidence), r.Chunk.Filename, r.Chunk.Index, r.Score)
		b.WriteString(highlightBestSentence(r.Chunk.Text, t.Query))
	}
	return b.String()
}

var (
	answerBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	sourceStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	unicodeWordRe  = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe     = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
)

func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		sentences = []string{text}
	}
	for i := range sentences {
		sentences[i] = strings.TrimSpace(sentences[i])
	}
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx := 0
	bestScore := -1
	for i, s := range sentences {
		score := tokenOverlapScore(qTokens, s)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	sentences[bestIdx] = highlightStyle.Render(sentences[bestIdx])
	return strings.Join(sentences, " ")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	tokens := unicodeWordRe.FindAllString(strings.ToLower(sentence), -1)
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
