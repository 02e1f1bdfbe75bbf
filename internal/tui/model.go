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

	"docintel/internal/domain"
	"docintel/internal/service"
)

// Asker is the TUI-facing subset of the document service.
type Asker interface {
	Ask(ctx context.Context, docID, question string) (service.Response, error)
}

// answerMsg carries the result of an asynchronous Ask.
type answerMsg struct {
	question string
	resp     service.Response
	err      error
}

// Model is the Bubble Tea model for the chat screen of one document.
type Model struct {
	ctx       context.Context
	service   Asker
	doc       *service.Document
	input     textinput.Model
	viewport  viewport.Model
	resp      *service.Response
	status    string
	cursor    int // selected source
	ready     bool
	busy      bool
	lastQuery string
}

// New creates a chat model for doc.
func New(ctx context.Context, svc Asker, doc *service.Document) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{ctx: ctx, service: svc, doc: doc, input: ti, viewport: vp, status: "Loaded. Ask about the document."}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) ask(q string) tea.Cmd {
	return func() tea.Msg {
		resp, err := m.service.Ask(m.ctx, m.doc.ID, q)
		return answerMsg{question: q, resp: resp, err: err}
	}
}

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		totalHeaderLines := 2 // header + document line
		totalFooterLines := 1 // status
		reserved := totalHeaderLines + totalFooterLines + qh + 1
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderResponse())
		return m, nil
	case answerMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.resp = nil
		} else {
			resp := msg.resp
			m.resp = &resp
			m.cursor = 0
			m.lastQuery = msg.question
			m.status = fmt.Sprintf("%s (confidence %.2f) for %q", resp.Metrics.Status, resp.Metrics.FinalConfidence, msg.question)
		}
		m.viewport.SetContent(m.renderResponse())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" && !m.busy {
				m.busy = true
				m.status = "Thinking..."
				m.input.SetValue("")
				return m, m.ask(q)
			}
		case "down":
			if n := m.sourceCount(); n > 0 {
				m.cursor = (m.cursor + 1) % n
				m.viewport.SetContent(m.renderResponse())
				return m, nil
			}
		case "up":
			if n := m.sourceCount(); n > 0 {
				m.cursor = (m.cursor - 1 + n) % n
				m.viewport.SetContent(m.renderResponse())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the TUI layout and current answer.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Document Q&A")
	info := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(
		fmt.Sprintf("%s  chunks=%d  fields=%d  tables=%d", m.doc.Name, len(m.doc.Chunks), len(m.doc.Fields), len(m.doc.Tables)))
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + info + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) sourceCount() int {
	if m.resp == nil {
		return 0
	}
	return len(m.resp.Sources)
}

func (m Model) renderResponse() string {
	if m.resp == nil {
		return "No answer yet."
	}
	r := m.resp
	var b strings.Builder
	statusStyle := acceptedStyle
	if r.Metrics.Status == domain.StatusRefused {
		statusStyle = refusedStyle
	}
	b.WriteString(r.Answer)
	b.WriteString("\n\n")
	b.WriteString(statusStyle.Render(string(r.Metrics.Status)))
	fmt.Fprintf(&b, "  final=%.3f  semantic=%.3f  schema=%.3f\n",
		r.Metrics.FinalConfidence, r.Metrics.SemanticScore, r.Metrics.SchemaScore)
	for _, f := range r.Mappings {
		fmt.Fprintf(&b, "  %s = %v (%.2f)\n", f.Field, f.Value, f.Confidence)
	}
	if len(r.Sources) == 0 {
		return b.String()
	}
	s := r.Sources[m.cursor]
	fmt.Fprintf(&b, "\nSource %d/%d  page=%d  section=%s  score=%.3f\n\n",
		m.cursor+1, len(r.Sources), s.Chunk.PageNumber, s.Chunk.SectionType, s.Score)
	b.WriteString(highlightBestSentence(s.Chunk.Text, m.lastQuery))
	return b.String()
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	acceptedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	refusedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	unicodeWordRe  = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe     = regexp.MustCompile(`[^.!?\n]+[.!?]?`)
)

func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		sentences = []string{strings.TrimSpace(text)}
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
	for i := range sentences {
		sent := strings.TrimSpace(sentences[i])
		if i == bestIdx {
			sentences[i] = highlightStyle.Render(sent)
		} else {
			sentences[i] = sent
		}
	}
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
