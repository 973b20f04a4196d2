package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pdf-rag/internal/client"
	"pdf-rag/internal/models"
	"pdf-rag/internal/rag"
)

// Backend is the TUI-facing subset of the API client.
type Backend interface {
	Health(ctx context.Context) (*client.Health, error)
	Ask(ctx context.Context, question string, k int) (*client.AskResponse, error)
	ListDocuments(ctx context.Context) ([]models.Document, error)
	UploadFile(ctx context.Context, path string) (*client.UploadResponse, error)
	ProcessDocuments(ctx context.Context) (*client.ProcessResponse, error)
}

type tab int

const (
	tabAsk tab = iota
	tabDocuments
	tabUpload
	tabCount
)

var tabNames = [tabCount]string{"Ask", "Documents", "Upload"}

type (
	healthMsg struct {
		health *client.Health
		err    error
	}
	answerMsg struct {
		question string
		resp     *client.AskResponse
		err      error
	}
	documentsMsg struct {
		docs []models.Document
		err  error
	}
	uploadMsg struct {
		path string
		resp *client.UploadResponse
		err  error
	}
	processMsg struct {
		resp *client.ProcessResponse
		err  error
	}
)

// Model is the Bubble Tea model for the frontend.
type Model struct {
	backend Backend
	timeout time.Duration
	topK    int

	active   tab
	question textinput.Model
	path     textinput.Model
	viewport viewport.Model

	answer    *client.AskResponse
	lastQ     string
	documents []models.Document
	uploads   []string
	health    string
	status    string
	busy      bool
	ready     bool
}

// New creates a new TUI model instance.
func New(backend Backend, topK int, timeout time.Duration) Model {
	q := textinput.New()
	q.Prompt = "? "
	q.Placeholder = "Ask a question about your documents and press Enter"
	q.CharLimit = 0
	q.Focus()

	p := textinput.New()
	p.Prompt = "file: "
	p.Placeholder = "/path/to/document.pdf"
	p.CharLimit = 0

	return Model{
		backend:  backend,
		timeout:  timeout,
		topK:     topK,
		question: q,
		path:     p,
		viewport: viewport.New(0, 0),
		health:   "checking backend...",
		status:   "Tab switches views, Ctrl+C quits.",
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.checkHealth())
}

func (m Model) ctx() (context.Context, context.CancelFunc) {
	if m.timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), m.timeout)
}

func (m Model) checkHealth() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		h, err := m.backend.Health(ctx)
		return healthMsg{health: h, err: err}
	}
}

func (m Model) ask(question string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		resp, err := m.backend.Ask(ctx, question, m.topK)
		return answerMsg{question: question, resp: resp, err: err}
	}
}

func (m Model) listDocuments() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		docs, err := m.backend.ListDocuments(ctx)
		return documentsMsg{docs: docs, err: err}
	}
}

func (m Model) upload(path string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		resp, err := m.backend.UploadFile(ctx, path)
		return uploadMsg{path: path, resp: resp, err: err}
	}
}

func (m Model) processDocuments() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		resp, err := m.backend.ProcessDocuments(ctx)
		return processMsg{resp: resp, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, fh := contentBoxStyle.GetFrameSize()
		// title, tabs, input box (3 lines) and status
		vh := msg.Height - fh - 7
		m.viewport.Width = max(20, msg.Width-4)
		m.viewport.Height = max(3, vh)
		m.refreshViewport()
		return m, nil

	case healthMsg:
		switch {
		case client.IsUnavailable(msg.err):
			m.health = "backend unreachable: " + msg.err.Error()
		case msg.err != nil:
			m.health = "backend unhealthy: " + msg.err.Error()
		default:
			m.health = fmt.Sprintf("backend %s, %d PDFs, %d chunks", msg.health.Status, msg.health.PDFCount, msg.health.ChunkCount)
		}
		return m, nil

	case answerMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.answer = nil
		} else {
			m.status = fmt.Sprintf("Answer for %q", msg.question)
			m.answer = msg.resp
			m.lastQ = msg.question
		}
		m.refreshViewport()
		return m, nil

	case documentsMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.documents = msg.docs
			m.status = fmt.Sprintf("%d documents", len(msg.docs))
		}
		m.refreshViewport()
		return m, nil

	case uploadMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Upload failed: " + msg.err.Error()
			m.uploads = append(m.uploads, fmt.Sprintf("x %s: %v", msg.path, msg.err))
		} else {
			m.status = fmt.Sprintf("Uploaded %s (%d chunks)", msg.resp.Document.ID, msg.resp.Chunks)
			m.uploads = append(m.uploads, fmt.Sprintf("+ %s: %d chunks", msg.resp.Document.ID, msg.resp.Chunks))
			m.path.SetValue("")
		}
		m.refreshViewport()
		return m, m.checkHealth()

	case processMsg:
		if msg.err != nil {
			m.busy = false
			m.status = "Processing failed: " + msg.err.Error()
			return m, nil
		}
		failed := 0
		for _, d := range msg.resp.Details {
			if d.Status != rag.StatusSuccess {
				failed++
			}
		}
		m.status = fmt.Sprintf("Processed %d files, %d failed", len(msg.resp.Details), failed)
		return m, tea.Batch(m.listDocuments(), m.checkHealth())

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD:
			return m, tea.Quit
		case tea.KeyTab:
			return m.switchTab((m.active + 1) % tabCount)
		case tea.KeyShiftTab:
			return m.switchTab((m.active + tabCount - 1) % tabCount)
		case tea.KeyEnter:
			if cmd := m.submit(); cmd != nil {
				m.busy = true
				m.status = "Working..."
				return m, cmd
			}
			return m, nil
		case tea.KeyUp, tea.KeyDown, tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		if m.active == tabDocuments && !m.busy {
			switch msg.String() {
			case "r":
				m.busy = true
				m.status = "Loading documents..."
				return m, m.listDocuments()
			case "p":
				m.busy = true
				m.status = "Processing the PDF directory..."
				return m, m.processDocuments()
			}
		}
	}

	var cmd tea.Cmd
	switch m.active {
	case tabAsk:
		m.question, cmd = m.question.Update(msg)
	case tabUpload:
		m.path, cmd = m.path.Update(msg)
	}
	return m, cmd
}

func (m Model) switchTab(t tab) (tea.Model, tea.Cmd) {
	m.active = t
	m.question.Blur()
	m.path.Blur()
	var cmd tea.Cmd
	switch t {
	case tabAsk:
		cmd = m.question.Focus()
	case tabUpload:
		cmd = m.path.Focus()
	case tabDocuments:
		m.busy = true
		m.status = "Loading documents..."
		cmd = m.listDocuments()
	}
	m.refreshViewport()
	return m, cmd
}

// submit returns the request for the active tab, nil when there is nothing to send
func (m Model) submit() tea.Cmd {
	if m.busy {
		return nil
	}
	switch m.active {
	case tabAsk:
		if q := strings.TrimSpace(m.question.Value()); q != "" {
			return m.ask(q)
		}
	case tabUpload:
		if p := strings.TrimSpace(m.path.Value()); p != "" {
			return m.upload(p)
		}
	case tabDocuments:
		return m.listDocuments()
	}
	return nil
}

func (m *Model) refreshViewport() {
	var content string
	switch m.active {
	case tabAsk:
		content = m.renderAnswer()
	case tabDocuments:
		content = m.renderDocuments()
	case tabUpload:
		content = m.renderUploads()
	}
	if m.viewport.Width > 0 {
		content = lipgloss.NewStyle().Width(m.viewport.Width).Render(content)
	}
	m.viewport.SetContent(content)
	m.viewport.GotoTop()
}

func (m Model) renderAnswer() string {
	if m.answer == nil {
		return "No answer yet."
	}
	var b strings.Builder
	b.WriteString(headingStyle.Render("Answer"))
	b.WriteString("\n")
	b.WriteString(m.answer.Answer)
	b.WriteString("\n\n")
	b.WriteString(headingStyle.Render(fmt.Sprintf("Sources (%d)", len(m.answer.Sources))))
	for i, s := range m.answer.Sources {
		fmt.Fprintf(&b, "\n%s\n%s\n",
			mutedStyle.Render(fmt.Sprintf("[%d] %s #%d  similarity=%.3f", i+1, s.Chunk.DocumentID, s.Chunk.Index, s.Similarity)),
			preview(s.Chunk.Content, 300))
	}
	return b.String()
}

func (m Model) renderDocuments() string {
	if len(m.documents) == 0 {
		return "No documents ingested yet. Press p to process the PDF directory or r to refresh."
	}
	var b strings.Builder
	b.WriteString(headingStyle.Render(fmt.Sprintf("%-40s %8s %6s %10s", "Document", "Size KB", "Pages", "Chunks")))
	for _, d := range m.documents {
		fmt.Fprintf(&b, "\n%-40s %8.1f %6d %10d", d.ID, float64(d.SizeBytes)/1024, d.Pages, d.ChunkCount)
	}
	return b.String()
}

func (m Model) renderUploads() string {
	if len(m.uploads) == 0 {
		return "Enter the path of a PDF and press Enter to upload it."
	}
	return strings.Join(m.uploads, "\n")
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	title := titleStyle.Render("PDF RAG") + "  " + mutedStyle.Render(m.health)

	tabs := make([]string, tabCount)
	for i, name := range tabNames {
		if tab(i) == m.active {
			tabs[i] = activeTabStyle.Render(name)
		} else {
			tabs[i] = tabStyle.Render(name)
		}
	}

	var input string
	switch m.active {
	case tabAsk:
		input = inputBoxStyle.Render(m.question.View())
	case tabUpload:
		input = inputBoxStyle.Render(m.path.View())
	default:
		input = inputBoxStyle.Render(mutedStyle.Render("r refreshes the list, p processes the PDF directory"))
	}

	return title + "\n" +
		lipgloss.JoinHorizontal(lipgloss.Top, tabs...) + "\n" +
		contentBoxStyle.Render(m.viewport.View()) + "\n" +
		input + "\n" +
		statusStyle.Render(m.status)
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

var (
	titleStyle      = lipgloss.NewStyle().Bold(true)
	headingStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	mutedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	tabStyle        = lipgloss.NewStyle().Padding(0, 2)
	activeTabStyle  = tabStyle.Copy().Bold(true).Underline(true).Foreground(lipgloss.Color("11"))
	contentBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)
