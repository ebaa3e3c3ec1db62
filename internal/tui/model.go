package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/diogo/glmchat/internal/api"
	"github.com/diogo/glmchat/internal/chat"
	"github.com/diogo/glmchat/internal/config"
	"github.com/diogo/glmchat/internal/history"
	"github.com/diogo/glmchat/internal/models"
	"github.com/diogo/glmchat/internal/render"
)

// ChatSession is the part of app.Session used by the TUI.
type ChatSession interface {
	Current() (*history.Conversation, error)
	Conversation(id string) (*history.Conversation, error)
	NewConversation() (*history.Conversation, error)
	Send(ctx context.Context, convID, text string, attachments []chat.Attachment) (history.Message, error)
	GenerateImage(ctx context.Context, convID, model, prompt string, opts models.ImageGenOptions) (history.Message, error)
	GenerateVideo(ctx context.Context, convID, model, prompt string, opts models.VideoGenOptions) (*api.VideoTask, error)
	Settings() config.ChatSettings
	UpdateSettings(fn func(*config.ChatSettings) error) (config.ChatSettings, error)
}

type (
	// doneMsg ends a foreground request.
	doneMsg struct {
		convID string
		notice string
		err    error
	}
	// ConversationUpdatedMsg tells the model that a background job wrote
	// to a conversation.
	ConversationUpdatedMsg struct {
		ConversationID string
	}
)

// Model represents the TUI state
type Model struct {
	session    ChatSession
	renderOpts render.Options

	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	conv        *history.Conversation
	attachments []chat.Attachment
	modelName   string
	loading     bool
	ready       bool
	notice      string
	err         error

	width  int
	height int
}

// NewChatModel creates a new chat TUI model
func NewChatModel(session ChatSession, conv *history.Conversation, opts render.Options) Model {
	ta := textarea.New()
	ta.Placeholder = "Type a message, or /help"
	ta.CharLimit = 8000
	ta.ShowLineNumbers = false
	ta.SetHeight(2)
	ta.Focus()
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Base = lipgloss.NewStyle().Foreground(colorText)
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(colorTextDim)
	ta.BlurredStyle = ta.FocusedStyle

	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = loadingStyle

	return Model{
		session:    session,
		renderOpts: opts,
		textarea:   ta,
		spinner:    s,
		conv:       conv,
		modelName:  session.Settings().Model,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		vpHeight := m.height - 3 - 5 - 1 - 2
		if vpHeight < 5 {
			vpHeight = 5
		}
		contentWidth := m.width - 4
		if !m.ready {
			m.viewport = viewport.New(contentWidth, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = contentWidth
			m.viewport.Height = vpHeight
		}
		m.textarea.SetWidth(contentWidth - 4)
		m.renderOpts = m.renderOpts.WithWidth(contentWidth - 6)
		m.updateViewport()
		m.viewport.GotoBottom()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			if !m.loading {
				return m, tea.Quit
			}
		case "enter":
			if m.loading {
				return m, nil
			}
			input := strings.TrimSpace(m.textarea.Value())
			if input == "" && len(m.attachments) == 0 {
				return m, nil
			}
			m.textarea.Reset()
			return m.handleInput(input)
		}

	case doneMsg:
		m.loading = false
		m.err = msg.err
		if msg.notice != "" {
			m.notice = msg.notice
		}
		m.reload(msg.convID)

	case ConversationUpdatedMsg:
		if m.conv != nil && msg.ConversationID == m.conv.ID {
			m.reload(msg.ConversationID)
		}

	case spinner.TickMsg:
		if m.loading {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	if !m.loading {
		if _, ok := msg.(tea.KeyMsg); ok {
			m.textarea, cmd = m.textarea.Update(msg)
			cmds = append(cmds, cmd)
		}
	}
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleInput dispatches slash commands and plain messages.
func (m Model) handleInput(input string) (tea.Model, tea.Cmd) {
	m.err = nil
	m.notice = ""

	command, arg := parseCommand(input)
	switch command {
	case "":
	case "exit", "quit":
		return m, tea.Quit
	case "help":
		m.notice = helpText
		return m, nil
	case "new":
		conv, err := m.session.NewConversation()
		if err != nil {
			m.err = err
			return m, nil
		}
		m.conv = conv
		m.attachments = nil
		m.updateViewport()
		return m, nil
	case "attach":
		if arg == "" {
			m.notice = "usage: /attach <path or url>"
			return m, nil
		}
		m.attachments = append(m.attachments, chat.NewAttachment(arg))
		return m, nil
	case "detach":
		m.attachments = nil
		return m, nil
	case "model":
		if arg == "" {
			m.notice = "model: " + m.modelName
			return m, nil
		}
		settings, err := m.session.UpdateSettings(func(s *config.ChatSettings) error {
			s.Model = arg
			return nil
		})
		if err != nil {
			m.err = err
			return m, nil
		}
		m.modelName = settings.Model
		m.notice = "model set to " + settings.Model
		return m, nil
	case "image":
		return m.start(m.generateImage(arg))
	case "video":
		cmd := m.generateVideo(arg)
		m.attachments = nil
		return m.start(cmd)
	default:
		m.notice = fmt.Sprintf("unknown command /%s", command)
		return m, nil
	}

	attachments := m.attachments
	m.attachments = nil
	return m.start(m.send(input, attachments))
}

func (m Model) start(cmd tea.Cmd) (tea.Model, tea.Cmd) {
	m.loading = true
	return m, tea.Batch(cmd, m.spinner.Tick)
}

const helpText = "/new  /attach <path|url>  /detach  /image <prompt>  /video <prompt>  /model [id]  /exit"

// parseCommand splits "/name arg" input. Plain text returns an empty name.
func parseCommand(input string) (string, string) {
	if !strings.HasPrefix(input, "/") {
		return "", ""
	}
	name, arg, _ := strings.Cut(strings.TrimPrefix(input, "/"), " ")
	return strings.ToLower(name), strings.TrimSpace(arg)
}

func (m Model) send(text string, attachments []chat.Attachment) tea.Cmd {
	session, convID := m.session, m.conv.ID
	return func() tea.Msg {
		_, err := session.Send(context.Background(), convID, text, attachments)
		return doneMsg{convID: convID, err: err}
	}
}

func (m Model) generateImage(prompt string) tea.Cmd {
	session, convID := m.session, m.conv.ID
	return func() tea.Msg {
		_, err := session.GenerateImage(context.Background(), convID, "", prompt, models.DefaultImageGenOptions())
		return doneMsg{convID: convID, err: err}
	}
}

func (m Model) generateVideo(prompt string) tea.Cmd {
	session, convID := m.session, m.conv.ID
	var opts models.VideoGenOptions
	for _, a := range m.attachments {
		if a.Kind == chat.KindImage {
			opts.ImageURL = a.Path
			break
		}
	}
	return func() tea.Msg {
		task, err := session.GenerateVideo(context.Background(), convID, "", prompt, opts)
		if err != nil {
			return doneMsg{convID: convID, err: err}
		}
		return doneMsg{convID: convID, notice: "video task " + task.TaskID + " is running in the background"}
	}
}

func (m *Model) reload(convID string) {
	if convID == "" {
		return
	}
	conv, err := m.session.Conversation(convID)
	if err != nil {
		m.err = err
		return
	}
	if m.conv == nil || m.conv.ID == conv.ID {
		m.conv = conv
		m.updateViewport()
		m.viewport.GotoBottom()
	}
}

// View renders the TUI
func (m Model) View() string {
	if !m.ready {
		return loadingStyle.Render("  Initializing...")
	}

	contentWidth := m.width - 4
	var sections []string

	title := history.DefaultTitle
	if m.conv != nil {
		title = m.conv.Title
	}
	header := lipgloss.JoinHorizontal(lipgloss.Center,
		titleStyle.Render("✦ GLM Chat"),
		hintStyle.Render("  •  "),
		subtitleStyle.Render(m.modelName),
		hintStyle.Render("  •  "),
		subtitleStyle.Render(title),
	)
	sections = append(sections, headerStyle.Width(contentWidth).Render(header))

	body := m.viewport.View()
	if m.conv == nil || len(m.conv.Messages) == 0 {
		body = m.renderWelcome()
	}
	sections = append(sections, messagesAreaStyle.Width(contentWidth).Height(m.viewport.Height).Render(body))

	var input string
	if m.loading {
		input = m.spinner.View() + loadingStyle.Render(" waiting for GLM...")
	} else {
		label := inputLabelStyle.Render("You")
		if len(m.attachments) > 0 {
			names := make([]string, len(m.attachments))
			for i, a := range m.attachments {
				names[i] = a.Name
			}
			label += attachmentStyle.Render("  📎 " + strings.Join(names, ", "))
		}
		input = lipgloss.JoinVertical(lipgloss.Left, label, m.textarea.View())
	}
	sections = append(sections, inputPanelStyle.Width(contentWidth).Render(input))

	sections = append(sections, m.renderStatusBar(contentWidth))
	if m.notice != "" {
		sections = append(sections, noticeStyle.Render(m.notice))
	}
	if m.err != nil {
		sections = append(sections, FormatError(m.err))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderWelcome() string {
	width := m.viewport.Width - 4
	content := lipgloss.JoinVertical(lipgloss.Center,
		welcomeTitleStyle.Width(width).Render("Welcome to GLM Chat"),
		"",
		welcomeStyle.Width(width).Render("Type a message below. /help lists commands."),
	)
	top := (m.viewport.Height - lipgloss.Height(content)) / 2
	if top < 0 {
		top = 0
	}
	return strings.Repeat("\n", top) + content
}

func (m Model) renderStatusBar(width int) string {
	shortcuts := []struct{ key, desc string }{
		{"Enter", "Send"},
		{"Esc", "Quit"},
		{"↑↓", "Scroll"},
		{"/help", "Commands"},
	}
	items := make([]string, 0, len(shortcuts))
	for _, s := range shortcuts {
		items = append(items, statusKeyStyle.Render(s.key)+statusDescStyle.Render(" "+s.desc))
	}
	return statusBarStyle.Width(width).Align(lipgloss.Center).Render(strings.Join(items, "  │  "))
}

// updateViewport refreshes the viewport content with styled messages
func (m *Model) updateViewport() {
	if m.conv == nil {
		m.viewport.SetContent("")
		return
	}

	var content strings.Builder
	for i, msg := range m.conv.Messages {
		if i > 0 {
			content.WriteString("\n")
		}
		content.WriteString(m.renderMessage(msg))
	}
	m.viewport.SetContent(content.String())
}

func (m Model) renderMessage(msg history.Message) string {
	var label string
	switch {
	case msg.IsError:
		label = errorLabelStyle.Render("✗ Error")
	case msg.Sender == history.SenderAI:
		label = assistantLabelStyle.Render("✦ GLM")
	default:
		label = userLabelStyle.Render("⬤ You")
	}
	label += " " + timestampStyle.Render(msg.Timestamp.Local().Format(time.Kitchen))

	var body string
	switch {
	case msg.IsError:
		body = lipgloss.NewStyle().Foreground(colorError).Render(msg.Content)
	case msg.Sender == history.SenderAI:
		body = strings.TrimRight(render.MarkdownOrPlain(msg.Content, m.renderOpts), "\n")
	default:
		body = msg.Content
	}

	lines := []string{label, body}
	for _, f := range msg.Files {
		ref := f.Name
		if f.URL != "" && !strings.HasPrefix(f.URL, "data:") {
			ref = f.URL
		}
		lines = append(lines, fileStyle.Render(fmt.Sprintf("[%s] %s", f.Kind, ref)))
	}
	return strings.Join(lines, "\n") + "\n"
}

// RunChat starts the interactive chat. notify is wired so background jobs
// refresh the open conversation.
func RunChat(session ChatSession, opts render.Options, setNotifier func(func(convID string))) error {
	conv, err := session.Current()
	if err != nil {
		return err
	}

	p := tea.NewProgram(NewChatModel(session, conv, opts), tea.WithAltScreen(), tea.WithMouseCellMotion())
	if setNotifier != nil {
		setNotifier(func(convID string) {
			p.Send(ConversationUpdatedMsg{ConversationID: convID})
		})
	}
	_, err = p.Run()
	return err
}
