package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/desertthunder/tunex/internal/formatter"
	"github.com/desertthunder/tunex/internal/models"
	"github.com/desertthunder/tunex/internal/shared"
	"github.com/desertthunder/tunex/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	InputView ViewState = iota
	SearchingView
	ResultView
	HistoryView
)

// Searcher is the part of [tasks.Searcher] the TUI drives.
type Searcher interface {
	SearchDetailed(ctx context.Context, raw string, progress chan<- tasks.ProgressUpdate) (tasks.Result, error)
	Sources() []models.SourceHandle
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	searcher     Searcher
	logger       *log.Logger
	width        int
	height       int
	input        textinput.Model
	spinner      spinner.Model
	history      list.Model
	query        string
	progressChan chan tasks.ProgressUpdate
	doneChan     chan searchOutcome
	progress     *tasks.ProgressUpdate
	result       tasks.Result
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model with the provided dependencies. logger may be nil.
func NewModel(ctx context.Context, searcher Searcher, logger *log.Logger) *Model {
	if logger == nil {
		logger = shared.DiscardLogger()
	}

	input := textinput.New()
	input.Placeholder = "artist - title"
	input.Prompt = "♪ "
	input.CharLimit = 200
	input.Focus()

	history := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	history.Title = "Search History"

	return &Model{
		ctx:      ctx,
		view:     InputView,
		searcher: searcher,
		logger:   logger,
		input:    input,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.accent)),
		history:  history,
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Init starts the cursor blinking in the query input.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(msg.Width-8, 20)
		m.history.SetSize(msg.Width-4, msg.Height-4)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case InputView:
			return m.handleInputKeys(msg)
		case SearchingView:
			return m.handleSearchingKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		case HistoryView:
			return m.handleHistoryKeys(msg)
		}

	case spinner.TickMsg:
		if m.view != SearchingView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		switch msg.kind {
		case MsgProgressUpdate:
			update := msg.data.(tasks.ProgressUpdate)
			m.progress = &update
			return m, m.waitForProgress()
		case MsgSearchComplete:
			return m, m.finishSearch(msg.data.(searchOutcome))
		}
	}

	return m.updateComponents(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case InputView:
		return m.renderInput()
	case SearchingView:
		return m.renderSearching()
	case ResultView:
		return m.renderResult()
	case HistoryView:
		return m.renderHistory()
	default:
		return ""
	}
}

func (m *Model) handleInputKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.abort):
		return m, tea.Quit
	case key.Matches(msg, m.keys.search):
		raw := strings.TrimSpace(m.input.Value())
		if raw == "" {
			return m, nil
		}
		m.query = raw
		m.view = SearchingView
		return m, tea.Batch(m.startSearch(raw), m.spinner.Tick)
	case key.Matches(msg, m.keys.history):
		if len(m.history.Items()) > 0 {
			m.input.Blur()
			m.view = HistoryView
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleSearchingKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.abort) {
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.again), key.Matches(msg, m.keys.back):
		return m, m.newSearch()
	case key.Matches(msg, m.keys.history):
		m.view = HistoryView
	}
	return m, nil
}

func (m *Model) handleHistoryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.history.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.history, cmd = m.history.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		return m, m.newSearch()
	case key.Matches(msg, m.keys.open):
		if item, ok := m.history.SelectedItem().(historyItem); ok {
			m.query = item.raw
			m.result = item.result
			m.err = nil
			m.view = ResultView
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.history, cmd = m.history.Update(msg)
	return m, cmd
}

func (m *Model) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case InputView:
		m.input, cmd = m.input.Update(msg)
	case HistoryView:
		m.history, cmd = m.history.Update(msg)
	}
	return m, cmd
}

func (m *Model) newSearch() tea.Cmd {
	m.view = InputView
	m.input.Reset()
	m.progress = nil
	m.err = nil
	return m.input.Focus()
}

// startSearch runs the search in the background. The progress channel is never closed:
// with per-query locking a search can outlive the caller that started it.
func (m *Model) startSearch(raw string) tea.Cmd {
	m.progress = nil
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	m.doneChan = make(chan searchOutcome, 1)

	progress, done := m.progressChan, m.doneChan
	go func() {
		res, err := m.searcher.SearchDetailed(m.ctx, raw, progress)
		done <- searchOutcome{result: res, err: err}
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progress, done := m.progressChan, m.doneChan
	return func() tea.Msg {
		if progress == nil {
			return nil
		}

		select {
		case update := <-progress:
			return progressUpdateMsg(update)
		case out := <-done:
			return searchCompleteMsg(out.result, out.err)
		}
	}
}

func (m *Model) finishSearch(out searchOutcome) tea.Cmd {
	m.progressChan, m.doneChan = nil, nil
	m.result, m.err = out.result, out.err
	m.view = ResultView

	if out.err != nil {
		m.logger.Error("search failed", "query", m.query, "err", out.err)
		return nil
	}

	m.logger.Info("search finished",
		"query", m.query, "found", out.result.Found, "origin", out.result.Origin, "elapsed", out.result.Elapsed)
	return m.history.InsertItem(0, historyItem{raw: m.query, result: out.result})
}

func (m *Model) renderInput() string {
	title := styles.title.Render("Track Search")
	info := fmt.Sprintf("Searching %d sources", len(m.searcher.Sources()))

	helpKeys := []key.Binding{m.keys.search, m.keys.abort}
	if len(m.history.Items()) > 0 {
		helpKeys = []key.Binding{m.keys.search, m.keys.history, m.keys.abort}
	}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n%s\n\n%s\n\n%s", title, styles.help.Render(info), m.input.View(), helpView)
}

func (m *Model) renderSearching() string {
	title := styles.title.Render(fmt.Sprintf("Searching for %q", m.query))

	var message string
	if m.progress != nil {
		message = m.progress.Message
	}
	return fmt.Sprintf("%s\n\n%s %s\n%s", title, m.spinner.View(), m.phaseLine(), styles.help.Render(message))
}

func (m *Model) phaseLine() string {
	if m.progress == nil {
		return "Checking archive and cache..."
	}

	switch m.progress.Phase {
	case tasks.Dispatched:
		return fmt.Sprintf("Querying %d sources...", m.progress.Total)
	case tasks.Racing:
		return "Waiting for a strong match..."
	case tasks.SourceDone:
		return fmt.Sprintf("Sources answered (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.FastPathElapsed:
		return fmt.Sprintf("No strong match yet, waiting on slower sources (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.Settled:
		return "Picking the best match..."
	default:
		return "Processing..."
	}
}

func (m *Model) renderResult() string {
	helpKeys := []key.Binding{m.keys.again, m.keys.history, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	if m.err != nil {
		return fmt.Sprintf("%s\n\n%s", styles.err.Render(fmt.Sprintf("Search failed: %v", m.err)), helpView)
	}

	if !m.result.Found {
		miss := styles.warn.Render(fmt.Sprintf("No match for %q", m.query))
		return fmt.Sprintf("%s\n\n%s", miss, helpView)
	}

	c := m.result.Candidate
	title := styles.ok.Render(fmt.Sprintf("✓ Found via %s in %s", m.result.Origin, m.result.Elapsed.Round(time.Millisecond)))
	info := formatter.Caption(c, m.query)

	var details []string
	if c.SizeBytes > 0 {
		details = append(details, formatter.FormatSize(c.SizeBytes))
	}
	if c.MIMEType != "" {
		details = append(details, c.MIMEType)
	}
	details = append(details, fmt.Sprintf("score %d", c.Score))

	return fmt.Sprintf("%s\n\n%s\n%s\n\n%s", title, info, styles.help.Render(strings.Join(details, " • ")), helpView)
}

func (m *Model) renderHistory() string {
	helpKeys := []key.Binding{m.keys.open, m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.history.View(), helpView)
}
