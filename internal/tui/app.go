package tui

import (
	"errors"
	"log/slog"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/bookcat/internal/catalog"
	"github.com/mmcdole/bookcat/internal/domain"
	"github.com/mmcdole/bookcat/internal/tui/components"
	"github.com/mmcdole/bookcat/internal/tui/styles"
)

// ApplicationState represents the current state of the application
type ApplicationState int

const (
	StateBrowsing ApplicationState = iota
	StateEditing
	StateHelp
	StateConfirmDelete
)

// Model is the main Bubble Tea model for the application
type Model struct {
	// Application state
	State ApplicationState
	Ready bool

	// Catalog
	Commands  *catalog.Commands
	Store     *catalog.Store
	confirmer *ModalConfirmer
	changes   chan struct{}
	logger    *slog.Logger

	// UI Components
	List    *components.BookList
	Form    components.BookForm
	Spinner spinner.Model
	Help    help.Model

	// Data
	Snapshot domain.Snapshot

	// Pending delete confirmation
	confirmPrompt string
	confirmReply  chan<- bool

	// Dimensions
	Width  int
	Height int
}

// NewModel creates the application model over store. The model owns its own
// command surface so deletes are confirmed through a modal.
func NewModel(store *catalog.Store, logger *slog.Logger) Model {
	if logger == nil {
		logger = slog.Default()
	}

	confirmer := NewModalConfirmer()
	changes := make(chan struct{}, 1)
	store.Subscribe(NewChannelObserver(changes))

	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.SpinnerStyle))

	h := help.New()
	h.Styles.ShortKey = styles.HelpKeyStyle
	h.Styles.FullKey = styles.HelpKeyStyle
	h.Styles.ShortDesc = styles.HelpDescStyle
	h.Styles.FullDesc = styles.HelpDescStyle

	m := Model{
		State:     StateBrowsing,
		Commands:  catalog.NewCommands(store, confirmer, logger),
		Store:     store,
		confirmer: confirmer,
		changes:   changes,
		logger:    logger,
		List:      components.NewBookList(),
		Form:      components.NewBookForm(),
		Spinner:   sp,
		Help:      h,
	}
	m.refresh()
	return m
}

// Init initializes the application
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		InitializeCmd(m.Store),
		WaitForChangeCmd(m.changes),
		m.confirmer.WaitForConfirmCmd(),
		m.Spinner.Tick,
	)
}

// Update handles all messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Ready = true
		m.updateLayout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		m.List.SetLoading(m.Snapshot.IsLoading, m.Spinner.View())
		return m, cmd

	case StateChangedMsg:
		m.refresh()
		return m, WaitForChangeCmd(m.changes)

	case ConfirmRequestMsg:
		m.confirmPrompt = msg.Prompt
		m.confirmReply = msg.Reply
		m.State = StateConfirmDelete
		return m, m.confirmer.WaitForConfirmCmd()

	case InitializedMsg:
		if msg.Err != nil {
			m.logger.Warn("initial load failed", "error", msg.Err)
		}
		m.refresh()
		return m, nil

	case BooksReloadedMsg:
		m.refresh()
		return m, nil

	case BookSavedMsg:
		m.Form.SetSubmitting(false)
		if msg.Err != nil {
			// Form was closed underneath the save
			m.logger.Debug("submit ignored", "error", msg.Err)
		} else if msg.Result.Saved() {
			m.Form.Hide()
			m.State = StateBrowsing
		} else {
			m.Form.SetErrors(m.Commands.View().Errors)
		}
		m.refresh()
		return m, nil

	case BookDeletedMsg:
		if msg.Err != nil && !errors.Is(msg.Err, domain.ErrDeleteDeclined) {
			m.logger.Debug("delete failed", "id", msg.ID, "error", msg.Err)
		}
		m.refresh()
		return m, nil

	case EditReadyMsg:
		if msg.Err != nil {
			// The store already shows the failure
			return m, nil
		}
		v := m.Commands.View()
		if v.Mode != catalog.ModeEditing || m.State != StateBrowsing {
			return m, nil
		}
		m.State = StateEditing
		return m, m.Form.Open(v.Editing != nil, v.Draft, m.Snapshot.Categories)
	}

	return m, nil
}

// refresh copies the store state into the components
func (m *Model) refresh() {
	m.Snapshot = m.Store.Snapshot()
	m.List.SetBooks(m.Snapshot.Books, m.Snapshot.Categories)
	m.List.SetLoading(m.Snapshot.IsLoading, m.Spinner.View())
	if m.Form.IsVisible() {
		m.Form.SetSubmitting(m.Snapshot.IsSubmitting)
	}
}
