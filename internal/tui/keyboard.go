package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/bookcat/internal/domain"
	"github.com/mmcdole/bookcat/internal/tui/components"
)

// handleKeyMsg handles keyboard input
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Handle state-specific keys
	switch m.State {
	case StateHelp:
		if key.Matches(msg, Keys.Help) || key.Matches(msg, Keys.Quit) || msg.String() == "esc" {
			m.State = StateBrowsing
		}
		return m, nil

	case StateConfirmDelete:
		switch {
		case key.Matches(msg, Keys.Confirm):
			m.answerConfirm(true)
		case key.Matches(msg, Keys.Deny):
			m.answerConfirm(false)
		}
		return m, nil

	case StateEditing:
		return m.handleFormKey(msg)
	}

	// Search input swallows everything
	if m.List.IsSearching() {
		return m, m.List.Update(msg)
	}

	switch {
	case key.Matches(msg, Keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, Keys.Help):
		m.State = StateHelp
		return m, nil

	case key.Matches(msg, Keys.Add):
		m.Commands.AddBook()
		m.State = StateEditing
		v := m.Commands.View()
		return m, m.Form.Open(false, v.Draft, m.Snapshot.Categories)

	case key.Matches(msg, Keys.Edit):
		if b, ok := m.List.Selected(); ok {
			return m, EditBookCmd(m.Commands, b.ID)
		}
		return m, nil

	case key.Matches(msg, Keys.Delete):
		if b, ok := m.List.Selected(); ok {
			return m, DeleteBookCmd(m.Commands, b.ID)
		}
		return m, nil

	case key.Matches(msg, Keys.NextCategory):
		return m, ChangeFilterCmd(m.Commands, nextFilter(m.Snapshot, 1))

	case key.Matches(msg, Keys.PrevCategory):
		return m, ChangeFilterCmd(m.Commands, nextFilter(m.Snapshot, -1))

	case key.Matches(msg, Keys.ClearFilter):
		if m.Snapshot.Filter == 0 {
			return m, nil
		}
		return m, ChangeFilterCmd(m.Commands, 0)

	case key.Matches(msg, Keys.Search):
		return m, m.List.StartSearch()

	case key.Matches(msg, Keys.Refresh):
		return m, ReloadBooksCmd(m.Store)

	case key.Matches(msg, Keys.DismissMessage):
		if m.List.SearchQuery() != "" {
			return m, m.List.Update(msg)
		}
		if !m.Snapshot.Notification.IsZero() {
			m.Store.DismissNotification()
		}
		return m, nil
	}

	return m, m.List.Update(msg)
}

func (m Model) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	var cmd tea.Cmd
	var ev components.FormEvent
	m.Form, cmd, ev = m.Form.Update(msg)

	switch ev.Kind {
	case components.FormChanged:
		if err := m.Commands.SetField(ev.Field, m.Form.Value(ev.Field)); err != nil {
			m.logger.Debug("field update ignored", "field", ev.Field, "error", err)
		}
		m.Form.SetErrors(m.Commands.View().Errors)

	case components.FormSubmit:
		m.Form.SetSubmitting(true)
		return m, SubmitCmd(m.Commands)

	case components.FormCancel:
		m.Commands.Cancel()
		m.Form.Hide()
		m.State = StateBrowsing
		return m, nil
	}

	return m, cmd
}

// answerConfirm replies to the pending confirmation and closes the modal
func (m *Model) answerConfirm(ok bool) {
	if m.confirmReply != nil {
		// Reply channels are buffered, so this never blocks
		m.confirmReply <- ok
	}
	m.confirmReply = nil
	m.confirmPrompt = ""
	m.State = StateBrowsing
}

// nextFilter cycles through "all categories" and each loaded category
func nextFilter(snap domain.Snapshot, dir int) int64 {
	ids := make([]int64, 0, len(snap.Categories)+1)
	ids = append(ids, 0)
	for _, c := range snap.Categories {
		ids = append(ids, c.ID)
	}

	cur := 0
	for i, id := range ids {
		if id == snap.Filter {
			cur = i
			break
		}
	}

	n := len(ids)
	return ids[((cur+dir)%n+n)%n]
}
