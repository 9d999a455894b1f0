package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/bookcat/internal/domain"
	"github.com/mmcdole/bookcat/internal/tui/styles"
)

// View renders the application
func (m Model) View() string {
	if !m.Ready {
		return "Loading..."
	}

	if m.State == StateHelp {
		return m.renderHelp()
	}

	contentHeight := m.contentHeight()

	var content string
	switch m.State {
	case StateEditing:
		content = lipgloss.Place(m.Width, contentHeight,
			lipgloss.Center, lipgloss.Center,
			m.Form.View())
	case StateConfirmDelete:
		content = lipgloss.Place(m.Width, contentHeight,
			lipgloss.Center, lipgloss.Center,
			m.renderDeleteConfirmation())
	default:
		content = lipgloss.NewStyle().Height(contentHeight).MaxHeight(contentHeight).Render(m.List.View())
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.renderFilterBar(),
		content,
		m.renderFooter(),
	)
}

func (m Model) renderHeader() string {
	left := styles.TitleStyle.Render("Book Catalog")

	count := len(m.Snapshot.Books)
	noun := "books"
	if count == 1 {
		noun = "book"
	}
	right := styles.DimStyle.Render(fmt.Sprintf("%d %s", count, noun))

	gap := max(m.Width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return left + strings.Repeat(" ", gap) + right
}

// renderFilterBar shows the category choices with the active one highlighted
func (m Model) renderFilterBar() string {
	parts := []string{styles.FilterPromptStyle.Render("Filter by Category:")}

	badge := func(label string, active bool) string {
		if active {
			return styles.BadgeStyle.Render(label)
		}
		return styles.DimBadgeStyle.Render(label)
	}

	parts = append(parts, badge("All Categories", m.Snapshot.Filter == 0))
	for _, c := range m.Snapshot.Categories {
		parts = append(parts, badge(c.Name, c.ID == m.Snapshot.Filter))
	}
	if m.Snapshot.Filter != 0 {
		parts = append(parts, styles.AccentStyle.Render("c")+styles.DimStyle.Render(" Clear Filter"))
	}

	bar := strings.Join(parts, " ")
	if m.Width > 0 && lipgloss.Width(bar) > m.Width {
		bar = lipgloss.NewStyle().MaxWidth(m.Width).Render(bar)
	}
	return bar
}

func (m Model) renderFooter() string {
	// Left side: spinner while busy, otherwise the live notification
	var left string
	switch {
	case m.Snapshot.IsSubmitting:
		left = m.Spinner.View() + " " + styles.DimStyle.Render("Saving...")
	case m.Snapshot.IsLoading:
		left = m.Spinner.View() + " " + styles.DimStyle.Render("Loading...")
	case m.Snapshot.Notification.Kind == domain.NotificationSuccess:
		left = styles.SuccessStyle.Render(m.Snapshot.Notification.Message)
	case m.Snapshot.Notification.Kind == domain.NotificationError:
		left = styles.ErrorStyle.Render(m.Snapshot.Notification.Message)
	}

	// Right side: "? help" hint
	right := styles.AccentStyle.Render("?") + styles.DimStyle.Render(" help")

	// Center: short key hints when browsing and there is room
	var center string
	if m.State == StateBrowsing {
		center = m.Help.ShortHelpView(Keys.ShortHelp())
	}

	leftWidth := lipgloss.Width(left)
	centerWidth := lipgloss.Width(center)
	rightWidth := lipgloss.Width(right)

	if leftWidth+centerWidth+rightWidth+2 >= m.Width {
		gap := max(m.Width-leftWidth-rightWidth, 0)
		return left + strings.Repeat(" ", gap) + right
	}

	available := m.Width - leftWidth - rightWidth
	leftPad := (available - centerWidth) / 2
	rightPad := available - centerWidth - leftPad

	return left + strings.Repeat(" ", leftPad) + center + strings.Repeat(" ", rightPad) + right
}

// renderHelp renders the help screen
func (m Model) renderHelp() string {
	body := lipgloss.JoinVertical(lipgloss.Left,
		styles.ModalTitleStyle.Render("Keys"),
		m.Help.FullHelpView(Keys.FullHelp()),
		"",
		styles.DimStyle.Render("Form: tab/↓ next · S-tab/↑ previous · ←/→ category · C-s save · esc cancel"),
		"",
		styles.DimStyle.Render("Press ? or esc to return..."),
	)

	return lipgloss.Place(m.Width, m.Height,
		lipgloss.Center, lipgloss.Center,
		styles.ModalStyle.Render(body))
}

// renderDeleteConfirmation renders the delete confirmation modal
func (m Model) renderDeleteConfirmation() string {
	title := ""
	if b, ok := m.List.Selected(); ok {
		title = styles.DimStyle.Render(styles.Truncate(b.Title, 36))
	}

	body := lipgloss.JoinVertical(lipgloss.Center,
		styles.ModalTitleStyle.Render("Delete Book?"),
		title,
		"",
		m.confirmPrompt,
		"",
		styles.AccentStyle.Render("[Y]")+" Yes      "+styles.AccentStyle.Render("[N]")+" No",
	)

	return styles.ModalStyle.Render(body)
}
