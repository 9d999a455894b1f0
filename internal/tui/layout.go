package tui

// ChromeHeight is the number of lines taken by header, filter bar and footer
const ChromeHeight = 4

// contentHeight is what is left for the list or a modal
func (m Model) contentHeight() int {
	return max(m.Height-ChromeHeight, 1)
}

// updateLayout resizes components after the window changed
func (m *Model) updateLayout() {
	m.Help.Width = m.Width
	m.List.SetSize(m.Width, m.contentHeight())
}
