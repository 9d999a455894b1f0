package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/bookcat/internal/domain"
	"github.com/mmcdole/bookcat/internal/tui/styles"
	"github.com/sahilm/fuzzy"
)

// List placeholders
const (
	EmptyListText   = "No books found. Add some books to get started."
	LoadingListText = "Loading books..."
)

// Fixed column widths; the title column takes the rest
const (
	authorWidth   = 20
	priceWidth    = 11
	stockWidth    = 13
	categoryWidth = 14
	minTitleWidth = 10
)

// BookList is a scrollable, searchable table of books
type BookList struct {
	books      []domain.Book
	categories []domain.Category

	// Selection
	cursor     int
	offset     int
	maxVisible int

	// Dimensions
	width  int
	height int

	// Loading state
	loading bool
	spinner string

	// Search state
	searchActive bool
	searchInput  textinput.Model
	searchQuery  string
	filteredIdx  []int // indices into books
}

// NewBookList creates an empty book list
func NewBookList() *BookList {
	ti := textinput.New()
	ti.Placeholder = "type to search..."
	ti.Prompt = "/ "
	ti.PromptStyle = styles.FilterPromptStyle
	ti.TextStyle = styles.FilterStyle

	return &BookList{searchInput: ti}
}

// SetBooks replaces the rows, keeping the cursor on the same book if it is
// still listed.
func (l *BookList) SetBooks(books []domain.Book, categories []domain.Category) {
	var selectedID int64
	if b, ok := l.Selected(); ok {
		selectedID = b.ID
	}

	l.books = books
	l.categories = categories
	if l.searchActive {
		l.applySearch()
	}

	l.cursor = 0
	if selectedID != 0 {
		for i := 0; i < l.ItemCount(); i++ {
			if l.books[l.mapIndex(i)].ID == selectedID {
				l.cursor = i
				break
			}
		}
	}
	l.clampCursor()
	l.ensureVisible()
}

// SetSize updates the list dimensions
func (l *BookList) SetSize(width, height int) {
	l.width = width
	l.height = height
	l.recalcMaxVisible()
	l.ensureVisible()
}

// SetLoading toggles the loading placeholder; spinner is the rendered frame
func (l *BookList) SetLoading(loading bool, spinner string) {
	l.loading = loading
	l.spinner = spinner
}

// Selected returns the book under the cursor
func (l *BookList) Selected() (domain.Book, bool) {
	if l.ItemCount() == 0 || l.cursor < 0 || l.cursor >= l.ItemCount() {
		return domain.Book{}, false
	}
	return l.books[l.mapIndex(l.cursor)], true
}

// Cursor returns the cursor row
func (l *BookList) Cursor() int {
	return l.cursor
}

// ItemCount returns the number of visible rows
func (l *BookList) ItemCount() int {
	if l.filteredIdx != nil {
		return len(l.filteredIdx)
	}
	return len(l.books)
}

// IsSearching reports whether the search input has focus
func (l *BookList) IsSearching() bool {
	return l.searchActive && l.searchInput.Focused()
}

// SearchQuery returns the active search text
func (l *BookList) SearchQuery() string {
	return l.searchQuery
}

// StartSearch focuses the search input
func (l *BookList) StartSearch() tea.Cmd {
	l.searchActive = true
	l.recalcMaxVisible()
	return l.searchInput.Focus()
}

// Update handles navigation and search keys
func (l *BookList) Update(msg tea.Msg) tea.Cmd {
	keyMsg, ok := msg.(tea.KeyMsg)

	// Typing mode
	if l.IsSearching() {
		if ok {
			switch {
			case key.Matches(keyMsg, BookListKeys.Escape):
				l.clearSearch()
				return nil
			case key.Matches(keyMsg, BookListKeys.Enter):
				l.searchInput.Blur()
				return nil
			case keyMsg.Type == tea.KeyBackspace && l.searchInput.Value() == "":
				l.clearSearch()
				return nil
			}
		}
		var cmd tea.Cmd
		l.searchInput, cmd = l.searchInput.Update(msg)
		l.applySearch()
		return cmd
	}

	if !ok {
		return nil
	}

	// Search results shown, input blurred
	if l.searchActive {
		switch {
		case key.Matches(keyMsg, BookListKeys.Escape):
			l.clearSearch()
			return nil
		case key.Matches(keyMsg, BookListKeys.Search):
			return l.searchInput.Focus()
		}
	}

	count := l.ItemCount()
	if count == 0 {
		return nil
	}

	switch {
	case key.Matches(keyMsg, BookListKeys.Down):
		if l.cursor < count-1 {
			l.cursor++
		}
	case key.Matches(keyMsg, BookListKeys.Up):
		if l.cursor > 0 {
			l.cursor--
		}
	case key.Matches(keyMsg, BookListKeys.Home):
		l.cursor = 0
	case key.Matches(keyMsg, BookListKeys.End):
		l.cursor = count - 1
	case key.Matches(keyMsg, BookListKeys.HalfDown):
		l.cursor += max(l.maxVisible/2, 1)
	case key.Matches(keyMsg, BookListKeys.HalfUp):
		l.cursor -= max(l.maxVisible/2, 1)
	}
	l.clampCursor()
	l.ensureVisible()
	return nil
}

func (l *BookList) clampCursor() {
	count := l.ItemCount()
	if l.cursor >= count {
		l.cursor = count - 1
	}
	if l.cursor < 0 {
		l.cursor = 0
	}
}

func (l *BookList) recalcMaxVisible() {
	// Column header plus the two scroll indicator lines
	reserved := 3
	if l.searchActive {
		reserved++
	}
	l.maxVisible = l.height - reserved
	if l.maxVisible < 1 {
		l.maxVisible = 1
	}
}

func (l *BookList) ensureVisible() {
	if l.maxVisible <= 0 {
		return
	}
	if l.cursor < l.offset {
		l.offset = l.cursor
	}
	if l.cursor >= l.offset+l.maxVisible {
		l.offset = l.cursor - l.maxVisible + 1
	}
}

func (l *BookList) clearSearch() {
	l.searchActive = false
	l.searchQuery = ""
	l.filteredIdx = nil
	l.searchInput.SetValue("")
	l.searchInput.Blur()
	l.recalcMaxVisible()
	l.clampCursor()
	l.ensureVisible()
}

func (l *BookList) applySearch() {
	query := l.searchInput.Value()
	l.searchQuery = query

	if query == "" {
		l.filteredIdx = nil
		return
	}

	matches := fuzzy.Find(strings.ToLower(query), l.searchSource())

	l.filteredIdx = make([]int, len(matches))
	for i, match := range matches {
		l.filteredIdx[i] = match.Index
	}

	l.cursor = 0
	l.offset = 0
}

// searchSource is the lowercased text each book is matched against
func (l *BookList) searchSource() []string {
	out := make([]string, len(l.books))
	for i, b := range l.books {
		out[i] = strings.ToLower(b.Title + " " + b.Author + " " + b.CategoryName(l.categories))
	}
	return out
}

func (l *BookList) mapIndex(i int) int {
	if l.filteredIdx != nil && i < len(l.filteredIdx) {
		return l.filteredIdx[i]
	}
	return i
}

// Rendering

func (l *BookList) titleWidth() int {
	w := l.width - 2 - authorWidth - priceWidth - stockWidth - categoryWidth
	if w < minTitleWidth {
		w = minTitleWidth
	}
	return w
}

// View renders the list
func (l *BookList) View() string {
	if l.loading && len(l.books) == 0 {
		return styles.DimStyle.Render(l.spinner + " " + LoadingListText)
	}

	header := l.renderHeader()

	count := l.ItemCount()
	if count == 0 {
		empty := styles.DimStyle.Render(EmptyListText)
		if l.searchActive && l.searchQuery != "" {
			empty = styles.DimStyle.Render("No matches")
		}
		content := header + "\n \n" + empty
		if l.searchActive {
			content += "\n" + l.renderSearchBar()
		}
		return content
	}

	end := l.offset + l.maxVisible
	if end > count {
		end = count
	}

	var lines []string
	for i := l.offset; i < end; i++ {
		lines = append(lines, l.renderBook(l.books[l.mapIndex(i)], i == l.cursor))
	}

	// Scroll indicators always take a line so the layout does not shift
	up := " "
	if l.offset > 0 {
		up = styles.DimStyle.Render("↑ more")
	}
	down := " "
	if end < count {
		down = styles.DimStyle.Render("↓ more")
	}

	content := header + "\n" + up + "\n" + strings.Join(lines, "\n") + "\n" + down
	if l.searchActive {
		content += "\n" + l.renderSearchBar()
	}
	return content
}

func (l *BookList) renderHeader() string {
	cols := []string{
		styles.Pad("Title", l.titleWidth()),
		styles.Pad("Author", authorWidth),
		lipgloss.NewStyle().Width(priceWidth).Align(lipgloss.Right).Render("Price") + " ",
		styles.Pad("Stock", stockWidth),
		styles.Pad("Category", categoryWidth),
	}
	return " " + styles.SubtitleStyle.Bold(true).Render(strings.Join(cols, ""))
}

func (l *BookList) renderBook(b domain.Book, selected bool) string {
	stockFg := styles.Green
	if !b.InStock() {
		stockFg = styles.Red
	}
	dim := styles.DimGray

	price := lipgloss.NewStyle().Width(priceWidth).Align(lipgloss.Right).Render(domain.FormatPrice(b.Price))

	parts := []styles.RowPart{
		{Text: styles.Pad(b.Title, l.titleWidth())},
		{Text: styles.Pad(b.Author, authorWidth)},
		{Text: price + " "},
		{Text: styles.Pad(b.StockLabel(), stockWidth), Foreground: &stockFg, Bold: !b.InStock()},
		{Text: styles.Pad(b.CategoryName(l.categories), categoryWidth), Foreground: &dim},
	}
	return styles.RenderListRow(parts, selected, l.width)
}

func (l *BookList) renderSearchBar() string {
	input := l.searchInput.View()
	countStr := ""
	if l.searchQuery != "" {
		countStr = styles.DimStyle.Render(fmt.Sprintf(" [%d/%d]", l.ItemCount(), len(l.books)))
	}
	return input + countStr
}
