package components

import (
	"strconv"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/bookcat/internal/domain"
	"github.com/mmcdole/bookcat/internal/tui/styles"
)

// FormEventKind tells the owner what a key press did to the form
type FormEventKind int

const (
	FormNone FormEventKind = iota
	FormChanged
	FormSubmit
	FormCancel
)

// FormEvent is returned from BookForm.Update
type FormEvent struct {
	Kind  FormEventKind
	Field string // set for FormChanged
}

// CategoryPlaceholder is shown while no category is selected
const CategoryPlaceholder = "Select a category"

const formWidth = 44

var fieldLabels = map[string]string{
	domain.FieldTitle:    "Title *",
	domain.FieldAuthor:   "Author *",
	domain.FieldPrice:    "Price *",
	domain.FieldStock:    "Stock *",
	domain.FieldCategory: "Category *",
}

// textFields are the draft fields edited through a text input, in form order
var textFields = []string{domain.FieldTitle, domain.FieldAuthor, domain.FieldPrice, domain.FieldStock}

// BookForm edits a BookDraft. The category is picked from the loaded
// categories rather than typed.
type BookForm struct {
	visible    bool
	editing    bool
	submitting bool

	inputs      []textinput.Model
	focus       int // index into domain.DraftFields
	categories  []domain.Category
	categoryIdx int // -1 = none selected
	errors      domain.FieldErrors
}

// NewBookForm creates a hidden form
func NewBookForm() BookForm {
	placeholders := []string{"Enter book title", "Enter author name", "Enter price", "Enter stock quantity"}
	limits := []int{200, 120, 12, 9}

	inputs := make([]textinput.Model, len(textFields))
	for i := range textFields {
		ti := textinput.New()
		ti.Placeholder = placeholders[i]
		ti.CharLimit = limits[i]
		ti.Width = formWidth - 14
		ti.Prompt = ""
		ti.TextStyle = lipgloss.NewStyle().Foreground(styles.White)
		ti.PlaceholderStyle = styles.DimStyle
		inputs[i] = ti
	}

	return BookForm{inputs: inputs, categoryIdx: -1, errors: domain.FieldErrors{}}
}

// Open shows the form prefilled from draft
func (f *BookForm) Open(editing bool, draft domain.BookDraft, categories []domain.Category) tea.Cmd {
	f.visible = true
	f.editing = editing
	f.submitting = false
	f.errors = domain.FieldErrors{}
	f.categories = categories

	for i, field := range textFields {
		f.inputs[i].SetValue(draft.Get(field))
		f.inputs[i].CursorEnd()
	}

	f.categoryIdx = -1
	if id, err := strconv.ParseInt(draft.CategoryID, 10, 64); err == nil {
		for i, c := range categories {
			if c.ID == id {
				f.categoryIdx = i
				break
			}
		}
	}

	return f.setFocus(0)
}

// Hide dismisses the form
func (f *BookForm) Hide() {
	f.visible = false
	for i := range f.inputs {
		f.inputs[i].Blur()
	}
}

// IsVisible returns whether the form is shown
func (f BookForm) IsVisible() bool {
	return f.visible
}

// Title is the form heading
func (f BookForm) Title() string {
	if f.editing {
		return "Edit Book"
	}
	return "Add New Book"
}

// FocusedField returns the draft field that has focus
func (f BookForm) FocusedField() string {
	return domain.DraftFields[f.focus]
}

// Value returns the current raw value of a draft field
func (f BookForm) Value(field string) string {
	if field == domain.FieldCategory {
		if f.categoryIdx < 0 || f.categoryIdx >= len(f.categories) {
			return ""
		}
		return strconv.FormatInt(f.categories[f.categoryIdx].ID, 10)
	}
	for i, tf := range textFields {
		if tf == field {
			return f.inputs[i].Value()
		}
	}
	return ""
}

// Draft returns the form contents as a draft
func (f BookForm) Draft() domain.BookDraft {
	var d domain.BookDraft
	for _, field := range domain.DraftFields {
		d = d.Set(field, f.Value(field))
	}
	return d
}

// SetErrors shows field errors under their inputs
func (f *BookForm) SetErrors(errs domain.FieldErrors) {
	f.errors = errs
}

// SetSubmitting disables input while a save is in flight
func (f *BookForm) SetSubmitting(submitting bool) {
	f.submitting = submitting
}

func (f *BookForm) setFocus(i int) tea.Cmd {
	n := len(domain.DraftFields)
	f.focus = (i%n + n) % n

	var cmd tea.Cmd
	for j := range f.inputs {
		if j == f.focus {
			cmd = f.inputs[j].Focus()
		} else {
			f.inputs[j].Blur()
		}
	}
	return cmd
}

func (f *BookForm) cycleCategory(delta int) bool {
	n := len(f.categories)
	if n == 0 {
		return false
	}
	if f.categoryIdx < 0 {
		if delta > 0 {
			f.categoryIdx = 0
		} else {
			f.categoryIdx = n - 1
		}
		return true
	}
	f.categoryIdx = ((f.categoryIdx+delta)%n + n) % n
	return true
}

// Update handles input events
func (f BookForm) Update(msg tea.Msg) (BookForm, tea.Cmd, FormEvent) {
	if !f.visible || f.submitting {
		return f, nil, FormEvent{}
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(keyMsg, BookFormKeys.Cancel):
			return f, nil, FormEvent{Kind: FormCancel}
		case key.Matches(keyMsg, BookFormKeys.Submit):
			return f, nil, FormEvent{Kind: FormSubmit}
		case key.Matches(keyMsg, BookFormKeys.Enter):
			if f.focus == len(domain.DraftFields)-1 {
				return f, nil, FormEvent{Kind: FormSubmit}
			}
			cmd := f.setFocus(f.focus + 1)
			return f, cmd, FormEvent{}
		case key.Matches(keyMsg, BookFormKeys.Next):
			cmd := f.setFocus(f.focus + 1)
			return f, cmd, FormEvent{}
		case key.Matches(keyMsg, BookFormKeys.Prev):
			cmd := f.setFocus(f.focus - 1)
			return f, cmd, FormEvent{}
		}

		if f.FocusedField() == domain.FieldCategory {
			delta := 0
			switch {
			case key.Matches(keyMsg, BookFormKeys.Left):
				delta = -1
			case key.Matches(keyMsg, BookFormKeys.Right), keyMsg.String() == " ":
				delta = 1
			}
			if delta != 0 && f.cycleCategory(delta) {
				return f, nil, FormEvent{Kind: FormChanged, Field: domain.FieldCategory}
			}
			return f, nil, FormEvent{}
		}
	}

	if f.focus >= len(f.inputs) {
		return f, nil, FormEvent{}
	}

	before := f.inputs[f.focus].Value()
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	if f.inputs[f.focus].Value() != before {
		return f, cmd, FormEvent{Kind: FormChanged, Field: f.FocusedField()}
	}
	return f, cmd, FormEvent{}
}

// View renders the form
func (f BookForm) View() string {
	if !f.visible {
		return ""
	}

	rows := []string{styles.ModalTitleStyle.Render(f.Title())}

	for i, field := range domain.DraftFields {
		label := styles.LabelStyle.Render(fieldLabels[field])
		if i == f.focus {
			label = styles.FocusedLabelStyle.Render(fieldLabels[field])
		}

		var value string
		if field == domain.FieldCategory {
			value = f.renderCategory(i == f.focus)
		} else {
			value = f.inputs[i].View()
		}
		rows = append(rows, label+value)

		if msg, ok := f.errors[field]; ok {
			rows = append(rows, styles.FieldErrorStyle.Render(msg))
		} else {
			rows = append(rows, "")
		}
	}

	rows = append(rows, f.renderButtons())

	return styles.ModalStyle.Width(formWidth).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (f BookForm) renderCategory(focused bool) string {
	name := CategoryPlaceholder
	style := styles.DimStyle
	if f.categoryIdx >= 0 && f.categoryIdx < len(f.categories) {
		name = f.categories[f.categoryIdx].Name
		style = lipgloss.NewStyle().Foreground(styles.White)
	}
	if focused {
		return styles.AccentStyle.Render("‹ ") + style.Render(name) + styles.AccentStyle.Render(" ›")
	}
	return "  " + style.Render(name)
}

func (f BookForm) renderButtons() string {
	label := "Add Book"
	if f.editing {
		label = "Update Book"
	}
	if f.submitting {
		label = "Saving..."
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		styles.PrimaryButtonStyle.Render(label),
		"  ",
		styles.ButtonStyle.Render("Cancel"),
		"  ",
		styles.DimStyle.Render("C-s save · esc cancel"),
	)
}
