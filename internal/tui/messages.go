package tui

import (
	"github.com/mmcdole/bookcat/internal/catalog"
)

// Message types for the TUI

// StateChangedMsg signals that the catalog store changed
type StateChangedMsg struct{}

// InitializedMsg signals that the first load finished
type InitializedMsg struct {
	Err error
}

// BooksReloadedMsg signals that a reload or filter change finished
type BooksReloadedMsg struct {
	Err error
}

// BookSavedMsg carries the outcome of a form submission
type BookSavedMsg struct {
	Result catalog.SubmitResult
	Err    error
}

// BookDeletedMsg signals that a delete finished, was declined, or failed
type BookDeletedMsg struct {
	ID  int64
	Err error
}

// EditReadyMsg signals that a fresh copy of a book was loaded into the form
type EditReadyMsg struct {
	ID  int64
	Err error
}

// ConfirmRequestMsg asks the user a yes/no question on behalf of a command
type ConfirmRequestMsg struct {
	Prompt string
	Reply  chan<- bool
}
