package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/bookcat/internal/catalog"
)

const (
	requestTimeout = 30 * time.Second
	// Covers the time the user takes to answer the confirmation modal
	deleteTimeout = 5 * time.Minute
)

// Command factories for async operations

// InitializeCmd loads categories and books
func InitializeCmd(store *catalog.Store) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		return InitializedMsg{Err: store.Initialize(ctx)}
	}
}

// ReloadBooksCmd refreshes the list under the current filter
func ReloadBooksCmd(store *catalog.Store) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		return BooksReloadedMsg{Err: store.ReloadBooks(ctx)}
	}
}

// ChangeFilterCmd restricts the list to one category (0 = all)
func ChangeFilterCmd(cmds *catalog.Commands, categoryID int64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		if categoryID == 0 {
			return BooksReloadedMsg{Err: cmds.ClearFilter(ctx)}
		}
		return BooksReloadedMsg{Err: cmds.ChangeFilter(ctx, categoryID)}
	}
}

// SubmitCmd saves the open form
func SubmitCmd(cmds *catalog.Commands) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		res, err := cmds.Submit(ctx)
		return BookSavedMsg{Result: res, Err: err}
	}
}

// DeleteBookCmd asks for confirmation and deletes a book
func DeleteBookCmd(cmds *catalog.Commands, id int64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), deleteTimeout)
		defer cancel()

		return BookDeletedMsg{ID: id, Err: cmds.Delete(ctx, id)}
	}
}

// EditBookCmd fetches a fresh copy of a book and opens it for editing
func EditBookCmd(cmds *catalog.Commands, id int64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		return EditReadyMsg{ID: id, Err: cmds.EditBookByID(ctx, id)}
	}
}
