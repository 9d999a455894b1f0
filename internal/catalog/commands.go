package catalog

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mmcdole/bookcat/internal/domain"
)

// DeletePrompt is the question asked before a book is deleted
const DeletePrompt = "Are you sure you want to delete this book?"

// Mode is the current state of the command surface
type Mode int

const (
	ModeListing Mode = iota
	ModeEditing
)

func (m Mode) String() string {
	switch m {
	case ModeEditing:
		return "editing"
	default:
		return "listing"
	}
}

// View is a read-only copy of the command surface state
type View struct {
	Mode    Mode
	Editing *domain.Book // nil while creating
	Draft   domain.BookDraft
	Errors  domain.FieldErrors
}

// Creating reports whether the open form will create a new record
func (v View) Creating() bool {
	return v.Mode == ModeEditing && v.Editing == nil
}

// FormTitle is the heading of the open form
func (v View) FormTitle() string {
	if v.Editing != nil {
		return "Edit Book"
	}
	return "Add New Book"
}

// Commands turns user intents into store transitions. It owns only the
// form: mode, the record being edited, the draft and its field errors.
type Commands struct {
	store     *Store
	confirmer domain.Confirmer
	logger    *slog.Logger

	mu      sync.Mutex
	mode    Mode
	editing *domain.Book
	draft   domain.BookDraft
	errors  domain.FieldErrors
}

// NewCommands creates a command surface over store. Deletes are only
// performed when confirmer agrees; a nil confirmer declines everything.
func NewCommands(store *Store, confirmer domain.Confirmer, logger *slog.Logger) *Commands {
	if logger == nil {
		logger = slog.Default()
	}
	return &Commands{
		store:     store,
		confirmer: confirmer,
		logger:    logger,
		errors:    domain.FieldErrors{},
	}
}

// Store returns the underlying catalog store
func (c *Commands) Store() *Store {
	return c.store
}

// View returns a copy of the form state
func (c *Commands) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	errs := make(domain.FieldErrors, len(c.errors))
	for k, v := range c.errors {
		errs[k] = v
	}
	var editing *domain.Book
	if c.editing != nil {
		b := *c.editing
		editing = &b
	}
	return View{Mode: c.mode, Editing: editing, Draft: c.draft, Errors: errs}
}

func (c *Commands) openLocked(editing *domain.Book, draft domain.BookDraft) {
	c.mode = ModeEditing
	c.editing = editing
	c.draft = draft
	c.errors = domain.FieldErrors{}
}

func (c *Commands) closeLocked() {
	c.mode = ModeListing
	c.editing = nil
	c.draft = domain.BookDraft{}
	c.errors = domain.FieldErrors{}
}

// AddBook opens an empty form for a new record
func (c *Commands) AddBook() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openLocked(nil, domain.BookDraft{})
}

// EditBook opens the form prefilled from b
func (c *Commands) EditBook(b domain.Book) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openLocked(&b, domain.DraftFromBook(b))
}

// EditBookByID fetches a fresh copy of the record and opens it for editing
func (c *Commands) EditBookByID(ctx context.Context, id int64) error {
	book, err := c.store.FetchBook(ctx, id)
	if err != nil {
		return err
	}
	c.EditBook(*book)
	return nil
}

// SetField changes one draft field and clears its error
func (c *Commands) SetField(field, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != ModeEditing {
		return domain.ErrNotEditing
	}
	c.draft = c.draft.Set(field, value)
	delete(c.errors, field)
	return nil
}

// SetDraft replaces the whole draft, clearing errors of changed fields
func (c *Commands) SetDraft(d domain.BookDraft) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != ModeEditing {
		return domain.ErrNotEditing
	}
	for _, field := range domain.DraftFields {
		if c.draft.Get(field) != d.Get(field) {
			delete(c.errors, field)
		}
	}
	c.draft = d
	return nil
}

// Cancel discards the form without contacting the service
func (c *Commands) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

// Submit saves the draft. On success the form closes before the list is
// reloaded; on any failure the form stays open with the draft intact.
func (c *Commands) Submit(ctx context.Context) (SubmitResult, error) {
	c.mu.Lock()
	if c.mode != ModeEditing {
		c.mu.Unlock()
		return SubmitResult{}, domain.ErrNotEditing
	}
	draft := c.draft
	var editingID int64
	if c.editing != nil {
		editingID = c.editing.ID
	}
	c.mu.Unlock()

	res := c.store.Save(ctx, draft, editingID)

	switch {
	case res.Errors.HasErrors():
		c.mu.Lock()
		c.errors = res.Errors
		c.mu.Unlock()
		c.logger.Debug("draft rejected", "fields", len(res.Errors))
		return res, nil
	case res.Err != nil:
		return res, nil
	}

	c.mu.Lock()
	c.closeLocked()
	c.mu.Unlock()

	_ = c.store.ReloadBooks(ctx)
	return res, nil
}

// Delete asks for confirmation and then deletes the record
func (c *Commands) Delete(ctx context.Context, id int64) error {
	if c.confirmer == nil {
		return domain.ErrDeleteDeclined
	}
	ok, err := c.confirmer.Confirm(ctx, DeletePrompt)
	if err != nil {
		return err
	}
	if !ok {
		c.logger.Debug("delete declined", "id", id)
		return domain.ErrDeleteDeclined
	}
	return c.store.Delete(ctx, id)
}

// ChangeFilter restricts the list to one category
func (c *Commands) ChangeFilter(ctx context.Context, categoryID int64) error {
	return c.store.SetFilter(ctx, categoryID)
}

// ClearFilter shows all categories again
func (c *Commands) ClearFilter(ctx context.Context) error {
	return c.store.ClearFilter(ctx)
}
