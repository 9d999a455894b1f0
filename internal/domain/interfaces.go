package domain

import "context"

// CatalogClient is the remote data source the catalog core depends on.
// Every call may fail; callers never assume success.
type CatalogClient interface {
	// ListBooks returns books, restricted to one category when categoryID != 0
	ListBooks(ctx context.Context, categoryID int64) ([]Book, error)

	GetBook(ctx context.Context, id int64) (*Book, error)
	CreateBook(ctx context.Context, in BookInput) (*Book, error)
	UpdateBook(ctx context.Context, id int64, in BookInput) (*Book, error)
	DeleteBook(ctx context.Context, id int64) error

	ListCategories(ctx context.Context) ([]Category, error)

	// SeedCategories bulk-inserts the default categories.
	// Only called when ListCategories came back empty.
	SeedCategories(ctx context.Context) error
}

// CatalogCache holds the last known remote state for offline display.
// Reads never touch the network.
type CatalogCache interface {
	GetCategories() ([]Category, bool)
	SaveCategories(categories []Category) error

	GetBooks(categoryID int64) ([]Book, bool)
	SaveBooks(categoryID int64, books []Book) error

	InvalidateBooks()
	InvalidateAll()

	Close() error
}

// StateObserver is told whenever the catalog view state changes.
// Implementations must not block.
type StateObserver interface {
	OnStateChange()
}

// ObserverFunc adapts a plain function to StateObserver
type ObserverFunc func()

func (f ObserverFunc) OnStateChange() { f() }

// Confirmer asks the user a yes/no question before a destructive command
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a plain function to Confirmer
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}
