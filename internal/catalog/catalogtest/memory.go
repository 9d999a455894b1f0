// Package catalogtest provides an in-memory catalog service for tests of
// the user-facing surfaces.
package catalogtest

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/mmcdole/bookcat/internal/domain"
)

// MemoryClient is a domain.CatalogClient backed by maps
type MemoryClient struct {
	mu         sync.Mutex
	books      map[int64]domain.Book
	categories []domain.Category
	nextID     int64

	// Failures injected by tests
	DeleteErr error
	SaveErr   error

	Deleted []int64
}

// NewMemoryClient creates a client holding the given records
func NewMemoryClient(categories []domain.Category, books ...domain.Book) *MemoryClient {
	c := &MemoryClient{
		books:      make(map[int64]domain.Book, len(books)),
		categories: append([]domain.Category(nil), categories...),
		nextID:     1,
	}
	for _, b := range books {
		c.books[b.ID] = b
		if b.ID >= c.nextID {
			c.nextID = b.ID + 1
		}
	}
	return c
}

// Books returns every stored book ordered by ID
func (c *MemoryClient) Books() []domain.Book {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sortedLocked(0)
}

func (c *MemoryClient) sortedLocked(categoryID int64) []domain.Book {
	out := make([]domain.Book, 0, len(c.books))
	for _, b := range c.books {
		if categoryID != 0 && b.CategoryID != categoryID {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (c *MemoryClient) ListBooks(ctx context.Context, categoryID int64) ([]domain.Book, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sortedLocked(categoryID), nil
}

func (c *MemoryClient) GetBook(ctx context.Context, id int64) (*domain.Book, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.books[id]
	if !ok {
		return nil, notFound("get book")
	}
	return &b, nil
}

func (c *MemoryClient) CreateBook(ctx context.Context, in domain.BookInput) (*domain.Book, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SaveErr != nil {
		return nil, c.SaveErr
	}
	b := fromInput(c.nextID, in)
	c.nextID++
	c.books[b.ID] = b
	return &b, nil
}

func (c *MemoryClient) UpdateBook(ctx context.Context, id int64, in domain.BookInput) (*domain.Book, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SaveErr != nil {
		return nil, c.SaveErr
	}
	if _, ok := c.books[id]; !ok {
		return nil, notFound("update book")
	}
	b := fromInput(id, in)
	c.books[id] = b
	return &b, nil
}

func (c *MemoryClient) DeleteBook(ctx context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.DeleteErr != nil {
		return c.DeleteErr
	}
	if _, ok := c.books[id]; !ok {
		return notFound("delete book")
	}
	delete(c.books, id)
	c.Deleted = append(c.Deleted, id)
	return nil
}

func (c *MemoryClient) ListCategories(ctx context.Context) ([]domain.Category, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Category(nil), c.categories...), nil
}

func (c *MemoryClient) SeedCategories(ctx context.Context) error {
	return nil
}

func notFound(op string) error {
	return &domain.RemoteError{Op: op, Status: 404, Message: "Book not found", Err: domain.ErrNotFound}
}

func fromInput(id int64, in domain.BookInput) domain.Book {
	b := domain.Book{
		ID:         id,
		Title:      in.Title,
		Author:     in.Author,
		Price:      in.Price,
		CategoryID: in.CategoryID,
	}
	if math.IsNaN(b.Price) {
		b.Price = 0
	}
	if in.Stock != nil {
		b.Stock = *in.Stock
	}
	return b
}

var _ domain.CatalogClient = (*MemoryClient)(nil)
