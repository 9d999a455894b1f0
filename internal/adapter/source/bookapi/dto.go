package bookapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mmcdole/bookcat/internal/domain"
)

// flexFloat accepts both JSON numbers and numeric strings.
// Decimal columns are commonly serialized as strings ("12.50").
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("invalid decimal %q: %w", s, err)
		}
		*f = flexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

// CategoryDTO is a category as served by /book-categories
type CategoryDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// BookDTO is a book as served by /books
type BookDTO struct {
	ID             int64        `json:"id"`
	Title          string       `json:"title"`
	Author         string       `json:"author"`
	Price          flexFloat    `json:"price"`
	Stock          int          `json:"stock"`
	BookCategoryID int64        `json:"bookCategoryId"`
	Category       *CategoryDTO `json:"category,omitempty"`
}

// bookPayload is the body of POST /books and PATCH /books/{id}
type bookPayload struct {
	Title          string   `json:"title"`
	Author         string   `json:"author"`
	Price          *float64 `json:"price"`
	Stock          *int     `json:"stock"`
	BookCategoryID int64    `json:"bookCategoryId"`
}

// errorResponse is the service's error envelope.
// Message is either a string or a list of strings.
type errorResponse struct {
	StatusCode int             `json:"statusCode"`
	Message    json.RawMessage `json:"message"`
	Error      string          `json:"error"`
}

// MapBook converts a wire book into a domain book
func MapBook(dto BookDTO) domain.Book {
	b := domain.Book{
		ID:         dto.ID,
		Title:      dto.Title,
		Author:     dto.Author,
		Price:      float64(dto.Price),
		Stock:      dto.Stock,
		CategoryID: dto.BookCategoryID,
	}
	if dto.Category != nil {
		cat := MapCategory(*dto.Category)
		b.Category = &cat
		if b.CategoryID == 0 {
			b.CategoryID = cat.ID
		}
	}
	return b
}

// MapBooks converts a slice of wire books, never returning nil
func MapBooks(dtos []BookDTO) []domain.Book {
	books := make([]domain.Book, 0, len(dtos))
	for _, dto := range dtos {
		books = append(books, MapBook(dto))
	}
	return books
}

// MapCategory converts a wire category into a domain category
func MapCategory(dto CategoryDTO) domain.Category {
	return domain.Category{ID: dto.ID, Name: dto.Name}
}

// MapCategories converts a slice of wire categories, never returning nil
func MapCategories(dtos []CategoryDTO) []domain.Category {
	cats := make([]domain.Category, 0, len(dtos))
	for _, dto := range dtos {
		cats = append(cats, MapCategory(dto))
	}
	return cats
}

func newBookPayload(in domain.BookInput) bookPayload {
	in = in.Normalized()
	p := bookPayload{
		Title:          in.Title,
		Author:         in.Author,
		Stock:          in.Stock,
		BookCategoryID: in.CategoryID,
	}
	if !math.IsNaN(in.Price) && !math.IsInf(in.Price, 0) {
		price := in.Price
		p.Price = &price
	}
	return p
}

// parseErrorMessage extracts a human-readable message from an error body.
// Returns "" when the body carries none.
func parseErrorMessage(body []byte) string {
	var resp errorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return ""
	}
	if len(resp.Message) == 0 {
		return ""
	}

	var single string
	if err := json.Unmarshal(resp.Message, &single); err == nil {
		return strings.TrimSpace(single)
	}

	var many []string
	if err := json.Unmarshal(resp.Message, &many); err == nil {
		return strings.Join(many, "; ")
	}
	return ""
}
