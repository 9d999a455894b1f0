package domain

import (
	"math"
	"strconv"
	"strings"
)

// Category groups books. Categories are read-mostly on the client.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Book is a committed catalog record as returned by the remote service
type Book struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Author     string    `json:"author"`
	Price      float64   `json:"price"`
	Stock      int       `json:"stock"`
	CategoryID int64     `json:"bookCategoryId"`
	Category   *Category `json:"category,omitempty"` // Embedded by the service on reads
}

// InStock reports whether at least one copy is available
func (b Book) InStock() bool {
	return b.Stock > 0
}

// StockLabel returns "Out of Stock" for zero stock, otherwise the count
func (b Book) StockLabel() string {
	if b.Stock == 0 {
		return "Out of Stock"
	}
	return strconv.Itoa(b.Stock)
}

// CategoryName returns the embedded category name, falling back to a lookup
// in the provided categories.
func (b Book) CategoryName(categories []Category) string {
	if b.Category != nil && b.Category.Name != "" {
		return b.Category.Name
	}
	for _, c := range categories {
		if c.ID == b.CategoryID {
			return c.Name
		}
	}
	return ""
}

// Field names used as keys in FieldErrors and by BookDraft.Set
const (
	FieldTitle    = "title"
	FieldAuthor   = "author"
	FieldPrice    = "price"
	FieldStock    = "stock"
	FieldCategory = "categoryId"
)

// DraftFields lists the draft fields in form order
var DraftFields = []string{FieldTitle, FieldAuthor, FieldPrice, FieldStock, FieldCategory}

// FieldErrors maps a field name to its validation message.
// An empty map means the candidate is valid.
type FieldErrors map[string]string

// HasErrors returns true if at least one field failed validation
func (e FieldErrors) HasErrors() bool {
	return len(e) > 0
}

// BookDraft is the transient form state for a book being created or edited.
// Numeric fields stay as text until the draft is parsed.
type BookDraft struct {
	Title      string
	Author     string
	Price      string
	Stock      string
	CategoryID string
}

// DraftFromBook returns a draft prefilled from a committed record
func DraftFromBook(b Book) BookDraft {
	return BookDraft{
		Title:      b.Title,
		Author:     b.Author,
		Price:      strconv.FormatFloat(b.Price, 'f', -1, 64),
		Stock:      strconv.Itoa(b.Stock),
		CategoryID: strconv.FormatInt(b.CategoryID, 10),
	}
}

// Get returns the raw value of the named field
func (d BookDraft) Get(field string) string {
	switch field {
	case FieldTitle:
		return d.Title
	case FieldAuthor:
		return d.Author
	case FieldPrice:
		return d.Price
	case FieldStock:
		return d.Stock
	case FieldCategory:
		return d.CategoryID
	}
	return ""
}

// Set returns a copy of the draft with the named field replaced
func (d BookDraft) Set(field, value string) BookDraft {
	switch field {
	case FieldTitle:
		d.Title = value
	case FieldAuthor:
		d.Author = value
	case FieldPrice:
		d.Price = value
	case FieldStock:
		d.Stock = value
	case FieldCategory:
		d.CategoryID = value
	}
	return d
}

// BookInput is the parsed, typed form of a draft and the payload sent to the
// remote service on create/update.
type BookInput struct {
	Title      string
	Author     string
	Price      float64 // NaN when missing or unparseable
	Stock      *int    // nil when blank or unparseable
	CategoryID int64   // 0 when unset
}

// Parse converts the draft's text fields into typed values.
// Missing numbers are kept distinguishable (NaN price, nil stock) so the
// validator can tell "blank" from "zero".
func (d BookDraft) Parse() BookInput {
	return BookInput{
		Title:      d.Title,
		Author:     d.Author,
		Price:      parsePrice(d.Price),
		Stock:      parseStock(d.Stock),
		CategoryID: parseID(d.CategoryID),
	}
}

// Normalized returns a copy with surrounding whitespace removed from text fields
func (in BookInput) Normalized() BookInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Author = strings.TrimSpace(in.Author)
	return in
}

func parsePrice(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

func parseStock(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return &n
	}
	// "3.0" style input truncates toward zero
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	n := int(math.Trunc(f))
	return &n
}

func parseID(s string) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}

// NotificationKind distinguishes success and error messages
type NotificationKind int

const (
	NotificationNone NotificationKind = iota
	NotificationSuccess
	NotificationError
)

// String returns the kind name
func (k NotificationKind) String() string {
	switch k {
	case NotificationSuccess:
		return "success"
	case NotificationError:
		return "error"
	default:
		return "none"
	}
}

// Notification is the single user-visible status message
type Notification struct {
	Kind    NotificationKind
	Message string
}

// IsZero returns true when no notification is live
func (n Notification) IsZero() bool {
	return n.Kind == NotificationNone
}

// Snapshot is a read-only copy of the catalog view state
type Snapshot struct {
	Books        []Book
	Categories   []Category
	Filter       int64 // 0 = all categories
	IsLoading    bool
	IsSubmitting bool
	Notification Notification
}

// FindBook returns the listed book with the given ID
func (s Snapshot) FindBook(id int64) (Book, bool) {
	for _, b := range s.Books {
		if b.ID == id {
			return b, true
		}
	}
	return Book{}, false
}

// FindCategory returns the loaded category with the given ID
func (s Snapshot) FindCategory(id int64) (Category, bool) {
	for _, c := range s.Categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}
