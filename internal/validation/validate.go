// Package validation checks book drafts before they are sent to the catalog
// service.
package validation

import (
	"errors"
	"reflect"

	"github.com/go-playground/validator"
	"github.com/mmcdole/bookcat/internal/domain"
)

// Messages shown next to the offending form field
var messages = map[string]string{
	domain.FieldTitle:    "Title is required",
	domain.FieldAuthor:   "Author is required",
	domain.FieldPrice:    "Price must be greater than 0",
	domain.FieldStock:    "Stock cannot be negative",
	domain.FieldCategory: "Category is required",
}

// candidate mirrors domain.BookInput with the rules attached.
// A nil Stock is skipped: a blank stock field is never "negative".
// NaN fails gt=0, so a missing price is rejected.
type candidate struct {
	Title      string  `field:"title" validate:"required"`
	Author     string  `field:"author" validate:"required"`
	Price      float64 `field:"price" validate:"gt=0"`
	Stock      *int    `field:"stock" validate:"omitempty,min=0"`
	CategoryID int64   `field:"categoryId" validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("field")
	})
	return v
}

// Validate checks a parsed draft and returns one message per failing field.
// Every rule is evaluated, so several fields can fail at once.
func Validate(in domain.BookInput) domain.FieldErrors {
	in = in.Normalized()
	errs := domain.FieldErrors{}

	err := validate.Struct(candidate{
		Title:      in.Title,
		Author:     in.Author,
		Price:      in.Price,
		Stock:      in.Stock,
		CategoryID: in.CategoryID,
	})
	if err == nil {
		return errs
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		// Only InvalidValidationError lands here, which means candidate
		// itself is broken.
		panic(err)
	}
	for _, fe := range verrs {
		if msg, ok := messages[fe.Field()]; ok {
			errs[fe.Field()] = msg
		}
	}
	return errs
}

// ValidateDraft parses and validates raw form input
func ValidateDraft(d domain.BookDraft) domain.FieldErrors {
	return Validate(d.Parse())
}
