package core

import (
	"errors"
	"strings"
)

type (
	// Expense is a persisted expense row.
	Expense struct {
		ID       int64  `json:"id"`
		Title    string `json:"title"`
		Amount   int64  `json:"amount"`
		Category string `json:"category"`
	}

	// ExpenseInput carries the caller-supplied fields for create and update.
	ExpenseInput struct {
		Title    string
		Amount   int64
		Category string
	}
)

// ErrNotFound is returned when an expense id does not exist.
var ErrNotFound = errors.New("expense not found")

var (
	ErrEmptyTitle    = errors.New("title must not be empty")
	ErrInvalidAmount = errors.New("amount must be an integer")
)

// FieldError describes a problem with one input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned when input is malformed or incomplete.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records a field problem.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// ErrOrNil returns e when it holds at least one field error.
func (e *ValidationError) ErrOrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// IsValidationError reports whether err is or wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Validate checks the input shape. Only the title has to be non-empty; the
// category may be any string and the amount any integer.
func (in ExpenseInput) Validate() error {
	verr := &ValidationError{}
	if in.Title == "" {
		verr.Add("title", ErrEmptyTitle.Error())
	}
	return verr.ErrOrNil()
}

// Apply overwrites every mutable field of e with the input.
func (in ExpenseInput) Apply(e Expense) Expense {
	e.Title = in.Title
	e.Amount = in.Amount
	e.Category = in.Category
	return e
}
