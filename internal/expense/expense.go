// Package expense owns the expense records: persistence, request validation,
// partial updates and read-time signing of receipt references.
package expense

import "errors"

// Expense is a single recorded expense. FileURL holds either a bare object
// key or an absolute URL; on reads a bare key is replaced with a presigned
// download URL.
type Expense struct {
	ID      int64   `json:"id"      example:"1"`
	Title   string  `json:"title"   example:"Lunch"`
	Amount  int64   `json:"amount"  example:"1200"`
	FileURL *string `json:"fileUrl" example:"receipts/0b9c2c1e-4f7a-4a51-9d4c-1f2d8e6f0a11.png"`
}

// ErrNotFound is returned when an expense does not exist.
var ErrNotFound = errors.New("expense not found")

// ErrAlreadyExists is returned when a client-supplied id is already taken.
var ErrAlreadyExists = errors.New("expense already exists")

// ErrEmptyPatch is returned when a partial update carries no fields.
var ErrEmptyPatch = errors.New("empty patch")

// Ids and amounts are stored as Postgres INTEGER, so both are bounded by
// MaxInt32.

// CreateInput is the body of a create request. ID is optional; when present
// the record is stored under that id.
type CreateInput struct {
	ID     *int64 `json:"id,omitempty" validate:"omitempty,gt=0,max=2147483647" example:"42"`
	Title  string `json:"title"        validate:"required,min=3,max=100" example:"Lunch"`
	Amount int64  `json:"amount"       validate:"gt=0,max=2147483647" example:"1200"`
}

// ReplaceInput is the body of a full replace.
type ReplaceInput struct {
	Title  string `json:"title"  validate:"required,min=3,max=100" example:"Dinner"`
	Amount int64  `json:"amount" validate:"gt=0,max=2147483647" example:"2500"`
}
