package expense

import (
	"bytes"
	"encoding/json"

	"github.com/expensely/service/internal/validation"
)

// Nullable records whether a JSON field was present and, if so, its value.
// A present null leaves Value nil with Set true.
type Nullable[T any] struct {
	Set   bool
	Value *T
}

// Of returns a present, non-null Nullable.
func Of[T any](v T) Nullable[T] { return Nullable[T]{Set: true, Value: &v} }

// Null returns a present null.
func Null[T any]() Nullable[T] { return Nullable[T]{Set: true} }

// UnmarshalJSON implements json.Unmarshaler.
func (n *Nullable[T]) UnmarshalJSON(b []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		n.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

// Patch is the body of a partial update. FileKey and FileURL both target the
// stored file reference; when both are present FileURL wins.
type Patch struct {
	Title   Nullable[string] `json:"title"   swaggertype:"string"  example:"Lunch with client"`
	Amount  Nullable[int64]  `json:"amount"  swaggertype:"integer" example:"1500"`
	FileKey Nullable[string] `json:"fileKey" swaggertype:"string"  example:"receipts/abc.png"`
	FileURL Nullable[string] `json:"fileUrl" swaggertype:"string"  example:"https://cdn.example.com/r.png"`
}

// Empty reports whether no recognised field was present.
func (p Patch) Empty() bool {
	return !p.Title.Set && !p.Amount.Set && !p.FileKey.Set && !p.FileURL.Set
}

// Validate applies the same rules as create to title and amount; file
// references may be null but never empty strings.
func (p Patch) Validate() error {
	if p.Title.Set {
		if p.Title.Value == nil {
			return validation.Errorf("title must not be null")
		}
		if err := validation.Var("title", *p.Title.Value, "min=3,max=100"); err != nil {
			return err
		}
	}
	if p.Amount.Set {
		if p.Amount.Value == nil {
			return validation.Errorf("amount must not be null")
		}
		if err := validation.Var("amount", *p.Amount.Value, "gt=0,max=2147483647"); err != nil {
			return err
		}
	}
	if p.FileKey.Set && p.FileKey.Value != nil {
		if err := validation.Var("fileKey", *p.FileKey.Value, "min=1"); err != nil {
			return err
		}
	}
	if p.FileURL.Set && p.FileURL.Value != nil {
		if err := validation.Var("fileUrl", *p.FileURL.Value, "min=1"); err != nil {
			return err
		}
	}
	return nil
}

// Update is the column-level change produced from a Patch.
type Update struct {
	Title   *string
	Amount  *int64
	SetFile bool
	File    *string
}

// Empty reports whether the update would not touch any column.
func (u Update) Empty() bool {
	return u.Title == nil && u.Amount == nil && !u.SetFile
}

// Update resolves the patch into column changes.
func (p Patch) Update() Update {
	var u Update
	if p.Title.Set {
		u.Title = p.Title.Value
	}
	if p.Amount.Set {
		u.Amount = p.Amount.Value
	}
	switch {
	case p.FileURL.Set:
		u.SetFile, u.File = true, p.FileURL.Value
	case p.FileKey.Set:
		u.SetFile, u.File = true, p.FileKey.Value
	}
	return u
}
