package expense

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/expensely/service/internal/storage"
	"github.com/expensely/service/internal/validation"
)

// signConcurrency bounds outbound presign calls while rendering a list.
const signConcurrency = 8

// Store is the persistence contract the service depends on. *Repository
// satisfies it against Postgres.
type Store interface {
	List(ctx context.Context) ([]Expense, error)
	GetByID(ctx context.Context, id int64) (*Expense, error)
	Create(ctx context.Context, in CreateInput) (*Expense, error)
	Replace(ctx context.Context, id int64, in ReplaceInput) (*Expense, error)
	Update(ctx context.Context, id int64, u Update) (*Expense, error)
	Delete(ctx context.Context, id int64) (*Expense, error)
}

// Service contains business logic for expense management.
type Service struct {
	store    Store
	resolver *Resolver
	log      zerolog.Logger
}

// NewService creates a new expense Service.
func NewService(store Store, signer storage.Signer, signTTL time.Duration, log zerolog.Logger) *Service {
	return &Service{
		store:    store,
		resolver: NewResolver(signer, signTTL),
		log:      log.With().Str("component", "expense").Logger(),
	}
}

// List returns all expenses with file references rendered for reading.
func (s *Service) List(ctx context.Context) ([]Expense, error) {
	items, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}

	var g errgroup.Group
	g.SetLimit(signConcurrency)
	for i := range items {
		g.Go(func() error {
			s.render(ctx, &items[i])
			return nil
		})
	}
	_ = g.Wait()
	return items, nil
}

// Get returns one expense with its file reference rendered for reading.
func (s *Service) Get(ctx context.Context, id int64) (*Expense, error) {
	e, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.render(ctx, e)
	return e, nil
}

// Create validates and stores a new expense. New expenses never carry a file.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Expense, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	e, err := s.store.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	s.log.Info().Int64("id", e.ID).Int64("amount", e.Amount).Msg("expense created")
	return e, nil
}

// Replace validates and overwrites title and amount.
func (s *Service) Replace(ctx context.Context, id int64, in ReplaceInput) (*Expense, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	e, err := s.store.Replace(ctx, id, in)
	if err != nil {
		return nil, err
	}
	s.render(ctx, e)
	return e, nil
}

// Patch applies a partial update. Concurrent patches of the same row are
// last-write-wins.
func (s *Service) Patch(ctx context.Context, id int64, p Patch) (*Expense, error) {
	if p.Empty() {
		return nil, ErrEmptyPatch
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	u := p.Update()
	e, err := s.store.Update(ctx, id, u)
	if err != nil {
		return nil, err
	}
	if u.SetFile {
		s.log.Info().Int64("id", id).Bool("cleared", u.File == nil).Msg("receipt reference updated")
	}
	s.render(ctx, e)
	return e, nil
}

// Delete removes an expense and returns it as stored. The referenced object,
// if any, is left in the bucket.
func (s *Service) Delete(ctx context.Context, id int64) (*Expense, error) {
	e, err := s.store.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	s.log.Info().Int64("id", id).Msg("expense deleted")
	return e, nil
}

func (s *Service) render(ctx context.Context, e *Expense) {
	if e.FileURL == nil || *e.FileURL == "" {
		return
	}
	res := s.resolver.Resolve(ctx, *e.FileURL)
	if res.Reason != nil {
		s.log.Warn().Err(res.Reason).Int64("id", e.ID).Str("key", *e.FileURL).
			Msg("failed to sign download URL, returning stored reference")
	}
	url := res.URL
	e.FileURL = &url
}
