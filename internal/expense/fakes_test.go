package expense

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// memStore is an in-memory Store used by service and handler tests.
type memStore struct {
	mu     sync.Mutex
	rows   map[int64]Expense
	nextID int64
}

func newMemStore(seed ...Expense) *memStore {
	s := &memStore{rows: map[int64]Expense{}, nextID: 1}
	for _, e := range seed {
		s.rows[e.ID] = e
		if e.ID >= s.nextID {
			s.nextID = e.ID + 1
		}
	}
	return s
}

func (s *memStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// Raw returns the stored row, bypassing the service.
func (s *memStore) Raw(id int64) (Expense, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.rows[id]
	return e, ok
}

func (s *memStore) List(context.Context) ([]Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Expense, 0, len(s.rows))
	for _, e := range s.rows {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) GetByID(_ context.Context, id int64) (*Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (s *memStore) Create(_ context.Context, in CreateInput) (*Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	if in.ID != nil {
		id = *in.ID
		if _, ok := s.rows[id]; ok {
			return nil, ErrAlreadyExists
		}
	}
	if id >= s.nextID {
		s.nextID = id + 1
	}
	e := Expense{ID: id, Title: in.Title, Amount: in.Amount}
	s.rows[id] = e
	return &e, nil
}

func (s *memStore) Replace(_ context.Context, id int64, in ReplaceInput) (*Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	e.Title, e.Amount = in.Title, in.Amount
	s.rows[id] = e
	return &e, nil
}

func (s *memStore) Update(_ context.Context, id int64, u Update) (*Expense, error) {
	if u.Empty() {
		return nil, ErrEmptyPatch
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	if u.Title != nil {
		e.Title = *u.Title
	}
	if u.Amount != nil {
		e.Amount = *u.Amount
	}
	if u.SetFile {
		e.FileURL = nil
		if u.File != nil {
			v := *u.File
			e.FileURL = &v
		}
	}
	s.rows[id] = e
	return &e, nil
}

func (s *memStore) Delete(_ context.Context, id int64) (*Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(s.rows, id)
	return &e, nil
}

// fakeSigner mints distinct URLs on every call, like a real signer whose
// signature covers a timestamp.
type fakeSigner struct {
	calls atomic.Int64
	err   error
}

func (f *fakeSigner) PresignPut(_ context.Context, key, contentType string, ttl time.Duration) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	n := f.calls.Add(1)
	return fmt.Sprintf("https://objects.test/bucket/%s?op=put&ct=%s&ttl=%d&sig=%d", key, contentType, int(ttl.Seconds()), n), nil
}

func (f *fakeSigner) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	n := f.calls.Add(1)
	return fmt.Sprintf("https://objects.test/bucket/%s?op=get&ttl=%d&sig=%d", key, int(ttl.Seconds()), n), nil
}

var errSignerDown = errors.New("signer unavailable")

// failingStore fails every List call as a broken database would.
type failingStore struct {
	*memStore
}

func (failingStore) List(context.Context) ([]Expense, error) {
	return nil, errors.New("connection refused")
}
