package expense

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expensely/service/internal/validation"
)

func newTestService(store Store, signer *fakeSigner) *Service {
	return NewService(store, signer, time.Hour, zerolog.Nop())
}

func TestResolver(t *testing.T) {
	ctx := context.Background()

	t.Run("bare key is signed", func(t *testing.T) {
		res := NewResolver(&fakeSigner{}, time.Hour).Resolve(ctx, "receipts/abc.png")
		assert.True(t, res.Signed)
		assert.NoError(t, res.Reason)
		assert.True(t, strings.HasPrefix(res.URL, "https://objects.test/bucket/receipts/abc.png?op=get&ttl=3600"))
	})

	t.Run("absolute urls pass through", func(t *testing.T) {
		signer := &fakeSigner{}
		for _, ref := range []string{"https://cdn.test/a.png", "http://cdn.test/a.png"} {
			res := NewResolver(signer, time.Hour).Resolve(ctx, ref)
			assert.False(t, res.Signed)
			assert.NoError(t, res.Reason)
			assert.Equal(t, ref, res.URL)
		}
		assert.Zero(t, signer.calls.Load())
	})

	t.Run("signer failure degrades to unsigned", func(t *testing.T) {
		res := NewResolver(&fakeSigner{err: errSignerDown}, time.Hour).Resolve(ctx, "receipts/abc.png")
		assert.False(t, res.Signed)
		assert.ErrorIs(t, res.Reason, errSignerDown)
		assert.Equal(t, "receipts/abc.png", res.URL)
	})
}

func TestService_CreateThenGet(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemStore(), &fakeSigner{})

	inputs := []CreateInput{
		{Title: "Lun", Amount: 1},
		{Title: "Lunch", Amount: 1200},
		{Title: strings.Repeat("t", 100), Amount: 2147483647},
	}
	for _, in := range inputs {
		created, err := svc.Create(ctx, in)
		require.NoError(t, err)

		got, err := svc.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, in.Title, got.Title)
		assert.Equal(t, in.Amount, got.Amount)
		assert.Nil(t, got.FileURL)
	}
}

func TestService_CreateRejectsInvalid(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &fakeSigner{})

	for _, in := range []CreateInput{
		{Title: "ab", Amount: 1},
		{Title: strings.Repeat("t", 101), Amount: 1},
		{Title: "Lunch", Amount: 0},
		{Title: "Lunch", Amount: -3},
		{Title: "Lunch", Amount: 1 << 31},
		{ID: int64Ptr(0), Title: "Lunch", Amount: 1},
		{ID: int64Ptr(1 << 31), Title: "Lunch", Amount: 1},
	} {
		_, err := svc.Create(context.Background(), in)
		assert.True(t, validation.IsValidation(err), "input %+v: got %v", in, err)
	}
	assert.Zero(t, store.Len())
}

func TestService_CreateWithClientID(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemStore(), &fakeSigner{})

	e, err := svc.Create(ctx, CreateInput{ID: int64Ptr(42), Title: "Lunch", Amount: 5})
	require.NoError(t, err)
	assert.Equal(t, int64(42), e.ID)

	_, err = svc.Create(ctx, CreateInput{ID: int64Ptr(42), Title: "Again", Amount: 5})
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestService_PatchEmptyLeavesRecordUnchanged(t *testing.T) {
	seed := Expense{ID: 1, Title: "Lunch", Amount: 1200}
	store := newMemStore(seed)
	svc := newTestService(store, &fakeSigner{})

	_, err := svc.Patch(context.Background(), 1, Patch{})
	assert.ErrorIs(t, err, ErrEmptyPatch)

	raw, _ := store.Raw(1)
	assert.Equal(t, seed, raw)
}

func TestService_PatchFileKeySignsButStoresKey(t *testing.T) {
	store := newMemStore(Expense{ID: 1, Title: "Lunch", Amount: 1200})
	svc := newTestService(store, &fakeSigner{})

	got, err := svc.Patch(context.Background(), 1, Patch{FileKey: Of("receipts/abc.png")})
	require.NoError(t, err)
	require.NotNil(t, got.FileURL)
	assert.True(t, strings.HasPrefix(*got.FileURL, "https://"))
	assert.Contains(t, *got.FileURL, "receipts/abc.png")

	raw, _ := store.Raw(1)
	require.NotNil(t, raw.FileURL)
	assert.Equal(t, "receipts/abc.png", *raw.FileURL)
}

func TestService_PatchBothFileFieldsStoresURL(t *testing.T) {
	store := newMemStore(Expense{ID: 1, Title: "Lunch", Amount: 1200})
	signer := &fakeSigner{}
	svc := newTestService(store, signer)

	got, err := svc.Patch(context.Background(), 1, Patch{
		FileKey: Of("receipts/abc.png"),
		FileURL: Of("https://cdn.test/abc.png"),
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/abc.png", *got.FileURL)
	assert.Zero(t, signer.calls.Load(), "absolute URLs are never signed")

	raw, _ := store.Raw(1)
	assert.Equal(t, "https://cdn.test/abc.png", *raw.FileURL)
}

func TestService_PatchNullClearsFile(t *testing.T) {
	store := newMemStore(Expense{ID: 1, Title: "Lunch", Amount: 1200, FileURL: strPtr("receipts/a.png")})
	svc := newTestService(store, &fakeSigner{})

	got, err := svc.Patch(context.Background(), 1, Patch{FileURL: Null[string](), FileKey: Of("receipts/b.png")})
	require.NoError(t, err)
	assert.Nil(t, got.FileURL)

	raw, _ := store.Raw(1)
	assert.Nil(t, raw.FileURL)
}

func TestService_PatchNotFound(t *testing.T) {
	svc := newTestService(newMemStore(), &fakeSigner{})
	_, err := svc.Patch(context.Background(), 9, Patch{Title: Of("Lunch")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_GetTwiceYieldsDistinctURLsForSameObject(t *testing.T) {
	store := newMemStore(Expense{ID: 1, Title: "Lunch", Amount: 1200, FileURL: strPtr("receipts/abc.png")})
	svc := newTestService(store, &fakeSigner{})

	a, err := svc.Get(context.Background(), 1)
	require.NoError(t, err)
	b, err := svc.Get(context.Background(), 1)
	require.NoError(t, err)

	assert.NotEqual(t, *a.FileURL, *b.FileURL)
	objectOf := func(u string) string { return strings.SplitN(u, "?", 2)[0] }
	assert.Equal(t, objectOf(*a.FileURL), objectOf(*b.FileURL))
}

func TestService_ListDegradesWhenSignerFails(t *testing.T) {
	store := newMemStore(
		Expense{ID: 1, Title: "Lunch", Amount: 1200, FileURL: strPtr("receipts/a.png")},
		Expense{ID: 2, Title: "Taxi", Amount: 800},
		Expense{ID: 3, Title: "Hotel", Amount: 9000, FileURL: strPtr("https://cdn.test/h.pdf")},
	)
	svc := newTestService(store, &fakeSigner{err: errSignerDown})

	items, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "receipts/a.png", *items[0].FileURL)
	assert.Nil(t, items[1].FileURL)
	assert.Equal(t, "https://cdn.test/h.pdf", *items[2].FileURL)
}

func TestService_ListSignsEveryKey(t *testing.T) {
	var seed []Expense
	for i := int64(1); i <= 25; i++ {
		seed = append(seed, Expense{ID: i, Title: "Item", Amount: i, FileURL: strPtr("receipts/r.png")})
	}
	signer := &fakeSigner{}
	svc := newTestService(newMemStore(seed...), signer)

	items, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 25)
	for _, e := range items {
		assert.True(t, strings.HasPrefix(*e.FileURL, "https://objects.test/"), "id %d", e.ID)
	}
	assert.Equal(t, int64(25), signer.calls.Load())
}

func TestService_ReplaceKeepsFile(t *testing.T) {
	store := newMemStore(Expense{ID: 4, Title: "Lunch", Amount: 1200, FileURL: strPtr("receipts/a.png")})
	svc := newTestService(store, &fakeSigner{})

	got, err := svc.Replace(context.Background(), 4, ReplaceInput{Title: "Dinner", Amount: 3000})
	require.NoError(t, err)
	assert.Equal(t, "Dinner", got.Title)
	assert.Contains(t, *got.FileURL, "op=get")

	_, err = svc.Replace(context.Background(), 4, ReplaceInput{Title: "D", Amount: 3000})
	assert.True(t, validation.IsValidation(err))
}

func TestService_DeleteReturnsStoredRow(t *testing.T) {
	store := newMemStore(Expense{ID: 4, Title: "Lunch", Amount: 1200, FileURL: strPtr("receipts/a.png")})
	signer := &fakeSigner{}
	svc := newTestService(store, signer)

	got, err := svc.Delete(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, "receipts/a.png", *got.FileURL)
	assert.Zero(t, signer.calls.Load())
	assert.Zero(t, store.Len())

	_, err = svc.Delete(context.Background(), 4)
	assert.ErrorIs(t, err, ErrNotFound)
}
