package expense

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool used by the repository.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

const columns = `id, title, amount, file_url`

// Repository handles all expense database operations.
type Repository struct {
	db DB
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

// List returns every expense ordered by id.
func (r *Repository) List(ctx context.Context) ([]Expense, error) {
	rows, err := r.db.Query(ctx, `SELECT `+columns+` FROM expenses ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	out := make([]Expense, 0)
	for rows.Next() {
		var e Expense
		if err := rows.Scan(&e.ID, &e.Title, &e.Amount, &e.FileURL); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return out, nil
}

// GetByID fetches one expense.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Expense, error) {
	return r.one(ctx, "get expense", `SELECT `+columns+` FROM expenses WHERE id = $1`, id)
}

// Create inserts an expense. When in.ID is set the row is stored under that id
// and the identity sequence is moved past it so generated ids never collide.
func (r *Repository) Create(ctx context.Context, in CreateInput) (*Expense, error) {
	if in.ID == nil {
		return r.one(ctx, "create expense",
			`INSERT INTO expenses (title, amount) VALUES ($1, $2) RETURNING `+columns,
			in.Title, in.Amount)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}

	e := &Expense{}
	err = tx.QueryRow(ctx,
		`INSERT INTO expenses (id, title, amount) VALUES ($1, $2, $3) RETURNING `+columns,
		*in.ID, in.Title, in.Amount,
	).Scan(&e.ID, &e.Title, &e.Amount, &e.FileURL)
	if err != nil {
		_ = tx.Rollback(ctx)
		if isUniqueViolation(err) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("create expense: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`SELECT setval(pg_get_serial_sequence('expenses', 'id'), GREATEST((SELECT MAX(id) FROM expenses), 1))`,
	); err != nil {
		_ = tx.Rollback(ctx)
		return nil, fmt.Errorf("advance id sequence: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return e, nil
}

// Replace overwrites title and amount, leaving the file reference untouched.
func (r *Repository) Replace(ctx context.Context, id int64, in ReplaceInput) (*Expense, error) {
	return r.one(ctx, "replace expense",
		`UPDATE expenses SET title = $1, amount = $2 WHERE id = $3 RETURNING `+columns,
		in.Title, in.Amount, id)
}

// Update writes only the columns present in u.
func (r *Repository) Update(ctx context.Context, id int64, u Update) (*Expense, error) {
	if u.Empty() {
		return nil, ErrEmptyPatch
	}

	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if u.Title != nil {
		set("title", *u.Title)
	}
	if u.Amount != nil {
		set("amount", *u.Amount)
	}
	if u.SetFile {
		set("file_url", u.File)
	}
	args = append(args, id)

	q := fmt.Sprintf(`UPDATE expenses SET %s WHERE id = $%d RETURNING `+columns,
		strings.Join(sets, ", "), len(args))
	return r.one(ctx, "update expense", q, args...)
}

// Delete removes an expense and returns the row as it was stored.
func (r *Repository) Delete(ctx context.Context, id int64) (*Expense, error) {
	return r.one(ctx, "delete expense", `DELETE FROM expenses WHERE id = $1 RETURNING `+columns, id)
}

func (r *Repository) one(ctx context.Context, op, q string, args ...any) (*Expense, error) {
	e := &Expense{}
	err := r.db.QueryRow(ctx, q, args...).Scan(&e.ID, &e.Title, &e.Amount, &e.FileURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return e, nil
}

// isUniqueViolation checks whether an error is a PostgreSQL unique_violation (code 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
