// Package web renders the server-side list and detail pages.
package web

import (
	"context"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/expensely/service/internal/expense"
	"github.com/expensely/service/internal/validation"
	appweb "github.com/expensely/service/web"
)

// Expenses is the part of the expense service the pages need.
type Expenses interface {
	List(ctx context.Context) ([]expense.Expense, error)
	Get(ctx context.Context, id int64) (*expense.Expense, error)
	Create(ctx context.Context, in expense.CreateInput) (*expense.Expense, error)
}

// Views serves the HTML pages and their static assets.
type Views struct {
	expenses  Expenses
	templates *template.Template
	static    http.Handler
}

// New parses the embedded templates.
func New(expenses Expenses) (*Views, error) {
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	sub, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, err
	}
	return &Views{
		expenses:  expenses,
		templates: t,
		static:    http.StripPrefix("/static/", http.FileServer(http.FS(sub))),
	}, nil
}

// Routes mounts the pages on r.
func (v *Views) Routes(r chi.Router) {
	r.Get("/", v.list)
	r.Post("/expenses/new", v.create)
	r.Get("/expenses/{id:[0-9]+}", v.detail)
	r.Get("/static/*", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		v.static.ServeHTTP(w, r)
	})
}

type listPage struct {
	Expenses []expense.Expense
	Title    string
	Amount   string
	Message  string
}

type detailPage struct {
	Expense *expense.Expense
	// Signed is false when a stored key could not be turned into a download URL.
	Signed bool
}

func (v *Views) list(w http.ResponseWriter, r *http.Request) {
	v.renderList(w, r, http.StatusOK, listPage{})
}

func (v *Views) create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	page := listPage{
		Title:  strings.TrimSpace(r.PostFormValue("title")),
		Amount: strings.TrimSpace(r.PostFormValue("amount")),
	}

	amount, err := strconv.ParseInt(page.Amount, 10, 64)
	if err != nil {
		page.Message = "amount must be a whole number"
		v.renderList(w, r, http.StatusBadRequest, page)
		return
	}

	_, err = v.expenses.Create(r.Context(), expense.CreateInput{Title: page.Title, Amount: amount})
	var ve *validation.Error
	switch {
	case errors.As(err, &ve):
		page.Message = ve.Message
		v.renderList(w, r, http.StatusBadRequest, page)
		return
	case err != nil:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("create expense from form")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (v *Views) detail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 32)
	if err != nil || id <= 0 {
		http.NotFound(w, r)
		return
	}
	e, err := v.expenses.Get(r.Context(), id)
	if errors.Is(err, expense.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Int64("id", id).Msg("load expense page")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	page := detailPage{Expense: e, Signed: e.FileURL == nil || expense.IsAbsoluteURL(*e.FileURL)}
	v.render(w, r, http.StatusOK, "detail.html", page)
}

func (v *Views) renderList(w http.ResponseWriter, r *http.Request, status int, page listPage) {
	items, err := v.expenses.List(r.Context())
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("load expense list")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	page.Expenses = items
	v.render(w, r, status, "list.html", page)
}

func (v *Views) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf strings.Builder
	if err := v.templates.ExecuteTemplate(&buf, name, data); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("template", name).Msg("template execution failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(buf.String()))
}
