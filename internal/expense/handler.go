package expense

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/expensely/service/internal/response"
	"github.com/expensely/service/internal/validation"
)

const maxBodyBytes = 1 << 20

// Handler holds HTTP handlers for expense endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a new expense Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Routes mounts the expense endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Route("/{id:[0-9]+}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Replace)
		r.Patch("/", h.Patch)
		r.Delete("/", h.Delete)
	})
}

type expenseData struct {
	Expense *Expense `json:"expense"`
}

type expensesData struct {
	Expenses []Expense `json:"expenses"`
}

type deletedData struct {
	Deleted *Expense `json:"deleted"`
}

// List godoc
//
//	@Summary		List expenses
//	@Description	Returns every expense. Receipt object keys are rewritten to presigned download URLs.
//	@Tags			expenses
//	@Produce		json
//	@Success		200	{object}	response.Envelope{data=expensesData}
//	@Failure		500	{object}	response.ErrorEnvelope
//	@Router			/expenses [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, expensesData{Expenses: items})
}

// Get godoc
//
//	@Summary		Get expense
//	@Tags			expenses
//	@Produce		json
//	@Param			id	path		int	true	"Expense ID"
//	@Success		200	{object}	response.Envelope{data=expenseData}
//	@Failure		404	{object}	response.ErrorEnvelope
//	@Failure		500	{object}	response.ErrorEnvelope
//	@Router			/expenses/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	e, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, expenseData{Expense: e})
}

// Create godoc
//
//	@Summary		Create expense
//	@Description	Title must be 3-100 characters and amount a positive integer. An optional id stores the record under that id.
//	@Tags			expenses
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CreateInput	true	"New expense"
//	@Success		201		{object}	response.Envelope{data=expenseData}
//	@Failure		400		{object}	response.ErrorEnvelope
//	@Failure		409		{object}	response.ErrorEnvelope
//	@Failure		500		{object}	response.ErrorEnvelope
//	@Router			/expenses [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateInput
	if !decode(w, r, &req) {
		return
	}
	e, err := h.svc.Create(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.Created(w, expenseData{Expense: e})
}

// Replace godoc
//
//	@Summary		Replace expense
//	@Description	Overwrites title and amount. The receipt reference is kept.
//	@Tags			expenses
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int				true	"Expense ID"
//	@Param			request	body		ReplaceInput	true	"Replacement fields"
//	@Success		201		{object}	response.Envelope{data=expenseData}
//	@Failure		400		{object}	response.ErrorEnvelope
//	@Failure		404		{object}	response.ErrorEnvelope
//	@Failure		500		{object}	response.ErrorEnvelope
//	@Router			/expenses/{id} [put]
func (h *Handler) Replace(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req ReplaceInput
	if !decode(w, r, &req) {
		return
	}
	e, err := h.svc.Replace(r.Context(), id, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.Created(w, expenseData{Expense: e})
}

// Patch godoc
//
//	@Summary		Update expense fields
//	@Description	Any subset of title, amount, fileKey, fileUrl. fileKey and fileUrl both set the stored receipt reference (null clears it); fileUrl takes precedence when both are sent.
//	@Tags			expenses
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int		true	"Expense ID"
//	@Param			request	body		Patch	true	"Fields to change"
//	@Success		200		{object}	response.Envelope{data=expenseData}
//	@Failure		400		{object}	response.ErrorEnvelope
//	@Failure		404		{object}	response.ErrorEnvelope
//	@Failure		500		{object}	response.ErrorEnvelope
//	@Router			/expenses/{id} [patch]
func (h *Handler) Patch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req Patch
	if !decode(w, r, &req) {
		return
	}
	e, err := h.svc.Patch(r.Context(), id, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, expenseData{Expense: e})
}

// Delete godoc
//
//	@Summary		Delete expense
//	@Description	Removes the record and returns it as stored. The receipt object is not deleted.
//	@Tags			expenses
//	@Produce		json
//	@Param			id	path		int	true	"Expense ID"
//	@Success		200	{object}	response.Envelope{data=deletedData}
//	@Failure		404	{object}	response.ErrorEnvelope
//	@Failure		500	{object}	response.ErrorEnvelope
//	@Router			/expenses/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	e, err := h.svc.Delete(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, deletedData{Deleted: e})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var ve *validation.Error
	switch {
	case errors.As(err, &ve):
		response.BadRequest(w, ve.Message)
	case errors.Is(err, ErrEmptyPatch):
		response.BadRequest(w, "Empty patch")
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, "Not found")
	case errors.Is(err, ErrAlreadyExists):
		response.Conflict(w, "expense with this id already exists")
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("expense request failed")
		response.InternalError(w)
	}
}

// pathID parses the numeric id; values outside the INTEGER column range cannot
// exist and are reported as not found.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 32)
	if err != nil || id <= 0 {
		response.NotFound(w, "Not found")
		return 0, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		response.BadRequest(w, "invalid request body")
		return false
	}
	return true
}
