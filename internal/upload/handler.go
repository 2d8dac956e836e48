package upload

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/expensely/service/internal/response"
	"github.com/expensely/service/internal/validation"
)

// Handler holds HTTP handlers for upload endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a new upload Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Routes mounts the upload endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/sign", h.Sign)
}

// Sign godoc
//
//	@Summary		Presign a receipt upload
//	@Description	Returns a one-hour URL for a direct PUT of the file and the object key to attach to an expense afterwards.
//	@Tags			upload
//	@Accept			json
//	@Produce		json
//	@Param			request	body		SignInput	true	"File name and MIME type"
//	@Success		200		{object}	response.Envelope{data=Ticket}
//	@Failure		400		{object}	response.ErrorEnvelope
//	@Failure		500		{object}	response.ErrorEnvelope
//	@Router			/upload/sign [post]
func (h *Handler) Sign(w http.ResponseWriter, r *http.Request) {
	var req SignInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	t, err := h.svc.Sign(r.Context(), req)
	if err != nil {
		var ve *validation.Error
		switch {
		case errors.As(err, &ve):
			response.BadRequest(w, ve.Message)
		case errors.Is(err, ErrSigning):
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("presign upload failed")
			response.Error(w, http.StatusInternalServerError, ErrSigning.Error())
		default:
			response.InternalError(w)
		}
		return
	}
	response.OK(w, t)
}
