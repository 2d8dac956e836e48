package upload

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postSign(t *testing.T, signer *recordingSigner, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Route("/api/upload", NewHandler(NewService(signer, time.Hour, zerolog.Nop())).Routes)

	req := httptest.NewRequest(http.MethodPost, "/api/upload/sign", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandler_Sign(t *testing.T) {
	rec := postSign(t, &recordingSigner{}, `{"filename":"r.png","type":"image/png"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data Ticket `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Regexp(t, keyPattern, body.Data.Key)
	assert.True(t, strings.HasPrefix(body.Data.UploadURL, "https://"))
}

func TestHandler_SignErrors(t *testing.T) {
	tests := []struct {
		name    string
		signer  *recordingSigner
		body    string
		status  int
		message string
	}{
		{"missing filename", &recordingSigner{}, `{"type":"image/png"}`, http.StatusBadRequest, "filename is required"},
		{"malformed", &recordingSigner{}, `{"filename":`, http.StatusBadRequest, "invalid request body"},
		{"signer down", &recordingSigner{err: errors.New("boom")}, `{"filename":"r.png"}`, http.StatusInternalServerError, "failed to sign upload"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postSign(t, tt.signer, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.JSONEq(t, `{"error":{"message":"`+tt.message+`"}}`, rec.Body.String())
		})
	}
}
