// Package upload issues presigned upload tickets for receipt files.
package upload

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/expensely/service/internal/storage"
	"github.com/expensely/service/internal/validation"
)

// KeyPrefix is the bucket prefix under which every receipt is stored.
const KeyPrefix = "receipts/"

// DefaultContentType is bound to the upload when the client does not send one.
const DefaultContentType = "application/octet-stream"

const maxExtLen = 16

// ErrSigning wraps a storage failure while presigning an upload.
var ErrSigning = errors.New("failed to sign upload")

// Ticket authorizes one direct upload. Key is what the client attaches to an
// expense afterwards.
type Ticket struct {
	UploadURL string `json:"uploadUrl" example:"https://s3.example.com/receipts/receipts/0b9c2c1e.png?X-Amz-Signature=..."`
	Key       string `json:"key"       example:"receipts/0b9c2c1e-4f7a-4a51-9d4c-1f2d8e6f0a11.png"`
}

// SignInput is the body of a sign request.
type SignInput struct {
	Filename    string `json:"filename" validate:"required,max=255" example:"lunch.png"`
	ContentType string `json:"type"     validate:"max=255"          example:"image/png"`
}

// Service issues upload tickets.
type Service struct {
	signer storage.Signer
	ttl    time.Duration
	newID  func() string
	log    zerolog.Logger
}

// NewService creates an upload Service whose URLs live for ttl.
func NewService(signer storage.Signer, ttl time.Duration, log zerolog.Logger) *Service {
	return &Service{
		signer: signer,
		ttl:    ttl,
		newID:  uuid.NewString,
		log:    log.With().Str("component", "upload").Logger(),
	}
}

// Sign allocates a fresh object key for in.Filename and presigns a PUT for it.
// Nothing is persisted; an unused ticket simply expires.
func (s *Service) Sign(ctx context.Context, in SignInput) (*Ticket, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	ct := strings.TrimSpace(in.ContentType)
	if ct == "" {
		ct = DefaultContentType
	}

	key := ObjectKey(s.newID(), in.Filename)
	u, err := s.signer.PresignPut(ctx, key, ct, s.ttl)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSigning, err)
	}
	s.log.Debug().Str("key", key).Str("content_type", ct).Msg("upload ticket issued")
	return &Ticket{UploadURL: u, Key: key}, nil
}

// ObjectKey builds the storage key for an upload: the prefix, id and the
// lowercased extension of filename. Extensions that are overlong or contain
// anything but letters and digits are dropped.
func ObjectKey(id, filename string) string {
	return KeyPrefix + id + safeExt(filename)
}

func safeExt(filename string) string {
	ext := strings.ToLower(path.Ext(strings.ReplaceAll(filename, `\`, "/")))
	if len(ext) < 2 || len(ext) > maxExtLen {
		return ""
	}
	for _, c := range ext[1:] {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return ""
		}
	}
	return ext
}
