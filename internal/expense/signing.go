package expense

import (
	"context"
	"strings"
	"time"

	"github.com/expensely/service/internal/storage"
)

// Resolution is the outcome of rendering a stored file reference for a reader.
// Signed is true when URL is a freshly presigned download URL. Otherwise URL
// is the stored reference unchanged and Reason explains why; Reason is nil
// for references that are already absolute URLs.
type Resolution struct {
	URL    string
	Signed bool
	Reason error
}

// Resolver turns bare object keys into presigned download URLs.
type Resolver struct {
	signer storage.Signer
	ttl    time.Duration
}

// NewResolver creates a Resolver issuing URLs valid for ttl.
func NewResolver(signer storage.Signer, ttl time.Duration) *Resolver {
	return &Resolver{signer: signer, ttl: ttl}
}

// IsAbsoluteURL reports whether ref already points somewhere a browser can
// fetch without signing.
func IsAbsoluteURL(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// Resolve never fails: a signer error degrades to the unsigned reference.
func (r *Resolver) Resolve(ctx context.Context, ref string) Resolution {
	if IsAbsoluteURL(ref) {
		return Resolution{URL: ref}
	}
	u, err := r.signer.PresignGet(ctx, ref, r.ttl)
	if err != nil {
		return Resolution{URL: ref, Reason: err}
	}
	return Resolution{URL: u, Signed: true}
}
