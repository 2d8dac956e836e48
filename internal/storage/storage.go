// Package storage is the object storage gateway. Receipt bytes never pass
// through the API server: clients upload and download them directly using
// time-limited presigned URLs issued here.
//
// Both implementations work with any S3-compatible provider; MinioStorage uses
// minio-go and S3Storage uses the AWS SDK presign client.
package storage

import (
	"context"
	"time"
)

// DefaultTTL is the lifetime of a presigned URL when the caller passes zero.
const DefaultTTL = time.Hour

// Signer issues presigned URLs for single objects.
type Signer interface {
	// PresignPut returns a URL authorizing a single PUT of the object at key.
	PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	// PresignGet returns a URL authorizing a GET of the object at key.
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

func ttlOrDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultTTL
	}
	return ttl
}
