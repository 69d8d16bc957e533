package storage

import (
	"context"
	"io"
)

// ProofStore keeps dispute evidence under slash-separated keys such as
// disputes/{company}/{employee}/{file}. Keys returned by Put are the ones the
// other methods accept.
type ProofStore interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	// Remove succeeds when the key is already gone
	Remove(ctx context.Context, key string) error
	URL(key string) (string, error)
}
