package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"
)

// GCS reads objects from one Google Cloud Storage bucket.
type GCS struct {
	service *storage.Service
	bucket  string
}

// NewGCS creates a read-only storage client. An empty credentialsFile falls
// back to application default credentials.
func NewGCS(ctx context.Context, credentialsFile, bucket string) (*GCS, error) {
	opts := []option.ClientOption{option.WithScopes(storage.DevstorageReadOnlyScope)}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	service, err := storage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("objectstore: gcs client: %w", err)
	}
	return &GCS{service: service, bucket: bucket}, nil
}

func (g *GCS) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := g.service.Objects.Get(g.bucket, key).Context(ctx).Download()
	if err != nil {
		if isGCSNotFound(err) {
			return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("gcs download %s: %w", key, err)
	}
	return resp.Body, nil
}

func (g *GCS) Exists(ctx context.Context, key string) (bool, error) {
	_, err := g.service.Objects.Get(g.bucket, key).Context(ctx).Fields("name").Do()
	if err != nil {
		if isGCSNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("gcs metadata %s: %w", key, err)
	}
	return true, nil
}

func (g *GCS) Location() string {
	return "gs://" + g.bucket
}

func isGCSNotFound(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusNotFound
	}
	return false
}
