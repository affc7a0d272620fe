package storage

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"cvforge/internal/config"
	"cvforge/internal/errors"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	storageapi "google.golang.org/api/storage/v1"
)

// GCSStore is the Google Cloud Storage ObjectStore backing production
// runs. URLs returned by Put carry the configured expiry; nothing in the
// pipeline holds them past that window.
type GCSStore struct {
	service *storageapi.Service
	bucket  string
	ttl     time.Duration
	logger  *errors.Logger
}

// NewGCSStore builds a store for the configured bucket. Credentials come
// from the configured file or, when empty, application default
// credentials.
func NewGCSStore(ctx context.Context, cfg *config.StorageConfig, logger *errors.Logger) (*GCSStore, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	service, err := storageapi.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.NewStorageError(errors.ErrCodeStorageFailed,
			"creating cloud storage client", err)
	}

	ttl := cfg.SignedURLTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &GCSStore{
		service: service,
		bucket:  cfg.Bucket,
		ttl:     ttl,
		logger:  logger,
	}, nil
}

// Put uploads the object and returns its download URL.
func (s *GCSStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	object := &storageapi.Object{
		Name:        key,
		ContentType: contentType,
	}
	inserted, err := s.service.Objects.Insert(s.bucket, object).
		Media(bytes.NewReader(data)).
		Context(ctx).
		Do()
	if err != nil {
		return "", classify(err, key, "uploading object")
	}

	s.logger.Debug("object uploaded",
		"bucket", s.bucket,
		"key", key,
		"size", len(data),
		"url_ttl", s.ttl.String())
	return inserted.MediaLink, nil
}

// Get downloads the object's bytes.
func (s *GCSStore) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := s.service.Objects.Get(s.bucket, key).Context(ctx).Download()
	if err != nil {
		return nil, classify(err, key, "downloading object")
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewStorageError(errors.ErrCodeStorageFailed,
			fmt.Sprintf("reading object %s", key), err)
	}
	return data, nil
}

// Delete removes the object; a missing object is not an error.
func (s *GCSStore) Delete(ctx context.Context, key string) error {
	err := s.service.Objects.Delete(s.bucket, key).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if stderrors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
			return nil
		}
		return classify(err, key, "deleting object")
	}
	return nil
}

func classify(err error, key, action string) error {
	var apiErr *googleapi.Error
	if stderrors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return errors.NewStorageError(errors.ErrCodeStorageNotFound,
			fmt.Sprintf("object %s not found", key), err)
	}
	return errors.NewStorageError(errors.ErrCodeStorageFailed,
		fmt.Sprintf("%s %s", action, key), err)
}
