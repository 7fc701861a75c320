package gcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"

	"github.com/interlnkd/LibreTranslate/internal/models"
	"github.com/interlnkd/LibreTranslate/internal/tabular"
)

// ObjectStore reads and writes delimited documents in a single bucket.
type ObjectStore struct {
	client *storage.Client
	bucket string
}

// NewObjectStore binds a storage client to bucket.
func NewObjectStore(client *storage.Client, bucket string) (*ObjectStore, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client must not be nil")
	}
	if bucket == "" {
		return nil, fmt.Errorf("bucket name must be provided")
	}
	return &ObjectStore{client: client, bucket: bucket}, nil
}

// Bucket returns the bucket name the store is bound to.
func (s *ObjectStore) Bucket() string {
	return s.bucket
}

func (s *ObjectStore) object(key string) *storage.ObjectHandle {
	return s.client.Bucket(s.bucket).Object(key)
}

// ReadHeader streams only as far as the first record of key.
func (s *ObjectStore) ReadHeader(ctx context.Context, key string) ([]string, error) {
	r, err := s.object(key).NewReader(ctx)
	if err != nil {
		return nil, mapStorageError(key, err)
	}
	defer r.Close()

	header, err := tabular.ReadHeader(r)
	if err != nil {
		return nil, fmt.Errorf("gs://%s/%s: %w", s.bucket, key, err)
	}
	return header, nil
}

// ReadDocument downloads and parses the whole document at key.
func (s *ObjectStore) ReadDocument(ctx context.Context, key string) (*tabular.Document, error) {
	r, err := s.object(key).NewReader(ctx)
	if err != nil {
		return nil, mapStorageError(key, err)
	}
	defer r.Close()

	doc, err := tabular.Read(r)
	if err != nil {
		return nil, fmt.Errorf("gs://%s/%s: %w", s.bucket, key, err)
	}
	return doc, nil
}

// WriteDocument writes doc to key only if key does not exist yet.
// A taken key yields models.ErrObjectExists.
func (s *ObjectStore) WriteDocument(ctx context.Context, key string, doc *tabular.Document) error {
	writer := s.object(key).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = "text/csv; charset=utf-8"

	if err := tabular.Write(writer, doc); err != nil {
		_ = writer.Close()
		if isPreconditionFailed(err) {
			return fmt.Errorf("gs://%s/%s: %w", s.bucket, key, models.ErrObjectExists)
		}
		return fmt.Errorf("failed to write to GCS: %w", err)
	}
	if err := writer.Close(); err != nil {
		if isPreconditionFailed(err) {
			return fmt.Errorf("gs://%s/%s: %w", s.bucket, key, models.ErrObjectExists)
		}
		return fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return nil
}

// Copy copies src to dst inside the bucket.
func (s *ObjectStore) Copy(ctx context.Context, src, dst string) error {
	if _, err := s.object(dst).CopierFrom(s.object(src)).Run(ctx); err != nil {
		return mapStorageError(src, err)
	}
	return nil
}

// Delete removes key. A missing object yields models.ErrObjectNotFound.
func (s *ObjectStore) Delete(ctx context.Context, key string) error {
	if err := s.object(key).Delete(ctx); err != nil {
		return mapStorageError(key, err)
	}
	return nil
}

// Exists reports whether key is present.
func (s *ObjectStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.object(key).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat gs://%s/%s: %w", s.bucket, key, err)
	}
	return true, nil
}

// List returns every object under prefix in lexical order.
func (s *ObjectStore) List(ctx context.Context, prefix string) ([]models.ObjectInfo, error) {
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: prefix})

	var objects []models.ObjectInfo
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list gs://%s/%s: %w", s.bucket, prefix, err)
		}
		objects = append(objects, models.ObjectInfo{Key: attrs.Name, Generation: attrs.Generation, Size: attrs.Size})
	}
	return objects, nil
}

func mapStorageError(key string, err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("%s: %w", key, models.ErrObjectNotFound)
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		return fmt.Errorf("%s: %w", key, models.ErrObjectNotFound)
	}
	return fmt.Errorf("%s: %w", key, err)
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}
