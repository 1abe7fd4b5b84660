// Package storage keeps article image blobs in the document store's GridFS
// and addresses them by public url.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/content-threads-api/internal/apperr"
	"github.com/content-threads-api/internal/models"
)

// ErrInvalidURL is returned by KeyFromURL for urls this store did not issue.
var ErrInvalidURL = errors.New("storage: url does not reference a stored object")

// ObjectStore is the blob capability used by the article image operations
type ObjectStore interface {
	Store(ctx context.Context, blob models.Blob) (string, error)
	Delete(ctx context.Context, url string) error
	KeyFromURL(url string) (primitive.ObjectID, error)
	Open(ctx context.Context, key primitive.ObjectID) (io.ReadCloser, string, error)
}

// GridFS stores blobs in a GridFS bucket
type GridFS struct {
	bucket  *gridfs.Bucket
	baseURL string
	log     zerolog.Logger
}

// NewGridFS creates an object store over bucket. Issued urls have the form
// {baseURL}/files/{hex id}.
func NewGridFS(bucket *gridfs.Bucket, baseURL string, log zerolog.Logger) *GridFS {
	return &GridFS{
		bucket:  bucket,
		baseURL: baseURL,
		log:     log.With().Str("component", "object-store").Logger(),
	}
}

// Store uploads blob and returns its public url. Uploads are bounded by the
// client's socket timeouts rather than ctx.
func (s *GridFS) Store(ctx context.Context, blob models.Blob) (string, error) {
	opts := options.GridFSUpload().SetMetadata(bson.D{{Key: "contentType", Value: blob.ContentType}})
	id, err := s.bucket.UploadFromStream(blob.Filename, bytes.NewReader(blob.Data), opts)
	if err != nil {
		return "", apperr.Wrap(apperr.KindDependency, apperr.StorageFailure, "failed to store object", err)
	}

	s.log.Debug().Str("object_id", id.Hex()).Int("size_bytes", len(blob.Data)).Msg("Object stored")
	return s.baseURL + "/files/" + id.Hex(), nil
}

// Delete removes the blob referenced by url
func (s *GridFS) Delete(ctx context.Context, url string) error {
	key, err := s.KeyFromURL(url)
	if err != nil {
		return err
	}
	if err := s.bucket.DeleteContext(ctx, key); err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key.Hex(), err)
	}
	return nil
}

// KeyFromURL extracts the object id from a url issued by Store
func (s *GridFS) KeyFromURL(raw string) (primitive.ObjectID, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidURL
	}
	dir, file := path.Split(u.Path)
	if path.Base(dir) != "files" {
		return primitive.NilObjectID, ErrInvalidURL
	}
	id, err := primitive.ObjectIDFromHex(file)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidURL
	}
	return id, nil
}

// Open streams a stored blob together with its content type
func (s *GridFS) Open(ctx context.Context, key primitive.ObjectID) (io.ReadCloser, string, error) {
	stream, err := s.bucket.OpenDownloadStream(key)
	if errors.Is(err, gridfs.ErrFileNotFound) {
		return nil, "", apperr.New(apperr.KindNotFound, apperr.NotFound, "file not found")
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to open object %s: %w", key.Hex(), err)
	}

	contentType := "application/octet-stream"
	if meta := stream.GetFile().Metadata; meta != nil {
		if ct, ok := meta.Lookup("contentType").StringValueOK(); ok && ct != "" {
			contentType = ct
		}
	}
	return stream, contentType, nil
}
