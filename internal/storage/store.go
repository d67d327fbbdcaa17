package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"sync"

	"github.com/data-power-io/excavator-pins/internal/config"
	"go.uber.org/zap"
)

// Store opens local and S3 locations. The S3 client is created on first use.
type Store struct {
	s3Config config.S3Config
	logger   *zap.Logger

	once  sync.Once
	s3    *S3Client
	s3Err error
}

func NewStore(s3Config config.S3Config, logger *zap.Logger) *Store {
	return &Store{
		s3Config: s3Config,
		logger:   logger,
	}
}

func (s *Store) client(ctx context.Context) (*S3Client, error) {
	s.once.Do(func() {
		s.s3, s.s3Err = NewS3Client(ctx, s.s3Config, s.logger)
	})
	return s.s3, s.s3Err
}

// Open returns the content of a location. The caller must close it.
func (s *Store) Open(ctx context.Context, loc Location) (io.ReadCloser, error) {
	if !loc.IsS3() {
		f, err := os.Open(loc.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", loc.Path, err)
		}
		return f, nil
	}

	client, err := s.client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Get(ctx, loc.Bucket, loc.Key)
}

// Check verifies that a location is reachable
func (s *Store) Check(ctx context.Context, loc Location) error {
	if !loc.IsS3() {
		info, err := os.Stat(loc.Path)
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", loc.Path, err)
		}
		if info.IsDir() {
			return fmt.Errorf("%w: %s is a directory", ErrInvalidLocation, loc.Path)
		}
		return nil
	}

	client, err := s.client(ctx)
	if err != nil {
		return err
	}
	return client.Head(ctx, loc.Bucket, loc.Key)
}

// Upload copies a local file to an S3 location
func (s *Store) Upload(ctx context.Context, localPath string, dest Location) error {
	if !dest.IsS3() {
		return fmt.Errorf("%w: upload target %s is not an s3 location", ErrInvalidLocation, dest)
	}

	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", localPath, err)
	}

	client, err := s.client(ctx)
	if err != nil {
		return err
	}
	return client.Put(ctx, dest.Bucket, dest.Key, f, info.Size(), contentType(localPath))
}

var contentTypes = map[string]string{
	".csv":    "text/csv",
	".xlsx":   "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".json":   "application/json",
	".xml":    "application/xml",
	".pdf":    "application/pdf",
	".arrows": "application/vnd.apache.arrow.stream",
	".db":     "application/vnd.sqlite3",
	".png":    "image/png",
}

func contentType(name string) string {
	ext := filepath.Ext(name)
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
