package opener

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
)

type S3Putter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

type S3Writer struct{ Client S3Putter }

func NewS3Writer(cli S3Putter) *S3Writer { return &S3Writer{Client: cli} }

func (s *S3Writer) Put(ctx context.Context, bucket, key, contentType string, body []byte) error {
	info, err := s.Client.PutObject(ctx, bucket, key, bytes.NewReader(body), int64(len(body)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		log.Printf("[WRITER][S3][ERR] put bucket=%q key=%q: %v", bucket, key, err)
		return fmt.Errorf("s3 put: %w", err)
	}
	log.Printf("[WRITER][S3][OK] bucket=%q key=%q size=%d etag=%q", bucket, key, info.Size, info.ETag)
	return nil
}

// CompoundWriter stores s3://bucket/key targets in object storage and
// everything else on the local filesystem.
type CompoundWriter struct {
	S3 *S3Writer
}

func NewCompoundWriter(s3w *S3Writer) *CompoundWriter {
	return &CompoundWriter{S3: s3w}
}

func (c *CompoundWriter) Write(ctx context.Context, filePath, contentType string, body []byte) (string, error) {
	fp := strings.TrimSpace(filePath)
	if strings.HasPrefix(fp, "s3://") {
		if c.S3 == nil {
			return "", errors.New("s3 writer not configured")
		}
		bkt, key, err := parseS3URL(fp)
		if err != nil {
			return "", err
		}
		if err := c.S3.Put(ctx, bkt, key, contentType, body); err != nil {
			return "", err
		}
		return fp, nil
	}

	fp = strings.TrimPrefix(fp, "file://")
	if dir := filepath.Dir(fp); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
	}
	if err := os.WriteFile(fp, body, 0o644); err != nil {
		return "", err
	}
	log.Printf("[WRITER][FILE][OK] path=%q size=%d", fp, len(body))
	return fp, nil
}
