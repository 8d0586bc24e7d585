package opener

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/minio/minio-go/v7"

	"sales_import/internal/metrics"
	"sales_import/internal/ports"
)

type S3Client interface {
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error)
}

// S3Opener reads uploaded sales files and mapping imports from object storage.
type S3Opener struct{ Client S3Client }

func NewS3Opener(cli S3Client) *S3Opener { return &S3Opener{Client: cli} }

func (s *S3Opener) Open(ctx context.Context, bucket, key string) (io.ReadCloser, ports.Meta, error) {
	// Stat first so a missing key fails before the run is marked as started.
	info, err := s.Client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		metrics.ObserveOpen("s3", err)
		log.Printf("[SOURCE][S3][ERR] s3://%s/%s: %v", bucket, key, err)
		return nil, ports.Meta{}, fmt.Errorf("s3 stat %s/%s: %w", bucket, key, err)
	}
	obj, err := s.Client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	metrics.ObserveOpen("s3", err)
	if err != nil {
		log.Printf("[SOURCE][S3][ERR] s3://%s/%s: %v", bucket, key, err)
		return nil, ports.Meta{}, fmt.Errorf("s3 get %s/%s: %w", bucket, key, err)
	}

	log.Printf("[SOURCE][S3] s3://%s/%s content_type=%q size=%d", bucket, key, info.ContentType, info.Size)
	return obj, ports.Meta{
		Source:      "s3",
		ContentType: info.ContentType,
		Size:        info.Size,
		Bucket:      bucket,
		Key:         key,
	}, nil
}
