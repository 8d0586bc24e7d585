package ports

import (
	"context"
	"io"
)

type Meta struct {
	Source      string
	ContentType string
	Size        int64
	Bucket      string
	Key         string
}

type FileOpener interface {
	Open(ctx context.Context, filePath string) (io.ReadCloser, Meta, error)
}

// FileWriter stores body under filePath (a local path or s3://bucket/key) and
// returns the final location.
type FileWriter interface {
	Write(ctx context.Context, filePath, contentType string, body []byte) (string, error)
}
