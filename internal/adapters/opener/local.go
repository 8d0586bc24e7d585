package opener

import (
	"context"
	"fmt"
	"io"
	"log"
	"mime"
	"os"
	"path/filepath"

	"sales_import/internal/metrics"
	"sales_import/internal/ports"
)

type LocalOpener struct{}

func NewLocalOpener() *LocalOpener { return &LocalOpener{} }

func (LocalOpener) Open(_ context.Context, filePath string) (io.ReadCloser, ports.Meta, error) {
	fh, err := os.Open(filePath)
	metrics.ObserveOpen("file", err)
	if err != nil {
		log.Printf("[SOURCE][FILE][ERR] open: %v", err)
		return nil, ports.Meta{}, fmt.Errorf("open file: %w", err)
	}
	st, err := fh.Stat()
	if err != nil {
		fh.Close()
		return nil, ports.Meta{}, fmt.Errorf("stat file: %w", err)
	}
	return fh, ports.Meta{
		Source:      "file",
		ContentType: mime.TypeByExtension(filepath.Ext(filePath)),
		Size:        st.Size(),
		Key:         filePath,
	}, nil
}
