package opener

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"path"
	"time"

	"sales_import/internal/metrics"
	"sales_import/internal/ports"
)

const defaultHTTPTimeout = 2 * time.Minute

// HTTPOpener downloads sales exports published over http(s).
type HTTPOpener struct{ Client *http.Client }

func NewHTTPOpener(cli *http.Client) *HTTPOpener {
	if cli == nil {
		cli = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &HTTPOpener{Client: cli}
}

func (h *HTTPOpener) Open(ctx context.Context, rawURL string) (io.ReadCloser, ports.Meta, error) {
	body, meta, err := h.fetch(ctx, rawURL)
	metrics.ObserveOpen("http", err)
	return body, meta, err
}

func (h *HTTPOpener) fetch(ctx context.Context, rawURL string) (io.ReadCloser, ports.Meta, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, ports.Meta{}, fmt.Errorf("parse url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, ports.Meta{}, err
	}
	req.Header.Set("Accept", "text/csv, application/vnd.openxmlformats-officedocument.spreadsheetml.sheet, */*")

	resp, err := h.Client.Do(req)
	if err != nil {
		log.Printf("[SOURCE][HTTP][ERR] host=%s: %v", u.Host, err)
		return nil, ports.Meta{}, err
	}
	if resp.StatusCode/100 != 2 {
		resp.Body.Close()
		log.Printf("[SOURCE][HTTP][ERR] host=%s status=%d", u.Host, resp.StatusCode)
		return nil, ports.Meta{}, fmt.Errorf("http status %d", resp.StatusCode)
	}

	size := resp.ContentLength
	if size < 0 {
		size = -1
	}
	log.Printf("[SOURCE][HTTP] host=%s file=%s content_type=%q size=%d",
		u.Host, path.Base(u.Path), resp.Header.Get("Content-Type"), size)
	return resp.Body, ports.Meta{
		Source:      "https",
		ContentType: resp.Header.Get("Content-Type"),
		Size:        size,
		Key:         path.Base(u.Path),
	}, nil
}
