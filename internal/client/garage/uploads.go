package garage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"

	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/api"
)

const (
	uploadsPath    = "/uploads"
	MaxUploadBytes = 10 << 20
)

var ErrUploadTooLarge = fmt.Errorf("upload exceeds %d bytes", MaxUploadBytes)

type uploadRecord struct {
	URL string `json:"url"`
}

// Upload sends a file and returns its public URL. Uploads are opaque to the
// client: never cached, never retried.
func (s *Service) Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return "", err
	}
	if len(data) > MaxUploadBytes {
		return "", ErrUploadTooLarge
	}
	req := api.Request{
		Method: http.MethodPost,
		Path:   uploadsPath,
		Query:  url.Values{"name": {filepath.Base(name)}},
		Body:   api.RawBody{ContentType: contentType, Data: data},
	}
	out, err := s.api.Do(ctx, req)
	if err != nil {
		return "", err
	}
	rec, err := api.Decode[uploadRecord](out)
	if err != nil {
		return "", err
	}
	if rec.URL == "" {
		return "", fmt.Errorf("upload %s: empty url in response", name)
	}
	return rec.URL, nil
}
