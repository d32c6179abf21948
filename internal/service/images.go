package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	_ "golang.org/x/image/webp"
)

const userAgent = "flagrate-rgb/1.0"

// maxImageBytes bounds cover downloads; thumbnails are a few tens of KB.
const maxImageBytes = 16 << 20

type ImageLoader struct {
	http *http.Client
}

func NewImageLoader(timeout time.Duration) *ImageLoader {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ImageLoader{http: &http.Client{Timeout: timeout}}
}

// Fetch downloads an image by URL. Any failure is reported as ErrDecode since
// the caller cannot tell a dead link from a corrupt body anyway.
func (l *ImageLoader) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrDecode, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := l.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %v", ErrDecode, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: fetch %s: HTTP %d", ErrDecode, url, resp.StatusCode)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrDecode, url, err)
	}
	return b, nil
}

// Load accepts either an http(s) URL or a local path.
func (l *ImageLoader) Load(ctx context.Context, ref string) (image.Image, error) {
	var (
		b   []byte
		err error
	)
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		b, err = l.Fetch(ctx, ref)
	} else {
		b, err = os.ReadFile(ref)
		if err != nil {
			err = fmt.Errorf("%w: %v", ErrDecode, err)
		}
	}
	if err != nil {
		return nil, err
	}
	return DecodeImage(b)
}

func DecodeImage(b []byte) (image.Image, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrDecode)
	}
	img, format, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%w: format %q: %v", ErrDecode, format, err)
	}
	return img, nil
}
