package publisher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ifuryst/herald/pkg/util"
)

// maxMediaSize caps a single downloaded attachment.
const maxMediaSize = 50 << 20

// Media is a downloaded attachment ready to be sent as a form file.
type Media struct {
	Filename    string
	ContentType string
	Data        []byte
}

// MediaFetcher downloads attachment URLs.
type MediaFetcher struct {
	client *http.Client
}

func NewMediaFetcher(timeout time.Duration) *MediaFetcher {
	return &MediaFetcher{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (f *MediaFetcher) Fetch(ctx context.Context, url string) (*Media, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("failed to download media: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read media: %w", err)
	}
	if len(data) > maxMediaSize {
		return nil, fmt.Errorf("media larger than %d bytes", maxMediaSize)
	}

	return &Media{
		Filename:    util.FilenameFromURL(url),
		ContentType: resp.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
