package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/ratelimit"
	"go.uber.org/zap"

	"github.com/ifuryst/herald/internal/config"
)

// Client talks to the posting API over multipart HTTP.
type Client struct {
	logger        *zap.Logger
	client        *http.Client
	media         *MediaFetcher
	limiter       ratelimit.Limiter
	baseURL       string
	apiKey        string
	postURLPrefix string
	timeout       time.Duration
	now           func() time.Time
}

type postResponse struct {
	PostID string `json:"post_id"`
}

type errorResponse struct {
	Detail  string `json:"detail"`
	Message string `json:"message"`
	Title   string `json:"title"`
}

func NewClient(cfg *config.PublisherConfig, logger *zap.Logger) *Client {
	limiter := ratelimit.NewUnlimited()
	if cfg.RateLimit > 0 {
		limiter = ratelimit.New(cfg.RateLimit)
	}

	return &Client{
		logger:        logger,
		client:        &http.Client{Timeout: cfg.TimeoutDuration()},
		media:         NewMediaFetcher(cfg.MediaTimeoutDuration()),
		limiter:       limiter,
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:        cfg.APIKey,
		postURLPrefix: cfg.PostURLPrefix,
		timeout:       cfg.TimeoutDuration(),
		now:           time.Now,
	}
}

var _ Publisher = (*Client)(nil)

// PostURL builds the public URL of a published post.
func (c *Client) PostURL(postID string) string {
	if postID == "" {
		return ""
	}
	return c.postURLPrefix + postID
}

func (c *Client) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	body, contentType, attached, err := c.buildForm(ctx, req)
	if err != nil {
		return nil, err
	}

	c.limiter.Take()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/v1/posts", body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-API-KEY", c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(resp.StatusCode, parseErrorDetail(respBody))
	}

	var result postResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	c.logger.Info("Post published",
		zap.String("account_id", req.AccountID),
		zap.String("post_id", result.PostID),
		zap.Bool("as_organization", req.AsOrganization != ""),
		zap.Int("attachments", attached))

	return &PublishResult{
		PostID:      result.PostID,
		URL:         c.PostURL(result.PostID),
		Attachments: attached,
		PublishedAt: c.now(),
	}, nil
}

// buildForm writes the multipart payload. Attachments that cannot be
// fetched are logged and left out.
func (c *Client) buildForm(ctx context.Context, req PublishRequest) (*bytes.Buffer, string, int, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	fields := [][2]string{
		{"account_id", req.AccountID},
		{"text", req.Text},
	}
	if req.AsOrganization != "" {
		fields = append(fields, [2]string{"as_organization", req.AsOrganization})
	}
	if len(req.Mentions) > 0 {
		mentions, err := json.Marshal(req.Mentions)
		if err != nil {
			return nil, "", 0, fmt.Errorf("failed to encode mentions: %w", err)
		}
		fields = append(fields, [2]string{"mentions", string(mentions)})
	}

	for _, f := range fields {
		if err := writer.WriteField(f[0], f[1]); err != nil {
			return nil, "", 0, fmt.Errorf("failed to write field %s: %w", f[0], err)
		}
	}

	attached := 0
	for _, att := range req.Attachments {
		media, err := c.media.Fetch(ctx, att.URL)
		if err != nil {
			c.logger.Warn("Skipping attachment",
				zap.String("url", att.URL),
				zap.Error(err))
			continue
		}

		part, err := writer.CreateFormFile("attachments", media.Filename)
		if err != nil {
			return nil, "", 0, fmt.Errorf("failed to create form file: %w", err)
		}
		if _, err := part.Write(media.Data); err != nil {
			return nil, "", 0, fmt.Errorf("failed to copy attachment content: %w", err)
		}
		attached++
	}

	if err := writer.Close(); err != nil {
		return nil, "", 0, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	return body, writer.FormDataContentType(), attached, nil
}

func parseErrorDetail(body []byte) string {
	var resp errorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return ""
	}
	switch {
	case resp.Detail != "":
		return resp.Detail
	case resp.Message != "":
		return resp.Message
	default:
		return resp.Title
	}
}
