package publisher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ifuryst/herald/internal/models"
)

// PublishRequest is one post sent to the posting API on behalf of a single
// connected account.
type PublishRequest struct {
	AccountID   string              `json:"account_id"`
	Text        string              `json:"text"`
	Attachments []models.Attachment `json:"attachments,omitempty"`
	Mentions    []models.Mention    `json:"mentions,omitempty"`

	// AsOrganization posts on behalf of an organization page (its URN)
	// instead of the account's own profile.
	AsOrganization string `json:"as_organization,omitempty"`
}

// PublishResult represents the result of a publish operation. PublishedAt
// is when the posting API acknowledged the post.
type PublishResult struct {
	PostID      string    `json:"post_id"`
	URL         string    `json:"url"`
	Attachments int       `json:"attachments"` // attachments actually sent
	PublishedAt time.Time `json:"published_at"`
}

// APIError is a non-2xx answer from the posting API.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return e.Detail
}

// StatusCode returns the upstream HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func newAPIError(status int, detail string) *APIError {
	if detail == "" {
		detail = fmt.Sprintf("failed to publish: posting API returned status %d", status)
	}
	return &APIError{StatusCode: status, Detail: detail}
}

// Publisher publishes posts to the social network. Implementations never
// retry; retrying is up to the caller.
type Publisher interface {
	Publish(ctx context.Context, req PublishRequest) (*PublishResult, error)
}
