// gateway/identity.go
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"kitshed/db"

	"github.com/go-resty/resty/v2"
)

// IdentityClient resolves borrower ids to display names against the identity
// service.
type IdentityClient struct {
	http *resty.Client
}

func NewIdentityClient(baseURL string, timeout time.Duration) *IdentityClient {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &IdentityClient{http: c}
}

type userPayload struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"displayName"`
}

func (c *IdentityClient) ResolveUser(ctx context.Context, userID int64) (string, error) {
	var out userPayload
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get(fmt.Sprintf("/users/%d", userID))
	if err != nil {
		return "", fmt.Errorf("identity service: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return "", db.NotFoundf("user %d not found", userID)
	}
	if resp.IsError() {
		return "", fmt.Errorf("identity service: status %d", resp.StatusCode())
	}
	if out.DisplayName == "" {
		return "", fmt.Errorf("identity service: empty display name for user %d", userID)
	}
	return out.DisplayName, nil
}
