package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// User is the signed-in identity used to label purchase history. The
// reservation core has no dependency on it.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Provider is the optional external identity collaborator. Implementations
// report whether they are configured; when not, CurrentUser returns nil
// without error and all inventory behavior is unchanged.
type Provider interface {
	Configured() bool
	CurrentUser(ctx context.Context) (*User, error)
}

// Disabled is the provider used when no identity service is configured.
type Disabled struct{}

func (Disabled) Configured() bool {
	return false
}

func (Disabled) CurrentUser(ctx context.Context) (*User, error) {
	return nil, nil
}

// Client talks to a GoTrue-style auth endpoint (the hosted identity service
// the mobile client signs in against).
type Client struct {
	baseURL     string
	apiKey      string
	accessToken string
	httpClient  *http.Client
}

// NewClient returns a configured identity client, or Disabled when the URL
// or key is missing.
func NewClient(baseURL, apiKey, accessToken string) Provider {
	if baseURL == "" || apiKey == "" {
		return Disabled{}
	}

	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Configured() bool {
	return true
}

// CurrentUser fetches the identity behind the configured access token.
// Returns nil without error when nobody is signed in.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	if c.accessToken == "" {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("identity service returned status %d", resp.StatusCode)
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode identity response: %w", err)
	}

	return &user, nil
}
