// Package identity lists accounts through the identity provider's admin API
// (Supabase GoTrue).
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/beaconalert/beacon/internal/notify"
)

const (
	defaultPerPage = 200
	maxPages       = 100
	defaultTimeout = 15 * time.Second
)

// Client is an admin API client authenticated with the service-role key.
type Client struct {
	baseURL    string
	serviceKey string
	perPage    int
	httpClient *http.Client
}

// NewClient returns nil when either credential is empty.
func NewClient(baseURL, serviceKey string, timeout time.Duration) *Client {
	if baseURL == "" || serviceKey == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		perPage:    defaultPerPage,
		httpClient: &http.Client{Timeout: timeout},
	}
}

var _ notify.Directory = (*Client)(nil)

type adminUser struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	Phone        string         `json:"phone"`
	UserMetadata map[string]any `json:"user_metadata"`
}

type listUsersResponse struct {
	Users []adminUser `json:"users"`
}

// ListUsers pages through every account.
func (c *Client) ListUsers(ctx context.Context) ([]notify.DirectoryUser, error) {
	var out []notify.DirectoryUser
	for page := 1; page <= maxPages; page++ {
		users, err := c.listPage(ctx, page)
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			out = append(out, notify.DirectoryUser{
				ID:    u.ID,
				Email: u.Email,
				Name:  displayName(u.UserMetadata),
			})
		}
		if len(users) < c.perPage {
			break
		}
	}
	return out, nil
}

func (c *Client) listPage(ctx context.Context, page int) ([]adminUser, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(c.perPage))
	endpoint := c.baseURL + "/auth/v1/admin/users?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build list users request: %w", err)
	}
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("list users: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed listUsersResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode list users: %w", err)
	}
	return parsed.Users, nil
}

func displayName(meta map[string]any) string {
	for _, key := range []string{"full_name", "name"} {
		if v, ok := meta[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
