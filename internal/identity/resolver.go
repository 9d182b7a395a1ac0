// Package identity resolves stable identity ids to display names against the
// upstream profile service.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/AxolotlClient/AxolotlClient-API/pkg/interfaces"
)

// Client implements interfaces.Resolver over the profile HTTP endpoint. The
// endpoint takes the identity as 32 hex digits without separators and
// answers {"id": ..., "name": ...}; unknown identities come back as 204 or
// 404.
type Client struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger
}

func NewClient(baseURL string, timeout time.Duration, log *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log.With("component", "identity"),
	}
}

type profileResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ResolveDisplayName looks up the current display name for uuid.
func (c *Client) ResolveDisplayName(ctx context.Context, uuid string) (string, error) {
	url := c.baseURL + "/" + strings.ReplaceAll(uuid, "-", "")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("identity: profile request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent, http.StatusNotFound:
		return "", interfaces.ErrNameNotFound
	default:
		c.log.Warn("unexpected profile response", "identity", uuid, "status", resp.Status)
		return "", fmt.Errorf("identity: profile request returned %s", resp.Status)
	}

	var profile profileResponse
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return "", fmt.Errorf("identity: decode profile: %w", err)
	}
	if profile.Name == "" {
		return "", interfaces.ErrNameNotFound
	}
	return profile.Name, nil
}
