// Package capture fetches conversation payloads from the chat web API.
package capture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/user/artifactdl/internal/metrics"
	"github.com/user/artifactdl/internal/types"
)

const DefaultBaseURL = "https://claude.ai"

// ErrNoSession is returned when no session key is configured.
var ErrNoSession = errors.New("no session key configured")

// Retrier runs fn until it succeeds or gives up.
type Retrier interface {
	Execute(ctx context.Context, fn func() error) error
}

// Config holds the chat API location and credentials.
type Config struct {
	BaseURL    string
	OrgID      string
	SessionKey string
	UserAgent  string
	Timeout    time.Duration
}

// Client fetches conversation trees. A nil retrier makes a single attempt.
type Client struct {
	config     Config
	httpClient *http.Client
	retry      Retrier
}

// New creates a capture client.
func New(cfg Config, retry Retrier) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		retry: retry,
	}
}

// StatusError is a non-200 response from the chat API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("chat api error (status %d): %s", e.StatusCode, e.Body)
}

// Temporary reports whether the request is worth retrying.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// ConversationURL is the tree endpoint for one conversation.
func (c *Client) ConversationURL(orgID string, id types.ConversationID) string {
	return fmt.Sprintf("%s/api/organizations/%s/chat_conversations/%s?tree=True&rendering_mode=messages",
		c.config.BaseURL, url.PathEscape(orgID), url.PathEscape(string(id)))
}

// Fetch downloads the full message tree of a conversation. An empty orgID
// uses the configured organization.
func (c *Client) Fetch(ctx context.Context, orgID string, id types.ConversationID) (*types.Payload, error) {
	if c.config.SessionKey == "" {
		return nil, ErrNoSession
	}
	if orgID == "" {
		orgID = c.config.OrgID
	}
	if orgID == "" {
		return nil, fmt.Errorf("no organization id configured")
	}

	var payload *types.Payload
	fetch := func() error {
		p, err := c.fetchOnce(ctx, orgID, id)
		if err != nil {
			return err
		}
		payload = p
		return nil
	}

	var err error
	if c.retry != nil {
		err = c.retry.Execute(ctx, fetch)
	} else {
		err = fetch()
	}
	metrics.RecordCapture(err)
	if err != nil {
		return nil, fmt.Errorf("fetch conversation %s: %w", id, err)
	}
	return payload, nil
}

func (c *Client) fetchOnce(ctx context.Context, orgID string, id types.ConversationID) (*types.Payload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ConversationURL(orgID, id), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cookie", "sessionKey="+c.config.SessionKey)
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 512)}
	}

	var payload types.Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	if payload.UUID == "" {
		payload.UUID = id
	}
	return &payload, nil
}

var chatPathRe = regexp.MustCompile(`/chat/([a-fA-F0-9-]+)`)

// ConversationIDFromURL extracts the conversation id from a chat page URL such
// as https://claude.ai/chat/<uuid>. A bare UUID is accepted as well.
func ConversationIDFromURL(raw string) (types.ConversationID, error) {
	raw = strings.TrimSpace(raw)
	if id, err := types.ParseConversationID(raw); err == nil {
		return id, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	m := chatPathRe.FindStringSubmatch(u.Path)
	if m == nil {
		return "", fmt.Errorf("no conversation id in %q", raw)
	}
	return types.ParseConversationID(m[1])
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
