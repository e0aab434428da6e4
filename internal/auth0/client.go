// Package auth0 is a typed client for the slice of the Auth0 Management API
// this project manages: actions CRUD, action deployment, and trigger
// binding read/replace. The client owns the cached bearer credential for
// its tenant; construct one Client per set of credentials.
package auth0

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Config identifies one tenant. Audience defaults to the Management API of
// the configured domain when left empty.
type Config struct {
	Domain       string
	ClientID     string
	ClientSecret string
	Audience     string
}

// Client issues authenticated Management API calls. Every method except
// AccessToken first obtains a valid bearer token, then performs one HTTP
// round trip; there are no automatic retries.
type Client struct {
	BaseURL string
	HTTP    *http.Client

	cfg Config

	// Cached credential. Reads and writes are unsynchronized on purpose: a
	// stale-but-valid read or a redundant fetch under race both converge to
	// a usable token, with the last write winning.
	token     string
	tokenKind string
	expiry    time.Time
}

func New(cfg Config) *Client {
	if cfg.Audience == "" {
		cfg.Audience = "https://" + cfg.Domain + "/api/v2/"
	}
	return &Client{
		BaseURL: "https://" + cfg.Domain,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
		cfg:     cfg,
	}
}

// AccessToken returns the cached bearer token while its expiry is still in
// the future, otherwise fetches a fresh one via the client-credentials
// grant and caches it.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	if c.token != "" && time.Now().Before(c.expiry) {
		return c.token, nil
	}

	body, err := json.Marshal(map[string]string{
		"client_id":     c.cfg.ClientID,
		"client_secret": c.cfg.ClientSecret,
		"audience":      c.cfg.Audience,
		"grant_type":    "client_credentials",
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/oauth/token", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	b, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if res.StatusCode/100 != 2 {
		return "", &AuthenticationError{Status: res.StatusCode, Body: truncateBody(b)}
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(b, &tok); err != nil {
		return "", fmt.Errorf("parse token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}

	c.token = tok.AccessToken
	c.tokenKind = tok.TokenType
	c.expiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return c.token, nil
}

// ConnectionResult is the outcome of TestConnection. Error is set exactly
// when Success is false.
type ConnectionResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// TestConnection fetches a token and performs one lightweight read. All
// failures are captured into the result; it never returns an error.
func (c *Client) TestConnection(ctx context.Context) ConnectionResult {
	if _, err := c.AccessToken(ctx); err != nil {
		return ConnectionResult{Error: err.Error()}
	}
	if _, err := c.ListActions(ctx); err != nil {
		return ConnectionResult{Error: err.Error()}
	}
	return ConnectionResult{Success: true}
}

// ListActions returns every action in the tenant.
func (c *Client) ListActions(ctx context.Context) ([]Action, error) {
	var resp struct {
		Actions []Action `json:"actions"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v2/actions/actions", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Actions, nil
}

// CreateAction creates a new action and returns it with its assigned id.
func (c *Client) CreateAction(ctx context.Context, a Action) (*Action, error) {
	var out Action
	if err := c.call(ctx, http.MethodPost, "/api/v2/actions/actions", a, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateAction replaces the code and metadata of an existing action.
func (c *Client) UpdateAction(ctx context.Context, id string, a Action) (*Action, error) {
	var out Action
	if err := c.call(ctx, http.MethodPatch, "/api/v2/actions/actions/"+url.PathEscape(id), a, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteAction deletes an action. A 204 response with no body is success;
// a 404 surfaces as an APIRequestError like any other failure.
func (c *Client) DeleteAction(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/api/v2/actions/actions/"+url.PathEscape(id), nil, nil)
}

// DeployAction activates the action's current version.
func (c *Client) DeployAction(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodPost, "/api/v2/actions/actions/"+url.PathEscape(id)+"/deploy", nil, nil)
}

// TriggerBindings reads the full ordered binding list of a trigger.
func (c *Client) TriggerBindings(ctx context.Context, trigger string) ([]Binding, error) {
	var resp struct {
		Bindings []Binding `json:"bindings"`
	}
	path := "/api/v2/actions/triggers/" + url.PathEscape(trigger) + "/bindings"
	if err := c.call(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Bindings, nil
}

// SetTriggerBindings replaces the trigger's entire binding list with the
// given ordered entries and returns the list the tenant now holds. A nil
// slice clears the trigger.
func (c *Client) SetTriggerBindings(ctx context.Context, trigger string, entries []BindingEntry) ([]Binding, error) {
	if entries == nil {
		entries = []BindingEntry{}
	}
	in := struct {
		Bindings []BindingEntry `json:"bindings"`
	}{Bindings: entries}
	var resp struct {
		Bindings []Binding `json:"bindings"`
	}
	path := "/api/v2/actions/triggers/" + url.PathEscape(trigger) + "/bindings"
	if err := c.call(ctx, http.MethodPatch, path, in, &resp); err != nil {
		return nil, err
	}
	return resp.Bindings, nil
}

func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return err
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	b, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return err
	}
	if res.StatusCode/100 != 2 {
		return &APIRequestError{Status: res.StatusCode, Method: method, Path: path, Body: truncateBody(b)}
	}
	if out == nil || len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, out)
}
