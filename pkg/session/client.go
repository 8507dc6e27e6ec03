package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrSessionExpired is returned when a protected call is rejected with 401.
// The store has already been forced back to Anonymous by the time callers
// see it, so feature code needs no bespoke 401 handling.
var ErrSessionExpired = errors.New("session expired")

// APIError carries a server-reported failure for login and registration so
// the initiating UI action can display the specific reason.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

type apiEnvelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client talks to the dashboard API, attaching the bearer token from the
// session store and converting authorization failures on protected calls
// into a single forced logout.
type Client struct {
	baseURL string
	httpc   *http.Client
	logger  *zap.Logger
	store   *Store
	forced  singleflight.Group
}

// NewClient builds an API client. Attach the store after constructing it,
// since the store itself needs the client as its AuthAPI.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
}

// AttachStore binds the session store used for bearer tokens and forced logout.
func (c *Client) AttachStore(store *Store) {
	c.store = store
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string   `json:"token"`
	User  Identity `json:"user"`
}

// Login implements AuthAPI against POST /auth/login. Failures are returned
// verbatim as *APIError, never swallowed.
func (c *Client) Login(ctx context.Context, username, password string) (Identity, string, error) {
	payload, err := json.Marshal(loginRequest{Username: username, Password: password})
	if err != nil {
		return Identity{}, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", bytes.NewReader(payload))
	if err != nil {
		return Identity{}, "", err
	}
	req.Header.Set("Content-Type", "application/json")

	envelope, status, err := c.do(req)
	if err != nil {
		return Identity{}, "", err
	}
	if status != http.StatusOK {
		return Identity{}, "", envelopeError(envelope, status)
	}

	var resp loginResponse
	if err := json.Unmarshal(envelope.Data, &resp); err != nil {
		return Identity{}, "", fmt.Errorf("decode login response: %w", err)
	}
	return resp.User, resp.Token, nil
}

// Register creates an account via POST /auth/register.
func (c *Client) Register(ctx context.Context, username, password, role string) (Identity, error) {
	payload, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
		"role":     role,
	})
	if err != nil {
		return Identity{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/register", bytes.NewReader(payload))
	if err != nil {
		return Identity{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	envelope, status, err := c.do(req)
	if err != nil {
		return Identity{}, err
	}
	if status != http.StatusCreated {
		return Identity{}, envelopeError(envelope, status)
	}

	var resp struct {
		User Identity `json:"user"`
	}
	if err := json.Unmarshal(envelope.Data, &resp); err != nil {
		return Identity{}, fmt.Errorf("decode register response: %w", err)
	}
	return resp.User, nil
}

// Get fetches a protected resource into out. A 401 forces the session back to
// Anonymous exactly once, even under concurrent failures, and surfaces
// ErrSessionExpired.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	if c.store != nil {
		if token := c.store.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	envelope, status, err := c.do(req)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized {
		c.forceLogout()
		return ErrSessionExpired
	}
	if status != http.StatusOK {
		return envelopeError(envelope, status)
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(envelope.Data, out)
}

func (c *Client) do(req *http.Request) (*apiEnvelope, int, error) {
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}

	var envelope apiEnvelope
	if len(body) > 0 {
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return &envelope, resp.StatusCode, nil
}

// forceLogout de-duplicates concurrent 401s through singleflight; combined
// with the store's idempotent Logout there is exactly one observable
// transition.
func (c *Client) forceLogout() {
	if c.store == nil {
		return
	}
	_, _, _ = c.forced.Do("forced_logout", func() (any, error) {
		c.logger.Info("authorization rejected, forcing logout")
		c.store.Logout()
		return nil, nil
	})
}

func envelopeError(envelope *apiEnvelope, status int) error {
	apiErr := &APIError{Status: status, Message: http.StatusText(status)}
	if envelope != nil && envelope.Error != nil {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	}
	return apiErr
}
