package sap

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mashura/salesbridge/config"
)

const moduleName = "sap"

// Session cookies are valid for about 30 minutes; refresh a little early so
// in-flight requests don't race the expiry.
const sessionLifetime = 25 * time.Minute

// maxLoginAttempts bounds how many times a single request will re-login after
// a 401 before giving up. This is a loop, never a recursive call.
const maxLoginAttempts = 3

const requestAttempts = 3

// Client talks to the ledger's Service Layer. One session is shared across
// goroutines; login is serialized behind a mutex.
type Client struct {
	baseURL  string
	company  string
	username string
	password string
	http     *http.Client
	logger   *logrus.Logger

	mu        sync.Mutex
	session   string
	sessionAt time.Time
}

func NewClient(baseURL, company, username, password string, logger *logrus.Logger) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("ledger base url is empty")
	}
	if company == "" || username == "" || password == "" {
		return nil, errors.New("ledger credentials are incomplete")
	}
	return &Client{
		baseURL:  baseURL,
		company:  company,
		username: username,
		password: password,
		http:     &http.Client{Timeout: 60 * time.Second},
		logger:   logger,
	}, nil
}

// Login opens a new session and caches the cookie. Safe to call concurrently.
func (c *Client) Login(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loginLocked(ctx)
}

func (c *Client) loginLocked(ctx context.Context) error {
	payload, err := json.Marshal(loginRequest{
		CompanyDB: c.company,
		UserName:  c.username,
		Password:  c.password,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/Login", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ledger login: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ledger login failed %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed loginResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("decode login response: %w", err)
	}
	if parsed.SessionId == "" {
		return errors.New("ledger login returned empty session")
	}

	c.session = parsed.SessionId
	c.sessionAt = time.Now()
	return nil
}

func (c *Client) sessionCookie(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == "" || time.Since(c.sessionAt) > sessionLifetime {
		if err := c.loginLocked(ctx); err != nil {
			return "", err
		}
	}
	return c.session, nil
}

func (c *Client) invalidateSession(stale string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == stale {
		c.session = ""
	}
}

// do performs one Service Layer call. Expired sessions are refreshed in a
// bounded loop; transient failures (network, 5xx) retry with backoff.
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}

	var lastErr error
	loginAttempts := 0
	for attempt := 1; attempt <= requestAttempts; attempt++ {
		session, err := c.sessionCookie(ctx)
		if err != nil {
			return err
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.AddCookie(&http.Cookie{Name: "B1SESSION", Value: session})

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
		} else {
			respBody, _ := io.ReadAll(resp.Body)
			resp.Body.Close()

			switch {
			case resp.StatusCode == http.StatusUnauthorized:
				c.invalidateSession(session)
				loginAttempts++
				if loginAttempts >= maxLoginAttempts {
					return fmt.Errorf("ledger session rejected after %d logins: %s", loginAttempts, strings.TrimSpace(string(respBody)))
				}
				// Retry the same attempt with a fresh session.
				attempt--
				continue
			case resp.StatusCode >= 500:
				lastErr = fmt.Errorf("ledger api error %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
			case resp.StatusCode < 200 || resp.StatusCode >= 300:
				// Client errors are not retryable.
				return fmt.Errorf("ledger api error %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
			default:
				if out == nil || resp.StatusCode == http.StatusNoContent {
					return nil
				}
				if err := json.Unmarshal(respBody, out); err != nil {
					return fmt.Errorf("decode ledger response: %w", err)
				}
				return nil
			}
		}

		if attempt < requestAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(1<<attempt) * time.Second):
			}
		}
	}

	config.LogError(c.logger, moduleName, "do", method+" "+path, nil, lastErr)
	return fmt.Errorf("%s %s: %w", method, path, lastErr)
}

// Logout closes the session. Best-effort, used on shutdown.
func (c *Client) Logout(ctx context.Context) {
	c.mu.Lock()
	session := c.session
	c.session = ""
	c.mu.Unlock()
	if session == "" {
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/Logout", nil)
	if err != nil {
		return
	}
	req.AddCookie(&http.Cookie{Name: "B1SESSION", Value: session})
	if resp, err := c.http.Do(req); err == nil {
		resp.Body.Close()
	}
}
