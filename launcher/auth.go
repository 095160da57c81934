package launcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Session is what the game needs to start as a user.
type Session struct {
	Username  string
	SessionID string
	Offline   bool
}

// OfflineSession plays without contacting the login service.
func OfflineSession(username string) Session {
	return Session{Username: username, SessionID: "-", Offline: true}
}

// Authenticator logs a user in.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (Session, error)
}

// HTTPAuthenticator talks to a legacy-style login endpoint: a form POST
// answered by "version:ticket:username:session" or an error message.
type HTTPAuthenticator struct {
	url    string
	client *resty.Client
}

func NewHTTPAuthenticator(url string, timeout time.Duration) *HTTPAuthenticator {
	return &HTTPAuthenticator{
		url:    url,
		client: resty.New().SetTimeout(timeout).SetHeader("User-Agent", "mclauncher/1.0"),
	}
}

func (a *HTTPAuthenticator) Login(ctx context.Context, username, password string) (Session, error) {
	resp, err := a.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"user":     username,
			"password": password,
			"version":  "13",
		}).
		Post(a.url)
	if err != nil {
		return Session{}, fmt.Errorf("login request failed: %w", err)
	}
	body := strings.TrimSpace(resp.String())
	if resp.IsError() {
		return Session{}, fmt.Errorf("%w: status %d: %s", ErrLoginFailed, resp.StatusCode(), body)
	}
	parts := strings.Split(body, ":")
	if len(parts) < 4 {
		// the service answers failures with a plain message
		return Session{}, fmt.Errorf("%w: %s", ErrLoginFailed, body)
	}
	return Session{Username: parts[2], SessionID: parts[3]}, nil
}
