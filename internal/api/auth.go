package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/appetiteclub/tableside/internal/session"
)

// Login exchanges credentials for tokens and stores them in the session.
func (c *Client) Login(ctx context.Context, creds Credentials) (*TokenPair, error) {
	if creds.Username == "" || creds.Password == "" {
		return nil, errors.New("missing username or password")
	}

	raw, err := c.Request(ctx, http.MethodPost, TokenEndpoint, creds)
	if err != nil {
		return nil, err
	}

	var pair TokenPair
	if err := decodeObject(raw, &pair); err != nil {
		return nil, err
	}
	if pair.Access == "" {
		return nil, errors.New("token response without access credential")
	}

	if err := c.session.Save(session.Session{Access: pair.Access, Refresh: pair.Refresh}); err != nil {
		return nil, err
	}
	c.logger.Info("session started", "user", creds.Username)
	return &pair, nil
}

// Logout drops both credentials.
func (c *Client) Logout() error {
	return c.session.Clear()
}

func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	raw, err := c.get(ctx, "/api/users/me/")
	if err != nil {
		return nil, err
	}

	var user User
	if err := decodeObject(raw, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
