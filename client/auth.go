package client

import (
	"context"
	"net/http"
	"strings"

	"github.com/goliatone/go-invoices/invoice"
	"github.com/goliatone/go-invoices/session"
)

const (
	msgMissingCredentials = "Please enter email and password"
	msgLoginFailed        = "Login failed. Please try again."
)

// Credentials are the login form fields.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	User  session.User `json:"user"`
	Token string       `json:"token"`
}

// Login authenticates against the remote API and stores the session.
func (c *Client) Login(ctx context.Context, creds Credentials) (session.Session, error) {
	if strings.TrimSpace(creds.Email) == "" || strings.TrimSpace(creds.Password) == "" {
		return session.Session{}, invoice.NewError(invoice.KindValidation, msgMissingCredentials, nil)
	}

	var resp loginResponse
	if err := c.doCall(ctx, http.MethodPost, "/auth/login", creds, &resp, msgLoginFailed); err != nil {
		return session.Session{}, err
	}
	if strings.TrimSpace(resp.Token) == "" {
		return session.Session{}, invoice.NewError(invoice.KindRemote, msgLoginFailed, nil)
	}

	sess := session.Session{User: resp.User, Token: resp.Token}
	if err := c.session.Login(ctx, sess); err != nil {
		return session.Session{}, err
	}
	return sess, nil
}

// Logout drops the local session. The remote API keeps no logout endpoint.
func (c *Client) Logout(ctx context.Context) error {
	return c.session.Logout(ctx)
}
