package appwrite

import (
	"context"

	"github.com/georgemblack/snapgram/pkg/model"
	"github.com/go-resty/resty/v2"
)

// CreateAccount registers a new account.
func (c *Client) CreateAccount(ctx context.Context, accountID, email, password, name string) (model.Account, error) {
	var account model.Account
	resp, err := c.request(ctx, model.Session{}).
		SetBody(map[string]string{
			"userId":   accountID,
			"email":    email,
			"password": password,
			"name":     name,
		}).
		SetResult(&account).
		Post("/account")
	if err := check("account.create", resp, err); err != nil {
		return model.Account{}, err
	}
	return account, nil
}

// CreateEmailPasswordSession signs in with email and password.
func (c *Client) CreateEmailPasswordSession(ctx context.Context, email, password string) (model.Session, error) {
	var session model.Session
	resp, err := c.request(ctx, model.Session{}).
		SetBody(map[string]string{
			"email":    email,
			"password": password,
		}).
		SetResult(&session).
		Post("/account/sessions/email")
	if err := check("session.create", resp, err); err != nil {
		return model.Session{}, err
	}
	return session, nil
}

// DeleteSession destroys a session. Pass "current" to destroy the session making the call.
func (c *Client) DeleteSession(ctx context.Context, sess model.Session, sessionID string) error {
	resp, err := c.request(ctx, sess).
		SetPathParam("sessionId", sessionID).
		Delete("/account/sessions/{sessionId}")
	return check("session.delete", resp, err)
}

// GetAccount returns the account that owns sess.
func (c *Client) GetAccount(ctx context.Context, sess model.Session) (model.Account, error) {
	var account model.Account
	err := c.read(ctx, "account.get", func() (*resty.Response, error) {
		return c.request(ctx, sess).SetResult(&account).Get("/account")
	})
	if err != nil {
		return model.Account{}, err
	}
	return account, nil
}
