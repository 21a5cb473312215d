// Package appwrite is a thin REST transport for the Appwrite platform: accounts,
// sessions, database documents and storage files.
package appwrite

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/georgemblack/snapgram/pkg/errs"
	"github.com/georgemblack/snapgram/pkg/model"
	"github.com/go-resty/resty/v2"
)

const (
	DefaultTimeout       = 30 * time.Second
	DefaultMaxRetries    = 3
	DefaultRetryInterval = 200 * time.Millisecond
)

// Client talks to one Appwrite project. It holds no per-user state; the caller passes
// the session on every call that needs one.
type Client struct {
	http          *resty.Client
	endpoint      string
	projectID     string
	apiKey        string
	maxRetries    uint64
	retryInterval time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sets the project API key sent on session-less calls. With a key the
// platform returns session secrets, which the gateway needs to act for a user.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.SetTimeout(d) }
}

// WithRetries bounds retries of idempotent reads.
func WithRetries(max uint64, interval time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = max
		c.retryInterval = interval
	}
}

// New creates a client for the given endpoint (e.g. https://cloud.appwrite.io/v1).
func New(endpoint, projectID string, opts ...Option) *Client {
	endpoint = strings.TrimRight(endpoint, "/")
	c := &Client{
		endpoint:      endpoint,
		projectID:     projectID,
		maxRetries:    DefaultMaxRetries,
		retryInterval: DefaultRetryInterval,
	}
	c.http = resty.New().
		SetBaseURL(endpoint).
		SetHeader("X-Appwrite-Project", projectID).
		SetTimeout(DefaultTimeout)

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// request starts a request on behalf of sess. Without a session secret the API key is
// presented instead, if one is configured.
func (c *Client) request(ctx context.Context, sess model.Session) *resty.Request {
	r := c.http.R().SetContext(ctx).SetError(&platformError{})
	if sess.Secret != "" {
		r.SetHeader("X-Appwrite-Session", sess.Secret)
	} else if c.apiKey != "" {
		r.SetHeader("X-Appwrite-Key", c.apiKey)
	}
	return r
}

// check converts a transport result into a typed error.
func check(op string, resp *resty.Response, err error) error {
	if err != nil {
		return errs.Wrap(errs.RemoteUnavailable, op, err)
	}
	if resp.IsError() {
		return classify(op, resp)
	}
	return nil
}

// read runs an idempotent call, retrying recoverable failures with exponential backoff.
func (c *Client) read(ctx context.Context, op string, call func() (*resty.Response, error)) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryInterval
	policy.MaxInterval = 10 * c.retryInterval

	err := backoff.Retry(func() error {
		resp, err := call()
		err = check(op, resp, err)
		if err != nil && !errs.Recoverable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(policy, c.maxRetries), ctx))

	if err == nil {
		return nil
	}
	var typed *errs.Error
	if errors.As(err, &typed) {
		return err
	}
	// context expiry while waiting between attempts
	return errs.Wrap(errs.RemoteUnavailable, op, err)
}
