package appwrite

import (
	"fmt"
	"net/url"
)

// AvatarInitialsURL derives the URL of an avatar rendered from the initials of name.
func (c *Client) AvatarInitialsURL(name string) string {
	q := url.Values{}
	q.Set("name", name)
	q.Set("project", c.projectID)
	return fmt.Sprintf("%s/avatars/initials?%s", c.endpoint, q.Encode())
}

// RealtimeURL derives the websocket URL subscribing to the given channels.
func (c *Client) RealtimeURL(channels ...string) (string, error) {
	u, err := url.Parse(c.endpoint + "/realtime")
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	q := url.Values{}
	q.Set("project", c.projectID)
	for _, ch := range channels {
		q.Add("channels[]", ch)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
