package realtime

import (
	"context"
	"time"

	"github.com/georgemblack/snapgram/pkg/util"
	"github.com/gorilla/websocket"
)

const writeTimeout = 10 * time.Second

// Conn is a realtime subscription. Reads are not safe for concurrent use.
type Conn struct {
	ws *websocket.Conn
}

func Dial(ctx context.Context, url string) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, util.WrapErr("failed to dial realtime", err)
	}
	return &Conn{ws: ws}, nil
}

// Next blocks until the next event arrives. Frames without an event are skipped.
func (c *Conn) Next() (Event, error) {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return Event{}, util.WrapErr("failed to read message", err)
		}
		event, ok, err := Decode(data)
		if err != nil {
			return Event{}, err
		}
		if ok {
			return event, nil
		}
	}
}

// Ping sends a heartbeat. The platform drops idle connections.
func (c *Conn) Ping() error {
	err := c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err != nil {
		return util.WrapErr("failed to set write deadline", err)
	}
	return c.ws.WriteJSON(Message{Type: "ping"})
}

func (c *Conn) Close() error {
	return c.ws.Close()
}
