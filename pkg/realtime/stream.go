// Package realtime reads document change events from the platform's realtime websocket.
package realtime

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/georgemblack/snapgram/pkg/util"
)

// Message is one frame of the realtime protocol.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Event is a change to a subscribed resource. Events lists every event name the change
// matches, from the most general to the most specific, e.g.
// databases.main.collections.posts.documents.abc.update.
type Event struct {
	Events   []string `json:"events"`
	Channels []string `json:"channels"`
	Payload  Document `json:"payload"`
}

type Document struct {
	ID           string `json:"$id"`
	CollectionID string `json:"$collectionId"`
	DatabaseID   string `json:"$databaseId"`
}

type errorData struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// DocumentsChannel is the channel for every document in a collection.
func DocumentsChannel(databaseID, collectionID string) string {
	return fmt.Sprintf("databases.%s.collections.%s.documents", databaseID, collectionID)
}

// Decode parses a frame. ok is false for frames that carry no event (connection
// acknowledgements and heartbeats). Error frames are returned as errors.
func Decode(data []byte) (event Event, ok bool, err error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Event{}, false, util.WrapErr("failed to decode message", err)
	}

	switch msg.Type {
	case "event":
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			return Event{}, false, util.WrapErr("failed to decode event", err)
		}
		return event, true, nil
	case "error":
		var e errorData
		if err := json.Unmarshal(msg.Data, &e); err != nil {
			return Event{}, false, util.WrapErr("failed to decode error", err)
		}
		return Event{}, false, fmt.Errorf("realtime error %d: %s", e.Code, e.Message)
	default:
		return Event{}, false, nil
	}
}

// documentEvent returns the segments of the most specific document event:
// databases.<db>.collections.<collection>.documents.<id>.<action>.
func (e Event) documentEvent() []string {
	for _, name := range e.Events {
		parts := strings.Split(name, ".")
		if len(parts) == 7 && parts[0] == "databases" && parts[2] == "collections" && parts[4] == "documents" {
			return parts
		}
	}
	return nil
}

// Valid determines whether the event is a document change this application handles.
func (e Event) Valid() bool {
	switch e.Action() {
	case "create", "update", "delete":
		return e.Collection() != ""
	default:
		return false
	}
}

func (e Event) Collection() string {
	if e.Payload.CollectionID != "" {
		return e.Payload.CollectionID
	}
	if parts := e.documentEvent(); parts != nil {
		return parts[3]
	}
	return ""
}

func (e Event) Action() string {
	if parts := e.documentEvent(); parts != nil {
		return parts[6]
	}
	return ""
}

func (e Event) DocumentID() string {
	if e.Payload.ID != "" {
		return e.Payload.ID
	}
	if parts := e.documentEvent(); parts != nil {
		return parts[5]
	}
	return ""
}
