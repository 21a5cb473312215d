package cache

import (
	"time"

	"github.com/georgemblack/snapgram/pkg/model"
)

// SessionRecord is a platform session as stored behind a gateway token.
type SessionRecord struct {
	SessionID string `msgpack:"i"`
	AccountID string `msgpack:"a"`
	Secret    string `msgpack:"s"`
	Expire    int64  `msgpack:"e"` // Unix seconds, zero if unknown
}

func (s SessionRecord) IsEmpty() bool {
	return s.SessionID == "" || s.Secret == ""
}

func NewSessionRecord(sess model.Session) SessionRecord {
	record := SessionRecord{
		SessionID: sess.ID,
		AccountID: sess.AccountID,
		Secret:    sess.Secret,
	}
	if !sess.Expire.IsZero() {
		record.Expire = sess.Expire.Unix()
	}
	return record
}

func (s SessionRecord) Session() model.Session {
	sess := model.Session{
		ID:        s.SessionID,
		AccountID: s.AccountID,
		Secret:    s.Secret,
	}
	if s.Expire > 0 {
		sess.Expire = time.Unix(s.Expire, 0).UTC()
	}
	return sess
}

// Invalidation is a document change on the platform, fanned out to every gateway.
type Invalidation struct {
	Collection string `msgpack:"c"`
	Action     string `msgpack:"a"`
	DocumentID string `msgpack:"d"`
	Timestamp  int64  `msgpack:"t"` // Unix microseconds
}

func (i Invalidation) IsEmpty() bool {
	return i.Collection == "" || i.Action == ""
}
