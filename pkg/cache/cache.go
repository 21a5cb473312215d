package cache

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/georgemblack/snapgram/pkg/config"
	"github.com/georgemblack/snapgram/pkg/util"
	"github.com/valkey-io/valkey-go"
	"github.com/vmihailenco/msgpack/v5"
)

type Valkey struct {
	client valkey.Client
}

// New creates a new Valkey client.
func New(cfg config.Config) (Valkey, error) {
	var tlsConfig *tls.Config // nil by default
	if cfg.ValkeyTLSEnabled {
		tlsConfig = &tls.Config{
			InsecureSkipVerify: false, // Validate the server's certificate
		}
	}

	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{cfg.ValkeyAddress},
		TLSConfig:   tlsConfig,
	})
	if err != nil {
		return Valkey{}, util.WrapErr("failed to create valkey client", err)
	}

	return Valkey{client: client}, nil
}

func sessionKey(token string) string {
	return fmt.Sprintf("session:%s", util.Hash(token))
}

// SaveSession stores the platform session behind a gateway token. The key expires after
// ttl, or when the platform session does, whichever is sooner.
func (v Valkey) SaveSession(ctx context.Context, token string, record SessionRecord, ttl time.Duration) error {
	if record.Expire > 0 {
		if left := time.Until(time.Unix(record.Expire, 0)); left < ttl {
			ttl = left
		}
	}
	if ttl < time.Second {
		return fmt.Errorf("session %s is already expired", record.SessionID)
	}

	bytes, err := msgpack.Marshal(record)
	if err != nil {
		return util.WrapErr("failed to marshal record", err)
	}

	cmd := v.client.B().Set().Key(sessionKey(token)).Value(valkey.BinaryString(bytes)).Ex(ttl).Build()
	err = v.client.Do(ctx, cmd).Error()
	if err != nil {
		return util.WrapErr("failed to set key", err)
	}

	return nil
}

// ReadSession reads the session behind a gateway token. If the record does not exist, return an empty record.
func (v Valkey) ReadSession(ctx context.Context, token string) (SessionRecord, error) {
	cmd := v.client.B().Get().Key(sessionKey(token)).Build()
	resp := v.client.Do(ctx, cmd)
	if err := resp.Error(); err != nil {
		if valkey.IsValkeyNil(err) {
			return SessionRecord{}, nil
		}
		return SessionRecord{}, util.WrapErr("failed to execute get command", err)
	}

	bytes, err := resp.AsBytes()
	if err != nil {
		return SessionRecord{}, util.WrapErr("failed to convert response to bytes", err)
	}

	var record SessionRecord
	err = msgpack.Unmarshal(bytes, &record)
	if err != nil {
		return SessionRecord{}, util.WrapErr("failed to unmarshal record", err)
	}

	return record, nil
}

// DeleteSession deletes the session behind a gateway token.
func (v Valkey) DeleteSession(ctx context.Context, token string) error {
	cmd := v.client.B().Del().Key(sessionKey(token)).Build()
	err := v.client.Do(ctx, cmd).Error()
	if err != nil {
		return util.WrapErr("failed to delete key", err)
	}
	return nil
}

func (v Valkey) Close() {
	v.client.Close()
}
