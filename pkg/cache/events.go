package cache

import (
	"context"
	"errors"
	"log/slog"

	"github.com/georgemblack/snapgram/pkg/util"
	"github.com/valkey-io/valkey-go"
	"github.com/vmihailenco/msgpack/v5"
)

const InvalidationChannel = "snapgram:invalidations"

// PublishInvalidation sends an invalidation to every subscribed gateway.
func (v Valkey) PublishInvalidation(ctx context.Context, inv Invalidation) error {
	bytes, err := msgpack.Marshal(inv)
	if err != nil {
		return util.WrapErr("failed to marshal invalidation", err)
	}

	cmd := v.client.B().Publish().Channel(InvalidationChannel).Message(valkey.BinaryString(bytes)).Build()
	err = v.client.Do(ctx, cmd).Error()
	if err != nil {
		return util.WrapErr("failed to publish invalidation", err)
	}

	return nil
}

// SubscribeInvalidations calls fn for every invalidation published until ctx is done or
// the subscription fails. Messages that fail to decode are skipped.
func (v Valkey) SubscribeInvalidations(ctx context.Context, fn func(Invalidation)) error {
	cmd := v.client.B().Subscribe().Channel(InvalidationChannel).Build()
	err := v.client.Receive(ctx, cmd, func(msg valkey.PubSubMessage) {
		inv, err := decodeInvalidation([]byte(msg.Message))
		if err != nil {
			slog.Warn("failed to decode invalidation", "error", err)
			return
		}
		fn(inv)
	})
	if err != nil && ctx.Err() == nil {
		return util.WrapErr("invalidation subscription ended", err)
	}
	return nil
}

func decodeInvalidation(data []byte) (Invalidation, error) {
	var inv Invalidation
	if err := msgpack.Unmarshal(data, &inv); err != nil {
		return Invalidation{}, util.WrapErr("failed to unmarshal invalidation", err)
	}
	if inv.IsEmpty() {
		return Invalidation{}, errors.New("invalidation is missing collection or action")
	}
	return inv, nil
}
