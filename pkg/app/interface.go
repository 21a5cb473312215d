package app

import (
	"context"
	"time"

	"github.com/georgemblack/snapgram/pkg/cache"
)

// Cache holds gateway sessions and carries invalidations between processes.
type Cache interface {
	SaveSession(ctx context.Context, token string, record cache.SessionRecord, ttl time.Duration) error
	ReadSession(ctx context.Context, token string) (cache.SessionRecord, error)
	DeleteSession(ctx context.Context, token string) error
	PublishInvalidation(ctx context.Context, inv cache.Invalidation) error
	SubscribeInvalidations(ctx context.Context, fn func(cache.Invalidation)) error
	Close()
}
