package cart

import (
	"context"
	"errors"

	"github.com/angelmondragon/loupes-storefront/pkg/logger"
)

type pubsub interface {
	Publish(ctx context.Context, channel string, message any) error
	PSubscribe(ctx context.Context, pattern string) (<-chan string, func() error, error)
	CartEventsChannel(cartKey string) string
	CartEventsPattern() string
}

// RedisRelay fans change signals out through redis pub/sub so subscribers on
// every API instance hear about writes made by any instance. Signals received
// from redis, including this instance's own, are delivered to the local Notifier.
type RedisRelay struct {
	ps     pubsub
	local  *Notifier
	logger *logger.Logger
}

func NewRedisRelay(ps pubsub, local *Notifier, logg *logger.Logger) *RedisRelay {
	if logg == nil {
		logg = logger.Nop()
	}
	return &RedisRelay{ps: ps, local: local, logger: logg}
}

// Broadcast publishes the signal. When redis is unreachable the local
// subscribers are still notified.
func (r *RedisRelay) Broadcast(ctx context.Context, key string) {
	if err := r.ps.Publish(ctx, r.ps.CartEventsChannel(key), key); err != nil {
		r.logger.Warn(r.logger.WithField(ctx, "error", err.Error()), "cart.relay.publish_failed")
		r.local.Broadcast(ctx, key)
	}
}

// Run relays redis messages into the local notifier until ctx is done.
func (r *RedisRelay) Run(ctx context.Context) error {
	msgs, closeFn, err := r.ps.PSubscribe(ctx, r.ps.CartEventsPattern())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeFn(); cerr != nil {
			r.logger.Warn(ctx, "cart.relay.close_failed")
		}
	}()
	r.logger.Info(ctx, "cart.relay.started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case key, ok := <-msgs:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("cart relay subscription closed")
			}
			r.local.Broadcast(ctx, key)
		}
	}
}
