package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisBroker implements Broker over a single Redis list, using
// LPUSH/BRPOP/LLEN for push_left/blocking_pop_right/length.
type redisBroker struct {
	client *redis.Client
}

var _ Broker = (*redisBroker)(nil)

// NewRedisBroker opens a client against url (e.g. redis://broker:6379/0).
func NewRedisBroker(ctx context.Context, url string) (Broker, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing broker url: %v", ErrBroker, err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("%w: connecting to broker: %v", ErrBroker, err)
	}

	return &redisBroker{client: client}, nil
}

func (b *redisBroker) PushLeft(ctx context.Context, item string) error {
	if err := b.client.LPush(ctx, QueueName, item).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBroker, err)
	}

	return nil
}

func (b *redisBroker) BlockingPopRight(ctx context.Context, timeout time.Duration) (string, bool, error) {
	result, err := b.client.BRPop(ctx, timeout, QueueName).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", false, nil
		}

		return "", false, fmt.Errorf("%w: %v", ErrBroker, err)
	}

	// BRPop returns [key, value]; QueueName is the only key we ever block on.
	if len(result) < 2 {
		return "", false, nil
	}

	return result[1], true, nil
}

func (b *redisBroker) Length(ctx context.Context) (int64, error) {
	n, err := b.client.LLen(ctx, QueueName).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBroker, err)
	}

	return n, nil
}

func (b *redisBroker) Close() error {
	return b.client.Close()
}
