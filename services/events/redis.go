package eventsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
)

const queueSize = 256

var ErrQueueFull = errors.New("event queue is full")

// redisClient is the part of *redis.Client the publisher uses.
type redisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Close() error
}

// RedisPublisher publishes course events as JSON on a Redis channel.
// Publish only enqueues: a single worker does the network I/O.
type RedisPublisher struct {
	client  redisClient
	channel string
	logger  core.Logger
	timeout time.Duration

	queue     chan course.Event
	done      chan struct{}
	closeOnce sync.Once
}

var _ course.Publisher = (*RedisPublisher)(nil)

func NewRedisPublisher(conf *core.Config, logger core.Logger) (*RedisPublisher, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        conf.Redis.Address,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "redis ping")
	}
	return newRedisPublisher(rdb, conf.Redis.Channel, logger), nil
}

func newRedisPublisher(client redisClient, channel string, logger core.Logger) *RedisPublisher {
	pub := &RedisPublisher{
		client:  client,
		channel: channel,
		logger:  logger,
		timeout: 5 * time.Second,
		queue:   make(chan course.Event, queueSize),
		done:    make(chan struct{}),
	}
	go pub.run()
	return pub
}

// Publish enqueues evt; it fails with ErrQueueFull rather than block.
func (pub *RedisPublisher) Publish(_ context.Context, evt course.Event) (err error) {
	defer func() {
		// sending on the closed queue
		if recover() != nil {
			err = errors.New("publisher is closed")
		}
	}()

	select {
	case pub.queue <- evt:
		return nil
	default:
		return ErrQueueFull
	}
}

func (pub *RedisPublisher) run() {
	defer close(pub.done)
	for evt := range pub.queue {
		if err := pub.send(evt); err != nil {
			pub.logger.Warn(fmt.Sprintf("publishing %s event: %v", evt.Kind, err), err)
		}
	}
}

func (pub *RedisPublisher) send(evt course.Event) error {
	raw, err := json.Marshal(evt)
	if err != nil {
		return errors.Wrap(err, "encoding event")
	}
	ctx, cancel := context.WithTimeout(context.Background(), pub.timeout)
	defer cancel()
	return pub.client.Publish(ctx, pub.channel, raw).Err()
}

// Close publishes the queued events then closes the Redis client.
func (pub *RedisPublisher) Close() error {
	pub.closeOnce.Do(func() { close(pub.queue) })
	<-pub.done
	return pub.client.Close()
}
