package messages

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// Broker carries "room changed" notifications between server instances.
// A notification carries no payload; subscribers re-read the room's messages.
type Broker interface {
	Publish(ctx context.Context, roomID uuid.UUID) error
	Subscribe(ctx context.Context, roomID uuid.UUID) (Notifications, error)
}

// Notifications is a live feed of change signals for one room.
type Notifications interface {
	C() <-chan struct{}
	Close() error
}

func channelName(roomID uuid.UUID) string {
	return fmt.Sprintf("room:%s:messages", roomID)
}

// RedisBroker implements Broker with Redis pub/sub.
type RedisBroker struct {
	rdb *redis.Client
}

func NewRedisBroker(rdb *redis.Client) *RedisBroker {
	return &RedisBroker{rdb: rdb}
}

func (b *RedisBroker) Publish(ctx context.Context, roomID uuid.UUID) error {
	return b.rdb.Publish(ctx, channelName(roomID), "changed").Err()
}

// Subscribe returns once Redis has confirmed the subscription, so no publish
// issued after it returns can be missed.
func (b *RedisBroker) Subscribe(ctx context.Context, roomID uuid.UUID) (Notifications, error) {
	ps := b.rdb.Subscribe(ctx, channelName(roomID))
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, err
	}

	n := &redisNotifications{
		ps:   ps,
		c:    make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go n.forward(ps.Channel())
	return n, nil
}

type redisNotifications struct {
	ps   *redis.PubSub
	c    chan struct{}
	done chan struct{}
	once sync.Once
}

func (n *redisNotifications) C() <-chan struct{} { return n.c }

func (n *redisNotifications) forward(in <-chan *redis.Message) {
	defer close(n.c)
	for {
		select {
		case <-n.done:
			return
		case _, ok := <-in:
			if !ok {
				return
			}
			// coalesce: one pending signal is enough to trigger a re-read
			select {
			case n.c <- struct{}{}:
			default:
			}
		}
	}
}

func (n *redisNotifications) Close() error {
	var err error
	n.once.Do(func() {
		close(n.done)
		err = n.ps.Close()
	})
	return err
}
