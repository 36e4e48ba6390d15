package realtime

import (
	"context"
	"errors"
	"sync"

	"AmberWatch/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ErrClosed = errors.New("broker closed")

// RedisBroker 基于 Redis pub/sub，多实例部署时跨进程广播
type RedisBroker struct {
	client *redis.Client
	prefix string

	mu     sync.Mutex
	subs   map[*redisSub]struct{}
	closed bool
}

func NewRedisBroker(client *redis.Client, prefix string) *RedisBroker {
	return &RedisBroker{client: client, prefix: prefix, subs: make(map[*redisSub]struct{})}
}

func (b *RedisBroker) channel(topic string) string { return b.prefix + topic }

func (b *RedisBroker) Publish(ctx context.Context, topic string, payload []byte) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrClosed
	}
	return b.client.Publish(ctx, b.channel(topic), payload).Err()
}

// Subscribe 等待 Redis 确认订阅后才返回，确认之后发布的事件保证可见
func (b *RedisBroker) Subscribe(topic string, h Handler) (Subscription, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	b.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	ps := b.client.Subscribe(ctx, b.channel(topic))
	if _, err := ps.Receive(ctx); err != nil {
		cancel()
		_ = ps.Close()
		return nil, err
	}

	sub := &redisSub{b: b, ps: ps, cancel: cancel, done: make(chan struct{})}
	go sub.loop(ctx, h)

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	return sub, nil
}

func (b *RedisBroker) Close() error {
	b.mu.Lock()
	b.closed = true
	subs := make([]*redisSub, 0, len(b.subs))
	for s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, s := range subs {
		s.Unsubscribe()
	}
	return nil
}

type redisSub struct {
	b      *RedisBroker
	ps     *redis.PubSub
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (s *redisSub) loop(ctx context.Context, h Handler) {
	defer close(s.done)
	for msg := range s.ps.Channel() {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("realtime handler panic", zap.Any("recover", r), zap.String("channel", msg.Channel))
				}
			}()
			h(ctx, []byte(msg.Payload))
		}()
	}
}

func (s *redisSub) Unsubscribe() {
	s.once.Do(func() {
		s.cancel()
		_ = s.ps.Close()
		<-s.done
		s.b.mu.Lock()
		delete(s.b.subs, s)
		s.b.mu.Unlock()
	})
}
