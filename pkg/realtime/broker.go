package realtime

import (
	"context"
	"sync"
)

// Handler 处理一条事件负载
type Handler func(ctx context.Context, payload []byte)

// Subscription 显式持有的订阅，调用方负责退订
type Subscription interface {
	Unsubscribe()
}

// Broker 事件源：只向订阅之后发布的事件投递，不回放历史
type Broker interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Subscribe(topic string, h Handler) (Subscription, error)
	Close() error
}

// LocalBroker 进程内广播，Publish 在调用方 goroutine 内同步投递
type LocalBroker struct {
	mu     sync.RWMutex
	next   uint64
	topics map[string]map[uint64]Handler
	closed bool
}

func NewLocalBroker() *LocalBroker {
	return &LocalBroker{topics: make(map[string]map[uint64]Handler)}
}

func (b *LocalBroker) Publish(ctx context.Context, topic string, payload []byte) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrClosed
	}
	handlers := make([]Handler, 0, len(b.topics[topic]))
	for _, h := range b.topics[topic] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, payload)
	}
	return nil
}

func (b *LocalBroker) Subscribe(topic string, h Handler) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	b.next++
	id := b.next
	if b.topics[topic] == nil {
		b.topics[topic] = make(map[uint64]Handler)
	}
	b.topics[topic][id] = h
	return &localSub{b: b, topic: topic, id: id}, nil
}

func (b *LocalBroker) Close() error {
	b.mu.Lock()
	b.closed = true
	b.topics = make(map[string]map[uint64]Handler)
	b.mu.Unlock()
	return nil
}

// Subscribers 当前订阅数
func (b *LocalBroker) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}

type localSub struct {
	b     *LocalBroker
	topic string
	id    uint64
	once  sync.Once
}

func (s *localSub) Unsubscribe() {
	s.once.Do(func() {
		s.b.mu.Lock()
		delete(s.b.topics[s.topic], s.id)
		s.b.mu.Unlock()
	})
}
