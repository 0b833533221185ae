package utils

import (
	"context"
	"time"

	"github.com/sasha-s/go-deadlock"
)

type Session struct {
	context   context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

func NewSession(ctx context.Context) Session {
	ctx, cancel := context.WithCancel(ctx)
	return Session{
		context:   ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}
}

func (s *Session) Started() time.Time {
	return s.startTime
}

func (s *Session) Ctx() context.Context {
	return s.context
}

func (s *Session) IsDone() bool {
	return s.context.Err() != nil
}

func (s *Session) Cancel() {
	s.cancel()
}

// Topic is a fan-out channel for observers of the game session. Publishing
// never blocks; a subscriber that falls behind misses events rather than
// stalling the publisher.
type Topic[T any] struct {
	subscribers map[chan T]struct{}
	mutex       deadlock.Mutex
}

func NewTopic[T any]() *Topic[T] {
	return &Topic[T]{
		subscribers: make(map[chan T]struct{}),
	}
}

func (t *Topic[T]) Publish(value T) {
	t.mutex.Lock()
	for subscriber := range t.subscribers {
		select {
		case subscriber <- value:
		default:
		}
	}
	t.mutex.Unlock()
}

type Subscriber[T any] struct {
	channel chan T
	topic   *Topic[T]
}

func (t *Topic[T]) Subscribe() *Subscriber[T] {
	channel := make(chan T, 16)
	t.mutex.Lock()
	t.subscribers[channel] = struct{}{}
	t.mutex.Unlock()

	return &Subscriber[T]{channel, t}
}

func (s *Subscriber[T]) Recv() <-chan T {
	return s.channel
}

func (s *Subscriber[T]) Done() {
	topic := s.topic
	topic.mutex.Lock()
	delete(topic.subscribers, s.channel)
	topic.mutex.Unlock()
}
