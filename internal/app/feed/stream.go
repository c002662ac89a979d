package feed

import (
	"context"
	"sync"
)

// Stream is a snapshot followed by live updates for one topic. Updates is
// closed when the stream ends: on Cancel, when ctx ends, or when the
// subscription is dropped for lagging (see Err).
type Stream[T any] struct {
	Snapshot []T
	Updates  <-chan T

	sub  *Subscription
	stop context.CancelFunc
	once sync.Once
}

// Decoder turns a hub event into an update. keep=false skips the event.
type Decoder[T any] func(ev Event) (item T, keep bool, err error)

// Follow forwards events from sub through decode until ctx ends or the
// stream is cancelled. The caller must subscribe before reading the snapshot
// so nothing committed in between is lost; decode is expected to drop
// entries the snapshot already holds.
func Follow[T any](ctx context.Context, sub *Subscription, snapshot []T, decode Decoder[T]) *Stream[T] {
	ctx, stop := context.WithCancel(ctx)
	out := make(chan T)
	s := &Stream[T]{Snapshot: snapshot, Updates: out, sub: sub, stop: stop}
	logger := sub.hub.logger
	go func() {
		defer close(out)
		defer sub.Cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub.Events():
				if !ok {
					return
				}
				item, keep, err := decode(ev)
				if err != nil {
					logger.Warn("feed event dropped", "topic", ev.Topic, "event", ev.Name, "err", err)
					continue
				}
				if !keep {
					continue
				}
				select {
				case out <- item:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return s
}

func (s *Stream[T]) Cancel() {
	s.once.Do(func() {
		s.stop()
		s.sub.Cancel()
	})
}

// Err reports why the live part ended early, nil after a normal cancel.
func (s *Stream[T]) Err() error {
	return s.sub.Err()
}
