package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Default queue sizing for AsyncChannel.
const (
	DefaultQueueSize = 1024
	DefaultWorkers   = 4

	publishTimeout = 5 * time.Second
)

var (
	// ErrQueueFull is returned by AsyncChannel.Publish when the message was dropped.
	ErrQueueFull = errors.New("realtime queue full")
	// ErrChannelClosed is returned by AsyncChannel.Publish after Close.
	ErrChannelClosed = errors.New("realtime channel closed")
)

// AsyncChannel decouples publishers from a slow downstream Channel. Publish
// enqueues and returns immediately; workers drain the queue into next.
type AsyncChannel struct {
	next   Channel
	logger logrus.FieldLogger
	queue  chan Message

	workers int
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewAsyncChannel creates an AsyncChannel in front of next. Call Start to
// begin draining.
func NewAsyncChannel(next Channel, logger logrus.FieldLogger, queueSize, workers int) *AsyncChannel {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &AsyncChannel{
		next:    next,
		logger:  logger,
		queue:   make(chan Message, queueSize),
		workers: workers,
	}
}

// Start launches the workers. When ctx is done they deliver what is
// already queued and exit; after Close they exit once the queue is empty.
func (a *AsyncChannel) Start(ctx context.Context) {
	for i := 0; i < a.workers; i++ {
		a.wg.Add(1)
		go a.run(ctx)
	}
}

func (a *AsyncChannel) run(ctx context.Context) {
	defer a.wg.Done()
	for {
		select {
		case msg, ok := <-a.queue:
			if !ok {
				return
			}
			a.deliver(msg)
		case <-ctx.Done():
			a.drain()
			return
		}
	}
}

// drain delivers whatever is already queued without waiting for more.
func (a *AsyncChannel) drain() {
	for {
		select {
		case msg, ok := <-a.queue:
			if !ok {
				return
			}
			a.deliver(msg)
		default:
			return
		}
	}
}

func (a *AsyncChannel) deliver(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := a.next.Publish(ctx, msg.Target, msg.Event, msg.Payload); err != nil {
		a.logger.WithError(err).
			WithField("target", msg.Target).
			WithField("event", msg.Event).
			Warn("realtime publish failed")
	}
}

// Publish implements Channel. A full queue drops the message, and after
// Close every message is refused.
func (a *AsyncChannel) Publish(_ context.Context, target Target, event string, payload any) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrChannelClosed
	}
	select {
	case a.queue <- Message{Target: target, Event: event, Payload: payload}:
		return nil
	default:
		a.logger.WithField("target", target).WithField("event", event).Warn("realtime queue full, dropping message")
		return ErrQueueFull
	}
}

// Close stops accepting work and waits for the workers to drain the queue.
// It is safe to call more than once.
func (a *AsyncChannel) Close() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()
	a.wg.Wait()
}

var _ Channel = (*AsyncChannel)(nil)
