package notify

import (
	"context"
	"sync"
	"time"
)

// DefaultAsyncTimeout bounds one queued delivery, rate limiter wait included.
const DefaultAsyncTimeout = 30 * time.Second

// AsyncSender hands every message to its own goroutine, so request handlers
// never wait for the rate limiter or the Bot API.
type AsyncSender struct {
	next    Notifier
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewAsyncSender(next Notifier, timeout time.Duration) *AsyncSender {
	if timeout <= 0 {
		timeout = DefaultAsyncTimeout
	}
	return &AsyncSender{next: next, timeout: timeout}
}

// Send queues text for chatID and reports true. The delivery outcome is
// logged by the wrapped sender.
func (s *AsyncSender) Send(ctx context.Context, chatID int64, text string) bool {
	// The request context is cancelled once the response is written.
	detached := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		sendCtx, cancel := context.WithTimeout(detached, s.timeout)
		defer cancel()
		s.next.Send(sendCtx, chatID, text)
	}()
	return true
}

// Wait blocks until every queued message has been handled.
func (s *AsyncSender) Wait() {
	s.wg.Wait()
}
