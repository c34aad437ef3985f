package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingNotifier struct {
	release chan struct{}

	mu          sync.Mutex
	chats       []int64
	ctxErr      error
	hasDeadline bool
}

func (n *blockingNotifier) Send(ctx context.Context, chatID int64, _ string) bool {
	<-n.release
	n.mu.Lock()
	defer n.mu.Unlock()
	n.chats = append(n.chats, chatID)
	n.ctxErr = ctx.Err()
	_, n.hasDeadline = ctx.Deadline()
	return true
}

func TestAsyncSender_DoesNotBlockCaller(t *testing.T) {
	// GIVEN: a sender that blocks until released
	next := &blockingNotifier{release: make(chan struct{})}
	async := NewAsyncSender(next, time.Minute)

	// WHEN: a message is sent from a request whose context is then cancelled
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan bool, 1)
	go func() { done <- async.Send(ctx, 42, "hello") }()

	// THEN: Send returns before delivery
	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Send blocked on the wrapped notifier")
	}
	cancel()

	close(next.release)
	async.Wait()

	next.mu.Lock()
	defer next.mu.Unlock()
	require.Equal(t, []int64{42}, next.chats)
	assert.NoError(t, next.ctxErr, "delivery must not inherit the request cancellation")
	assert.True(t, next.hasDeadline)
}

func TestAsyncSender_DefaultTimeout(t *testing.T) {
	async := NewAsyncSender(NopSender{}, 0)
	assert.Equal(t, DefaultAsyncTimeout, async.timeout)
	assert.True(t, async.Send(context.Background(), 1, "x"))
	async.Wait()
}
