package engine

import (
	"errors"
	"log"
	"sync"

	"github.com/tiroq/sitstand/internal/diaglog"
	"github.com/tiroq/sitstand/internal/statemachine"
)

// notifyQueueSize bounds the notifications waiting for delivery.
const notifyQueueSize = 8

var (
	errNotifierClosed = errors.New("notifier closed")
	errNotifyBacklog  = errors.New("notification backlog full")
)

type notification struct {
	title   string
	message string
}

// asyncNotifier delivers notifications on its own goroutine so a slow
// notification backend never holds up the engine goroutine. Notifications
// are delivered in order; delivery failures are logged here since the caller
// has already moved on.
type asyncNotifier struct {
	next   statemachine.Notifier
	errLog *log.Logger
	diag   *diaglog.Logger

	mu     sync.Mutex
	queue  chan notification
	closed bool
	done   chan struct{}
}

func newAsyncNotifier(next statemachine.Notifier, errLog *log.Logger, diag *diaglog.Logger) *asyncNotifier {
	n := &asyncNotifier{
		next:   next,
		errLog: errLog,
		diag:   diag,
		queue:  make(chan notification, notifyQueueSize),
		done:   make(chan struct{}),
	}
	go n.deliver()
	return n
}

// Notify queues the notification and returns at once. It only fails when the
// queue is full or the notifier was closed.
func (n *asyncNotifier) Notify(title, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return errNotifierClosed
	}
	select {
	case n.queue <- notification{title: title, message: message}:
		return nil
	default:
		return errNotifyBacklog
	}
}

// Close stops accepting notifications and waits for the queued ones to be
// delivered.
func (n *asyncNotifier) Close() {
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		close(n.queue)
	}
	n.mu.Unlock()
	<-n.done
}

func (n *asyncNotifier) deliver() {
	defer close(n.done)
	for m := range n.queue {
		if err := n.next.Notify(m.title, m.message); err != nil {
			logf(n.errLog, "Failed to send notification: %v", err)
			n.diag.Log(diaglog.LogEntry{
				Component: diaglog.ComponentTimer,
				Event:     diaglog.EventNotifyFailed,
				Reason:    err.Error(),
				Payload:   map[string]interface{}{"title": m.title},
			})
		}
	}
}
