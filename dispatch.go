package payrails

import (
	"sync"

	"github.com/vitwit/payrails/types"
)

// Dispatcher delivers callbacks on the host's UI context. Results and
// delegate calls always go through it, whichever goroutine produced them.
type Dispatcher interface {
	Dispatch(fn func())
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(fn func())

func (f DispatcherFunc) Dispatch(fn func()) { f(fn) }

// InlineDispatcher runs callbacks on the goroutine that produced them.
type InlineDispatcher struct{}

func (InlineDispatcher) Dispatch(fn func()) { fn() }

// QueueDispatcher runs callbacks one at a time on a single goroutine, the way
// a UI main loop does.
type QueueDispatcher struct {
	queue chan func()
	done  chan struct{}
	once  sync.Once
}

func NewQueueDispatcher(size int) *QueueDispatcher {
	d := &QueueDispatcher{
		queue: make(chan func(), size),
		done:  make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *QueueDispatcher) loop() {
	for {
		select {
		case fn := <-d.queue:
			fn()
		case <-d.done:
			return
		}
	}
}

// Dispatch enqueues fn. Calls after Close are dropped.
func (d *QueueDispatcher) Dispatch(fn func()) {
	select {
	case <-d.done:
		return
	default:
	}
	select {
	case d.queue <- fn:
	case <-d.done:
	}
}

func (d *QueueDispatcher) Close() {
	d.once.Do(func() { close(d.done) })
}

// Delegate observes a session. Calls are delivered through the Dispatcher.
type Delegate interface {
	// PaymentStateChanged reports the in-progress guard, for example to
	// disable a pay button.
	PaymentStateChanged(inProgress bool)

	// WillRequestChallengePresentation is called right before a handler
	// presents a challenge, wallet checkout or redirect page.
	WillRequestChallengePresentation(t types.PaymentType)
}
