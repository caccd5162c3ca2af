package engine

import "sync/atomic"

// Feed fans run events out to subscribers.
//
// Concurrency model: a single internal loop (goroutine) owns the subscriber
// set. Public methods communicate with this loop through channels, so no
// mutexes are required.
type Feed struct {
	subscribeCh   chan chan Event
	unsubscribeCh chan chan Event
	publishCh     chan Event

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewFeed creates a feed and starts its loop.
func NewFeed() *Feed {
	f := &Feed{
		subscribeCh:   make(chan chan Event),
		unsubscribeCh: make(chan chan Event),
		publishCh:     make(chan Event, 256),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	go f.run()
	return f
}

func (f *Feed) run() {
	defer close(f.stopped)

	subs := make(map[chan Event]struct{})

	for {
		select {
		case <-f.stopCh:
			for ch := range subs {
				close(ch)
			}
			return

		case ch := <-f.subscribeCh:
			subs[ch] = struct{}{}

		case ch := <-f.unsubscribeCh:
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}

		case ev := <-f.publishCh:
			for ch := range subs {
				select {
				case ch <- ev:
				default:
					// Subscriber buffer full; skip to avoid blocking the loop.
				}
			}
		}
	}
}

// Subscribe adds a new subscriber and returns its channel.
func (f *Feed) Subscribe() chan Event {
	ch := make(chan Event, 64)
	if f.closed.Load() {
		close(ch)
		return ch
	}
	select {
	case f.subscribeCh <- ch:
	case <-f.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (f *Feed) Unsubscribe(ch chan Event) {
	if f.closed.Load() {
		return
	}
	select {
	case f.unsubscribeCh <- ch:
	case <-f.stopped:
	}
}

// Publish sends an event to all subscribers.
func (f *Feed) Publish(ev Event) {
	if f.closed.Load() {
		return
	}
	select {
	case f.publishCh <- ev:
	case <-f.stopped:
	}
}

// Close gracefully stops the loop and closes all subscriber channels.
func (f *Feed) Close() {
	if f.closed.CompareAndSwap(false, true) {
		close(f.stopCh)
	}
	<-f.stopped
}
