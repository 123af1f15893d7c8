//  Copyright (c) 2017-2018 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package events provides AsyncEventQueue, a bounded single-consumer event
// dispatch queue. It is a self-contained concurrency primitive with no
// dependency on the rest of the storage stack; the block manager uses one
// instance to fan status-change events out to its listeners without letting
// a slow listener block a put or get.
package events

import (
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/uber/blockmanager/common"
)

// Listener receives events dispatched by an AsyncEventQueue, in registration
// order, on the queue's single consumer goroutine.
type Listener interface {
	OnEvent(event interface{})
}

// state is the queue's created -> started -> stopped lifecycle.
type state int32

const (
	stateCreated state = iota
	stateStarted
	stateStopped
)

// poisonPill is the sentinel enqueued by Stop to make the consumer exit.
type poisonPill struct{}

const warnInterval = 60 * time.Second

// AsyncEventQueue is a bounded FIFO of events drained by one dedicated
// consumer goroutine that dispatches each event to every registered
// listener. Producers never block: Post offers to the channel and, on
// overflow, increments a drop counter and logs a rate-limited warning
// instead of applying backpressure to the caller.
type AsyncEventQueue struct {
	name     string
	capacity int
	events   chan interface{}
	done     chan struct{}

	mu        sync.Mutex
	listeners []Listener

	state       atomic.Int32
	eventCount  atomic.Int64
	droppedCount atomic.Int64
	lastWarnAt  atomic.Int64
	stopOnce    sync.Once

	logger common.Logger
}

// NewAsyncEventQueue creates a queue with the given name and bounded
// capacity. name is used only for logging.
func NewAsyncEventQueue(name string, capacity int, logger common.Logger) *AsyncEventQueue {
	if capacity <= 0 {
		capacity = 1
	}
	if logger == nil {
		logger = &common.NoopLogger{}
	}
	return &AsyncEventQueue{
		name:     name,
		capacity: capacity,
		events:   make(chan interface{}, capacity),
		done:     make(chan struct{}),
		logger:   logger,
	}
}

// AddListener registers l to receive future events. Must be called before
// Start, or concurrently with Post/dispatch (registration itself is
// synchronized), though newly added listeners only see events dispatched
// after registration.
func (q *AsyncEventQueue) AddListener(l Listener) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.listeners = append(q.listeners, l)
}

// Start transitions the queue to started and launches its consumer
// goroutine. Calling Start more than once is a no-op.
func (q *AsyncEventQueue) Start() {
	if !q.state.CAS(int32(stateCreated), int32(stateStarted)) {
		return
	}
	go q.run()
}

// Post enqueues event for dispatch. If the queue has been stopped, event is
// silently discarded. If the queue is full, event is dropped, the drop
// counter is incremented, and a warning is logged at most once every 60s.
func (q *AsyncEventQueue) Post(event interface{}) {
	if state(q.state.Load()) == stateStopped {
		return
	}
	q.eventCount.Inc()
	select {
	case q.events <- event:
	default:
		q.droppedCount.Inc()
		q.eventCount.Dec()
		q.warnDrop()
	}
}

func (q *AsyncEventQueue) warnDrop() {
	now := time.Now().UnixNano()
	last := q.lastWarnAt.Load()
	if now-last < int64(warnInterval) {
		return
	}
	if q.lastWarnAt.CAS(last, now) {
		q.logger.Warnf("event queue %q dropped an event, capacity=%d, total dropped=%d",
			q.name, q.capacity, q.droppedCount.Load())
	}
}

// Stop enqueues the poison pill and blocks until the consumer goroutine has
// exited. Calling Stop more than once is tolerated: only the first call has
// effect, later calls return immediately once the queue has already stopped.
func (q *AsyncEventQueue) Stop() {
	q.stopOnce.Do(func() {
		wasStarted := q.state.Load() == int32(stateStarted)
		q.state.Store(int32(stateStopped))
		if !wasStarted {
			close(q.done)
			return
		}
		q.events <- poisonPill{}
	})
	<-q.done
}

// DroppedCount returns the number of events dropped due to overflow.
func (q *AsyncEventQueue) DroppedCount() int64 {
	return q.droppedCount.Load()
}

// WaitUntilEmpty blocks until no events are in flight (queued or being
// dispatched) or deadline elapses, returning false on timeout.
func (q *AsyncEventQueue) WaitUntilEmpty(deadline time.Duration) bool {
	timeout := time.After(deadline)
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		if q.eventCount.Load() == 0 {
			return true
		}
		select {
		case <-timeout:
			return false
		case <-ticker.C:
		}
	}
}

func (q *AsyncEventQueue) run() {
	defer close(q.done)
	for raw := range q.events {
		if _, ok := raw.(poisonPill); ok {
			return
		}
		q.dispatch(raw)
		q.eventCount.Dec()
	}
}

func (q *AsyncEventQueue) dispatch(event interface{}) {
	q.mu.Lock()
	listeners := make([]Listener, len(q.listeners))
	copy(listeners, q.listeners)
	q.mu.Unlock()

	for _, l := range listeners {
		l.OnEvent(event)
	}
}
