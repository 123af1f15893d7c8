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

package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recordingListener struct {
	mu   sync.Mutex
	seen []interface{}
}

func (l *recordingListener) OnEvent(event interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen = append(l.seen, event)
}

func (l *recordingListener) events() []interface{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]interface{}, len(l.seen))
	copy(out, l.seen)
	return out
}

func TestPostDeliversInFIFOOrder(t *testing.T) {
	q := NewAsyncEventQueue("test", 16, nil)
	l := &recordingListener{}
	q.AddListener(l)
	q.Start()

	for i := 0; i < 5; i++ {
		q.Post(i)
	}
	assert.True(t, q.WaitUntilEmpty(time.Second))
	q.Stop()

	assert.Equal(t, []interface{}{0, 1, 2, 3, 4}, l.events())
}

func TestPostAfterStopIsDiscarded(t *testing.T) {
	q := NewAsyncEventQueue("test", 16, nil)
	l := &recordingListener{}
	q.AddListener(l)
	q.Start()
	q.Stop()

	q.Post("late")
	assert.Empty(t, l.events())
}

// TestOverflowDropsAndCounts pins scenario 6 from spec.md §8: capacity 2,
// 6 events posted while the consumer is stuck on the first, so at most 3 are
// held (one in dispatch, two buffered) and at least 3 must be dropped.
func TestOverflowDropsAndCounts(t *testing.T) {
	q := NewAsyncEventQueue("test", 2, nil)
	blocker := make(chan struct{})
	l := &blockingListener{block: blocker}
	q.AddListener(l)
	q.Start()

	// The consumer immediately blocks dispatching the first event, so the
	// remaining posts race against a full channel.
	for i := 0; i < 6; i++ {
		q.Post(i)
	}
	close(blocker)
	q.Stop()

	assert.True(t, q.DroppedCount() >= 3, "expected at least 3 drops, got %d", q.DroppedCount())
}

type blockingListener struct {
	once  sync.Once
	block chan struct{}
}

func (l *blockingListener) OnEvent(event interface{}) {
	l.once.Do(func() { <-l.block })
}

func TestStopIsIdempotent(t *testing.T) {
	q := NewAsyncEventQueue("test", 4, nil)
	q.Start()
	q.Stop()
	assert.NotPanics(t, func() { q.Stop() })
}
