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

package memstore

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/uber/blockmanager/block"
)

type recordingEvictionHandler struct {
	dropped []block.ID
	level   block.Level
	// locked, when non-nil, marks candidates TryLockVictim must refuse,
	// simulating a block someone else already holds a blockinfo lock on.
	locked map[block.ID]bool
}

func (h *recordingEvictionHandler) TryLockVictim(id block.ID) bool {
	return !h.locked[id]
}

func (h *recordingEvictionHandler) DropFromMemory(id block.ID, data Entry) block.Level {
	h.dropped = append(h.dropped, id)
	return h.level
}

func TestPutBytesGetBytes(t *testing.T) {
	acc := NewBudgetAccountant(1024, nil)
	s := NewMemoryStore(acc, nil)

	b1 := block.RDDBlockID(1, 0)
	payload := []byte{0x01, 0x02, 0x03}
	ok := s.PutBytes(b1, int64(len(payload)), "tag", func() []byte { return payload })
	assert.True(t, ok)

	got, ok := s.GetBytes(b1)
	assert.True(t, ok)
	assert.Equal(t, payload, got)

	size, ok := s.GetSize(b1)
	assert.True(t, ok)
	assert.EqualValues(t, 3, size)
}

func TestPutBytesReservationFailureSkipsMaterialize(t *testing.T) {
	acc := NewBudgetAccountant(2, nil)
	s := NewMemoryStore(acc, nil)

	called := false
	ok := s.PutBytes(block.RDDBlockID(1, 0), 100, "tag", func() []byte {
		called = true
		return nil
	})
	assert.False(t, ok)
	assert.False(t, called, "materialize must not run when reservation fails")
}

// TestSpillUnderPressure pins scenario 2 from spec.md §8: a small budget
// forces the first block to be evicted to make room for the second.
func TestSpillUnderPressure(t *testing.T) {
	acc := NewBudgetAccountant(10, nil)
	handler := &recordingEvictionHandler{level: block.DiskOnly}
	s := NewMemoryStore(acc, handler)

	b1 := block.RDDBlockID(1, 0)
	b2 := block.RDDBlockID(2, 0)

	ok := s.PutBytes(b1, 8, "tag", func() []byte { return make([]byte, 8) })
	assert.True(t, ok)

	ok = s.PutBytes(b2, 8, "tag", func() []byte { return make([]byte, 8) })
	assert.True(t, ok)

	assert.Contains(t, handler.dropped, b1)
	assert.False(t, s.Contains(b1))
	assert.True(t, s.Contains(b2))
}

func TestRDDAffinityNeverEvictsSameRDD(t *testing.T) {
	acc := NewBudgetAccountant(10, nil)
	handler := &recordingEvictionHandler{level: block.DiskOnly}
	s := NewMemoryStore(acc, handler)

	rdd1a := block.RDDBlockID(1, 0)
	rdd2 := block.RDDBlockID(2, 0)
	rdd1b := block.RDDBlockID(1, 1)

	assert.True(t, s.PutBytes(rdd1a, 5, "tag", func() []byte { return make([]byte, 5) }))
	assert.True(t, s.PutBytes(rdd2, 5, "tag", func() []byte { return make([]byte, 5) }))

	// admitting another partition of RDD 1 must never evict rdd1a even
	// though it is the older entry; rdd2 must be evicted instead.
	assert.True(t, s.PutBytes(rdd1b, 5, "tag", func() []byte { return make([]byte, 5) }))

	assert.True(t, s.Contains(rdd1a))
	assert.False(t, s.Contains(rdd2))
	assert.True(t, s.Contains(rdd1b))
}

func TestPutIteratorAsValuesSuccess(t *testing.T) {
	acc := NewBudgetAccountant(1024, nil)
	s := NewMemoryStore(acc, nil)

	values := []interface{}{1, 2, 3, 4, 5}
	size, partial, ok := s.PutIteratorAsValues(block.RDDBlockID(1, 0), NewSliceIterator(values), "tag", func(v []interface{}) int64 {
		return int64(len(v))
	})
	assert.True(t, ok)
	assert.Nil(t, partial)
	assert.EqualValues(t, 5, size)

	got, ok := s.GetValues(block.RDDBlockID(1, 0))
	assert.True(t, ok)
	assert.Equal(t, values, got)
}

func TestPutIteratorAsValuesFailureReturnsPartialThenFullIterator(t *testing.T) {
	acc := NewBudgetAccountant(2, nil)
	s := NewMemoryStore(acc, nil)

	values := []interface{}{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17}
	_, partial, ok := s.PutIteratorAsValues(block.RDDBlockID(1, 0), NewSliceIterator(values), "tag", func(v []interface{}) int64 {
		return int64(len(v))
	})
	assert.False(t, ok)
	assert.NotNil(t, partial)

	drained, err := Drain(partial)
	assert.NoError(t, err)
	assert.Equal(t, values, drained)
}

// TestEvictionSkipsLockedVictim pins the fix for the case where the LRU
// candidate is currently locked elsewhere (e.g. a reader holding a
// blockinfo read lock): eviction must skip it in favor of the next
// candidate rather than stripping its entry out from under the lock holder.
func TestEvictionSkipsLockedVictim(t *testing.T) {
	acc := NewBudgetAccountant(10, nil)
	handler := &recordingEvictionHandler{level: block.DiskOnly}
	s := NewMemoryStore(acc, handler)

	b1 := block.RDDBlockID(1, 0)
	b2 := block.RDDBlockID(2, 0)
	b3 := block.RDDBlockID(3, 0)

	assert.True(t, s.PutBytes(b1, 5, "tag", func() []byte { return make([]byte, 5) }))
	assert.True(t, s.PutBytes(b2, 5, "tag", func() []byte { return make([]byte, 5) }))

	handler.locked = map[block.ID]bool{b1: true}

	assert.True(t, s.PutBytes(b3, 5, "tag", func() []byte { return make([]byte, 5) }))

	assert.True(t, s.Contains(b1), "locked victim must not be evicted")
	assert.False(t, s.Contains(b2))
	assert.True(t, s.Contains(b3))
	assert.NotContains(t, handler.dropped, b1)
	assert.Contains(t, handler.dropped, b2)
}

// TestEvictionFailsWhenAllVictimsLocked verifies reservation fails cleanly,
// with every entry left in place, rather than evicting a locked candidate
// anyway, when nothing evictable is actually free to take.
func TestEvictionFailsWhenAllVictimsLocked(t *testing.T) {
	acc := NewBudgetAccountant(10, nil)
	handler := &recordingEvictionHandler{level: block.DiskOnly}
	s := NewMemoryStore(acc, handler)

	b1 := block.RDDBlockID(1, 0)
	b2 := block.RDDBlockID(2, 0)

	assert.True(t, s.PutBytes(b1, 5, "tag", func() []byte { return make([]byte, 5) }))
	assert.True(t, s.PutBytes(b2, 5, "tag", func() []byte { return make([]byte, 5) }))

	handler.locked = map[block.ID]bool{b1: true, b2: true}

	ok := s.PutBytes(block.RDDBlockID(3, 0), 5, "tag", func() []byte { return make([]byte, 5) })
	assert.False(t, ok)
	assert.True(t, s.Contains(b1))
	assert.True(t, s.Contains(b2))
}

func serializeIntsAll(values []interface{}) []byte {
	out := make([]byte, len(values))
	for i, v := range values {
		out[i] = byte(v.(int))
	}
	return out
}

func serializeIntOne(w io.Writer, v interface{}) error {
	_, err := w.Write([]byte{byte(v.(int))})
	return err
}

func TestPutIteratorAsBytesSuccess(t *testing.T) {
	acc := NewBudgetAccountant(1024, nil)
	s := NewMemoryStore(acc, nil)

	values := []interface{}{1, 2, 3, 4, 5}
	size, partial, ok := s.PutIteratorAsBytes(block.RDDBlockID(1, 0), NewSliceIterator(values), "tag", serializeIntsAll, serializeIntOne)
	assert.True(t, ok)
	assert.Nil(t, partial)
	assert.EqualValues(t, 5, size)

	got, ok := s.GetBytes(block.RDDBlockID(1, 0))
	assert.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, got)
}

// TestPutIteratorAsBytesFailureStreamsToDisk pins spec.md §4.2's
// reservation-failure path for the serialized-bytes put: the returned
// PartiallySerializedValues must be able to stream every value that was
// never actually stored in memory back out, serialized on the fly.
func TestPutIteratorAsBytesFailureStreamsToDisk(t *testing.T) {
	acc := NewBudgetAccountant(2, nil)
	s := NewMemoryStore(acc, nil)

	values := []interface{}{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17}
	_, partial, ok := s.PutIteratorAsBytes(block.RDDBlockID(1, 0), NewSliceIterator(values), "tag", serializeIntsAll, serializeIntOne)
	assert.False(t, ok)
	assert.NotNil(t, partial)

	var buf bytes.Buffer
	assert.NoError(t, partial.FinishWritingToStream(&buf))
	assert.Equal(t, serializeIntsAll(values), buf.Bytes())
}

// TestPutIteratorAsBytesFailureReturnsValues pins the memory-only side of
// the same failure path: the caller must be able to get its raw values
// back, not just a byte stream, when the block is never spilled to disk.
func TestPutIteratorAsBytesFailureReturnsValues(t *testing.T) {
	acc := NewBudgetAccountant(2, nil)
	s := NewMemoryStore(acc, nil)

	values := []interface{}{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17}
	_, partial, ok := s.PutIteratorAsBytes(block.RDDBlockID(1, 0), NewSliceIterator(values), "tag", serializeIntsAll, serializeIntOne)
	assert.False(t, ok)
	assert.NotNil(t, partial)

	drained, err := Drain(partial.ValuesIterator())
	assert.NoError(t, err)
	assert.Equal(t, values, drained)
}

func TestRemove(t *testing.T) {
	acc := NewBudgetAccountant(1024, nil)
	s := NewMemoryStore(acc, nil)
	id := block.RDDBlockID(1, 0)
	s.PutBytes(id, 3, "tag", func() []byte { return []byte{1, 2, 3} })

	assert.True(t, s.Remove(id))
	assert.False(t, s.Contains(id))
	assert.EqualValues(t, 0, acc.Used())
}
