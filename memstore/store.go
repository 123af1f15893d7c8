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
	"io"
	"sync"
	"sync/atomic"

	rbt "github.com/emirpasic/gods/trees/redblacktree"

	"github.com/uber/blockmanager/block"
	"github.com/uber/blockmanager/common"
)

func seqComparator(a, b interface{}) int {
	x, y := a.(int64), b.(int64)
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}

// MemoryStore is the bounded in-memory tier. It is safe for concurrent use.
type MemoryStore struct {
	mu sync.RWMutex

	entries map[block.ID]*Entry
	// order tracks LRU-ish access order: sequence number -> block id, so
	// eviction always starts from the smallest key (oldest touch), the
	// same rbt.Tree-backed indexing aresdb's host memory manager uses for
	// its own batch eviction bookkeeping.
	order   *rbt.Tree
	seqByID map[block.ID]int64
	nextSeq int64

	accountant MemoryAccountant
	eviction   EvictionHandler
	logger     common.Logger

	unrollMemoryCheckPeriod int
	unrollMemoryGrowthFactor float64
}

// Option configures a MemoryStore at construction.
type Option func(*MemoryStore)

// WithLogger overrides the store's logger.
func WithLogger(l common.Logger) Option {
	return func(s *MemoryStore) { s.logger = l }
}

// NewMemoryStore creates a MemoryStore bounded by accountant and wired to
// call eviction when it must free space.
func NewMemoryStore(accountant MemoryAccountant, eviction EvictionHandler, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		entries:                  make(map[block.ID]*Entry),
		order:                    rbt.NewWith(seqComparator),
		seqByID:                  make(map[block.ID]int64),
		accountant:               accountant,
		eviction:                 eviction,
		logger:                   &common.NoopLogger{},
		unrollMemoryCheckPeriod:  16,
		unrollMemoryGrowthFactor: 1.5,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) touch(id block.ID) {
	if oldSeq, ok := s.seqByID[id]; ok {
		s.order.Remove(oldSeq)
	}
	seq := atomic.AddInt64(&s.nextSeq, 1)
	s.seqByID[id] = seq
	s.order.Put(seq, id)
}

func (s *MemoryStore) forget(id block.ID) {
	if seq, ok := s.seqByID[id]; ok {
		s.order.Remove(seq)
		delete(s.seqByID, id)
	}
}

// rddOf returns the RDD id a block belongs to and whether it belongs to
// one at all; non-RDD blocks never win the affinity tie-break.
func rddOf(id block.ID) (int, bool) {
	if id.Kind == block.KindRDD {
		return id.RDDID, true
	}
	return 0, false
}

// reserve attempts to reserve bytes for admitting, evicting LRU victims
// (skipping blocks affine to admitting's RDD, admitting itself, and any
// candidate currently locked elsewhere) until either the reservation
// succeeds or candidates are exhausted. Caller must hold s.mu for writing;
// reserve drops it around each call into the eviction handler and
// reacquires it before returning, so it always returns with s.mu held.
func (s *MemoryStore) reserve(admitting block.ID, bytes int64) bool {
	if s.accountant.Reserve(bytes) {
		return true
	}

	admittingRDD, admittingIsRDD := rddOf(admitting)

	for {
		if !s.evictOneVictim(admitting, admittingRDD, admittingIsRDD) {
			return false
		}

		if s.accountant.Reserve(bytes) {
			return true
		}
	}
}

// evictOneVictim scans LRU order for a candidate this store can actually
// take away: not admitting, not affine to admitting's RDD, and lockable via
// s.eviction.TryLockVictim. A candidate someone else currently holds a
// blockinfo lock on is skipped rather than evicted, so a reader that holds
// a read lock on a block never sees it vanish from s.entries out from under
// it; the store only strips a candidate's bookkeeping once its lock is
// confirmed held, then releases s.mu for the DropFromMemory call and
// reacquires it before returning. Caller must hold s.mu for writing.
func (s *MemoryStore) evictOneVictim(admitting block.ID, admittingRDD int, admittingIsRDD bool) bool {
	it := s.order.Iterator()
	for it.Next() {
		id := it.Value().(block.ID)
		if id == admitting {
			continue
		}
		if admittingIsRDD {
			if rdd, isRDD := rddOf(id); isRDD && rdd == admittingRDD {
				continue
			}
		}
		if s.eviction != nil && !s.eviction.TryLockVictim(id) {
			continue
		}

		entry := s.entries[id]
		delete(s.entries, id)
		s.forget(id)
		s.accountant.Release(entry.Size)

		if s.eviction != nil {
			// DropFromMemory runs with the victim's blockinfo write lock
			// already held (TryLockVictim took it above). The blockmanager
			// handler calls back into this store (its status snapshot reads
			// GetSize, which takes s.mu), so it must run with s.mu released.
			s.mu.Unlock()
			s.eviction.DropFromMemory(id, *entry)
			s.mu.Lock()
		}
		return true
	}
	return false
}

// PutBytes reserves size bytes and, on success, invokes materialize exactly
// once to produce the bytes to store. On reservation failure materialize is
// never called and PutBytes returns false: oversize input would OOM if
// materialized eagerly before we knew whether there was room for it.
func (s *MemoryStore) PutBytes(id block.ID, size int64, classTag string, materialize func() []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.reserve(id, size) {
		return false
	}

	data := materialize()
	entry := &Entry{Bytes: data, Size: size, classTag: classTag}
	s.entries[id] = entry
	s.touch(id)
	return true
}

// PutIteratorAsValues streams values from iter into an unroll buffer,
// checking reservation growth periodically. On success it returns the
// total size and true. On failure it returns a PartiallyUnrolledIterator
// and false; the caller decides whether to spill the remainder to disk or
// hand the iterator back to its own caller.
func (s *MemoryStore) PutIteratorAsValues(id block.ID, iter ValueIterator, classTag string, estimateSize func([]interface{}) int64) (int64, *PartiallyUnrolledIterator, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var unrolled []interface{}
	var reserved int64
	n := 0

	for {
		v, ok, err := iter.Next()
		if err != nil || !ok {
			break
		}
		unrolled = append(unrolled, v)
		n++
		if n%s.unrollMemoryCheckPeriod == 0 {
			needed := estimateSize(unrolled)
			if needed > reserved {
				grow := int64(float64(needed-reserved) * s.unrollMemoryGrowthFactor)
				if grow < needed-reserved {
					grow = needed - reserved
				}
				if !s.accountant.Reserve(grow) {
					partial := newPartiallyUnrolledIterator(unrolled, iter, reserved, s.accountant)
					return 0, partial, false
				}
				reserved += grow
			}
		}
	}

	finalSize := estimateSize(unrolled)
	if finalSize > reserved {
		if !s.accountant.Reserve(finalSize - reserved) {
			partial := newPartiallyUnrolledIterator(unrolled, NewSliceIterator(nil), reserved, s.accountant)
			return 0, partial, false
		}
		reserved = finalSize
	} else if finalSize < reserved {
		s.accountant.Release(reserved - finalSize)
		reserved = finalSize
	}

	entry := &Entry{Values: unrolled, Size: finalSize, classTag: classTag}
	s.entries[id] = entry
	s.touch(id)
	return finalSize, nil, true
}

// countingWriter discards what it's given, tracking only how many bytes
// would have been written. It lets PutIteratorAsBytes ask serializeOne how
// big a value's serialized form is without materializing it, mirroring the
// role estimateSize plays for PutIteratorAsValues.
type countingWriter struct {
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return len(p), nil
}

// PutIteratorAsBytes is PutIteratorAsValues' serialized-bytes counterpart.
// It unrolls values from iter incrementally, using serializeOne against a
// countingWriter to track the serialized size and check reservation growth
// every unrollMemoryCheckPeriod values, exactly the discipline
// PutIteratorAsValues uses with estimateSize. serializeAll is called only
// once, to produce the final byte form, and only once unrolling succeeds in
// full; serializeOne is what does the incremental sizing, and what the
// returned PartiallySerializedValues uses to stream the un-stored values
// out one at a time via FinishWritingToStream on failure.
func (s *MemoryStore) PutIteratorAsBytes(id block.ID, iter ValueIterator, classTag string, serializeAll func([]interface{}) []byte, serializeOne func(io.Writer, interface{}) error) (int64, *PartiallySerializedValues, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var unrolled []interface{}
	var reserved int64
	var cw countingWriter
	n := 0

	for {
		v, ok, err := iter.Next()
		if err != nil || !ok {
			break
		}
		if err := serializeOne(&cw, v); err != nil {
			return 0, nil, false
		}
		unrolled = append(unrolled, v)
		n++
		if n%s.unrollMemoryCheckPeriod == 0 {
			needed := cw.n
			if needed > reserved {
				grow := int64(float64(needed-reserved) * s.unrollMemoryGrowthFactor)
				if grow < needed-reserved {
					grow = needed - reserved
				}
				if !s.accountant.Reserve(grow) {
					partial := &PartiallySerializedValues{
						rest:           &chainedIterator{values: unrolled, rest: iter},
						serializer:     serializeOne,
						unrollReserved: reserved,
						accountant:     s.accountant,
					}
					return 0, partial, false
				}
				reserved += grow
			}
		}
	}

	finalNeeded := cw.n
	if finalNeeded > reserved {
		if !s.accountant.Reserve(finalNeeded - reserved) {
			partial := &PartiallySerializedValues{
				rest:           NewSliceIterator(unrolled),
				serializer:     serializeOne,
				unrollReserved: reserved,
				accountant:     s.accountant,
			}
			return 0, partial, false
		}
		reserved = finalNeeded
	} else if finalNeeded < reserved {
		s.accountant.Release(reserved - finalNeeded)
		reserved = finalNeeded
	}

	data := serializeAll(unrolled)
	size := int64(len(data))
	entry := &Entry{Bytes: data, Size: size, classTag: classTag}
	s.entries[id] = entry
	s.touch(id)
	return size, nil, true
}

// GetValues returns the values for id if it is held as values.
func (s *MemoryStore) GetValues(id block.ID) ([]interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok || entry.IsBytes() {
		return nil, false
	}
	s.touch(id)
	return entry.Values, true
}

// GetBytes returns the bytes for id if it is held as bytes.
func (s *MemoryStore) GetBytes(id block.ID) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok || !entry.IsBytes() {
		return nil, false
	}
	s.touch(id)
	return entry.Bytes, true
}

// Contains reports whether id currently has an entry in memory.
func (s *MemoryStore) Contains(id block.ID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[id]
	return ok
}

// GetSize returns id's size in memory, or (0, false) if absent.
func (s *MemoryStore) GetSize(id block.ID) (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[id]
	if !ok {
		return 0, false
	}
	return entry.Size, true
}

// Remove drops id from memory without invoking the eviction handler,
// releasing its reservation.
func (s *MemoryStore) Remove(id block.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return false
	}
	delete(s.entries, id)
	s.forget(id)
	s.accountant.Release(entry.Size)
	return true
}
