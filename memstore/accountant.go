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

// Package memstore implements the bounded in-memory tier: MemoryStore holds
// blocks as either typed values or serialized bytes up to a budget dictated
// by a MemoryAccountant, evicting via a caller-supplied EvictionHandler when
// that budget is exhausted.
package memstore

import (
	"sync/atomic"

	"github.com/uber-go/tally"
)

// MemoryAccountant is the external memory accounting capability the
// MemoryStore reserves and releases bytes against. It never blocks beyond
// brief contention.
type MemoryAccountant interface {
	// Reserve attempts to reserve bytes and reports whether it succeeded.
	// Reservation failure is a signal to the caller (spill or evict), not
	// an error.
	Reserve(bytes int64) bool
	// Release gives back a previously reserved allocation.
	Release(bytes int64)
	// Used returns the currently reserved byte count.
	Used() int64
}

// BudgetAccountant is a straightforward MemoryAccountant backed by a fixed
// byte budget, mirroring the managed/unmanaged split aresdb's
// hostMemoryManager keeps between preloaded and transient memory: here the
// whole budget is "managed" because every reservation the MemoryStore makes
// is evictable.
type BudgetAccountant struct {
	budget int64
	used   int64
	gauge  tally.Gauge
}

// NewBudgetAccountant creates an accountant with the given byte budget. gauge
// may be nil, in which case usage is tracked but not reported.
func NewBudgetAccountant(budget int64, gauge tally.Gauge) *BudgetAccountant {
	return &BudgetAccountant{budget: budget, gauge: gauge}
}

// Reserve implements MemoryAccountant.
func (a *BudgetAccountant) Reserve(bytes int64) bool {
	for {
		used := atomic.LoadInt64(&a.used)
		if used+bytes > a.budget {
			return false
		}
		if atomic.CompareAndSwapInt64(&a.used, used, used+bytes) {
			a.reportUsage()
			return true
		}
	}
}

// Release implements MemoryAccountant.
func (a *BudgetAccountant) Release(bytes int64) {
	atomic.AddInt64(&a.used, -bytes)
	a.reportUsage()
}

// Used implements MemoryAccountant.
func (a *BudgetAccountant) Used() int64 {
	return atomic.LoadInt64(&a.used)
}

func (a *BudgetAccountant) reportUsage() {
	if a.gauge != nil {
		a.gauge.Update(float64(atomic.LoadInt64(&a.used)))
	}
}
