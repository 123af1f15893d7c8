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

package remote

import (
	"os"
	"runtime"
	"sync"

	"github.com/uber/blockmanager/common"
)

// TempFileManager tracks temp files created to absorb oversize remote
// fetches. A temp file's lifetime is coupled to the in-memory consumer
// object it feeds (typically the ManagedBuffer wrapping it); Go has no
// reference queue, so instead of a background thread polling one, each
// registration attaches a runtime.SetFinalizer to the consumer that deletes
// the file once the consumer becomes unreachable. Dispose provides the
// synchronous counterpart for callers that know precisely when they are
// done with the file and don't want to wait on the garbage collector.
type TempFileManager struct {
	mu      sync.Mutex
	pending map[string]struct{}
	logger  common.Logger
}

// NewTempFileManager creates an empty TempFileManager.
func NewTempFileManager(logger common.Logger) *TempFileManager {
	if logger == nil {
		logger = &common.NoopLogger{}
	}
	return &TempFileManager{pending: make(map[string]struct{}), logger: logger}
}

// RegisterTempFileToClean arranges for path to be deleted once consumer
// becomes unreachable. consumer is typically the buffer or iterator object
// that owns the file's contents.
func (m *TempFileManager) RegisterTempFileToClean(consumer interface{}, path string) {
	m.mu.Lock()
	m.pending[path] = struct{}{}
	m.mu.Unlock()

	runtime.SetFinalizer(consumer, func(interface{}) {
		m.dispose(path)
	})
}

// Dispose synchronously deletes path now, bypassing the finalizer. Safe to
// call even if a finalizer for the same path is also pending; deletion is
// idempotent.
func (m *TempFileManager) Dispose(path string) {
	m.dispose(path)
}

func (m *TempFileManager) dispose(path string) {
	m.mu.Lock()
	_, tracked := m.pending[path]
	delete(m.pending, path)
	m.mu.Unlock()

	if !tracked {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		m.logger.Warnf("failed to delete temp block file %s: %v", path, err)
	}
}

// Stop deletes every temp file still pending, for use at shutdown when
// waiting on finalizers to run is not acceptable.
func (m *TempFileManager) Stop() {
	m.mu.Lock()
	paths := make([]string, 0, len(m.pending))
	for p := range m.pending {
		paths = append(paths, p)
	}
	m.mu.Unlock()

	for _, p := range paths {
		m.dispose(p)
	}
}
