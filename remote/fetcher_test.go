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
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/uber/blockmanager/block"
	"github.com/uber/blockmanager/transport"
)

type fakeMaster struct {
	mu        sync.Mutex
	locations []block.ManagerID
	status    block.Status
	refreshes int
}

func (f *fakeMaster) GetLocationsAndStatus(blockID block.ID) ([]block.ManagerID, block.Status, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	return f.locations, f.status, true, nil
}

func (f *fakeMaster) GetLocations(blockID block.ID) ([]block.ManagerID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.locations, nil
}

func (f *fakeMaster) RegisterBlockManager(id block.ManagerID, maxOnHeapMemory, maxOffHeapMemory int64) (block.ManagerID, error) {
	return id, nil
}

func (f *fakeMaster) UpdateBlockInfo(id block.ManagerID, blockID block.ID, status block.Status) (bool, error) {
	return true, nil
}

func (f *fakeMaster) GetPeers(self block.ManagerID) ([]block.ManagerID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.locations, nil
}

type fakeTransport struct {
	mu       sync.Mutex
	failFor  map[string]bool
	attempts int
}

func (f *fakeTransport) FetchBlockSync(host string, port int, executorID string, blockID block.ID, tempFiles transport.TempFileRegistrar) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.failFor[host] {
		return nil, errors.New("simulated fetch failure")
	}
	return []byte("data-from-" + host), nil
}

func (f *fakeTransport) UploadBlockSync(host string, port int, executorID string, blockID block.ID, data []byte, level block.Level, classTag string) error {
	return nil
}

func TestGetRemoteBytesSucceedsOnFirstGoodLocation(t *testing.T) {
	self := block.ManagerID{ExecutorID: "self", Host: "h0"}
	locs := []block.ManagerID{{ExecutorID: "e1", Host: "h1"}}
	m := &fakeMaster{locations: locs}
	tr := &fakeTransport{failFor: map[string]bool{}}
	f := NewFetcher(self, m, tr, nil, Config{}, nil)

	data, err := f.GetRemoteBytes(block.RDDBlockID(1, 0))
	assert.NoError(t, err)
	assert.Equal(t, []byte("data-from-h1"), data)
}

// TestGetRemoteBytesRefreshesAfterRepeatedFailures pins scenario 4 from
// spec.md §8: consecutive fetch failures trigger a refresh once their
// count reaches the configured threshold.
func TestGetRemoteBytesRefreshesAfterRepeatedFailures(t *testing.T) {
	self := block.ManagerID{ExecutorID: "self", Host: "h0"}
	locs := []block.ManagerID{
		{ExecutorID: "e1", Host: "stale1"},
		{ExecutorID: "e2", Host: "stale2"},
	}
	m := &fakeMaster{locations: locs}
	tr := &fakeTransport{failFor: map[string]bool{"stale1": true, "stale2": true}}
	f := NewFetcher(self, m, tr, nil, Config{MaxFailuresBeforeLocationRefresh: 2}, nil)

	// After 2 failures (one per location) the fetcher refreshes from master;
	// master keeps returning the same two failing locations, total failures
	// have reached len(ordered)==2, and the call gives up.
	_, err := f.GetRemoteBytes(block.RDDBlockID(1, 0))
	assert.Error(t, err)
	assert.True(t, m.refreshes >= 2, "expected at least one refresh beyond the initial lookup")
}

func TestGetRemoteBytesBoundsTotalAttemptsByLocationCount(t *testing.T) {
	self := block.ManagerID{ExecutorID: "self", Host: "h0"}
	locs := []block.ManagerID{
		{ExecutorID: "e1", Host: "bad1"},
		{ExecutorID: "e2", Host: "bad2"},
	}
	m := &fakeMaster{locations: locs}
	tr := &fakeTransport{failFor: map[string]bool{"bad1": true, "bad2": true}}
	// Large refresh threshold so no refresh happens mid-call; every location
	// is tried exactly once before giving up.
	f := NewFetcher(self, m, tr, nil, Config{MaxFailuresBeforeLocationRefresh: 100}, nil)

	_, err := f.GetRemoteBytes(block.RDDBlockID(1, 0))
	assert.Error(t, err)
	assert.Equal(t, len(locs), tr.attempts)
}
