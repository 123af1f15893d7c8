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

package replication

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/uber/blockmanager/block"
	"github.com/uber/blockmanager/common"
	"github.com/uber/blockmanager/transport"
	"github.com/uber/blockmanager/utils"
)

type fakeMaster struct {
	mu    sync.Mutex
	peers []block.ManagerID
	calls int
}

func (f *fakeMaster) RegisterBlockManager(id block.ManagerID, maxOnHeapMemory, maxOffHeapMemory int64) (block.ManagerID, error) {
	return id, nil
}

func (f *fakeMaster) UpdateBlockInfo(id block.ManagerID, blockID block.ID, status block.Status) (bool, error) {
	return true, nil
}

func (f *fakeMaster) GetLocations(blockID block.ID) ([]block.ManagerID, error) {
	return nil, nil
}

func (f *fakeMaster) GetLocationsAndStatus(blockID block.ID) ([]block.ManagerID, block.Status, bool, error) {
	return nil, block.Status{}, false, nil
}

func (f *fakeMaster) GetPeers(self block.ManagerID) ([]block.ManagerID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.peers, nil
}

type recordedUpload struct {
	peer block.ManagerID
}

type fakeTransport struct {
	mu      sync.Mutex
	failFor map[string]bool
	uploads []recordedUpload
}

func (f *fakeTransport) FetchBlockSync(host string, port int, executorID string, blockID block.ID, tempFiles transport.TempFileRegistrar) ([]byte, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeTransport) UploadBlockSync(host string, port int, executorID string, blockID block.ID, data []byte, level block.Level, classTag string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, recordedUpload{peer: block.ManagerID{ExecutorID: executorID, Host: host, Port: port}})
	if f.failFor[host] {
		return errors.New("simulated upload failure")
	}
	return nil
}

// TestReplicateSkipsFailedPeerAndSucceedsWithinBudget pins scenario 3 from
// spec.md §8: three candidate peers, one fails, maxReplicationFailures=1.
// Replication to the remaining peers still reaches the requested count and
// Replicate does not panic or block forever.
func TestReplicateSkipsFailedPeerAndSucceedsWithinBudget(t *testing.T) {
	self := block.ManagerID{ExecutorID: "self", Host: "h0"}
	peers := []block.ManagerID{
		{ExecutorID: "p1", Host: "p1"},
		{ExecutorID: "p2", Host: "p2"},
		{ExecutorID: "p3", Host: "p3"},
	}
	m := &fakeMaster{peers: peers}
	tr := &fakeTransport{failFor: map[string]bool{"p1": true}}
	r := NewReplicator(self, m, tr, RandomPolicy{}, Config{MaxReplicationFailures: 1}, &common.NoopLogger{})

	assert.NotPanics(t, func() {
		r.Replicate(block.RDDBlockID(1, 0), []byte("data"), block.Level{Replication: 2}, "", nil)
	})

	tr.mu.Lock()
	defer tr.mu.Unlock()
	succeededHosts := map[string]bool{}
	for _, u := range tr.uploads {
		if !tr.failFor[u.peer.Host] {
			succeededHosts[u.peer.Host] = true
		}
	}
	assert.True(t, len(succeededHosts) >= 1, "expected at least one successful replica beyond the local copy")
}

// TestReplicateAbortsWhenFailuresExceedBudget pins the "peer set exhausted
// or failure budget exceeded" abort condition from spec.md §4.4: every
// candidate fails and maxReplicationFailures is 1, so Replicate must return
// promptly without achieving the requested replication count.
func TestReplicateAbortsWhenFailuresExceedBudget(t *testing.T) {
	self := block.ManagerID{ExecutorID: "self", Host: "h0"}
	peers := []block.ManagerID{
		{ExecutorID: "p1", Host: "p1"},
		{ExecutorID: "p2", Host: "p2"},
	}
	m := &fakeMaster{peers: peers}
	tr := &fakeTransport{failFor: map[string]bool{"p1": true, "p2": true}}
	r := NewReplicator(self, m, tr, RandomPolicy{}, Config{MaxReplicationFailures: 1}, &common.NoopLogger{})

	assert.NotPanics(t, func() {
		r.Replicate(block.RDDBlockID(1, 0), []byte("data"), block.Level{Replication: 3}, "", nil)
	})
}

// TestReplicateHonorsAlreadyReplicatedTo confirms peers that already hold a
// copy are excluded from being retargeted.
func TestReplicateHonorsAlreadyReplicatedTo(t *testing.T) {
	self := block.ManagerID{ExecutorID: "self", Host: "h0"}
	peers := []block.ManagerID{
		{ExecutorID: "p1", Host: "p1"},
		{ExecutorID: "p2", Host: "p2"},
	}
	m := &fakeMaster{peers: peers}
	tr := &fakeTransport{failFor: map[string]bool{}}
	r := NewReplicator(self, m, tr, RandomPolicy{}, Config{}, &common.NoopLogger{})

	r.Replicate(block.RDDBlockID(1, 0), []byte("data"), block.Level{Replication: 2}, "", []block.ManagerID{peers[0]})

	tr.mu.Lock()
	defer tr.mu.Unlock()
	for _, u := range tr.uploads {
		assert.NotEqual(t, "p1", u.peer.Host)
	}
}

// TestReplicateNoopWhenReplicationIsOne confirms a replication factor of 1
// (no extra copies needed) never calls the transport.
func TestReplicateNoopWhenReplicationIsOne(t *testing.T) {
	self := block.ManagerID{ExecutorID: "self", Host: "h0"}
	m := &fakeMaster{peers: []block.ManagerID{{ExecutorID: "p1", Host: "p1"}}}
	tr := &fakeTransport{}
	r := NewReplicator(self, m, tr, RandomPolicy{}, Config{}, &common.NoopLogger{})

	r.Replicate(block.RDDBlockID(1, 0), []byte("data"), block.Level{Replication: 1}, "", nil)

	assert.Empty(t, tr.uploads)
	assert.Equal(t, 0, m.calls)
}

// TestPeerCacheExpiresAfterTTL pins the peer cache's TTL behavior: a second
// call within CachedPeersTTL reuses the cached set, and a call after the
// TTL has elapsed refreshes it from master. The clock is pinned via
// utils.SetClockImplementation so the test controls elapsed time exactly
// rather than racing a real clock against a short TTL.
func TestPeerCacheExpiresAfterTTL(t *testing.T) {
	defer utils.ResetClockImplementation()
	now := time.Unix(1000, 0)
	utils.SetClockImplementation(func() time.Time { return now })

	self := block.ManagerID{ExecutorID: "self", Host: "h0"}
	m := &fakeMaster{peers: []block.ManagerID{{ExecutorID: "p1", Host: "p1"}}}
	r := NewReplicator(self, m, &fakeTransport{}, RandomPolicy{}, Config{CachedPeersTTL: 10 * time.Second}, &common.NoopLogger{})

	_, err := r.peers(false)
	assert.NoError(t, err)
	assert.Equal(t, 1, m.calls)

	_, err = r.peers(false)
	assert.NoError(t, err)
	assert.Equal(t, 1, m.calls, "second call within the TTL must reuse the cached peer set")

	now = now.Add(11 * time.Second)
	_, err = r.peers(false)
	assert.NoError(t, err)
	assert.Equal(t, 2, m.calls, "call past the TTL must refresh from master")
}
