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

// Package remote implements the location-ordered retrieval path for blocks
// that are not present locally, plus the temp file lifecycle management for
// oversize fetches.
package remote

import (
	"math/rand"

	"github.com/pkg/errors"

	"github.com/uber/blockmanager/block"
	"github.com/uber/blockmanager/common"
	"github.com/uber/blockmanager/master"
	"github.com/uber/blockmanager/transport"
)

// Config controls the fetcher's thresholds.
type Config struct {
	MaxRemoteBlockSizeFetchToMem    int64
	MaxFailuresBeforeLocationRefresh int
}

// Fetcher retrieves a block's bytes from whichever peers the master reports
// as holding it, retrying across locations and refreshing the location list
// when enough consecutive attempts fail to suggest it is stale.
type Fetcher struct {
	self      block.ManagerID
	master    master.Client
	transport transport.Client
	tempFiles *TempFileManager
	cfg       Config
	rng       *rand.Rand
	logger    common.Logger
}

// NewFetcher creates a Fetcher.
func NewFetcher(self block.ManagerID, masterClient master.Client, transportClient transport.Client, tempFiles *TempFileManager, cfg Config, logger common.Logger) *Fetcher {
	if cfg.MaxFailuresBeforeLocationRefresh <= 0 {
		cfg.MaxFailuresBeforeLocationRefresh = 5
	}
	if logger == nil {
		logger = &common.NoopLogger{}
	}
	return &Fetcher{
		self:      self,
		master:    masterClient,
		transport: transportClient,
		tempFiles: tempFiles,
		cfg:       cfg,
		rng:       rand.New(rand.NewSource(1)),
		logger:    logger,
	}
}

// orderLocations sorts candidates by affinity to self: same host, then same
// rack, then everything else, randomized within each tier.
func orderLocations(self block.ManagerID, candidates []block.ManagerID, rng *rand.Rand) []block.ManagerID {
	var sameHost, sameRack, other []block.ManagerID
	for _, c := range candidates {
		switch {
		case self.SameHost(c):
			sameHost = append(sameHost, c)
		case self.SameRack(c):
			sameRack = append(sameRack, c)
		default:
			other = append(other, c)
		}
	}
	rng.Shuffle(len(sameHost), func(i, j int) { sameHost[i], sameHost[j] = sameHost[j], sameHost[i] })
	rng.Shuffle(len(sameRack), func(i, j int) { sameRack[i], sameRack[j] = sameRack[j], sameRack[i] })
	rng.Shuffle(len(other), func(i, j int) { other[i], other[j] = other[j], other[i] })

	out := make([]block.ManagerID, 0, len(candidates))
	out = append(out, sameHost...)
	out = append(out, sameRack...)
	out = append(out, other...)
	return out
}

// GetRemoteBytes fetches blockID's bytes from a remote peer, trying
// locations in affinity order and refreshing the location list from the
// master once MaxFailuresBeforeLocationRefresh consecutive attempts, counted
// across all locations rather than per location, have failed since the last
// refresh. It issues at most one fetch attempt per known location
// between refreshes; total attempts across the call are bounded by the
// number of locations the master ever reports.
func (f *Fetcher) GetRemoteBytes(blockID block.ID) ([]byte, error) {
	locations, status, ok, err := f.master.GetLocationsAndStatus(blockID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get locations for block")
	}
	if !ok || len(locations) == 0 {
		return nil, errNotFound(blockID)
	}

	blockSize := status.DiskSize
	if status.MemSize > blockSize {
		blockSize = status.MemSize
	}
	var tempFiles transport.TempFileRegistrar
	if f.tempFiles != nil && blockSize > f.cfg.MaxRemoteBlockSizeFetchToMem {
		tempFiles = f.tempFiles
	}

	ordered := orderLocations(f.self, locations, f.rng)

	perLocationFailures := 0
	totalFailures := 0
	idx := 0
	for totalFailures < len(ordered) {
		loc := ordered[idx%len(ordered)]
		data, err := f.transport.FetchBlockSync(loc.Host, loc.Port, loc.ExecutorID, blockID, tempFiles)
		if err == nil {
			return data, nil
		}
		f.logger.Warnf("fetch of block %s from %s failed: %v", blockID, loc, err)
		perLocationFailures++
		totalFailures++
		idx++

		if perLocationFailures >= f.cfg.MaxFailuresBeforeLocationRefresh {
			refreshed, _, ok, rerr := f.master.GetLocationsAndStatus(blockID)
			if rerr == nil && ok && len(refreshed) > 0 {
				ordered = orderLocations(f.self, refreshed, f.rng)
				idx = 0
			}
			perLocationFailures = 0
		}
	}
	return nil, errNotFound(blockID)
}

type notFoundError struct {
	blockID block.ID
}

func (e notFoundError) Error() string {
	return "block " + e.blockID.String() + " not found at any known location"
}

func errNotFound(id block.ID) error {
	return notFoundError{blockID: id}
}
