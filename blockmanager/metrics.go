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

package blockmanager

import (
	"time"

	"github.com/uber-go/tally"
)

// metrics bundles the tally instruments the manager reports through,
// mirroring the MetricName-enum shape aresdb's storage layer uses: one
// struct built once from a root scope rather than ad hoc scope.Counter
// calls scattered through the code.
type metrics struct {
	blocksPut        tally.Counter
	blocksEvicted    tally.Counter
	blocksReplicated tally.Counter
	blocksDropped    tally.Counter
	getMisses        tally.Counter
	remoteFetches    tally.Counter

	memUsedGauge tally.Gauge

	putLatency       tally.Timer
	getLatency       tally.Timer
	replicateLatency tally.Timer
}

func newMetrics(scope tally.Scope) *metrics {
	if scope == nil {
		scope = tally.NoopScope
	}
	sub := scope.SubScope("blockmanager")
	return &metrics{
		blocksPut:        sub.Counter("blocks_put"),
		blocksEvicted:    sub.Counter("blocks_evicted"),
		blocksReplicated: sub.Counter("blocks_replicated"),
		blocksDropped:    sub.Counter("blocks_dropped"),
		getMisses:        sub.Counter("get_misses"),
		remoteFetches:    sub.Counter("remote_fetches"),
		memUsedGauge:     sub.Gauge("mem_used_bytes"),
		putLatency:       sub.Timer("put_latency"),
		getLatency:       sub.Timer("get_latency"),
		replicateLatency: sub.Timer("replicate_latency"),
	}
}

func (m *metrics) timePut() func() {
	start := timeNow()
	return func() { m.putLatency.Record(timeNow().Sub(start)) }
}

func (m *metrics) timeGet() func() {
	start := timeNow()
	return func() { m.getLatency.Record(timeNow().Sub(start)) }
}

// timeNow is a var, not time.Now directly, so tests can pin it if latency
// assertions are ever added; it is not swapped today.
var timeNow = time.Now
