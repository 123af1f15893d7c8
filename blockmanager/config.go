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

import "time"

// Config carries the block manager's tunables. Field names mirror the
// config keys named in the surrounding scheduler's configuration, bound via
// viper/mapstructure at the daemon entrypoint.
type Config struct {
	// ShuffleServiceEnabled routes shuffle block serving to an external
	// shuffle service instead of this node's own transport when true.
	ShuffleServiceEnabled bool `mapstructure:"spark.shuffle.service.enabled"`
	// ShuffleServicePort is the external shuffle service's port.
	ShuffleServicePort int `mapstructure:"spark.shuffle.service.port"`
	// FailuresBeforeLocationRefresh is how many consecutive remote fetch
	// failures, counted across a block's locations, trigger a location-list
	// refresh.
	FailuresBeforeLocationRefresh int `mapstructure:"spark.block.failures.beforeLocationRefresh"`
	// CachedPeersTTL bounds how long a fetched replication peer set is
	// reused before being re-fetched from the master.
	CachedPeersTTL time.Duration `mapstructure:"spark.storage.cachedPeersTtl"`
	// MaxReplicationFailures is how many peer upload failures a single
	// replicate call tolerates.
	MaxReplicationFailures int `mapstructure:"spark.storage.maxReplicationFailures"`
	// MaxRemoteBlockSizeFetchToMem is the size threshold above which a
	// remote fetch is spilled to a temp file instead of buffered in memory.
	MaxRemoteBlockSizeFetchToMem int64 `mapstructure:"MAX_REMOTE_BLOCK_SIZE_FETCH_TO_MEM"`
	// EventQueueCapacity bounds the async event queue used for block status
	// change notifications fanned out to listeners.
	EventQueueCapacity int `mapstructure:"LISTENER_BUS_EVENT_QUEUE_CAPACITY"`
	// ShuffleRegistrationMaxAttempts bounds retries when registering with
	// an external shuffle service.
	ShuffleRegistrationMaxAttempts int `mapstructure:"SHUFFLE_REGISTRATION_MAX_ATTEMPTS"`
	// ShuffleRegistrationBackoff is the fixed backoff between registration
	// attempts.
	ShuffleRegistrationBackoff time.Duration `mapstructure:"SHUFFLE_REGISTRATION_TIMEOUT"`
}

// DefaultConfig returns a Config populated with spec-mandated defaults.
func DefaultConfig() Config {
	return Config{
		ShuffleServicePort:             7337,
		FailuresBeforeLocationRefresh:  5,
		CachedPeersTTL:                 60 * time.Second,
		MaxReplicationFailures:         1,
		EventQueueCapacity:             10000,
		ShuffleRegistrationMaxAttempts: 5,
		ShuffleRegistrationBackoff:     5 * time.Second,
	}
}
