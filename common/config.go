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

package common

import "time"

// DiskStoreConfig is the static configuration for the local disk tier.
type DiskStoreConfig struct {
	WriteSync         bool `yaml:"write_sync"`
	SubDirsPerLocalDir int `yaml:"sub_dirs_per_local_dir"`
}

// ShuffleServiceConfig configures the external shuffle service integration.
type ShuffleServiceConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// ReplicationConfig is the static configuration for the replicator.
type ReplicationConfig struct {
	MaxReplicationFailures int           `yaml:"max_replication_failures"`
	CachedPeersTTL         time.Duration `yaml:"cached_peers_ttl"`
	Policy                 string        `yaml:"policy"`
}

// RemoteFetchConfig is the static configuration for the remote fetcher.
type RemoteFetchConfig struct {
	MaxRemoteBlockSizeFetchToMem  int64 `yaml:"max_remote_block_size_fetch_to_mem"`
	MaxFailuresBeforeLocationRefresh int `yaml:"max_failures_before_location_refresh"`
}

// EventQueueConfig is the static configuration for the async event queue.
type EventQueueConfig struct {
	Capacity int `yaml:"capacity"`
}

// ShuffleRegistrationConfig bounds retries when registering with the
// external shuffle service.
type ShuffleRegistrationConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Timeout     time.Duration `yaml:"timeout"`
	Backoff     time.Duration `yaml:"backoff"`
}

// ClusterConfig describes how this node finds the rest of the cluster.
type ClusterConfig struct {
	Enable       bool   `yaml:"enable"`
	ClusterName  string `yaml:"cluster_name"`
	InstanceName string `yaml:"instance_name"`
}

// ServerConfig is the top-level static configuration for a BlockManager
// node, following the shape of AresServerConfig: one struct, one yaml file,
// bound onto viper with environment and flag overrides layered on top.
type ServerConfig struct {
	// Port the node listens on for peer RPCs.
	Port int `yaml:"port"`

	// DebugPort serves pprof and health endpoints.
	DebugPort int `yaml:"debug_port"`

	// RootPath is the local directory the disk tier writes under.
	RootPath string `yaml:"root_path"`

	// TotalMemorySize is the memory budget handed to the memory accountant.
	TotalMemorySize int64 `yaml:"total_memory_size"`

	// TrackUpdatedBlockStatuses enables per-task metrics collection of the
	// blocks a task's put/get touched.
	TrackUpdatedBlockStatuses bool `yaml:"track_updated_block_statuses"`

	// Version is the build version of the server currently running.
	Version string `yaml:"version"`

	DiskStore          DiskStoreConfig           `yaml:"disk_store"`
	ShuffleService     ShuffleServiceConfig      `yaml:"shuffle_service"`
	Replication        ReplicationConfig         `yaml:"replication"`
	RemoteFetch        RemoteFetchConfig         `yaml:"remote_fetch"`
	EventQueue         EventQueueConfig          `yaml:"event_queue"`
	ShuffleRegistration ShuffleRegistrationConfig `yaml:"shuffle_registration"`
	Cluster            ClusterConfig             `yaml:"cluster"`
}

// DefaultServerConfig returns the reference defaults named in spec.md §6.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		RootPath: "blockmanager-root",
		DiskStore: DiskStoreConfig{
			SubDirsPerLocalDir: 64,
		},
		ShuffleService: ShuffleServiceConfig{
			Enabled: false,
			Port:    7337,
		},
		Replication: ReplicationConfig{
			MaxReplicationFailures: 1,
			CachedPeersTTL:         60 * time.Second,
			Policy:                 "random",
		},
		RemoteFetch: RemoteFetchConfig{
			MaxRemoteBlockSizeFetchToMem:      200 * 1024 * 1024,
			MaxFailuresBeforeLocationRefresh: 5,
		},
		EventQueue: EventQueueConfig{
			Capacity: 10000,
		},
		ShuffleRegistration: ShuffleRegistrationConfig{
			MaxAttempts: 5,
			Timeout:     60 * time.Second,
			Backoff:     5 * time.Second,
		},
	}
}
