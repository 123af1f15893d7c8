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

// Package block defines the identifiers and placement policies shared by
// every tier of the storage stack: BlockId, StorageLevel, BlockStatus and
// BlockManagerId.
package block

import (
	"fmt"

	uuid "github.com/satori/go.uuid"
)

// Kind is the tag of a BlockId's closed variant set.
type Kind uint8

// List of supported BlockId kinds.
const (
	// KindRDD identifies a partition of a cached RDD.
	KindRDD Kind = iota
	// KindShuffle identifies a single shuffle map output partition.
	KindShuffle
	// KindBroadcast identifies a piece of a broadcast variable.
	KindBroadcast
	// KindTaskResult identifies a task's serialized result.
	KindTaskResult
	// KindTempLocal identifies a block private to the node that created it.
	KindTempLocal
	// KindStream identifies a block produced by a streaming receiver.
	KindStream
)

func (k Kind) String() string {
	switch k {
	case KindRDD:
		return "rdd"
	case KindShuffle:
		return "shuffle"
	case KindBroadcast:
		return "broadcast"
	case KindTaskResult:
		return "taskresult"
	case KindTempLocal:
		return "temp_local"
	case KindStream:
		return "input"
	default:
		return "unknown"
	}
}

// ID is an immutable, globally comparable block identifier. Only the fields
// relevant to its Kind are meaningful; ID is intentionally a plain
// comparable struct (not an interface) so it can be used as a map key.
type ID struct {
	Kind Kind

	// RDD
	RDDID     int
	Partition int

	// Shuffle
	ShuffleID int
	MapID     int64
	ReduceID  int

	// Broadcast
	BroadcastID int64
	Field       string

	// TaskResult / TempLocal / Stream
	UUID string
}

// RDDBlockID builds the identifier for a cached RDD partition.
func RDDBlockID(rddID, partition int) ID {
	return ID{Kind: KindRDD, RDDID: rddID, Partition: partition}
}

// ShuffleBlockID builds the identifier for a shuffle map output partition.
func ShuffleBlockID(shuffleID int, mapID int64, reduceID int) ID {
	return ID{Kind: KindShuffle, ShuffleID: shuffleID, MapID: mapID, ReduceID: reduceID}
}

// BroadcastBlockID builds the identifier for a broadcast variable piece.
// field is empty for the broadcast's primary block.
func BroadcastBlockID(broadcastID int64, field string) ID {
	return ID{Kind: KindBroadcast, BroadcastID: broadcastID, Field: field}
}

// TaskResultBlockID builds the identifier for a task's serialized result.
func TaskResultBlockID(uuid string) ID {
	return ID{Kind: KindTaskResult, UUID: uuid}
}

// TempLocalBlockID builds the identifier for a new node-private temp block,
// generating a fresh random UUID suffix the way Spark's own
// TempLocalBlockId(UUID.randomUUID()) does; callers never supply their own.
func TempLocalBlockID() ID {
	id, _ := uuid.NewV4()
	return ID{Kind: KindTempLocal, UUID: id.String()}
}

// StreamBlockID builds the identifier for a new streaming receiver block,
// generating a fresh random UUID suffix.
func StreamBlockID() ID {
	id, _ := uuid.NewV4()
	return ID{Kind: KindStream, UUID: id.String()}
}

// IsShuffle reports whether id identifies a shuffle block. Shuffle blocks
// bypass the block info lock manager on read: they are written once by the
// shuffle writer and never mutated, so the reader/writer protocol that
// protects every other kind would just add contention without protecting
// anything.
func (id ID) IsShuffle() bool {
	return id.Kind == KindShuffle
}

// String returns the canonical textual form of id, e.g. "rdd_3_7" or
// "shuffle_1_2_3". It is the wire/log representation used throughout the
// rest of the system.
func (id ID) String() string {
	switch id.Kind {
	case KindRDD:
		return fmt.Sprintf("rdd_%d_%d", id.RDDID, id.Partition)
	case KindShuffle:
		return fmt.Sprintf("shuffle_%d_%d_%d", id.ShuffleID, id.MapID, id.ReduceID)
	case KindBroadcast:
		if id.Field == "" {
			return fmt.Sprintf("broadcast_%d", id.BroadcastID)
		}
		return fmt.Sprintf("broadcast_%d_%s", id.BroadcastID, id.Field)
	case KindTaskResult:
		return fmt.Sprintf("taskresult_%s", id.UUID)
	case KindTempLocal:
		return fmt.Sprintf("temp_local_%s", id.UUID)
	case KindStream:
		return fmt.Sprintf("input-%s", id.UUID)
	default:
		return "unknown"
	}
}
