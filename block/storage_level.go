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

package block

import "fmt"

// Level describes where and how a block is placed: which tiers hold it,
// whether it is kept as deserialized values or serialized bytes, and how
// many total copies should exist across the cluster.
type Level struct {
	UseDisk      bool
	UseMemory    bool
	UseOffHeap   bool
	Deserialized bool
	// Replication is the total desired copy count, always >= 1.
	Replication uint8
}

// Predefined levels, mirroring the closed set of levels callers are
// expected to request.
var (
	NoneLevel               = Level{}
	MemoryOnly              = Level{UseMemory: true, Deserialized: true, Replication: 1}
	MemoryOnly2             = Level{UseMemory: true, Deserialized: true, Replication: 2}
	MemoryOnlySer           = Level{UseMemory: true, Replication: 1}
	MemoryOnlySer2          = Level{UseMemory: true, Replication: 2}
	DiskOnly                = Level{UseDisk: true, Replication: 1}
	DiskOnly2               = Level{UseDisk: true, Replication: 2}
	MemoryAndDisk           = Level{UseDisk: true, UseMemory: true, Deserialized: true, Replication: 1}
	MemoryAndDisk2          = Level{UseDisk: true, UseMemory: true, Deserialized: true, Replication: 2}
	MemoryAndDiskSer        = Level{UseDisk: true, UseMemory: true, Replication: 1}
	MemoryAndDiskSer2       = Level{UseDisk: true, UseMemory: true, Replication: 2}
	OffHeap                 = Level{UseMemory: true, UseOffHeap: true, Replication: 1}
)

// IsValid reports whether the level asks for storage anywhere at all.
func (l Level) IsValid() bool {
	return l.UseMemory || l.UseDisk
}

// Normalize enforces the off-heap invariant (off-heap implies serialized,
// in-memory storage) and returns the corrected level. Callers that build a
// Level by hand should route it through Normalize before using it.
func (l Level) Normalize() Level {
	if l.UseOffHeap {
		l.Deserialized = false
		l.UseMemory = true
	}
	if l.Replication == 0 {
		l.Replication = 1
	}
	return l
}

func (l Level) String() string {
	return fmt.Sprintf("StorageLevel(disk=%t, memory=%t, offHeap=%t, deserialized=%t, replication=%d)",
		l.UseDisk, l.UseMemory, l.UseOffHeap, l.Deserialized, l.Replication)
}

// Equal compares two levels field by field.
func (l Level) Equal(o Level) bool {
	return l == o
}
