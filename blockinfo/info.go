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

// Package blockinfo owns the BlockId -> BlockInfo map and the per-block
// multi-reader/single-writer lock protocol that guards it. All block
// metadata mutation in the system routes through the Manager here.
package blockinfo

import "github.com/uber/blockmanager/block"

// NonTaskWriter is the writer identity used for administrative writes that
// do not run inside a scheduled task (e.g. driver-side broadcast, or the
// eviction callback).
const NonTaskWriter int64 = -1024

// noWriter marks a block with no current writer.
const noWriter int64 = -1

// Info is the per-block metadata record. writerTask/readerCount together
// implement the reader/writer lock state machine: exactly one of
// (readerCount > 0, writerTask == noWriter) or (writerTask != noWriter,
// readerCount == 0) or neither (unlocked, untouched) holds at any instant.
type Info struct {
	Level      block.Level
	ClassTag   string
	TellMaster bool
	Size       int64

	readerCount int
	writerTask  int64
}

// NewInfo constructs a fresh, unlocked Info record.
func NewInfo(level block.Level, classTag string, tellMaster bool) *Info {
	return &Info{
		Level:      level,
		ClassTag:   classTag,
		TellMaster: tellMaster,
		writerTask: noWriter,
	}
}

// ReaderCount returns the current reader count.
func (i *Info) ReaderCount() int {
	return i.readerCount
}

// WriterTask returns the task id currently holding the write lock, or
// noWriter if none does.
func (i *Info) WriterTask() int64 {
	return i.writerTask
}
