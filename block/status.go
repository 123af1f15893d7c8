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

// Status is a point-in-time snapshot of where a block lives and how big it
// is in each tier. It is always synthesized live from the stores; it is
// never itself the source of truth.
type Status struct {
	Level    Level
	MemSize  int64
	DiskSize int64
}

// Empty is the status reported for a block that is not present anywhere.
var Empty = Status{}

// IsEmpty reports whether the status describes an absent block.
func (s Status) IsEmpty() bool {
	return s == Empty
}
