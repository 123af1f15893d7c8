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

// Serializer is the external serialization capability the block manager
// calls into whenever it must turn values into bytes or back, e.g. to spill
// a partially-unrolled iterator to disk or to serve deserialized-level
// bytes from disk-backed storage. The wire format itself is out of scope;
// this interface names only what the placement and get paths need.
type Serializer interface {
	// EstimateSize approximates the serialized size of values without
	// necessarily serializing them, used to size unroll-memory growth.
	EstimateSize(values []interface{}) int64
	// Serialize turns values into their serialized byte form.
	Serialize(values []interface{}) ([]byte, error)
	// Deserialize turns previously-serialized bytes back into values.
	Deserialize(data []byte) ([]interface{}, error)
}
