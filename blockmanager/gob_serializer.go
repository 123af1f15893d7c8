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
	"bytes"
	"encoding/gob"
)

func init() {
	// gob requires every concrete type ever carried in an interface{} slot
	// to be registered up front; these cover the primitives values are
	// expected to actually hold. A caller storing its own struct types
	// through GobSerializer must register them the same way before first use.
	gob.Register(int(0))
	gob.Register(int64(0))
	gob.Register(float64(0))
	gob.Register(string(""))
	gob.Register(bool(false))
	gob.Register([]byte(nil))
}

// GobSerializer is the default Serializer: it round-trips a []interface{}
// through encoding/gob. Callers that already have a wire format of their
// own (the shuffle writer's own row encoding, for instance) are expected to
// put and get bytes directly rather than going through this type.
type GobSerializer struct{}

// EstimateSize serializes values to get an exact size; there is no cheaper
// approximation available for an arbitrary interface{} slice.
func (GobSerializer) EstimateSize(values []interface{}) int64 {
	data, err := (GobSerializer{}).Serialize(values)
	if err != nil {
		return 0
	}
	return int64(len(data))
}

// Serialize gob-encodes values as a single []interface{}.
func (GobSerializer) Serialize(values []interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&values); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Deserialize decodes data back into a []interface{}.
func (GobSerializer) Deserialize(data []byte) ([]interface{}, error) {
	var values []interface{}
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&values); err != nil {
		return nil, err
	}
	return values, nil
}
