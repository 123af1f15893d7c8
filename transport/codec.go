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

package transport

import (
	"bytes"
	"encoding/gob"
)

// gobCodec implements grpc.Codec (this module pins a pre-codec-v2 grpc
// release) over encoding/gob rather than protobuf: this repo has no protoc
// step, and every message this package sends (FetchRequest, FetchResponse,
// UploadRequest, UploadResponse) is a plain exported-field struct gob
// already knows how to round-trip. grpc still owns framing, multiplexing,
// deadlines and connection management; only the payload encoding differs
// from a generated .pb.go client.
type gobCodec struct{}

func (gobCodec) Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gobCodec) Unmarshal(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

func (gobCodec) String() string {
	return "gob"
}
