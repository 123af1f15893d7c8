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

import "github.com/uber/blockmanager/block"

// FetchRequest asks a peer for a block's serialized bytes.
type FetchRequest struct {
	BlockID    block.ID
	ExecutorID string
}

// FetchResponse carries a fetched block's bytes.
type FetchResponse struct {
	Data []byte
}

// UploadRequest pushes a block's serialized bytes to a peer, e.g. for
// replication.
type UploadRequest struct {
	BlockID    block.ID
	ExecutorID string
	Data       []byte
	Level      block.Level
	ClassTag   string
}

// UploadResponse acknowledges a successful upload; it carries no data of
// its own but exists so the RPC has a well-formed response type.
type UploadResponse struct{}
