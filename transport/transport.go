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

// Package transport defines the client contract for the peer-to-peer block
// transfer service: the capability the block manager core, replicator, and
// remote fetcher call into. It also holds a gRPC client for it and a gRPC
// server (grpc_server.go) that serves a BlockServer's blocks.
package transport

import "github.com/uber/blockmanager/block"

// TempFileRegistrar is the narrow slice of remote.TempFileManager a Client
// needs: somewhere to register an oversize fetch's spill file for
// lifetime-bound cleanup. Accepting the interface here instead of the
// concrete type keeps this package from depending on remote.
type TempFileRegistrar interface {
	RegisterTempFileToClean(consumer interface{}, path string)
}

// Client is the block transfer capability used to fetch a remote block's
// bytes and to upload a local block's bytes to a peer.
type Client interface {
	// FetchBlockSync retrieves blockID's bytes from the peer at host:port.
	// If tempFiles is non-nil, the client may spill an oversize response to
	// a temp file it registers there instead of buffering the whole payload
	// in memory.
	FetchBlockSync(host string, port int, executorID string, blockID block.ID, tempFiles TempFileRegistrar) ([]byte, error)
	// UploadBlockSync sends data for blockID at the given level to the peer
	// at host:port.
	UploadBlockSync(host string, port int, executorID string, blockID block.ID, data []byte, level block.Level, classTag string) error
}
