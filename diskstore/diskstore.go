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

// Package diskstore is the disk tier: it spills block bytes to a sharded
// local directory tree and reads them back, keyed by the block's own
// canonical string id rather than by table/shard/column the way aresdb's
// disk store is.
package diskstore

import "io"

// ReadSeekCloser is satisfied by an open block file.
type ReadSeekCloser interface {
	io.Reader
	io.Seeker
	io.Closer
}

// DiskStore is the disk tier's contract. Every method is keyed by a block's
// canonical string id (block.ID.String()).
type DiskStore interface {
	// WriteBlock writes data for blockKey, creating parent directories as
	// needed. It overwrites any existing file for blockKey.
	WriteBlock(blockKey string, data []byte) error
	// OpenBlockForRead opens blockKey for random-access read.
	OpenBlockForRead(blockKey string) (ReadSeekCloser, error)
	// ReadBlock reads the full contents of blockKey.
	ReadBlock(blockKey string) ([]byte, error)
	// Contains reports whether blockKey has a file on disk.
	Contains(blockKey string) bool
	// GetSize returns the size in bytes of blockKey's file.
	GetSize(blockKey string) (int64, error)
	// Remove deletes blockKey's file, if any. It is not an error to remove
	// a key that does not exist.
	Remove(blockKey string) error
}
