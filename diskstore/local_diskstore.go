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

package diskstore

import (
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/uber/blockmanager/common"
	"github.com/uber/blockmanager/utils"
)

// LocalDiskStore is the DiskStore implementation backed by the local
// filesystem.
type LocalDiskStore struct {
	rootPath        string
	diskStoreConfig common.DiskStoreConfig
}

// NewLocalDiskStore inits a LocalDiskStore rooted at rootPath.
func NewLocalDiskStore(rootPath string, cfg common.DiskStoreConfig) DiskStore {
	if cfg.SubDirsPerLocalDir <= 0 {
		cfg.SubDirsPerLocalDir = 64
	}
	return LocalDiskStore{
		rootPath:        rootPath,
		diskStoreConfig: cfg,
	}
}

func (l LocalDiskStore) path(blockKey string) string {
	return getPathForBlock(l.rootPath, blockKey, l.diskStoreConfig.SubDirsPerLocalDir)
}

// WriteBlock implements DiskStore.
func (l LocalDiskStore) WriteBlock(blockKey string, data []byte) error {
	path := l.path(blockKey)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return utils.StackError(err, "Failed to make dirs for path: %s", path)
	}
	mode := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if l.diskStoreConfig.WriteSync {
		mode |= os.O_SYNC
	}
	f, err := os.OpenFile(path, mode, 0644)
	if err != nil {
		return utils.StackError(err, "Failed to open block file: %s for write", path)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return utils.StackError(err, "Failed to write block file: %s", path)
	}
	return nil
}

// OpenBlockForRead implements DiskStore.
func (l LocalDiskStore) OpenBlockForRead(blockKey string) (ReadSeekCloser, error) {
	path := l.path(blockKey)
	f, err := os.OpenFile(path, os.O_RDONLY, 0644)
	if err != nil {
		return nil, utils.StackError(err, "Failed to open block file: %s for read", path)
	}
	return f, nil
}

// ReadBlock implements DiskStore.
func (l LocalDiskStore) ReadBlock(blockKey string) ([]byte, error) {
	path := l.path(blockKey)
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, utils.StackError(err, "Failed to read block file: %s", path)
	}
	return data, nil
}

// Contains implements DiskStore.
func (l LocalDiskStore) Contains(blockKey string) bool {
	_, err := os.Stat(l.path(blockKey))
	return err == nil
}

// GetSize implements DiskStore.
func (l LocalDiskStore) GetSize(blockKey string) (int64, error) {
	path := l.path(blockKey)
	fi, err := os.Stat(path)
	if err != nil {
		return 0, utils.StackError(err, "Failed to stat block file: %s", path)
	}
	return fi.Size(), nil
}

// Remove implements DiskStore.
func (l LocalDiskStore) Remove(blockKey string) error {
	err := os.Remove(l.path(blockKey))
	if err != nil && !os.IsNotExist(err) {
		return utils.StackError(err, "Failed to delete block file: %s", l.path(blockKey))
	}
	return nil
}
