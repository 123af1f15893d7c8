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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/uber/blockmanager/block"
	"github.com/uber/blockmanager/common"
)

func newTestLocalDiskStore(t *testing.T) (LocalDiskStore, string) {
	root, err := ioutil.TempDir("", "blockmanager-diskstore-test")
	assert.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(root) })
	store := NewLocalDiskStore(root, common.DiskStoreConfig{SubDirsPerLocalDir: 8}).(LocalDiskStore)
	return store, root
}

func TestWriteReadRoundTrip(t *testing.T) {
	store, _ := newTestLocalDiskStore(t)
	key := "rdd_1_0"
	payload := []byte("some block bytes")

	assert.False(t, store.Contains(key))

	err := store.WriteBlock(key, payload)
	assert.NoError(t, err)
	assert.True(t, store.Contains(key))

	got, err := store.ReadBlock(key)
	assert.NoError(t, err)
	assert.Equal(t, payload, got)

	size, err := store.GetSize(key)
	assert.NoError(t, err)
	assert.EqualValues(t, len(payload), size)
}

func TestOpenBlockForReadSeeks(t *testing.T) {
	store, _ := newTestLocalDiskStore(t)
	key := "shuffle_1_2_3"
	payload := []byte("abcdefgh")
	assert.NoError(t, store.WriteBlock(key, payload))

	f, err := store.OpenBlockForRead(key)
	assert.NoError(t, err)
	defer f.Close()

	_, err = f.Seek(4, 0)
	assert.NoError(t, err)
	buf := make([]byte, 4)
	n, err := f.Read(buf)
	assert.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte("efgh"), buf)
}

func TestWriteBlockOverwrites(t *testing.T) {
	store, _ := newTestLocalDiskStore(t)
	key := "rdd_1_0"
	assert.NoError(t, store.WriteBlock(key, []byte("first payload here")))
	assert.NoError(t, store.WriteBlock(key, []byte("second")))

	got, err := store.ReadBlock(key)
	assert.NoError(t, err)
	assert.Equal(t, []byte("second"), got)
}

func TestRemove(t *testing.T) {
	store, _ := newTestLocalDiskStore(t)
	key := "rdd_1_0"
	assert.NoError(t, store.WriteBlock(key, []byte("x")))
	assert.True(t, store.Contains(key))

	assert.NoError(t, store.Remove(key))
	assert.False(t, store.Contains(key))

	// removing an absent key is not an error.
	assert.NoError(t, store.Remove(key))
}

func TestReadMissingBlockErrors(t *testing.T) {
	store, _ := newTestLocalDiskStore(t)
	_, err := store.ReadBlock("rdd_9_9")
	assert.Error(t, err)
}

func TestBlocksFanOutAcrossShardDirectories(t *testing.T) {
	store, root := newTestLocalDiskStore(t)
	for i := 0; i < 32; i++ {
		key := block.RDDBlockID(1, i).String()
		assert.NoError(t, store.WriteBlock(key, []byte{byte(i)}))
	}
	blocksRoot := root + "/blocks"
	entries, err := ioutil.ReadDir(blocksRoot)
	assert.NoError(t, err)
	assert.True(t, len(entries) > 1, "expected more than one shard directory to be populated")
}
