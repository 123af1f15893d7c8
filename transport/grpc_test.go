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
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"github.com/uber/blockmanager/block"
)

type fakeBlockServer struct {
	stored map[block.ID][]byte
}

func (f *fakeBlockServer) GetLocalBytes(taskID int64, id block.ID) ([]byte, bool, error) {
	data, ok := f.stored[id]
	return data, ok, nil
}

func (f *fakeBlockServer) PutBytes(taskID int64, id block.ID, data []byte, level block.Level, classTag string, tellMaster bool) (bool, error) {
	f.stored[id] = data
	return true, nil
}

// dialBufconn starts a GRPCServer wrapping backing over an in-memory
// bufconn listener and returns a *grpc.ClientConn connected to it, so the
// wire round trip is exercised without binding a real port.
func dialBufconn(t *testing.T, backing *fakeBlockServer) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	server := NewGRPCTransportServer(NewGRPCServer(backing))
	go func() {
		_ = server.Serve(lis)
	}()
	t.Cleanup(server.Stop)

	dialer := func(addr string, timeout time.Duration) (net.Conn, error) { return lis.Dial() }
	conn, err := grpc.DialContext(context.Background(), "bufconn",
		grpc.WithDialer(dialer), grpc.WithInsecure(), grpc.WithBlock(), grpc.WithCodec(gobCodec{}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestGRPCRoundTripsFetchAndUpload(t *testing.T) {
	backing := &fakeBlockServer{stored: map[block.ID][]byte{}}
	id := block.RDDBlockID(1, 0)
	backing.stored[id] = []byte("hello")

	conn := dialBufconn(t, backing)

	fetchResp := &FetchResponse{}
	err := conn.Invoke(context.Background(), fetchMethod, &FetchRequest{BlockID: id}, fetchResp)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), fetchResp.Data)

	uploadID := block.RDDBlockID(2, 0)
	uploadResp := &UploadResponse{}
	err = conn.Invoke(context.Background(), uploadMethod, &UploadRequest{BlockID: uploadID, Data: []byte("world")}, uploadResp)
	require.NoError(t, err)
	assert.Equal(t, []byte("world"), backing.stored[uploadID])
}

func TestGRPCFetchMissingBlockReturnsError(t *testing.T) {
	backing := &fakeBlockServer{stored: map[block.ID][]byte{}}
	conn := dialBufconn(t, backing)

	fetchResp := &FetchResponse{}
	err := conn.Invoke(context.Background(), fetchMethod, &FetchRequest{BlockID: block.RDDBlockID(9, 9)}, fetchResp)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "not found"))
}
