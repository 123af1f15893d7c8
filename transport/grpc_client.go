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
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"google.golang.org/grpc"

	"github.com/uber/blockmanager/block"
)

const (
	serviceName  = "blockmanager.transport.BlockTransfer"
	fetchMethod  = "/" + serviceName + "/FetchBlock"
	uploadMethod = "/" + serviceName + "/UploadBlock"
)

// GRPCClient is Client's production implementation. It dials each peer on
// demand and caches the connection for reuse across calls, the way the
// rest of this codebase's peer clients hold one long-lived *grpc.ClientConn
// per remote host rather than dialing per request.
type GRPCClient struct {
	dialTimeout time.Duration

	mu    sync.Mutex
	conns map[string]*grpc.ClientConn
}

// NewGRPCClient creates a client with the given per-dial timeout. A
// non-positive timeout is replaced with a 5 second default.
func NewGRPCClient(dialTimeout time.Duration) *GRPCClient {
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}
	return &GRPCClient{
		dialTimeout: dialTimeout,
		conns:       make(map[string]*grpc.ClientConn),
	}
}

func (c *GRPCClient) connFor(host string, port int) (*grpc.ClientConn, error) {
	addr := fmt.Sprintf("%s:%d", host, port)

	c.mu.Lock()
	defer c.mu.Unlock()

	if conn, ok := c.conns[addr]; ok {
		return conn, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.dialTimeout)
	defer cancel()
	conn, err := grpc.DialContext(ctx, addr, grpc.WithInsecure(), grpc.WithBlock(), grpc.WithCodec(gobCodec{}))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial block transfer peer %s", addr)
	}
	c.conns[addr] = conn
	return conn, nil
}

// FetchBlockSync implements Client. tempFiles is accepted to satisfy
// Client; this implementation ignores it and always returns the full
// payload in memory, even when remote.Fetcher passes a registrar for an
// oversize block.
func (c *GRPCClient) FetchBlockSync(host string, port int, executorID string, blockID block.ID, tempFiles TempFileRegistrar) ([]byte, error) {
	conn, err := c.connFor(host, port)
	if err != nil {
		return nil, err
	}
	req := &FetchRequest{BlockID: blockID, ExecutorID: executorID}
	resp := &FetchResponse{}
	if err := conn.Invoke(context.Background(), fetchMethod, req, resp); err != nil {
		return nil, errors.Wrapf(err, "fetch block %s from %s:%d failed", blockID, host, port)
	}
	return resp.Data, nil
}

// UploadBlockSync implements Client.
func (c *GRPCClient) UploadBlockSync(host string, port int, executorID string, blockID block.ID, data []byte, level block.Level, classTag string) error {
	conn, err := c.connFor(host, port)
	if err != nil {
		return err
	}
	req := &UploadRequest{BlockID: blockID, ExecutorID: executorID, Data: data, Level: level, ClassTag: classTag}
	resp := &UploadResponse{}
	if err := conn.Invoke(context.Background(), uploadMethod, req, resp); err != nil {
		return errors.Wrapf(err, "upload block %s to %s:%d failed", blockID, host, port)
	}
	return nil
}

// Close tears down every cached connection.
func (c *GRPCClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for addr, conn := range c.conns {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(c.conns, addr)
	}
	return firstErr
}
