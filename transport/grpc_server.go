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
	"errors"

	"google.golang.org/grpc"

	"github.com/uber/blockmanager/block"
)

// AdminTaskID is the task identity a GRPCServer uses when a peer's request
// drives a get or put on this node's manager: the request did not
// originate from any task running here, but the manager's lock API always
// wants a taskID.
const AdminTaskID int64 = -2048

// BlockServer is the narrow serving-side capability GRPCServer delegates
// to. *blockmanager.Manager satisfies it directly.
type BlockServer interface {
	GetLocalBytes(taskID int64, id block.ID) ([]byte, bool, error)
	PutBytes(taskID int64, id block.ID, data []byte, level block.Level, classTag string, tellMaster bool) (bool, error)
}

var errBlockNotFoundOnPeer = errors.New("block not found on this peer")

// blockTransferServer is the wire-side method set *GRPCServer implements;
// it is what ServiceDesc.HandlerType checks against when registering with
// a *grpc.Server, distinct from BlockServer (the local manager capability
// GRPCServer delegates to).
type blockTransferServer interface {
	fetchBlock(ctx context.Context, req *FetchRequest) (*FetchResponse, error)
	uploadBlock(ctx context.Context, req *UploadRequest) (*UploadResponse, error)
}

// GRPCServer implements the wire side of Client against a local
// BlockServer: FetchBlock serves a block's bytes to a requesting peer,
// UploadBlock accepts a block pushed by a peer (e.g. a replication write).
type GRPCServer struct {
	manager BlockServer
}

// NewGRPCServer wraps manager for RPC serving.
func NewGRPCServer(manager BlockServer) *GRPCServer {
	return &GRPCServer{manager: manager}
}

func (s *GRPCServer) fetchBlock(ctx context.Context, req *FetchRequest) (*FetchResponse, error) {
	data, ok, err := s.manager.GetLocalBytes(AdminTaskID, req.BlockID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errBlockNotFoundOnPeer
	}
	return &FetchResponse{Data: data}, nil
}

func (s *GRPCServer) uploadBlock(ctx context.Context, req *UploadRequest) (*UploadResponse, error) {
	if _, err := s.manager.PutBytes(AdminTaskID, req.BlockID, req.Data, req.Level, req.ClassTag, false); err != nil {
		return nil, err
	}
	return &UploadResponse{}, nil
}

// ServiceDesc is this package's hand-written analogue of a protoc-generated
// _ServiceDesc: it tells grpc-go how to route FetchBlock/UploadBlock calls
// to a *GRPCServer.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*blockTransferServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "FetchBlock",
			Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
				req := new(FetchRequest)
				if err := dec(req); err != nil {
					return nil, err
				}
				s := srv.(*GRPCServer)
				if interceptor == nil {
					return s.fetchBlock(ctx, req)
				}
				info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fetchMethod}
				return interceptor(ctx, req, info, func(ctx context.Context, req interface{}) (interface{}, error) {
					return s.fetchBlock(ctx, req.(*FetchRequest))
				})
			},
		},
		{
			MethodName: "UploadBlock",
			Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
				req := new(UploadRequest)
				if err := dec(req); err != nil {
					return nil, err
				}
				s := srv.(*GRPCServer)
				if interceptor == nil {
					return s.uploadBlock(ctx, req)
				}
				info := &grpc.UnaryServerInfo{Server: srv, FullMethod: uploadMethod}
				return interceptor(ctx, req, info, func(ctx context.Context, req interface{}) (interface{}, error) {
					return s.uploadBlock(ctx, req.(*UploadRequest))
				})
			},
		},
	},
	Metadata: "transport.proto",
}

// NewGRPCTransportServer creates a *grpc.Server wired to this package's gob
// codec and registers s against it.
func NewGRPCTransportServer(s *GRPCServer) *grpc.Server {
	server := grpc.NewServer(grpc.CustomCodec(gobCodec{}))
	server.RegisterService(&ServiceDesc, s)
	return server
}
