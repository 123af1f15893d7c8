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

package cmd

import (
	"fmt"
	"net"

	"google.golang.org/grpc"

	"github.com/uber/blockmanager/common"
	"github.com/uber/blockmanager/transport"
)

// transportServer binds transport.GRPCServer to a real listening socket and
// runs it until Stop is called.
type transportServer struct {
	server *grpc.Server
	port   int
	logger common.Logger
	done   chan struct{}
}

func newTransportServer(backing transport.BlockServer, port int, logger common.Logger) *transportServer {
	return &transportServer{
		server: transport.NewGRPCTransportServer(transport.NewGRPCServer(backing)),
		port:   port,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Start binds the configured port and begins serving in the background.
func (s *transportServer) Start() {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		s.logger.Fatal("failed to bind peer RPC port", err)
	}
	go func() {
		defer close(s.done)
		if err := s.server.Serve(lis); err != nil {
			s.logger.With("err", err.Error()).Warn("peer RPC server stopped")
		}
	}()
}

// Wait blocks until the server stops serving.
func (s *transportServer) Wait() {
	<-s.done
}

// Stop gracefully shuts the server down.
func (s *transportServer) Stop() {
	s.server.GracefulStop()
}
