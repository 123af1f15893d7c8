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
	"net/http"
	"net/http/pprof"
	"sync"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"github.com/uber/blockmanager/block"
	"github.com/uber/blockmanager/blockinfo"
	"github.com/uber/blockmanager/blockmanager"
	"github.com/uber/blockmanager/common"
	"github.com/uber/blockmanager/diskstore"
	"github.com/uber/blockmanager/events"
	"github.com/uber/blockmanager/master"
	"github.com/uber/blockmanager/memstore"
	"github.com/uber/blockmanager/replication"
	"github.com/uber/blockmanager/transport"
)

// Options configures Execute, mirroring aresdb's own Options/Option shape
// so the daemon logger and metrics backend can be swapped by a caller
// embedding this package instead of hardcoding zap/tally construction here.
type Options struct {
	DefaultCfg map[string]interface{}
	Logger     common.Logger
	Metrics    common.Metrics
}

// Option sets a field on Options.
type Option func(*Options)

var (
	instance *BlockManagerD
	once     sync.Once
)

// BlockManagerD wraps a running node's manager and debug HTTP server for
// start/shutdown lifecycle management, one per process, following the
// singleton-with-StartedChan shape aresdb's own daemon wrapper uses.
type BlockManagerD struct {
	cfg         common.ServerConfig
	options     *Options
	manager     *blockmanager.Manager
	rpcServer   *transportServer
	debugServer *http.Server
	StartedChan chan struct{}
}

// New creates the process-wide singleton BlockManagerD.
func New(cfg common.ServerConfig, options *Options) *BlockManagerD {
	once.Do(func() {
		instance = &BlockManagerD{
			cfg:         cfg,
			options:     options,
			StartedChan: make(chan struct{}, 1),
		}
	})
	return instance
}

// Execute parses flags, reads config, and starts the daemon in the
// foreground. It never returns while the RPC server is serving.
func Execute(setters ...Option) {
	options := &Options{
		Logger:  common.NewLoggerFactory().GetDefaultLogger(),
		Metrics: common.NewNoopMetrics(),
	}
	for _, setter := range setters {
		setter(options)
	}

	cmd := &cobra.Command{
		Use:     "blockmanagerd",
		Short:   "BlockManager",
		Long:    `blockmanagerd runs a single node's per-node block storage manager.`,
		Example: `./blockmanagerd --config config/blockmanager.yaml --port 7346 --debug_port 7347`,
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := ReadConfig(options.DefaultCfg, cmd.Flags())
			if err != nil {
				options.Logger.With("err", err.Error()).Fatal("failed to read config")
			}
			New(cfg, options).Start()
		},
	}
	AddFlags(cmd)
	cmd.Execute()
}

// Start builds every collaborator named in Deps and blocks serving RPCs
// until the process is signaled to stop.
func (d *BlockManagerD) Start() {
	logger := d.options.Logger
	scope, closer, err := d.options.Metrics.NewRootScope()
	if err != nil {
		logger.Fatal("failed to create root metrics scope", err)
	}
	defer closer.Close()

	self := block.ManagerID{
		ExecutorID: d.cfg.Cluster.InstanceName,
		Host:       d.cfg.Cluster.InstanceName,
		Port:       d.cfg.Port,
	}

	disk := diskstore.NewLocalDiskStore(d.cfg.RootPath, d.cfg.DiskStore)
	info := blockinfo.NewManager(logger)
	rpcClient := transport.NewGRPCClient(0)
	masterClient := master.NewStandalone()

	deps := blockmanager.Deps{
		Self:       self,
		Info:       info,
		Disk:       disk,
		Master:     masterClient,
		Transport:  rpcClient,
		Serializer: blockmanager.GobSerializer{},
		Policy:     replication.RandomPolicy{},
		Logger:     logger,
		Scope:      scope,
	}

	if d.cfg.EventQueue.Capacity > 0 {
		queue := events.NewAsyncEventQueue("blockmanager-events", d.cfg.EventQueue.Capacity, logger)
		queue.Start()
		deps.Events = queue
	}

	memGauge := scope.SubScope("memory").Gauge("used_bytes")
	accountant := memstore.NewBudgetAccountant(d.cfg.TotalMemorySize, memGauge)

	cfg := blockmanager.DefaultConfig()
	cfg.ShuffleServiceEnabled = d.cfg.ShuffleService.Enabled
	cfg.ShuffleServicePort = d.cfg.ShuffleService.Port
	cfg.FailuresBeforeLocationRefresh = d.cfg.RemoteFetch.MaxFailuresBeforeLocationRefresh
	cfg.CachedPeersTTL = d.cfg.Replication.CachedPeersTTL
	cfg.MaxReplicationFailures = d.cfg.Replication.MaxReplicationFailures
	cfg.MaxRemoteBlockSizeFetchToMem = d.cfg.RemoteFetch.MaxRemoteBlockSizeFetchToMem
	cfg.EventQueueCapacity = d.cfg.EventQueue.Capacity
	cfg.ShuffleRegistrationMaxAttempts = d.cfg.ShuffleRegistration.MaxAttempts
	cfg.ShuffleRegistrationBackoff = d.cfg.ShuffleRegistration.Backoff

	// mem needs the manager as its EvictionHandler, so build the manager
	// first with deps.Mem left nil, then close the loop with SetMemoryStore.
	m := blockmanager.New(deps, cfg)
	mem := memstore.NewMemoryStore(accountant, m, memstore.WithLogger(logger))
	m.SetMemoryStore(mem)

	d.manager = m
	d.rpcServer = newTransportServer(m, d.cfg.Port, logger)
	d.rpcServer.Start()

	if d.cfg.DebugPort > 0 {
		d.startDebugServer(logger)
	}

	logger.With("self", self.String(), "port", d.cfg.Port).Info("blockmanagerd started")
	d.StartedChan <- struct{}{}
	d.rpcServer.Wait()
}

// Shutdown stops the RPC and debug servers and releases the manager's
// resources.
func (d *BlockManagerD) Shutdown() {
	if d.rpcServer != nil {
		d.rpcServer.Stop()
	}
	if d.debugServer != nil {
		d.debugServer.Close()
	}
	if d.manager != nil {
		d.manager.Close()
	}
}

func (d *BlockManagerD) startDebugServer(logger common.Logger) {
	router := mux.NewRouter()
	router.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	router.HandleFunc("/debug/pprof/profile", pprof.Profile)
	router.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	router.HandleFunc("/debug/pprof/trace", pprof.Trace)
	router.PathPrefix("/debug/pprof/").HandlerFunc(pprof.Index)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	d.debugServer = &http.Server{Addr: fmt.Sprintf(":%d", d.cfg.DebugPort), Handler: router}
	go func() {
		logger.With("debug_port", d.cfg.DebugPort).Info("starting debug HTTP server")
		if err := d.debugServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.With("err", err.Error()).Error("debug HTTP server stopped")
		}
	}()
}
