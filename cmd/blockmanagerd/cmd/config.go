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
	"os"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/uber/blockmanager/common"
	"github.com/uber/blockmanager/utils"
)

// AddFlags adds the daemon's command line flags to cmd.
func AddFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "config/blockmanager.yaml", "block manager config file")
	cmd.Flags().IntP("port", "p", 0, "peer RPC port")
	cmd.Flags().IntP("debug_port", "d", 0, "debug/pprof port")
	cmd.Flags().StringP("root_path", "r", "blockmanager-root", "root path of the local disk tier")
}

// ReadConfig populates a ServerConfig from defaults, a config file, the
// environment and command flags, in that order of increasing precedence,
// mirroring aresdb's own viper wiring.
func ReadConfig(defaultCfg map[string]interface{}, flags *pflag.FlagSet) (common.ServerConfig, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.BindPFlags(flags)

	utils.BindEnvironments(v)

	def := common.DefaultServerConfig()
	v.SetDefault("root_path", def.RootPath)
	hostname, err := os.Hostname()
	if err != nil {
		return common.ServerConfig{}, utils.StackError(err, "cannot get host name")
	}
	v.SetDefault("cluster", map[string]interface{}{
		"instance_name": hostname,
	})
	v.MergeConfigMap(defaultCfg)

	if cfgFile, err := flags.GetString("config"); err == nil && cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("blockmanager")
		v.AddConfigPath("./config")
	}

	if err := v.MergeInConfig(); err == nil {
		fmt.Println("Using config file: ", v.ConfigFileUsed())
	}

	cfg := def
	err = v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
	})
	return cfg, err
}
