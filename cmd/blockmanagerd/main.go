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

package main

import (
	"io/ioutil"

	"gopkg.in/yaml.v2"

	"github.com/uber/blockmanager/cmd/blockmanagerd/cmd"
)

const defaultConfigPath = "config/blockmanager.yaml"

// readDefaultConfig loads the bundled default config file, if present, into
// a plain map so it can be merged beneath env and flag overrides by
// cmd.ReadConfig. A missing or unparseable file is not fatal here: it just
// means ReadConfig falls back to common.DefaultServerConfig entirely.
func readDefaultConfig() map[string]interface{} {
	content, err := ioutil.ReadFile(defaultConfigPath)
	if err != nil {
		return nil
	}
	var defaults map[string]interface{}
	if err := yaml.Unmarshal(content, &defaults); err != nil {
		return nil
	}
	return defaults
}

func main() {
	cmd.Execute(func(o *cmd.Options) {
		o.DefaultCfg = readDefaultConfig()
	})
}
