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

package utils

import "time"

// NowFunc is the shape of the function Now delegates to.
type NowFunc func() time.Time

var nowFunc NowFunc

func init() {
	ResetClockImplementation()
}

// ResetClockImplementation resets Now to delegate to time.Now.
func ResetClockImplementation() {
	nowFunc = time.Now
}

// SetClockImplementation makes Now delegate to f, so tests that depend on
// elapsed time (e.g. replication.Replicator's peer cache TTL) can control
// the clock deterministically instead of racing a real one.
func SetClockImplementation(f NowFunc) {
	nowFunc = f
}

// Now returns the current time as seen by nowFunc.
func Now() time.Time {
	return nowFunc()
}
