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

package topology

import (
	"math/rand"

	"github.com/uber/blockmanager/block"
)

// Tier buckets a set of candidate peers by their affinity to self: same
// host first, then same rack (if topology is known), then everything else.
// Candidates within a tier are returned in a random order so that repeated
// calls spread load evenly.
func Tier(self block.ManagerID, candidates []block.ManagerID, rng *rand.Rand) []block.ManagerID {
	var sameHost, sameRack, other []block.ManagerID
	for _, c := range candidates {
		switch {
		case self.SameHost(c):
			sameHost = append(sameHost, c)
		case self.SameRack(c):
			sameRack = append(sameRack, c)
		default:
			other = append(other, c)
		}
	}
	shuffle(sameHost, rng)
	shuffle(sameRack, rng)
	shuffle(other, rng)

	ordered := make([]block.ManagerID, 0, len(candidates))
	ordered = append(ordered, sameHost...)
	ordered = append(ordered, sameRack...)
	ordered = append(ordered, other...)
	return ordered
}

func shuffle(ids []block.ManagerID, rng *rand.Rand) {
	rng.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})
}
