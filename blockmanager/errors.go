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

package blockmanager

import "errors"

// ErrBlockNotFound is returned when a block is absent locally and no remote
// location yielded bytes.
var ErrBlockNotFound = errors.New("block not found")

// ErrReadCorrupted names the case of a block that was present but could not
// be materialized (I/O failure, deserialization failure). The local get
// paths do not return this value: they return the underlying error wrapped
// in a utils.StackedError.
var ErrReadCorrupted = errors.New("block could not be read back")

// ErrPlacementFailed is returned when neither the requested memory nor disk
// placement succeeded (e.g. reservation was declined and the level does not
// permit falling back to disk).
var ErrPlacementFailed = errors.New("block placement failed")

// ErrNotWriteLocked describes the AssertBlockIsLockedForWriting invariant
// failure. No function in this package returns it; the assertion panics.
var ErrNotWriteLocked = errors.New("block is not held for writing")

// ErrReservationFailed is not a hard error: it signals that the memory
// accountant declined a reservation and the caller (a placement path
// choosing between spill-to-disk and giving up) must decide what happens
// next. No function in this package returns it: the placement helpers learn
// of a declined reservation from the memory store's false result.
var ErrReservationFailed = errors.New("memory reservation declined")
