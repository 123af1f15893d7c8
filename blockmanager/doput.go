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

import (
	"io"

	"github.com/uber/blockmanager/block"
	"github.com/uber/blockmanager/blockinfo"
	"github.com/uber/blockmanager/memstore"
)

// putOutcome distinguishes doPut's three outcomes: the block already
// existed and no work was done, placement succeeded, or placement failed
// and the block info entry was rolled back.
type putOutcome int

const (
	putAlreadyExists putOutcome = iota
	putSucceeded
	putFailed
)

// doPut is the skeleton every put path routes through: construct a fresh
// BlockInfo, take the write lock (or bail out if the block already exists),
// run place under that lock, and either commit the resulting status or roll
// the entry back.
func (m *Manager) doPut(taskID int64, id block.ID, level block.Level, classTag string, tellMaster, keepReadLock bool, place func(*blockinfo.Info) (block.Status, error)) (putOutcome, block.Status, error) {
	newInfo := blockinfo.NewInfo(level, classTag, tellMaster)
	info, isNew := m.info.LockNewBlockForWriting(taskID, id, newInfo)
	if !isNew {
		if !keepReadLock {
			m.info.Unlock(taskID, id)
		}
		return putAlreadyExists, block.Status{}, nil
	}

	status, err := place(info)
	if err != nil {
		m.info.RemoveBlock(id)
		return putFailed, block.Status{}, err
	}
	if !status.Level.IsValid() {
		m.info.RemoveBlock(id)
		return putFailed, block.Status{}, ErrPlacementFailed
	}

	info.Size = status.MemSize
	if status.DiskSize > info.Size {
		info.Size = status.DiskSize
	}

	if keepReadLock {
		m.info.DowngradeLock(taskID, id)
	} else {
		m.info.Unlock(taskID, id)
	}

	m.metrics.blocksPut.Inc(1)
	m.reportBlockStatus(id, info.TellMaster, status)
	return putSucceeded, status, nil
}

// PutBytes places already-serialized bytes for id per level, replicating in
// parallel with local placement since the bytes are already wire-ready. It
// returns true if the block ends up placed locally, whether or not this
// call did the placing (a concurrent put may have gotten there first).
func (m *Manager) PutBytes(taskID int64, id block.ID, data []byte, level block.Level, classTag string, tellMaster bool) (bool, error) {
	defer m.metrics.timePut()()
	level = level.Normalize()

	var replicationDone chan struct{}
	if level.Replication > 1 {
		replicationDone = make(chan struct{})
		go func() {
			defer close(replicationDone)
			m.replicator.Replicate(id, data, level, classTag, nil)
			m.metrics.blocksReplicated.Inc(1)
		}()
	}

	outcome, status, err := m.doPut(taskID, id, level, classTag, tellMaster, false, func(*blockinfo.Info) (block.Status, error) {
		return m.placeBytes(id, data, level, classTag)
	})

	if replicationDone != nil {
		<-replicationDone
	}

	switch outcome {
	case putAlreadyExists, putSucceeded:
		if outcome == putSucceeded {
			m.postStatusChanged(id, status)
		}
		return true, nil
	default:
		return false, err
	}
}

// placeBytes attempts memory placement first when requested (even if disk
// is also requested), falling back to disk on reservation failure. A level
// requesting neither tier, or a memory-only level whose reservation fails,
// yields an invalid status that doPut treats as failure.
func (m *Manager) placeBytes(id block.ID, data []byte, level block.Level, classTag string) (block.Status, error) {
	if level.UseMemory {
		ok := m.mem.PutBytes(id, int64(len(data)), classTag, func() []byte { return data })
		if ok {
			return m.getCurrentBlockStatus(id), nil
		}
		if !level.UseDisk {
			return block.Status{}, nil
		}
	}
	if level.UseDisk {
		if err := m.disk.WriteBlock(id.String(), data); err != nil {
			return block.Status{}, err
		}
		return m.getCurrentBlockStatus(id), nil
	}
	return block.Status{}, nil
}

// PutIterator places a stream of values for id per level. If the level
// requests deserialized storage, values are unrolled directly into memory;
// otherwise they are serialized as they are unrolled. On reservation
// failure with useDisk set, the remainder is drained and written to disk;
// without useDisk the caller gets back the partial iterator (or, for the
// serialized-bytes path, a value-view over the not-yet-serialized rest) so
// it can decide what to do, and the put itself is treated as unsuccessful.
// Replication, when requested, is kicked off only after local placement
// succeeds, since it needs placed and serialized bytes to send.
func (m *Manager) PutIterator(taskID int64, id block.ID, iter memstore.ValueIterator, level block.Level, classTag string, tellMaster bool) (bool, memstore.ValueIterator, error) {
	defer m.metrics.timePut()()
	level = level.Normalize()

	var leftover memstore.ValueIterator
	var placedBytes []byte

	outcome, status, err := m.doPut(taskID, id, level, classTag, tellMaster, false, func(*blockinfo.Info) (block.Status, error) {
		s, rest, bytesOut, placeErr := m.placeIterator(id, iter, level, classTag)
		leftover = rest
		placedBytes = bytesOut
		return s, placeErr
	})

	switch outcome {
	case putAlreadyExists:
		return true, nil, nil
	case putSucceeded:
		m.postStatusChanged(id, status)
		if level.Replication > 1 && placedBytes != nil {
			m.replicator.Replicate(id, placedBytes, level, classTag, nil)
			m.metrics.blocksReplicated.Inc(1)
		}
		return true, nil, nil
	default:
		return false, leftover, err
	}
}

// placeIterator implements doPutIterator's split on level.Deserialized. It
// returns the resulting status, a leftover iterator handed back to the
// caller on reservation failure with no disk fallback, and the serialized
// bytes actually stored (needed by PutIterator to replicate afterward),
// which is nil unless local placement succeeded.
func (m *Manager) placeIterator(id block.ID, iter memstore.ValueIterator, level block.Level, classTag string) (block.Status, memstore.ValueIterator, []byte, error) {
	if level.Deserialized {
		_, partial, ok := m.mem.PutIteratorAsValues(id, iter, classTag, m.serializer.EstimateSize)
		if ok {
			status := m.getCurrentBlockStatus(id)
			data, err := m.readBackLocalBytes(id)
			if err != nil {
				m.logger.Warnf("failed to read back block %s for replication: %v", id, err)
			}
			return status, nil, data, nil
		}
		if !level.UseDisk {
			return block.Status{}, partial, nil, nil
		}
		values, err := memstore.Drain(partial)
		if err != nil {
			return block.Status{}, nil, nil, err
		}
		data, err := m.serializer.Serialize(values)
		if err != nil {
			return block.Status{}, nil, nil, err
		}
		if err := m.disk.WriteBlock(id.String(), data); err != nil {
			return block.Status{}, nil, nil, err
		}
		return m.getCurrentBlockStatus(id), nil, data, nil
	}

	var lastSerialized []byte
	_, partial, ok := m.mem.PutIteratorAsBytes(id, iter, classTag, func(values []interface{}) []byte {
		data, err := m.serializer.Serialize(values)
		if err != nil {
			return nil
		}
		lastSerialized = data
		return data
	}, func(w io.Writer, v interface{}) error {
		data, err := m.serializer.Serialize([]interface{}{v})
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	})
	if ok {
		return m.getCurrentBlockStatus(id), nil, lastSerialized, nil
	}
	if !level.UseDisk {
		return block.Status{}, partial.ValuesIterator(), nil, nil
	}
	// The disk copy is one Serialize call over all values, the form the get
	// paths decode; FinishWritingToStream would write one record per value.
	values, err := memstore.Drain(partial.ValuesIterator())
	if err != nil {
		return block.Status{}, nil, nil, err
	}
	data, err := m.serializer.Serialize(values)
	if err != nil {
		return block.Status{}, nil, nil, err
	}
	if err := m.disk.WriteBlock(id.String(), data); err != nil {
		return block.Status{}, nil, nil, err
	}
	return m.getCurrentBlockStatus(id), nil, data, nil
}

// readBackLocalBytes reads a deserialized-and-placed block's bytes back
// from wherever it landed, so the replicator has something to send: disk
// bytes if it spilled, memory bytes if it was stored as bytes, or a fresh
// serialization of the in-memory values if that is the only form it was
// ever given (level.Deserialized puts placed via PutIteratorAsValues never
// have a byte form of their own until this reads one back).
func (m *Manager) readBackLocalBytes(id block.ID) ([]byte, error) {
	key := id.String()
	if m.disk.Contains(key) {
		return m.disk.ReadBlock(key)
	}
	if data, ok := m.mem.GetBytes(id); ok {
		return data, nil
	}
	if values, ok := m.mem.GetValues(id); ok {
		return m.serializer.Serialize(values)
	}
	return nil, nil
}
