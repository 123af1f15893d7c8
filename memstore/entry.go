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

package memstore

// Entry is whatever a block holds while resident in memory: either a slice
// of deserialized values, or a run of serialized bytes.
type Entry struct {
	Values []interface{}
	Bytes  []byte
	Size   int64
	classTag string
}

// IsBytes reports whether the entry holds serialized bytes rather than
// values.
func (e Entry) IsBytes() bool {
	return e.Values == nil
}

// ValueIterator streams values one at a time. Next returns (value, true,
// nil) while values remain, (nil, false, nil) once exhausted, or a non-nil
// error if the underlying source failed.
type ValueIterator interface {
	Next() (interface{}, bool, error)
	// Close releases any resources (e.g. disk-backed readers) the iterator
	// holds, including reserved unroll memory if the iterator is a
	// PartiallyUnrolledIterator.
	Close() error
}

// SliceIterator adapts a plain slice to ValueIterator.
type SliceIterator struct {
	values []interface{}
	pos    int
}

// NewSliceIterator wraps values as a ValueIterator.
func NewSliceIterator(values []interface{}) *SliceIterator {
	return &SliceIterator{values: values}
}

// Next implements ValueIterator.
func (s *SliceIterator) Next() (interface{}, bool, error) {
	if s.pos >= len(s.values) {
		return nil, false, nil
	}
	v := s.values[s.pos]
	s.pos++
	return v, true, nil
}

// Close implements ValueIterator.
func (s *SliceIterator) Close() error { return nil }

// Drain fully materializes an iterator into a slice.
func Drain(it ValueIterator) ([]interface{}, error) {
	var out []interface{}
	for {
		v, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, v)
	}
}
