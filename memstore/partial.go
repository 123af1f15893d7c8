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

import "io"

// PartiallyUnrolledIterator is returned by PutIteratorAsValues on
// reservation failure. It yields the values that were already unrolled
// into memory, followed by whatever remains of the source iterator, and
// releases the unroll-memory reservation once exhausted or Closed.
type PartiallyUnrolledIterator struct {
	unrolled []interface{}
	pos      int
	rest     ValueIterator

	unrollReserved int64
	accountant     MemoryAccountant
	released       bool
}

func newPartiallyUnrolledIterator(unrolled []interface{}, rest ValueIterator, reserved int64, accountant MemoryAccountant) *PartiallyUnrolledIterator {
	return &PartiallyUnrolledIterator{
		unrolled:       unrolled,
		rest:           rest,
		unrollReserved: reserved,
		accountant:     accountant,
	}
}

// Next implements ValueIterator.
func (p *PartiallyUnrolledIterator) Next() (interface{}, bool, error) {
	if p.pos < len(p.unrolled) {
		v := p.unrolled[p.pos]
		p.pos++
		return v, true, nil
	}
	v, ok, err := p.rest.Next()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		p.releaseUnrollMemory()
	}
	return v, ok, nil
}

// Close implements ValueIterator.
func (p *PartiallyUnrolledIterator) Close() error {
	p.releaseUnrollMemory()
	return p.rest.Close()
}

func (p *PartiallyUnrolledIterator) releaseUnrollMemory() {
	if p.released {
		return
	}
	p.released = true
	if p.unrollReserved > 0 {
		p.accountant.Release(p.unrollReserved)
	}
}

// chainedIterator yields values first, then whatever remains of rest. It
// backs the partial iterator PutIteratorAsBytes hands back on reservation
// failure: the values already unrolled in memory, followed by the source
// iterator's unconsumed tail.
type chainedIterator struct {
	values []interface{}
	pos    int
	rest   ValueIterator
}

// Next implements ValueIterator.
func (c *chainedIterator) Next() (interface{}, bool, error) {
	if c.pos < len(c.values) {
		v := c.values[c.pos]
		c.pos++
		return v, true, nil
	}
	return c.rest.Next()
}

// Close implements ValueIterator.
func (c *chainedIterator) Close() error {
	return c.rest.Close()
}

// PartiallySerializedValues is returned by PutIteratorAsBytes on
// reservation failure. MemoryStore leaves serialized empty and puts every
// value it unrolled, followed by the source's unconsumed tail, in rest.
type PartiallySerializedValues struct {
	serialized []byte
	rest       ValueIterator
	serializer func(w io.Writer, v interface{}) error

	unrollReserved int64
	accountant     MemoryAccountant
	released       bool
}

// FinishWritingToStream writes serialized (if any) followed by the remaining
// values to out, each value serialized on the fly by its own serializer call.
func (p *PartiallySerializedValues) FinishWritingToStream(out io.Writer) error {
	defer p.releaseUnrollMemory()
	if _, err := out.Write(p.serialized); err != nil {
		return err
	}
	for {
		v, ok, err := p.rest.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := p.serializer(out, v); err != nil {
			return err
		}
	}
}

// ValuesIterator returns an iterator over the values represented by this
// partial serialization: the caller gets values back, not bytes, by relying
// on the fact that the source values are still available unconsumed.
func (p *PartiallySerializedValues) ValuesIterator() ValueIterator {
	defer p.releaseUnrollMemory()
	return p.rest
}

func (p *PartiallySerializedValues) releaseUnrollMemory() {
	if p.released {
		return
	}
	p.released = true
	if p.unrollReserved > 0 {
		p.accountant.Release(p.unrollReserved)
	}
}
