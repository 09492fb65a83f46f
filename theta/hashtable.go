/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package theta

import (
	"errors"
	"fmt"
	"math"

	"github.com/streamsketch/unions/internal"
)

const (
	resizeThreshold  = 0.5
	rebuildThreshold = 15.0 / 16.0
)

const (
	strideHashBits = 7
	strideMask     = (1 << strideHashBits) - 1
)

// hashTable is an open-addressing set of 63-bit hashes below theta.
// Zero marks an empty slot. Once the table reaches its nominal size it
// rebuilds by keeping the k smallest hashes and lowering theta to the
// (k+1)-th, which is how both the update sketch and the union bound memory.
type hashTable struct {
	entries    []uint64
	theta      uint64
	seed       uint64
	numEntries uint32
	p          float32
	lgCurSize  uint8
	lgNomSize  uint8
	rf         ResizeFactor
	isEmpty    bool
}

func newHashTable(lgCurSize, lgNomSize uint8, rf ResizeFactor, p float32, theta, seed uint64) *hashTable {
	t := &hashTable{
		isEmpty:   true,
		lgCurSize: lgCurSize,
		lgNomSize: lgNomSize,
		rf:        rf,
		p:         p,
		theta:     theta,
		seed:      seed,
	}
	if lgCurSize > 0 {
		t.entries = make([]uint64, 1<<lgCurSize)
	}
	return t
}

// screen rejects hashes that cannot be retained.
// Any screened value, accepted or not, makes the table non-empty.
func (t *hashTable) screen(hash uint64) (uint64, error) {
	t.isEmpty = false
	if hash >= t.theta {
		return 0, ErrHashExceedsTheta
	}
	if hash == 0 {
		return 0, ErrZeroHashValue
	}
	return hash, nil
}

func (t *hashTable) hashInt64(value int64) (uint64, error) {
	h1, _ := internal.HashInt64(value, t.seed)
	return t.screen(h1 >> 1)
}

func (t *hashTable) hashBytes(data []byte) (uint64, error) {
	h1, _ := internal.HashBytes(data, t.seed)
	return t.screen(h1 >> 1)
}

// lookup returns the slot holding key, or the empty slot where it belongs.
func (t *hashTable) lookup(key uint64) (int, bool, error) {
	return lookup(t.entries, t.lgCurSize, key)
}

func lookup(entries []uint64, lgSize uint8, key uint64) (int, bool, error) {
	mask := uint32(1<<lgSize) - 1
	stride := computeStride(key, lgSize)
	index := uint32(key) & mask
	start := index
	for {
		switch entries[index] {
		case 0:
			return int(index), false, nil
		case key:
			return int(index), true, nil
		}
		index = (index + stride) & mask
		if index == start {
			return 0, false, errTableFull
		}
	}
}

// computeStride is odd and uses hash bits above the ones that picked the index
func computeStride(key uint64, lgSize uint8) uint32 {
	return (2 * uint32((key>>lgSize)&strideMask)) + 1
}

// insertIfAbsent adds key unless it is already present and reports whether it was added.
func (t *hashTable) insertIfAbsent(key uint64) (bool, error) {
	index, found, err := t.lookup(key)
	if err != nil {
		return false, err
	}
	if found {
		return false, nil
	}
	t.entries[index] = key
	t.numEntries++
	if t.numEntries > computeCapacity(t.lgCurSize, t.lgNomSize) {
		if t.lgCurSize <= t.lgNomSize {
			t.resize()
		} else {
			t.rebuild()
		}
	}
	return true, nil
}

func computeCapacity(lgCurSize, lgNomSize uint8) uint32 {
	fraction := rebuildThreshold
	if lgCurSize <= lgNomSize {
		fraction = resizeThreshold
	}
	return uint32(math.Floor(fraction * float64(uint32(1)<<lgCurSize)))
}

func (t *hashTable) resize() {
	lgNewSize := min(t.lgCurSize+uint8(t.rf), t.lgNomSize+1)
	newEntries := make([]uint64, 1<<lgNewSize)
	for _, key := range t.entries {
		if key != 0 {
			// a larger table always has room
			index, _, _ := lookup(newEntries, lgNewSize, key)
			newEntries[index] = key
		}
	}
	t.entries = newEntries
	t.lgCurSize = lgNewSize
}

// rebuild keeps the nominal number of smallest hashes and moves theta down
// to the smallest hash that was dropped.
func (t *hashTable) rebuild() {
	nominalSize := 1 << t.lgNomSize
	kept := t.retained(math.MaxUint64)
	internal.SelectKth(kept, nominalSize)
	t.theta = kept[nominalSize]
	t.reinsert(kept[:nominalSize])
}

// filter drops every entry at or above theta and returns how many were dropped.
func (t *hashTable) filter(theta uint64) int {
	kept := t.retained(theta)
	removed := int(t.numEntries) - len(kept)
	if removed > 0 {
		t.reinsert(kept)
	}
	return removed
}

// retained collects the entries below limit into a fresh slice.
func (t *hashTable) retained(limit uint64) []uint64 {
	out := make([]uint64, 0, t.numEntries)
	for _, key := range t.entries {
		if key != 0 && key < limit {
			out = append(out, key)
		}
	}
	return out
}

func (t *hashTable) reinsert(keys []uint64) {
	clear(t.entries)
	for _, key := range keys {
		index, _, _ := t.lookup(key)
		t.entries[index] = key
	}
	t.numEntries = uint32(len(keys))
}

// trim reduces the table to nominal size if needed
func (t *hashTable) trim() {
	if t.numEntries > uint32(1<<t.lgNomSize) {
		t.rebuild()
	}
}

func (t *hashTable) reset() {
	startingLgSize := startingSubMultiple(t.lgNomSize+1, MinLgK, uint8(t.rf))
	if startingLgSize != t.lgCurSize {
		t.lgCurSize = startingLgSize
		t.entries = make([]uint64, 1<<startingLgSize)
	} else {
		clear(t.entries)
	}
	t.numEntries = 0
	t.theta = startingThetaFromP(t.p)
	t.isEmpty = true
}

// newConfiguredHashTable validates the parameters shared by update sketches
// and unions and creates a table of the starting size.
func newConfiguredHashTable(lgK uint8, rf ResizeFactor, p float32, seed uint64) (*hashTable, error) {
	if err := checkLgK(lgK); err != nil {
		return nil, err
	}
	if rf > ResizeX8 {
		return nil, fmt.Errorf("resize factor must be between %d and %d: %d", ResizeX1, ResizeX8, rf)
	}
	if p <= 0 || p > 1 {
		return nil, errors.New("sampling probability must be between 0 and 1")
	}
	if _, err := internal.ComputeSeedHash(int64(seed)); err != nil {
		return nil, err
	}

	lgCurSize := startingSubMultiple(lgK+1, MinLgK, uint8(rf))
	return newHashTable(lgCurSize, lgK, rf, p, startingThetaFromP(p), seed), nil
}
