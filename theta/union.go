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
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/streamsketch/unions/internal"
)

// Union computes the union of Theta sketches.
//
// The union keeps a running theta, the minimum over the thetas of all merged
// sketches and of its own table. Entries at or above a lowered theta are not
// removed right away: the union is marked dirty and filtered on the next read,
// which gives the same observable results as eager filtering.
type Union struct {
	table    *hashTable
	theta    uint64
	seedHash uint16
	dirty    bool
	logger   *zap.Logger
}

type unionOptions struct {
	logger *zap.Logger
	seed   uint64
	p      float32
	lgK    uint8
	rf     ResizeFactor
}

type UnionOptionFunc func(*unionOptions)

// WithUnionLgK sets log2(k), where k is a nominal number of entries in the union
func WithUnionLgK(lgK uint8) UnionOptionFunc {
	return func(opts *unionOptions) {
		opts.lgK = lgK
	}
}

// WithUnionResizeFactor sets a resize factor for the internal hash table (defaults to 8)
func WithUnionResizeFactor(rf ResizeFactor) UnionOptionFunc {
	return func(opts *unionOptions) {
		opts.rf = rf
	}
}

// WithUnionSketchP sets sampling probability (initial theta). The default is 1, so the union retains
// all entries until it reaches the limit, at which point it goes into the estimation mode
// and reduces the effective sampling probability (theta) as necessary
func WithUnionSketchP(p float32) UnionOptionFunc {
	return func(opts *unionOptions) {
		opts.p = p
	}
}

// WithUnionSeed sets the seed for the hash function. Should be used carefully if needed.
// Union produced with different seeds are not compatible
// and cannot be mixed in set operations.
func WithUnionSeed(seed uint64) UnionOptionFunc {
	return func(opts *unionOptions) {
		opts.seed = seed
	}
}

// WithUnionLogger sets the logger for debug events such as theta reductions.
// The union is silent by default.
func WithUnionLogger(logger *zap.Logger) UnionOptionFunc {
	return func(opts *unionOptions) {
		opts.logger = logger
	}
}

func defaultUnionOptions() *unionOptions {
	return &unionOptions{
		logger: zap.NewNop(),
		lgK:    DefaultLgK,
		rf:     DefaultResizeFactor,
		p:      1.0,
		seed:   DefaultSeed,
	}
}

// NewUnion creates a new union with the given options
func NewUnion(opts ...UnionOptionFunc) (*Union, error) {
	options := defaultUnionOptions()
	for _, opt := range opts {
		opt(options)
	}

	table, err := newConfiguredHashTable(options.lgK, options.rf, options.p, options.seed)
	if err != nil {
		return nil, err
	}
	return newUnionFromTable(table, table.theta, options.logger), nil
}

func newUnionFromTable(table *hashTable, theta uint64, logger *zap.Logger) *Union {
	if logger == nil {
		logger = zap.NewNop()
	}
	seedHash, _ := internal.ComputeSeedHash(int64(table.seed))
	return &Union{
		table:    table,
		theta:    theta,
		seedHash: seedHash,
		logger:   logger,
	}
}

// Update adds a sketch to the union.
// Nil and empty sketches are ignored. A sketch hashed with a different seed
// is rejected with ErrSeedHashMismatch and leaves the union unchanged.
func (u *Union) Update(sketch Sketch) error {
	if sketch == nil || sketch.IsEmpty() {
		return nil
	}

	sketchSeedHash, err := sketch.SeedHash()
	if err != nil {
		return err
	}
	if err := CheckSeedHashEqual(sketchSeedHash, u.seedHash); err != nil {
		return err
	}

	u.table.isEmpty = false
	u.lowerTheta(sketch.Theta64())

	for entry := range sketch.All() {
		if entry < u.theta && entry < u.table.theta {
			if _, err := u.table.insertIfAbsent(entry); err != nil {
				return err
			}
		} else if sketch.IsOrdered() {
			// the rest of an ordered sketch is above theta as well
			break
		}
	}

	u.lowerTheta(u.table.theta)
	return nil
}

// UpdateFromSlice merges a serialized compact sketch hashed with the union's seed
func (u *Union) UpdateFromSlice(data []byte) error {
	sketch, err := WrapCompactSketch(data, u.table.seed)
	if err != nil {
		return err
	}
	return u.Update(sketch)
}

func (u *Union) lowerTheta(theta uint64) {
	if theta >= u.theta {
		return
	}
	u.logger.Debug("lowering union theta",
		zap.Uint64("from", u.theta),
		zap.Uint64("to", theta),
		zap.Uint32("retained", u.table.numEntries),
	)
	u.theta = theta
	if u.table.numEntries > 0 {
		u.dirty = true
	}
}

// compact drops the entries left behind by theta reductions since the last read
func (u *Union) compact() {
	if !u.dirty {
		return
	}
	removed := u.table.filter(u.theta)
	u.dirty = false
	u.logger.Debug("compacted union table",
		zap.Int("removed", removed),
		zap.Uint32("retained", u.table.numEntries),
	)
}

// Result produces a copy of the current state of the Union as a compact sketch
func (u *Union) Result(ordered bool) (*CompactSketch, error) {
	u.compact()

	if u.table.isEmpty {
		return newCompactSketchFromEntries(true, true, u.seedHash, MaxTheta, nil), nil
	}

	theta := min(u.theta, u.table.theta)
	entries := u.table.retained(theta)

	nominalNum := 1 << u.table.lgNomSize
	if len(entries) > nominalNum {
		internal.SelectKth(entries, nominalNum)
		theta = entries[nominalNum]
		entries = entries[:nominalNum]
	}

	if ordered {
		slices.Sort(entries)
	}

	return newCompactSketchFromEntries(false, ordered, u.seedHash, theta, entries), nil
}

// OrderedResult produces a copy of the current state of the Union
// as an ordered compact sketch
func (u *Union) OrderedResult() (*CompactSketch, error) {
	return u.Result(true)
}

// ResultInto serializes the current result into dst and returns a read-only
// view over it. If dst is too small, ErrInsufficientBuffer is returned and
// dst is left untouched.
func (u *Union) ResultInto(ordered bool, dst []byte) (*WrappedCompactSketch, error) {
	result, err := u.Result(ordered)
	if err != nil {
		return nil, err
	}

	size := result.SerializedSizeBytes()
	if len(dst) < size {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrInsufficientBuffer, size, len(dst))
	}
	encodeCompactSketch(result, dst[:size])
	return WrapCompactSketch(dst[:size], u.table.seed)
}

// Reset resets the union to the initial empty state
func (u *Union) Reset() {
	u.table.reset()
	u.theta = u.table.theta
	u.dirty = false
}

// Theta64 returns the union theta as a positive integer between 0 and math.MaxInt64.
// It never increases between resets.
func (u *Union) Theta64() uint64 {
	return u.theta
}

// Theta returns the union theta as a fraction from 0 to 1
func (u *Union) Theta() float64 {
	return float64(u.theta) / float64(MaxTheta)
}

// LgK returns log2 of the nominal number of entries in the union
func (u *Union) LgK() uint8 {
	return u.table.lgNomSize
}

// IsEmpty returns true if no non-empty sketch has been merged since the last reset
func (u *Union) IsEmpty() bool {
	return u.table.isEmpty
}
