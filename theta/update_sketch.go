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
	"iter"
	"math"
	"strings"

	"github.com/streamsketch/unions/internal"
)

// QuickSelectUpdateSketch is an Update Theta sketch based on the QuickSelect algorithm.
// It builds a theta sketch from raw input data and is the usual input of a Union.
type QuickSelectUpdateSketch struct {
	table    *hashTable
	seedHash uint16
}

type updateSketchOptions struct {
	seed uint64
	p    float32
	lgK  uint8
	rf   ResizeFactor
}

type UpdateSketchOptionFunc func(*updateSketchOptions)

// WithUpdateSketchLgK sets log2(k), where k is a nominal number of entries in the sketch
func WithUpdateSketchLgK(lgK uint8) UpdateSketchOptionFunc {
	return func(opts *updateSketchOptions) {
		opts.lgK = lgK
	}
}

// WithUpdateSketchResizeFactor sets a resize factor for the internal hash table (defaults to 8)
func WithUpdateSketchResizeFactor(rf ResizeFactor) UpdateSketchOptionFunc {
	return func(opts *updateSketchOptions) {
		opts.rf = rf
	}
}

// WithUpdateSketchP sets sampling probability (initial theta). The default is 1, so the sketch retains
// all entries until it reaches the limit, at which point it goes into the estimation mode
// and reduces the effective sampling probability (theta) as necessary
func WithUpdateSketchP(p float32) UpdateSketchOptionFunc {
	return func(opts *updateSketchOptions) {
		opts.p = p
	}
}

// WithUpdateSketchSeed sets the seed for the hash function.
// Sketches produced with different seeds cannot be mixed in a union.
func WithUpdateSketchSeed(seed uint64) UpdateSketchOptionFunc {
	return func(opts *updateSketchOptions) {
		opts.seed = seed
	}
}

// NewQuickSelectUpdateSketch creates a new quickselect update sketch with the given options
func NewQuickSelectUpdateSketch(opts ...UpdateSketchOptionFunc) (*QuickSelectUpdateSketch, error) {
	options := &updateSketchOptions{
		lgK:  DefaultLgK,
		rf:   DefaultResizeFactor,
		p:    1.0,
		seed: DefaultSeed,
	}
	for _, opt := range opts {
		opt(options)
	}

	table, err := newConfiguredHashTable(options.lgK, options.rf, options.p, options.seed)
	if err != nil {
		return nil, err
	}
	seedHash, _ := internal.ComputeSeedHash(int64(options.seed))

	return &QuickSelectUpdateSketch{
		table:    table,
		seedHash: seedHash,
	}, nil
}

// IsEmpty returns true if this sketch represents an empty set
// (not the same as no retained entries!)
func (s *QuickSelectUpdateSketch) IsEmpty() bool {
	return s.table.isEmpty
}

// IsOrdered returns true if retained entries are ordered
func (s *QuickSelectUpdateSketch) IsOrdered() bool {
	return s.table.numEntries <= 1
}

// Theta64 returns theta as a positive integer between 0 and math.MaxInt64
func (s *QuickSelectUpdateSketch) Theta64() uint64 {
	if s.IsEmpty() {
		return MaxTheta
	}
	return s.table.theta
}

// NumRetained returns the number of retained entries in the sketch
func (s *QuickSelectUpdateSketch) NumRetained() uint32 {
	return s.table.numEntries
}

// SeedHash returns hash of the seed that was used to hash the input
func (s *QuickSelectUpdateSketch) SeedHash() (uint16, error) {
	return s.seedHash, nil
}

// Estimate returns estimate of the distinct count of the input stream
func (s *QuickSelectUpdateSketch) Estimate() float64 {
	return float64(s.NumRetained()) / s.Theta()
}

// IsEstimationMode returns true if the sketch is in estimation mode
// (as opposed to exact mode)
func (s *QuickSelectUpdateSketch) IsEstimationMode() bool {
	return s.Theta64() < MaxTheta && !s.IsEmpty()
}

// Theta returns theta as a fraction from 0 to 1 (effective sampling rate)
func (s *QuickSelectUpdateSketch) Theta() float64 {
	return float64(s.Theta64()) / float64(MaxTheta)
}

// String returns a human-readable summary of this sketch as a string
// If shouldPrintItems is true, include the list of items retained by the sketch
func (s *QuickSelectUpdateSketch) String(shouldPrintItems bool) string {
	var sb strings.Builder
	writeSummary(&sb, s)
	fmt.Fprintf(&sb, "   lg nominal size      : %d\n", s.LgK())
	fmt.Fprintf(&sb, "   lg current size      : %d\n", s.table.lgCurSize)
	fmt.Fprintf(&sb, "   resize factor        : %d\n", 1<<s.ResizeFactor())
	sb.WriteString("### End sketch summary\n")
	if shouldPrintItems {
		writeEntries(&sb, s)
	}
	return sb.String()
}

// LgK returns configured nominal number of entries in the sketch
func (s *QuickSelectUpdateSketch) LgK() uint8 {
	return s.table.lgNomSize
}

// ResizeFactor returns a configured resize factor of the sketch
func (s *QuickSelectUpdateSketch) ResizeFactor() ResizeFactor {
	return s.table.rf
}

// UpdateUint64 updates this sketch with a given unsigned 64-bit integer
func (s *QuickSelectUpdateSketch) UpdateUint64(value uint64) error {
	return s.UpdateInt64(int64(value))
}

// UpdateInt64 updates this sketch with a given signed 64-bit integer.
// Returns ErrDuplicateKey if the value is already retained.
func (s *QuickSelectUpdateSketch) UpdateInt64(value int64) error {
	return s.insert(s.table.hashInt64(value))
}

// UpdateFloat64 updates this sketch with a given double-precision floating point value
func (s *QuickSelectUpdateSketch) UpdateFloat64(value float64) error {
	return s.UpdateInt64(canonicalDouble(value))
}

// canonicalDouble canonicalizes double values for Java compatibility
func canonicalDouble(value float64) int64 {
	if value == 0.0 {
		value = 0.0 // canonicalize -0.0 to 0.0
	} else if math.IsNaN(value) {
		return 0x7ff8000000000000 // canonicalize NaN using value from Java's Double.doubleToLongBits()
	}
	return int64(math.Float64bits(value))
}

// UpdateString updates this sketch with the UTF-8 bytes of a given string
func (s *QuickSelectUpdateSketch) UpdateString(value string) error {
	if value == "" {
		return ErrUpdateEmptyString
	}
	return s.UpdateBytes([]byte(value))
}

// UpdateBytes updates this sketch with given data
func (s *QuickSelectUpdateSketch) UpdateBytes(data []byte) error {
	return s.insert(s.table.hashBytes(data))
}

func (s *QuickSelectUpdateSketch) insert(hash uint64, err error) error {
	if err != nil {
		return err
	}
	inserted, err := s.table.insertIfAbsent(hash)
	if err != nil {
		return err
	}
	if !inserted {
		return ErrDuplicateKey
	}
	return nil
}

// Trim removes retained entries in excess of the nominal size k (if any)
func (s *QuickSelectUpdateSketch) Trim() {
	s.table.trim()
}

// Reset resets the sketch to the initial empty state
func (s *QuickSelectUpdateSketch) Reset() {
	s.table.reset()
}

// All returns an iterator over hash values in this sketch
func (s *QuickSelectUpdateSketch) All() iter.Seq[uint64] {
	return func(yield func(uint64) bool) {
		for _, entry := range s.table.entries {
			if entry != 0 {
				if !yield(entry) {
					return
				}
			}
		}
	}
}

// Compact returns an immutable copy of this sketch
func (s *QuickSelectUpdateSketch) Compact(ordered bool) *CompactSketch {
	return NewCompactSketch(s, ordered)
}

// IsIgnorable reports whether err only means the update had no effect:
// a duplicate, or a hash screened out by theta.
func IsIgnorable(err error) bool {
	return errors.Is(err, ErrDuplicateKey) || errors.Is(err, ErrHashExceedsTheta)
}
