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
	"bytes"
	"iter"
	"slices"
	"strings"
)

// SerialVersion is the serial version of the compact sketch layout
const SerialVersion = 3

// Offsets in bytes
const (
	compactSketchPreLongsByte      = 0
	compactSketchSerialVersionByte = 1
	compactSketchFamilyByte        = 2
	compactSketchFlagsByte         = 5
	compactSketchSeedHashByte      = 6
	compactSketchNumEntriesByte    = 8
	compactSketchSingleEntryByte   = 8
	compactSketchThetaByte         = 16
	compactSketchEntriesExactByte  = 16
	compactSketchEntriesEstByte    = 24
)

// Serialization flags
const (
	serializationFlagIsBigEndian uint8 = iota
	serializationFlagIsReadOnly
	serializationFlagIsEmpty
	serializationFlagIsCompact
	serializationFlagIsOrdered
)

// CompactSketch is an immutable form of the Theta sketch, the form that can be serialized and deserialized
type CompactSketch struct {
	entries   []uint64
	theta     uint64
	seedHash  uint16
	isEmpty   bool
	isOrdered bool
}

// NewCompactSketch creates a compact sketch from another sketch
func NewCompactSketch(source Sketch, ordered bool) *CompactSketch {
	seedHash, _ := source.SeedHash()

	var entries []uint64
	if !source.IsEmpty() {
		entries = slices.Collect(source.All())
		if ordered && !source.IsOrdered() {
			slices.Sort(entries)
		}
	}

	return newCompactSketchFromEntries(
		source.IsEmpty(), source.IsOrdered() || ordered, seedHash, source.Theta64(), entries,
	)
}

func newCompactSketchFromEntries(isEmpty, isOrdered bool, seedHash uint16, theta uint64, entries []uint64) *CompactSketch {
	if len(entries) <= 1 {
		isOrdered = true
	}
	// an empty set has nothing to sample
	if isEmpty {
		theta = MaxTheta
	}

	return &CompactSketch{
		isEmpty:   isEmpty,
		isOrdered: isOrdered,
		seedHash:  seedHash,
		theta:     theta,
		entries:   entries,
	}
}

// IsEmpty returns true if this sketch represents an empty set
// (not the same as no retained entries!)
func (s *CompactSketch) IsEmpty() bool {
	return s.isEmpty
}

// IsOrdered returns true if retained entries are ordered
func (s *CompactSketch) IsOrdered() bool {
	return s.isOrdered
}

// Theta64 returns theta as a positive integer between 0 and math.MaxInt64
func (s *CompactSketch) Theta64() uint64 {
	return s.theta
}

// NumRetained returns the number of retained entries in the sketch
func (s *CompactSketch) NumRetained() uint32 {
	return uint32(len(s.entries))
}

// SeedHash returns hash of the seed that was used to hash the input
func (s *CompactSketch) SeedHash() (uint16, error) {
	return s.seedHash, nil
}

// Estimate returns estimate of the distinct count of the input stream
func (s *CompactSketch) Estimate() float64 {
	return float64(s.NumRetained()) / s.Theta()
}

// IsEstimationMode returns true if the sketch is in estimation mode
// (as opposed to exact mode)
func (s *CompactSketch) IsEstimationMode() bool {
	return s.Theta64() < MaxTheta && !s.isEmpty
}

// Theta returns theta as a fraction from 0 to 1 (effective sampling rate)
func (s *CompactSketch) Theta() float64 {
	return float64(s.Theta64()) / float64(MaxTheta)
}

// String returns a human-readable summary of this sketch as a string
// If shouldPrintItems is true, include the list of items retained by the sketch
func (s *CompactSketch) String(shouldPrintItems bool) string {
	var sb strings.Builder
	writeSummary(&sb, s)
	sb.WriteString("### End sketch summary\n")
	if shouldPrintItems {
		writeEntries(&sb, s)
	}
	return sb.String()
}

// All returns hash values in the sketch.
func (s *CompactSketch) All() iter.Seq[uint64] {
	return func(yield func(uint64) bool) {
		for _, entry := range s.entries {
			if !yield(entry) {
				return
			}
		}
	}
}

// MarshalBinary implements encoding.BinaryMarshaler
func (s *CompactSketch) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	encoder := NewEncoder(&buf)
	if err := encoder.Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *CompactSketch) preambleLongs() uint8 {
	if s.IsEstimationMode() {
		return 3
	}
	if s.isEmpty || len(s.entries) == 1 {
		return 1
	}
	return 2
}

// MaxSerializedSizeBytes computes the largest serialized size of a compact
// sketch built from a sketch or union with nominal size 2^lgK
func MaxSerializedSizeBytes(lgK uint8) int {
	return 8 * (3 + int(computeCapacity(lgK+1, lgK)))
}

// SerializedSizeBytes computes the size in bytes required to serialize the current state of the sketch.
func (s *CompactSketch) SerializedSizeBytes() int {
	return int(s.preambleLongs())*8 + len(s.entries)*8
}

