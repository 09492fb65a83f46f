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
	"iter"
	"strings"
)

// WrappedCompactSketch wraps a serialized compact sketch buffer for read-only access.
// Entries are read from the buffer on every iteration, so the buffer must not be
// modified while the view is in use.
type WrappedCompactSketch struct {
	data compactSketchData
}

// WrapCompactSketch wraps a serialized compact sketch as an array of bytes
func WrapCompactSketch(bytes []byte, seed uint64) (*WrappedCompactSketch, error) {
	data, err := decodeCompactSketch(bytes, seed)
	if err != nil {
		return nil, err
	}

	return &WrappedCompactSketch{data: data}, nil
}

// IsEmpty returns true if this sketch represents an empty set
func (s *WrappedCompactSketch) IsEmpty() bool {
	return s.data.isEmpty
}

// IsOrdered returns true if retained entries are ordered
func (s *WrappedCompactSketch) IsOrdered() bool {
	return s.data.isOrdered
}

// Theta64 returns theta as a positive integer
func (s *WrappedCompactSketch) Theta64() uint64 {
	return s.data.theta
}

// NumRetained returns the number of retained entries
func (s *WrappedCompactSketch) NumRetained() uint32 {
	return s.data.numEntries
}

// SeedHash returns hash of the seed
func (s *WrappedCompactSketch) SeedHash() (uint16, error) {
	return s.data.seedHash, nil
}

// Theta returns theta as a fraction from 0 to 1
func (s *WrappedCompactSketch) Theta() float64 {
	return float64(s.Theta64()) / float64(MaxTheta)
}

// IsEstimationMode returns true if the sketch is in estimation mode
func (s *WrappedCompactSketch) IsEstimationMode() bool {
	return s.Theta64() < MaxTheta && !s.data.isEmpty
}

// Estimate returns the estimate of distinct count
func (s *WrappedCompactSketch) Estimate() float64 {
	return float64(s.NumRetained()) / s.Theta()
}

// All returns a lazy iterator over hash values.
func (s *WrappedCompactSketch) All() iter.Seq[uint64] {
	return func(yield func(uint64) bool) {
		for i := 0; i < int(s.data.numEntries); i++ {
			if !yield(s.data.entry(i)) {
				return
			}
		}
	}
}

// Bytes returns the wrapped buffer, trimmed to the serialized size
func (s *WrappedCompactSketch) Bytes() []byte {
	return s.data.bytes[:s.serializedSizeBytes()]
}

func (s *WrappedCompactSketch) serializedSizeBytes() int {
	if s.data.isEmpty {
		return 8
	}
	return s.data.entriesStartIdx + int(s.data.numEntries)*8
}

func (s *WrappedCompactSketch) String(shouldPrintItems bool) string {
	var sb strings.Builder
	writeSummary(&sb, s)
	sb.WriteString("### End sketch summary\n")
	if shouldPrintItems {
		writeEntries(&sb, s)
	}
	return sb.String()
}
