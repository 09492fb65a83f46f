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

import "iter"

// Sketch is the read-only view of a theta sketch that unions consume:
// a set of 63-bit hashes below theta, optionally in ascending order.
type Sketch interface {
	// IsEmpty returns true if this sketch represents an empty set
	// (not the same as no retained entries!)
	IsEmpty() bool

	// Estimate returns estimate of the distinct count of the input stream
	Estimate() float64

	// IsEstimationMode returns true if the sketch is in estimation mode
	// (as opposed to exact mode)
	IsEstimationMode() bool

	// Theta returns theta as a fraction from 0 to 1 (effective sampling rate)
	Theta() float64

	// Theta64 returns theta as a positive integer between 0 and math.MaxInt64
	Theta64() uint64

	// NumRetained returns the number of retained entries in the sketch
	NumRetained() uint32

	// SeedHash returns hash of the seed that was used to hash the input
	SeedHash() (uint16, error)

	// IsOrdered returns true if retained entries are ordered
	IsOrdered() bool

	// String returns a human-readable summary of this sketch.
	// If shouldPrintItems is true, the retained hashes are listed as well.
	String(shouldPrintItems bool) string

	// All returns an iterator over hash values in the sketch.
	All() iter.Seq[uint64]
}
