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

package internal

import (
	"encoding/binary"
	"errors"

	"github.com/twmb/murmur3"
)

// DefaultUpdateSeed is the hash seed shared by all DataSketches implementations.
const DefaultUpdateSeed = uint64(9001)

var ErrZeroSeedHash = errors.New("seed hash is zero, choose a different seed")

// ComputeSeedHash returns the 16-bit digest of a hash seed that is stored in
// serialized theta sketches so that sketches built with different seeds are
// never combined.
func ComputeSeedHash(seed int64) (uint16, error) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(seed))
	h1, _ := murmur3.SeedSum128(0, 0, buf[:])
	seedHash := uint16(h1 & 0xFFFF)
	if seedHash == 0 {
		return 0, ErrZeroSeedHash
	}
	return seedHash, nil
}

// HashInt64 hashes a single 64-bit value the same way the Java library hashes
// a one-element long array.
func HashInt64(value int64, seed uint64) (uint64, uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(value))
	return murmur3.SeedSum128(seed, seed, buf[:])
}

// HashBytes hashes a byte slice with the given seed.
func HashBytes(data []byte, seed uint64) (uint64, uint64) {
	return murmur3.SeedSum128(seed, seed, data)
}
