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
	"encoding/binary"
	"fmt"
	"io"

	"github.com/streamsketch/unions/internal"
)

// Decoder decodes a compact sketch from the given reader.
type Decoder struct {
	seed uint64
}

// NewDecoder creates a new decoder.
func NewDecoder(seed uint64) Decoder {
	return Decoder{
		seed: seed,
	}
}

// Decode decodes a compact sketch from the given reader.
func (dec Decoder) Decode(r io.Reader) (*CompactSketch, error) {
	bytes, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	return Decode(bytes, dec.seed)
}

// Decode decodes a compact sketch from the given bytes.
// The result owns its entries and does not alias bytes.
func Decode(bytes []byte, seed uint64) (*CompactSketch, error) {
	data, err := decodeCompactSketch(bytes, seed)
	if err != nil {
		return nil, err
	}

	entries := make([]uint64, data.numEntries)
	for i := range entries {
		entries[i] = data.entry(i)
	}

	return newCompactSketchFromEntries(
		data.isEmpty,
		data.isOrdered,
		data.seedHash,
		data.theta,
		entries,
	), nil
}

// compactSketchData is a validated view over a serialized compact sketch
type compactSketchData struct {
	theta           uint64
	bytes           []byte
	entriesStartIdx int
	numEntries      uint32
	seedHash        uint16
	isEmpty         bool
	isOrdered       bool
}

func (d *compactSketchData) entry(i int) uint64 {
	return binary.LittleEndian.Uint64(d.bytes[d.entriesStartIdx+i*8:])
}

func decodeCompactSketch(bytes []byte, seed uint64) (compactSketchData, error) {
	if err := validateMemorySize(bytes, 8); err != nil {
		return compactSketchData{}, err
	}

	if err := CheckSketchFamilyEqual(bytes[compactSketchFamilyByte], internal.FamilyEnum.Compact.IdByte()); err != nil {
		return compactSketchData{}, err
	}
	if err := CheckSerialVersionEqual(bytes[compactSketchSerialVersionByte], SerialVersion); err != nil {
		return compactSketchData{}, err
	}

	preambleLongs := bytes[compactSketchPreLongsByte] & 0x3F
	if preambleLongs < 1 || preambleLongs > 3 {
		return compactSketchData{}, fmt.Errorf("invalid preamble size: %d (expected 1, 2, or 3)", preambleLongs)
	}

	flags := bytes[compactSketchFlagsByte]
	seedHash := binary.LittleEndian.Uint16(bytes[compactSketchSeedHashByte:])

	if flags&(1<<serializationFlagIsEmpty) != 0 {
		return compactSketchData{
			isEmpty:   true,
			isOrdered: true,
			seedHash:  seedHash,
			theta:     MaxTheta,
			bytes:     bytes,
		}, nil
	}

	expectedSeedHash, err := internal.ComputeSeedHash(int64(seed))
	if err != nil {
		return compactSketchData{}, err
	}
	if err := CheckSeedHashEqual(seedHash, expectedSeedHash); err != nil {
		return compactSketchData{}, err
	}

	if preambleLongs == 1 {
		if err := validateMemorySize(bytes, compactSketchSingleEntryByte+8); err != nil {
			return compactSketchData{}, err
		}
		return compactSketchData{
			isOrdered:       true,
			seedHash:        seedHash,
			numEntries:      1,
			theta:           MaxTheta,
			entriesStartIdx: compactSketchSingleEntryByte,
			bytes:           bytes,
		}, nil
	}

	if err := validateMemorySize(bytes, int(preambleLongs)*8); err != nil {
		return compactSketchData{}, err
	}
	numEntries := binary.LittleEndian.Uint32(bytes[compactSketchNumEntriesByte:])
	theta := MaxTheta
	entriesStart := compactSketchEntriesExactByte
	if preambleLongs > 2 {
		theta = binary.LittleEndian.Uint64(bytes[compactSketchThetaByte:])
		entriesStart = compactSketchEntriesEstByte
	}

	if err := validateMemorySize(bytes, entriesStart+int(numEntries)*8); err != nil {
		return compactSketchData{}, err
	}

	return compactSketchData{
		isOrdered:       flags&(1<<serializationFlagIsOrdered) != 0,
		seedHash:        seedHash,
		numEntries:      numEntries,
		theta:           theta,
		entriesStartIdx: entriesStart,
		bytes:           bytes,
	}, nil
}
