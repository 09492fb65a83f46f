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
	"math"

	"go.uber.org/multierr"

	"github.com/streamsketch/unions/internal"
)

// UnionSerialVersion is the serial version of the union layout
const UnionSerialVersion = 3

const unionPreambleLongs = 4

// Offsets in bytes
const (
	unionPreLongsByte      = 0
	unionSerialVersionByte = 1
	unionFamilyByte        = 2
	unionLgKByte           = 3
	unionLgCurSizeByte     = 4
	unionFlagsByte         = 5
	unionSeedHashByte      = 6
	unionNumEntriesByte    = 8
	unionPByte             = 12
	unionTableThetaByte    = 16
	unionThetaByte         = 24
	unionEntriesByte       = unionPreambleLongs * 8
)

const unionResizeFactorShift = 6

// SerializedSizeBytes returns the number of bytes MarshalBinary would produce
// after pending theta filtering is applied.
func (u *Union) SerializedSizeBytes() int {
	u.compact()
	return unionEntriesByte + int(u.table.numEntries)*8
}

// MarshalBinary implements encoding.BinaryMarshaler.
// The union state, including the entries kept beyond the nominal size,
// is preserved exactly so that a decoded union keeps merging identically.
func (u *Union) MarshalBinary() ([]byte, error) {
	bytes := make([]byte, u.SerializedSizeBytes())

	bytes[unionPreLongsByte] = unionPreambleLongs | byte(u.table.rf)<<unionResizeFactorShift
	bytes[unionSerialVersionByte] = UnionSerialVersion
	bytes[unionFamilyByte] = internal.FamilyEnum.Union.IdByte()
	bytes[unionLgKByte] = u.table.lgNomSize
	bytes[unionLgCurSizeByte] = u.table.lgCurSize
	if u.table.isEmpty {
		bytes[unionFlagsByte] |= 1 << serializationFlagIsEmpty
	}
	binary.LittleEndian.PutUint16(bytes[unionSeedHashByte:], u.seedHash)
	binary.LittleEndian.PutUint32(bytes[unionNumEntriesByte:], u.table.numEntries)
	binary.LittleEndian.PutUint32(bytes[unionPByte:], math.Float32bits(u.table.p))
	binary.LittleEndian.PutUint64(bytes[unionTableThetaByte:], u.table.theta)
	binary.LittleEndian.PutUint64(bytes[unionThetaByte:], u.theta)

	offset := unionEntriesByte
	for _, entry := range u.table.entries {
		if entry != 0 {
			binary.LittleEndian.PutUint64(bytes[offset:], entry)
			offset += 8
		}
	}
	return bytes, nil
}

// DecodeUnion restores a union serialized by MarshalBinary.
// The seed must be the one the union was created with.
// Only the logger option is honored; everything else comes from the data.
func DecodeUnion(data []byte, seed uint64, opts ...UnionOptionFunc) (*Union, error) {
	options := defaultUnionOptions()
	for _, opt := range opts {
		opt(options)
	}

	if err := validateMemorySize(data, unionEntriesByte); err != nil {
		return nil, err
	}

	expectedSeedHash, err := internal.ComputeSeedHash(int64(seed))
	if err != nil {
		return nil, err
	}
	preambleLongs := data[unionPreLongsByte] & 0x3F
	err = multierr.Combine(
		checkEqual(preambleLongs, unionPreambleLongs, "preamble longs"),
		CheckSerialVersionEqual(data[unionSerialVersionByte], UnionSerialVersion),
		CheckSketchFamilyEqual(data[unionFamilyByte], internal.FamilyEnum.Union.IdByte()),
		CheckSeedHashEqual(binary.LittleEndian.Uint16(data[unionSeedHashByte:]), expectedSeedHash),
	)
	if err != nil {
		return nil, err
	}

	lgK := data[unionLgKByte]
	lgCurSize := data[unionLgCurSizeByte]
	rf := ResizeFactor(data[unionPreLongsByte] >> unionResizeFactorShift)
	p := math.Float32frombits(binary.LittleEndian.Uint32(data[unionPByte:]))
	tableTheta := binary.LittleEndian.Uint64(data[unionTableThetaByte:])
	theta := binary.LittleEndian.Uint64(data[unionThetaByte:])
	numEntries := binary.LittleEndian.Uint32(data[unionNumEntriesByte:])

	if err := checkLgK(lgK); err != nil {
		return nil, err
	}
	if lgCurSize < MinLgK || lgCurSize > lgK+1 {
		return nil, fmt.Errorf("lg current size must be between %d and %d: %d", MinLgK, lgK+1, lgCurSize)
	}
	if !(p > 0 && p <= 1) {
		return nil, fmt.Errorf("sampling probability must be between 0 and 1: %v", p)
	}
	if theta > MaxTheta || tableTheta > MaxTheta {
		return nil, fmt.Errorf("theta must not exceed %d", MaxTheta)
	}
	if numEntries > computeCapacity(lgCurSize, lgK) {
		return nil, fmt.Errorf("%d entries exceed the capacity of a table of lg size %d", numEntries, lgCurSize)
	}
	if err := validateMemorySize(data, unionEntriesByte+int(numEntries)*8); err != nil {
		return nil, err
	}

	table := newHashTable(lgCurSize, lgK, rf, p, tableTheta, seed)
	table.isEmpty = data[unionFlagsByte]&(1<<serializationFlagIsEmpty) != 0
	for i := 0; i < int(numEntries); i++ {
		entry := binary.LittleEndian.Uint64(data[unionEntriesByte+i*8:])
		if entry == 0 || entry >= tableTheta || entry >= theta {
			return nil, fmt.Errorf("entry %d out of range: %d", i, entry)
		}
		inserted, err := table.insertIfAbsent(entry)
		if err != nil {
			return nil, err
		}
		if !inserted {
			return nil, fmt.Errorf("%w: entry %d", ErrDuplicateKey, i)
		}
	}
	if table.isEmpty && numEntries > 0 {
		return nil, fmt.Errorf("empty union must not carry entries: %d", numEntries)
	}

	return newUnionFromTable(table, theta, options.logger), nil
}

// UnionEncoder encodes a union to a writer.
type UnionEncoder struct {
	w io.Writer
}

// NewUnionEncoder creates a new union encoder.
func NewUnionEncoder(w io.Writer) UnionEncoder {
	return UnionEncoder{w: w}
}

// Encode writes the serialized union.
func (enc UnionEncoder) Encode(u *Union) error {
	bytes, err := u.MarshalBinary()
	if err != nil {
		return err
	}
	n, err := enc.w.Write(bytes)
	if err != nil {
		return err
	}
	if n != len(bytes) {
		return io.ErrShortWrite
	}
	return nil
}

// UnionDecoder decodes a union from a reader.
type UnionDecoder struct {
	opts []UnionOptionFunc
	seed uint64
}

// NewUnionDecoder creates a new union decoder for unions created with the given seed.
func NewUnionDecoder(seed uint64, opts ...UnionOptionFunc) UnionDecoder {
	return UnionDecoder{seed: seed, opts: opts}
}

// Decode reads a serialized union.
func (dec UnionDecoder) Decode(r io.Reader) (*Union, error) {
	bytes, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return DecodeUnion(bytes, dec.seed, dec.opts...)
}
