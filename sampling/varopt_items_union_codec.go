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

package sampling

import (
	"encoding/binary"
	"fmt"
	"math"

	"go.uber.org/multierr"

	"github.com/streamsketch/unions/internal"
)

const varOptUnionPreambleBytes = varOptUnionPreambleLongsFull * 8

// ToSlice serializes the union, using serde for the sampled items. An empty
// union takes 8 bytes.
func (u *VarOptItemsUnion[T]) ToSlice(serde ItemsSerDe[T]) ([]byte, error) {
	if u.gadget.NumSamples() == 0 {
		buf := make([]byte, varOptUnionPreambleLongsEmpty*8)
		writeVarOptUnionHeader(buf, varOptUnionPreambleLongsEmpty, varOptFlagEmpty, u.maxK)
		return buf, nil
	}

	gadgetBytes, err := u.gadget.ToSlice(serde)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, varOptUnionPreambleBytes+len(gadgetBytes))
	writeVarOptUnionHeader(buf, varOptUnionPreambleLongsFull, 0, u.maxK)
	binary.LittleEndian.PutUint64(buf[nLong:], uint64(u.n))
	binary.LittleEndian.PutUint64(buf[outerTauNumDbl:], math.Float64bits(u.outerTauNumer))
	binary.LittleEndian.PutUint64(buf[outerTauDenomLong:], uint64(u.outerTauDenom))
	copy(buf[varOptUnionPreambleBytes:], gadgetBytes)
	return buf, nil
}

func writeVarOptUnionHeader(buf []byte, preLongs int, flags byte, maxK int) {
	buf[preambleLongsByte] = byte(preLongs)
	buf[serialVersionByte] = varOptUnionSerVer
	buf[familyByte] = internal.FamilyEnum.VarOptUnion.IdByte()
	buf[flagsByte] = flags
	binary.LittleEndian.PutUint32(buf[kInt:], uint32(maxK))
}

// NewVarOptItemsUnionFromSlice deserializes a union written by ToSlice.
func NewVarOptItemsUnionFromSlice[T any](data []byte, serde ItemsSerDe[T], opts ...VarOptUnionOption) (*VarOptItemsUnion[T], error) {
	if len(data) < varOptUnionPreambleLongsEmpty*8 {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the minimum preamble", ErrMalformedData, len(data))
	}

	preLongs := extractPreambleLongs(data)
	flags := data[flagsByte]
	isEmpty := (flags & varOptFlagEmpty) != 0

	var err error
	if preLongs != varOptUnionPreambleLongsEmpty && preLongs != varOptUnionPreambleLongsFull {
		err = multierr.Append(err, fmt.Errorf("%w: invalid preamble longs %d", ErrMalformedData, preLongs))
	}
	if isEmpty != (preLongs == varOptUnionPreambleLongsEmpty) {
		err = multierr.Append(err, fmt.Errorf("%w: empty flag does not match preamble longs %d", ErrMalformedData, preLongs))
	}
	if serVer := data[serialVersionByte]; serVer != varOptUnionSerVer {
		err = multierr.Append(err, fmt.Errorf("%w: %d", ErrSerialVersion, serVer))
	}
	if family := data[familyByte]; family != internal.FamilyEnum.VarOptUnion.IdByte() {
		err = multierr.Append(err, fmt.Errorf("%w: expected %d, got %d", ErrFamilyMismatch, internal.FamilyEnum.VarOptUnion.Id, family))
	}
	if err != nil {
		return nil, err
	}

	maxK := int(binary.LittleEndian.Uint32(data[kInt:]))
	union, err := NewVarOptItemsUnion[T](maxK, opts...)
	if err != nil {
		return nil, err
	}
	if isEmpty {
		return union, nil
	}

	if len(data) < varOptUnionPreambleBytes {
		return nil, fmt.Errorf("%w: data too short for union preamble", ErrMalformedData)
	}
	n := int64(binary.LittleEndian.Uint64(data[nLong:]))
	outerTauNumer := math.Float64frombits(binary.LittleEndian.Uint64(data[outerTauNumDbl:]))
	outerTauDenom := int64(binary.LittleEndian.Uint64(data[outerTauDenomLong:]))
	if n < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: negative n %d", ErrMalformedData, n))
	}
	if outerTauNumer < 0 || math.IsNaN(outerTauNumer) || math.IsInf(outerTauNumer, 0) {
		err = multierr.Append(err, fmt.Errorf("%w: invalid outer tau numerator %v", ErrMalformedData, outerTauNumer))
	}
	if outerTauDenom < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: negative outer tau denominator %d", ErrMalformedData, outerTauDenom))
	}
	if err != nil {
		return nil, err
	}

	gadget, err := NewVarOptItemsSketchFromSlice(data[varOptUnionPreambleBytes:], serde)
	if err != nil {
		return nil, fmt.Errorf("decoding union gadget: %w", err)
	}
	if gadget.marks == nil {
		gadget.marks = make([]bool, len(gadget.data), cap(gadget.data))
	}
	if gadget.n > n {
		return nil, fmt.Errorf("%w: gadget saw %d items, union only %d", ErrMalformedData, gadget.n, n)
	}

	union.n = n
	union.outerTauNumer = outerTauNumer
	union.outerTauDenom = outerTauDenom
	union.gadget = gadget
	return union, nil
}
