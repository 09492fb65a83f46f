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
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/streamsketch/unions/internal"
)

// VarOptItemsSketchEncoder writes a Java-compatible VarOpt sketch to an io.Writer.
type VarOptItemsSketchEncoder[T any] struct {
	w     io.Writer
	serde ItemsSerDe[T]
}

// NewVarOptItemsSketchEncoder creates an encoder with the provided writer and serde.
func NewVarOptItemsSketchEncoder[T any](w io.Writer, serde ItemsSerDe[T]) VarOptItemsSketchEncoder[T] {
	return VarOptItemsSketchEncoder[T]{w: w, serde: serde}
}

// Encode writes the serialized sketch to the encoder's writer.
func (e VarOptItemsSketchEncoder[T]) Encode(sketch *VarOptItemsSketch[T]) error {
	if e.w == nil {
		return errors.New("nil writer")
	}
	data, err := sketch.ToSlice(e.serde)
	if err != nil {
		return err
	}
	_, err = e.w.Write(data)
	return err
}

// VarOptItemsSketchDecoder reads a Java-compatible VarOpt sketch from an io.Reader.
type VarOptItemsSketchDecoder[T any] struct {
	r     io.Reader
	serde ItemsSerDe[T]
}

// NewVarOptItemsSketchDecoder creates a decoder with the provided reader and serde.
func NewVarOptItemsSketchDecoder[T any](r io.Reader, serde ItemsSerDe[T]) VarOptItemsSketchDecoder[T] {
	return VarOptItemsSketchDecoder[T]{r: r, serde: serde}
}

// Decode reads all bytes from the decoder's reader and deserializes the sketch.
func (d VarOptItemsSketchDecoder[T]) Decode() (*VarOptItemsSketch[T], error) {
	if d.r == nil {
		return nil, errors.New("nil reader")
	}
	data, err := io.ReadAll(d.r)
	if err != nil {
		return nil, err
	}
	return NewVarOptItemsSketchFromSlice[T](data, d.serde)
}

// ToSlice serializes the sketch, using serde for the sampled items.
func (s *VarOptItemsSketch[T]) ToSlice(serde ItemsSerDe[T]) ([]byte, error) {
	if s.m != 0 {
		return nil, ErrPendingCandidate
	}

	empty := s.h == 0 && s.r == 0
	preLongs := varOptPreambleLongsEmpty
	flags := byte(0)
	switch {
	case empty:
		flags |= varOptFlagEmpty
	case s.r == 0:
		preLongs = varOptPreambleLongsWarmup
	default:
		preLongs = varOptPreambleLongsFull
	}
	if s.marks != nil {
		flags |= varOptFlagGadget
	}

	resizeBits, err := encodeVarOptResizeFactor(s.rf)
	if err != nil {
		return nil, err
	}

	if empty {
		buf := make([]byte, preLongs*8)
		writeVarOptHeader(buf, resizeBits|byte(preLongs), flags, s.k)
		return buf, nil
	}

	itemBytes, err := serde.SerializeToBytes(s.sampleItems())
	if err != nil {
		return nil, fmt.Errorf("serializing items: %w", err)
	}

	markBytes := 0
	if s.marks != nil {
		markBytes = internal.WholeBytesToHoldBits(s.h)
	}
	outBytes := (preLongs * 8) + (s.h * 8) + markBytes + len(itemBytes)
	buf := make([]byte, outBytes)
	writeVarOptHeader(buf, resizeBits|byte(preLongs), flags, s.k)
	binary.LittleEndian.PutUint64(buf[nLong:], uint64(s.n))
	binary.LittleEndian.PutUint32(buf[hCountInt:], uint32(s.h))
	binary.LittleEndian.PutUint32(buf[rCountInt:], uint32(s.r))
	if s.r > 0 {
		binary.LittleEndian.PutUint64(buf[totalWeightRDbl:], math.Float64bits(s.totalWeightR))
	}

	offset := preLongs * 8
	for i := 0; i < s.h; i++ {
		binary.LittleEndian.PutUint64(buf[offset:], math.Float64bits(s.weights[i]))
		offset += 8
	}
	if s.marks != nil {
		var val byte
		for i := 0; i < s.h; i++ {
			if s.marks[i] {
				val |= 0x1 << (i & 0x7)
			}
			if (i & 0x7) == 0x7 {
				buf[offset] = val
				offset++
				val = 0
			}
		}
		if (s.h & 0x7) != 0 {
			buf[offset] = val
			offset++
		}
	}
	copy(buf[offset:], itemBytes)

	return buf, nil
}

func writeVarOptHeader(buf []byte, preambleByte, flags byte, k int) {
	buf[preambleLongsByte] = preambleByte
	buf[serialVersionByte] = varOptSerVer
	buf[familyByte] = internal.FamilyEnum.VarOptItems.IdByte()
	buf[flagsByte] = flags
	binary.LittleEndian.PutUint32(buf[kInt:], uint32(k))
}

// NewVarOptItemsSketchFromSlice deserializes a sketch written by ToSlice.
func NewVarOptItemsSketchFromSlice[T any](data []byte, serde ItemsSerDe[T]) (*VarOptItemsSketch[T], error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the minimum preamble", ErrMalformedData, len(data))
	}

	preLongs := extractPreambleLongs(data)
	rf := decodeVarOptResizeFactor(data[preambleLongsByte])
	serVer := data[serialVersionByte]
	family := data[familyByte]
	flags := data[flagsByte]
	k := int(binary.LittleEndian.Uint32(data[kInt:]))

	if serVer != varOptSerVer {
		return nil, fmt.Errorf("%w: %d", ErrSerialVersion, serVer)
	}
	if family != internal.FamilyEnum.VarOptItems.IdByte() {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrFamilyMismatch, internal.FamilyEnum.VarOptItems.Id, family)
	}

	isEmpty := (flags & varOptFlagEmpty) != 0
	isGadget := (flags & varOptFlagGadget) != 0
	if isEmpty || preLongs == varOptPreambleLongsEmpty {
		return newVarOptItemsSketch[T](k, rf, isGadget)
	}

	if preLongs != varOptPreambleLongsWarmup && preLongs != varOptPreambleLongsFull {
		return nil, fmt.Errorf("%w: invalid preamble longs: %d", ErrMalformedData, preLongs)
	}
	if len(data) < preLongs*8 {
		return nil, fmt.Errorf("%w: data too short for preamble", ErrMalformedData)
	}

	n := int64(binary.LittleEndian.Uint64(data[nLong:]))
	h := int(binary.LittleEndian.Uint32(data[hCountInt:]))
	r := int(binary.LittleEndian.Uint32(data[rCountInt:]))
	if k < varOptMinK || k > varOptMaxK {
		return nil, ErrInvalidK
	}
	if n < 0 || int64(h+r) > n {
		return nil, fmt.Errorf("%w: %d samples cannot come from %d items", ErrMalformedData, h+r, n)
	}

	totalWeightR := 0.0
	if preLongs == varOptPreambleLongsFull {
		if r == 0 {
			return nil, fmt.Errorf("%w: full preamble with empty R region", ErrMalformedData)
		}
		if h+r != k {
			return nil, fmt.Errorf("%w: estimation mode sketch holds %d samples, expected k=%d", ErrMalformedData, h+r, k)
		}
		totalWeightR = math.Float64frombits(binary.LittleEndian.Uint64(data[totalWeightRDbl:]))
		if !(totalWeightR > 0) || math.IsInf(totalWeightR, 0) {
			return nil, fmt.Errorf("%w: invalid R region weight %v", ErrMalformedData, totalWeightR)
		}
	} else {
		if r != 0 {
			return nil, fmt.Errorf("%w: warmup preamble with non-empty R region", ErrMalformedData)
		}
		if h > k {
			return nil, fmt.Errorf("%w: warmup sketch holds %d items, more than k=%d", ErrMalformedData, h, k)
		}
	}

	weightsOffset := preLongs * 8
	weightsBytes := h * 8
	markBytes := 0
	if isGadget {
		markBytes = internal.WholeBytesToHoldBits(h)
	}
	if len(data) < weightsOffset+weightsBytes+markBytes {
		return nil, fmt.Errorf("%w: data too short for weights", ErrMalformedData)
	}

	sketch, err := newVarOptItemsSketch[T](k, rf, isGadget)
	if err != nil {
		return nil, err
	}

	items, err := serde.DeserializeFromBytes(data[weightsOffset+weightsBytes+markBytes:], h+r)
	if err != nil {
		return nil, fmt.Errorf("deserializing items: %w", err)
	}

	size := h
	if r > 0 {
		size = k + 1
	}
	sketch.n = n
	sketch.h = h
	sketch.r = r
	sketch.totalWeightR = totalWeightR
	sketch.data = make([]T, size, max(size, cap(sketch.data)))
	sketch.weights = make([]float64, size, max(size, cap(sketch.weights)))
	if isGadget {
		sketch.marks = make([]bool, size, max(size, cap(sketch.marks)))
	}

	for i := 0; i < h; i++ {
		w := math.Float64frombits(binary.LittleEndian.Uint64(data[weightsOffset+i*8:]))
		if !(w > 0) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("%w: non-positive or infinite weight in H region", ErrMalformedData)
		}
		sketch.weights[i] = w
	}
	copy(sketch.data[:h], items[:h])
	if r > 0 {
		sketch.weights[h] = -1.0
		copy(sketch.data[h+1:], items[h:])
		for i := h + 1; i <= h+r; i++ {
			sketch.weights[i] = -1.0
		}
	}

	if isGadget {
		markOffset := weightsOffset + weightsBytes
		for i := 0; i < h; i++ {
			val := data[markOffset+(i>>3)]
			sketch.marks[i] = ((val >> (i & 0x7)) & 0x1) == 1
			if sketch.marks[i] {
				sketch.numMarksInH++
			}
		}
	}

	return sketch, nil
}

// sampleItems returns the retained items, H region first.
func (s *VarOptItemsSketch[T]) sampleItems() []T {
	out := make([]T, 0, s.h+s.r)
	out = append(out, s.data[:s.h]...)
	if s.r > 0 {
		out = append(out, s.data[s.h+1:s.h+1+s.r]...)
	}
	return out
}
