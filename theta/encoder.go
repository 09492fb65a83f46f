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
	"io"

	"github.com/streamsketch/unions/internal"
)

// Encoder encodes a compact theta sketch to bytes.
type Encoder struct {
	w io.Writer
}

// NewEncoder creates a new encoder.
func NewEncoder(w io.Writer) Encoder {
	return Encoder{w: w}
}

// Encode encodes a compact theta sketch to bytes.
func (enc Encoder) Encode(sketch *CompactSketch) error {
	bytes := make([]byte, sketch.SerializedSizeBytes())
	encodeCompactSketch(sketch, bytes)

	n, err := enc.w.Write(bytes)
	if err != nil {
		return err
	}
	if n != len(bytes) {
		return io.ErrShortWrite
	}
	return nil
}

// encodeCompactSketch writes the sketch into bytes, which must hold
// at least SerializedSizeBytes.
func encodeCompactSketch(sketch *CompactSketch, bytes []byte) {
	preambleLongs := sketch.preambleLongs()

	bytes[compactSketchPreLongsByte] = preambleLongs
	bytes[compactSketchSerialVersionByte] = SerialVersion
	bytes[compactSketchFamilyByte] = internal.FamilyEnum.Compact.IdByte()
	// 2 bytes unused
	bytes[3] = 0
	bytes[4] = 0

	flags := byte(0)
	flags |= 1 << serializationFlagIsCompact
	flags |= 1 << serializationFlagIsReadOnly
	if sketch.IsEmpty() {
		flags |= 1 << serializationFlagIsEmpty
	}
	if sketch.IsOrdered() {
		flags |= 1 << serializationFlagIsOrdered
	}
	bytes[compactSketchFlagsByte] = flags
	binary.LittleEndian.PutUint16(bytes[compactSketchSeedHashByte:], sketch.seedHash)

	offset := 8
	if preambleLongs > 1 {
		binary.LittleEndian.PutUint32(bytes[compactSketchNumEntriesByte:], uint32(len(sketch.entries)))
		// 4 bytes unused
		binary.LittleEndian.PutUint32(bytes[compactSketchNumEntriesByte+4:], 0)
		offset += 8
	}
	if preambleLongs > 2 {
		binary.LittleEndian.PutUint64(bytes[compactSketchThetaByte:], sketch.theta)
		offset += 8
	}

	for _, entry := range sketch.entries {
		binary.LittleEndian.PutUint64(bytes[offset:], entry)
		offset += 8
	}
}
