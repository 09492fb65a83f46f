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
	"encoding/binary"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCompactSketch(t *testing.T) {
	t.Run("Empty Source", func(t *testing.T) {
		source, _ := NewQuickSelectUpdateSketch()
		sketch := NewCompactSketch(source, false)

		assert.True(t, sketch.IsEmpty())
		assert.Equal(t, uint32(0), sketch.NumRetained())
		assert.True(t, sketch.IsOrdered())
		assert.Equal(t, MaxTheta, sketch.Theta64())
	})

	t.Run("Unordered Source With Ordering", func(t *testing.T) {
		unordered := newCompactSketchFromEntries(false, false, 0x1234, MaxTheta, []uint64{300, 100, 200})

		sketch := NewCompactSketch(unordered, true)

		assert.True(t, sketch.IsOrdered())
		assert.Equal(t, []uint64{100, 200, 300}, slices.Collect(sketch.All()))
	})

	t.Run("Unordered Source Without Ordering", func(t *testing.T) {
		unordered := newCompactSketchFromEntries(false, false, 0x1234, MaxTheta, []uint64{300, 100})

		sketch := NewCompactSketch(unordered, false)

		assert.False(t, sketch.IsOrdered())
		assert.Equal(t, []uint64{300, 100}, slices.Collect(sketch.All()))
	})
}

func TestCompactSketch_Estimate(t *testing.T) {
	sketch := newCompactSketchFromEntries(false, true, 0x1234, MaxTheta, []uint64{100, 200, 300})
	assert.Equal(t, 3.0, sketch.Estimate())
	assert.False(t, sketch.IsEstimationMode())

	sketch = newCompactSketchFromEntries(false, true, 0x1234, MaxTheta/4, []uint64{100, 200, 300})
	assert.InDelta(t, 12.0, sketch.Estimate(), 1e-9)
	assert.True(t, sketch.IsEstimationMode())
	assert.InDelta(t, 0.25, sketch.Theta(), 1e-9)
}

func TestCompactSketch_String(t *testing.T) {
	sketch := newCompactSketchFromEntries(false, true, 0x1234, MaxTheta, []uint64{100, 200})

	summary := sketch.String(false)
	assert.Contains(t, summary, "### Theta sketch summary:")
	assert.Contains(t, summary, "num retained entries : 2")
	assert.NotContains(t, summary, "### Retained entries")

	withItems := sketch.String(true)
	assert.True(t, strings.HasSuffix(withItems, "100\n200\n### End retained entries\n"))
}

func TestCompactSketch_MarshalBinary(t *testing.T) {
	t.Run("Empty sketch", func(t *testing.T) {
		sketch, _ := NewQuickSelectUpdateSketch()
		compact := sketch.Compact(true)

		data, err := compact.MarshalBinary()
		require.NoError(t, err)
		assert.Len(t, data, 8)
		assert.Equal(t, byte(1), data[compactSketchPreLongsByte])
		assert.NotZero(t, data[compactSketchFlagsByte]&(1<<serializationFlagIsEmpty))

		decoded, err := Decode(data, DefaultSeed)
		require.NoError(t, err)
		assert.True(t, decoded.IsEmpty())
		assert.Equal(t, uint32(0), decoded.NumRetained())
	})

	t.Run("Single entry sketch", func(t *testing.T) {
		sketch := newFilledSketch(t, DefaultLgK, 42, 43)
		compact := sketch.Compact(true)

		data, err := compact.MarshalBinary()
		require.NoError(t, err)
		assert.Len(t, data, 16)
		assert.Equal(t, byte(1), data[compactSketchPreLongsByte])

		decoded, err := Decode(data, DefaultSeed)
		require.NoError(t, err)
		assert.False(t, decoded.IsEmpty())
		assert.Equal(t, slices.Collect(compact.All()), slices.Collect(decoded.All()))
		assert.Equal(t, MaxTheta, decoded.Theta64())
	})

	t.Run("Multiple entries exact mode", func(t *testing.T) {
		compact := newFilledSketch(t, DefaultLgK, 0, 10).Compact(false)

		data, err := compact.MarshalBinary()
		require.NoError(t, err)
		assert.Len(t, data, compact.SerializedSizeBytes())
		assert.Equal(t, byte(2), data[compactSketchPreLongsByte])
		assert.Equal(t, uint32(10), binary.LittleEndian.Uint32(data[compactSketchNumEntriesByte:]))

		var buf bytes.Buffer
		require.NoError(t, NewEncoder(&buf).Encode(compact))
		assert.Equal(t, data, buf.Bytes())

		decoded, err := NewDecoder(DefaultSeed).Decode(&buf)
		require.NoError(t, err)
		assert.Equal(t, compact.NumRetained(), decoded.NumRetained())
		assert.Equal(t, compact.Theta64(), decoded.Theta64())
		assert.Equal(t, compact.IsOrdered(), decoded.IsOrdered())
		assert.Equal(t, slices.Collect(compact.All()), slices.Collect(decoded.All()))
	})

	t.Run("Large sketch estimation mode", func(t *testing.T) {
		compact := newFilledSketch(t, DefaultLgK, 0, 10000).Compact(true)
		assert.True(t, compact.IsEstimationMode())

		data, err := compact.MarshalBinary()
		require.NoError(t, err)
		assert.Equal(t, byte(3), data[compactSketchPreLongsByte])
		assert.LessOrEqual(t, len(data), MaxSerializedSizeBytes(DefaultLgK))

		decoded, err := Decode(data, DefaultSeed)
		require.NoError(t, err)
		assert.True(t, decoded.IsEstimationMode())
		assert.Equal(t, compact.NumRetained(), decoded.NumRetained())
		assert.Equal(t, compact.Theta64(), decoded.Theta64())
	})
}

func TestDecode_Errors(t *testing.T) {
	data, err := newFilledSketch(t, DefaultLgK, 0, 10).Compact(true).MarshalBinary()
	require.NoError(t, err)

	t.Run("Too Short", func(t *testing.T) {
		_, err := Decode(data[:4], DefaultSeed)
		assert.Error(t, err)
	})

	t.Run("Truncated Entries", func(t *testing.T) {
		_, err := Decode(data[:len(data)-8], DefaultSeed)
		assert.Error(t, err)
	})

	t.Run("Wrong Family", func(t *testing.T) {
		corrupted := slices.Clone(data)
		corrupted[compactSketchFamilyByte] = 4
		_, err := Decode(corrupted, DefaultSeed)
		assert.ErrorContains(t, err, "sketch family")
	})

	t.Run("Wrong Serial Version", func(t *testing.T) {
		corrupted := slices.Clone(data)
		corrupted[compactSketchSerialVersionByte] = 9
		_, err := Decode(corrupted, DefaultSeed)
		assert.ErrorContains(t, err, "serial version")
	})

	t.Run("Wrong Seed", func(t *testing.T) {
		_, err := Decode(data, 42)
		assert.ErrorIs(t, err, ErrSeedHashMismatch)
	})
}
