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
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQuickSelectUpdateSketch(t *testing.T) {
	t.Run("No Options And Empty", func(t *testing.T) {
		updateSketch, err := NewQuickSelectUpdateSketch()
		assert.NoError(t, err)

		assert.True(t, updateSketch.IsEmpty())
		assert.False(t, updateSketch.IsEstimationMode())
		assert.Equal(t, 1.0, updateSketch.Theta())
		assert.Equal(t, 0.0, updateSketch.Estimate())
		assert.True(t, updateSketch.IsOrdered())
		assert.Equal(t, DefaultLgK, updateSketch.LgK())
		assert.Equal(t, DefaultResizeFactor, updateSketch.ResizeFactor())
	})

	t.Run("With Options", func(t *testing.T) {
		sketch, err := NewQuickSelectUpdateSketch(
			WithUpdateSketchLgK(10),
			WithUpdateSketchResizeFactor(ResizeX2),
			WithUpdateSketchP(0.5),
			WithUpdateSketchSeed(12345),
		)
		assert.NoError(t, err)
		assert.Equal(t, uint8(10), sketch.LgK())
		assert.Equal(t, ResizeX2, sketch.ResizeFactor())
		assert.Equal(t, float32(0.5), sketch.table.p)
		assert.Equal(t, uint64(12345), sketch.table.seed)
	})

	t.Run("Non Empty No Retained Keys", func(t *testing.T) {
		updateSketch, err := NewQuickSelectUpdateSketch(WithUpdateSketchP(0.001))
		assert.NoError(t, err)
		assert.ErrorIs(t, updateSketch.UpdateInt64(1), ErrHashExceedsTheta)

		assert.Zero(t, updateSketch.NumRetained())
		assert.False(t, updateSketch.IsEmpty())
		assert.True(t, updateSketch.IsEstimationMode())
		assert.Equal(t, 0.0, updateSketch.Estimate())

		updateSketch.Reset()
		assert.True(t, updateSketch.IsEmpty())
		assert.False(t, updateSketch.IsEstimationMode())
		assert.Equal(t, 1.0, updateSketch.Theta())
	})

	t.Run("Invalid Lgk", func(t *testing.T) {
		_, err := NewQuickSelectUpdateSketch(WithUpdateSketchLgK(3))
		assert.ErrorContains(t, err, "lg_k must not be less than")

		_, err = NewQuickSelectUpdateSketch(WithUpdateSketchLgK(30))
		assert.ErrorContains(t, err, "lg_k must not be greater than")
	})

	t.Run("Invalid P", func(t *testing.T) {
		_, err := NewQuickSelectUpdateSketch(WithUpdateSketchP(0.0))
		assert.ErrorContains(t, err, "sampling probability must be between 0 and 1")

		_, err = NewQuickSelectUpdateSketch(WithUpdateSketchP(1.5))
		assert.ErrorContains(t, err, "sampling probability must be between 0 and 1")
	})
}

func TestQuickSelectUpdateSketch_Theta64(t *testing.T) {
	sketch, err := NewQuickSelectUpdateSketch(WithUpdateSketchLgK(5))
	assert.NoError(t, err)
	assert.Equal(t, MaxTheta, sketch.Theta64())

	for i := 0; i < 100; i++ {
		_ = sketch.UpdateInt64(int64(i))
	}

	assert.Less(t, sketch.Theta64(), MaxTheta)
	assert.Equal(t, sketch.table.theta, sketch.Theta64())
	for entry := range sketch.All() {
		assert.Less(t, entry, sketch.Theta64())
	}
}

func TestQuickSelectUpdateSketch_Updates(t *testing.T) {
	t.Run("Duplicates", func(t *testing.T) {
		sketch, err := NewQuickSelectUpdateSketch()
		require.NoError(t, err)

		assert.NoError(t, sketch.UpdateInt64(7))
		assert.ErrorIs(t, sketch.UpdateInt64(7), ErrDuplicateKey)
		assert.ErrorIs(t, sketch.UpdateUint64(7), ErrDuplicateKey)
		assert.True(t, IsIgnorable(sketch.UpdateInt64(7)))
		assert.Equal(t, 1.0, sketch.Estimate())
	})

	t.Run("Strings And Bytes Hash The Same", func(t *testing.T) {
		sketch, err := NewQuickSelectUpdateSketch()
		require.NoError(t, err)

		assert.NoError(t, sketch.UpdateString("hello"))
		assert.ErrorIs(t, sketch.UpdateBytes([]byte("hello")), ErrDuplicateKey)
		assert.ErrorIs(t, sketch.UpdateString(""), ErrUpdateEmptyString)
		assert.Equal(t, uint32(1), sketch.NumRetained())
	})

	t.Run("Float Canonicalization", func(t *testing.T) {
		sketch, err := NewQuickSelectUpdateSketch()
		require.NoError(t, err)

		assert.NoError(t, sketch.UpdateFloat64(0.0))
		assert.ErrorIs(t, sketch.UpdateFloat64(math.Copysign(0, -1)), ErrDuplicateKey)
		assert.NoError(t, sketch.UpdateFloat64(math.NaN()))
		assert.ErrorIs(t, sketch.UpdateFloat64(math.Float64frombits(0x7ff8000000000001)), ErrDuplicateKey)
		assert.Equal(t, uint32(2), sketch.NumRetained())
	})
}

func TestQuickSelectUpdateSketch_ResizeExact(t *testing.T) {
	for _, rf := range []ResizeFactor{ResizeX1, ResizeX2, ResizeX4, ResizeX8} {
		sketch, err := NewQuickSelectUpdateSketch(WithUpdateSketchLgK(8), WithUpdateSketchResizeFactor(rf))
		require.NoError(t, err)

		for i := 0; i < 256; i++ {
			require.NoError(t, sketch.UpdateInt64(int64(i)))
		}
		assert.False(t, sketch.IsEstimationMode(), "rf=%d", rf)
		assert.Equal(t, 256.0, sketch.Estimate(), "rf=%d", rf)
	}
}

func TestQuickSelectUpdateSketch_Estimation(t *testing.T) {
	sketch := newFilledSketch(t, 10, 0, 20000)
	assert.True(t, sketch.IsEstimationMode())
	assert.InDelta(t, 20000, sketch.Estimate(), 0.1*20000)
	assert.GreaterOrEqual(t, sketch.NumRetained(), uint32(1<<10))

	sketch.Trim()
	assert.Equal(t, uint32(1<<10), sketch.NumRetained())
	assert.InDelta(t, 20000, sketch.Estimate(), 0.1*20000)

	compact := sketch.Compact(true)
	assert.Equal(t, sketch.Theta64(), compact.Theta64())
	assert.Equal(t, sketch.NumRetained(), compact.NumRetained())
}

func TestQuickSelectUpdateSketch_String(t *testing.T) {
	sketch := newFilledSketch(t, 5, 0, 3)

	summary := sketch.String(false)
	assert.Contains(t, summary, "lg nominal size      : 5")
	assert.Contains(t, summary, "resize factor        : 8")
	assert.NotContains(t, summary, "### Retained entries")
	assert.Contains(t, sketch.String(true), "### Retained entries")
}
