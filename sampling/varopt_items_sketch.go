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
	"errors"
	"iter"
	"math"
	"math/rand"
	"slices"
)

// VarOptItemsSketch implements variance-optimal weighted sampling.
//
// This sketch samples weighted items from a stream with optimal variance
// for subset sum estimation. The algorithm maintains two regions:
//   - H region (heavy): Items with weight >= tau (stored in a min-heap)
//   - R region (reservoir): Items with weight < tau (sampled proportionally)
//
// The array layout is: [H region: 0..h) [gap: h] [R region: h+1..h+r]
// While an update is in flight, m candidate items occupy h..h+m.
// In steady state, m=0 and h+r=k.
//
// When all weights are equal (e.g., 1.0), this reduces to standard reservoir sampling.
//
// Reference: Cohen et al., "Efficient Stream Sampling for Variance-Optimal
// Estimation of Subset Sums", SIAM J. Comput. 40(5): 1402-1431, 2011.
type VarOptItemsSketch[T any] struct {
	k            int       // maximum sample size
	n            int64     // total number of items processed
	h            int       // number of items in H (heavy/heap) region
	m            int       // number of items in middle region (during candidate set operations)
	r            int       // number of items in R (reservoir) region
	totalWeightR float64   // total weight of items in R region
	data         []T       // stored items
	weights      []float64 // corresponding weights for each item (-1.0 indicates R region)

	// marks is non-nil only for the gadget owned by a union.
	marks       []bool
	numMarksInH int

	rf ResizeFactor
}

const (
	varOptDefaultResizeFactor = ResizeX8
	varOptMinK                = 1
	varOptMaxK                = (1 << 31) - 2
)

type VarOptOption func(*varOptConfig)

type varOptConfig struct {
	resizeFactor ResizeFactor
}

func WithResizeFactor(rf ResizeFactor) VarOptOption {
	return func(c *varOptConfig) {
		c.resizeFactor = rf
	}
}

func NewVarOptItemsSketch[T any](k int, opts ...VarOptOption) (*VarOptItemsSketch[T], error) {
	cfg := &varOptConfig{
		resizeFactor: varOptDefaultResizeFactor,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return newVarOptItemsSketch[T](k, cfg.resizeFactor, false)
}

func newVarOptItemsSketch[T any](k int, rf ResizeFactor, gadget bool) (*VarOptItemsSketch[T], error) {
	if k < varOptMinK || k > varOptMaxK {
		return nil, ErrInvalidK
	}
	if rf < ResizeX1 || rf > ResizeX8 {
		return nil, ErrInvalidResize
	}

	allocated := initialAllocationSize(k, rf)
	s := &VarOptItemsSketch[T]{
		k:       k,
		data:    make([]T, 0, allocated),
		weights: make([]float64, 0, allocated),
		rf:      rf,
	}
	if gadget {
		s.marks = make([]bool, 0, allocated)
	}
	return s, nil
}

// K returns the configured maximum sample size.
func (s *VarOptItemsSketch[T]) K() int { return s.k }

// N returns the total number of items processed by the sketch.
func (s *VarOptItemsSketch[T]) N() int64 { return s.n }

// NumSamples returns the number of items currently retained in the sketch.
func (s *VarOptItemsSketch[T]) NumSamples() int { return s.h + s.r }

// IsEmpty returns true if the sketch has not processed any items.
func (s *VarOptItemsSketch[T]) IsEmpty() bool { return s.n == 0 }

// H returns the number of items in the H (heavy) region.
func (s *VarOptItemsSketch[T]) H() int { return s.h }

// R returns the number of items in the R (reservoir) region.
func (s *VarOptItemsSketch[T]) R() int { return s.r }

// TotalWeightR returns the total weight of items in the R region.
func (s *VarOptItemsSketch[T]) TotalWeightR() float64 { return s.totalWeightR }

// Tau returns the weight reported for every R region item, or NaN while the
// sketch is still exact.
func (s *VarOptItemsSketch[T]) Tau() float64 {
	if s.r == 0 {
		return math.NaN()
	}
	return s.totalWeightR / float64(s.r)
}

// ResizeFactor returns the growth factor used while the sketch warms up.
func (s *VarOptItemsSketch[T]) ResizeFactor() ResizeFactor { return s.rf }

// Reset clears the sketch to its initial empty state while preserving k.
func (s *VarOptItemsSketch[T]) Reset() {
	s.n = 0
	s.h = 0
	s.m = 0
	s.r = 0
	s.totalWeightR = 0.0
	clear(s.data)
	s.data = s.data[:0]
	s.weights = s.weights[:0]
	if s.marks != nil {
		s.marks = s.marks[:0]
	}
	s.numMarksInH = 0
}

// Sample represents a weighted sample item.
type Sample[T any] struct {
	Item   T
	Weight float64
}

// All returns an iterator over all samples with their adjusted weights.
// For items in H region, the weight is the original weight.
// For items in R region, the weight is tau (totalWeightR / r).
func (s *VarOptItemsSketch[T]) All() iter.Seq[Sample[T]] {
	return func(yield func(Sample[T]) bool) {
		for i := 0; i < s.h; i++ {
			if !yield(Sample[T]{Item: s.data[i], Weight: s.weights[i]}) {
				return
			}
		}

		if s.r > 0 {
			tau := s.Tau()
			rStart := s.h + 1
			for i := 0; i < s.r; i++ {
				if !yield(Sample[T]{Item: s.data[rStart+i], Weight: tau}) {
					return
				}
			}
		}
	}
}

// weightCorrectedR yields the R region items at weight tau, except that the
// last one absorbs the rounding error so the weights add up to totalWeightR.
func (s *VarOptItemsSketch[T]) weightCorrectedR() iter.Seq[Sample[T]] {
	return func(yield func(Sample[T]) bool) {
		if s.r == 0 {
			return
		}
		tau := s.Tau()
		cumWeight := 0.0
		rStart := s.h + 1
		for i := 0; i < s.r-1; i++ {
			if !yield(Sample[T]{Item: s.data[rStart+i], Weight: tau}) {
				return
			}
			cumWeight += tau
		}
		yield(Sample[T]{Item: s.data[rStart+s.r-1], Weight: s.totalWeightR - cumWeight})
	}
}

// peekMin returns the minimum weight in the H region (heap root).
func (s *VarOptItemsSketch[T]) peekMin() float64 {
	if s.h == 0 {
		return math.Inf(1)
	}
	return s.weights[0]
}

// Update adds an item with the given weight to the sketch.
// Weight must be nonnegative and finite; zero weights are ignored.
func (s *VarOptItemsSketch[T]) Update(item T, weight float64) error {
	if weight < 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
		return ErrInvalidWeight
	}
	if weight == 0 {
		return nil
	}
	s.update(item, weight, false)
	return nil
}

func (s *VarOptItemsSketch[T]) update(item T, weight float64, mark bool) {
	s.n++

	if s.r == 0 {
		s.updateWarmupPhase(item, weight, mark)
		return
	}
	// what tau would be if deletion candidates = R + new item
	hypotheticalTau := (weight + s.totalWeightR) / float64(s.r) // r+1-1 = r

	// is new item's turn to be considered for reservoir?
	condition1 := s.h == 0 || weight <= s.peekMin()
	// is new item light enough for reservoir?
	condition2 := weight < hypotheticalTau

	switch {
	case condition1 && condition2:
		s.updateLight(item, weight, mark)
	case s.r == 1:
		s.updateHeavyREq1(item, weight, mark)
	default:
		s.updateHeavyGeneral(item, weight, mark)
	}
}

// updateWarmupPhase handles the warmup phase when r=0.
func (s *VarOptItemsSketch[T]) updateWarmupPhase(item T, weight float64, mark bool) {
	if s.h == cap(s.data) {
		s.growDataArrays()
	}

	if s.h < len(s.data) {
		s.data[s.h] = item
		s.weights[s.h] = weight
	} else {
		s.data = append(s.data, item)
		s.weights = append(s.weights, weight)
	}
	if s.marks != nil {
		if s.h < len(s.marks) {
			s.marks[s.h] = mark
		} else {
			s.marks = append(s.marks, mark)
		}
		if mark {
			s.numMarksInH++
		}
	}
	s.h++

	if s.h > s.k {
		s.transitionFromWarmup()
	}
}

// transitionFromWarmup converts from warmup (exact) mode to estimation mode.
func (s *VarOptItemsSketch[T]) transitionFromWarmup() {
	// Convert to heap and move 2 lightest items to M region
	s.heapify()
	s.popMinToMRegion()
	s.popMinToMRegion()

	// The lighter of the two really belongs in R
	s.m--
	s.r++

	// h is now k-1, m is 1, r is 1
	s.totalWeightR = s.weights[s.k]
	s.weights[s.k] = -1.0

	// The two lightest items are a valid initial candidate set
	s.growCandidateSet(s.weights[s.k-1]+s.totalWeightR, 2)
}

// updateLight handles a light item (weight <= old_tau) in estimation mode.
func (s *VarOptItemsSketch[T]) updateLight(item T, weight float64, mark bool) {
	mSlot := s.h // the gap becomes the M region
	s.data[mSlot] = item
	s.weights[mSlot] = weight
	if s.marks != nil {
		s.marks[mSlot] = mark
	}
	s.m++

	s.growCandidateSet(s.totalWeightR+weight, s.r+1)
}

// updateHeavyGeneral handles a heavy item when r >= 2.
func (s *VarOptItemsSketch[T]) updateHeavyGeneral(item T, weight float64, mark bool) {
	// Put into H (may come back out momentarily)
	s.push(item, weight, mark)

	s.growCandidateSet(s.totalWeightR, s.r)
}

// updateHeavyREq1 handles a heavy item when r == 1.
func (s *VarOptItemsSketch[T]) updateHeavyREq1(item T, weight float64, mark bool) {
	s.push(item, weight, mark) // new item into H
	s.popMinToMRegion()        // pop lightest back into M

	// The M slot is at k-1 (array is k+1, 1 in R)
	mSlot := s.k - 1
	s.growCandidateSet(s.weights[mSlot]+s.totalWeightR, 2)
}

// push adds an item to the H region heap.
func (s *VarOptItemsSketch[T]) push(item T, weight float64, mark bool) {
	s.data[s.h] = item
	s.weights[s.h] = weight
	if s.marks != nil {
		s.marks[s.h] = mark
		if mark {
			s.numMarksInH++
		}
	}
	s.h++

	s.siftUp(s.h - 1)
}

// popMinToMRegion moves the minimum item from H to M region.
func (s *VarOptItemsSketch[T]) popMinToMRegion() {
	if s.h == 0 {
		return
	}

	if s.h == 1 {
		s.m++
		s.h--
	} else {
		tgt := s.h - 1
		s.swap(0, tgt)
		s.m++
		s.h--
		s.siftDown(0)
	}
	if s.isMarked(s.h) {
		s.numMarksInH--
	}
}

func (s *VarOptItemsSketch[T]) isMarked(i int) bool {
	return s.marks != nil && s.marks[i]
}

// growCandidateSet grows the candidate set by pulling light items from H to M.
func (s *VarOptItemsSketch[T]) growCandidateSet(wtCands float64, numCands int) {
	for s.h > 0 {
		nextWt := s.peekMin()
		nextTotWt := wtCands + nextWt

		// test for strict lightness: nextWt * numCands < nextTotWt
		if nextWt*float64(numCands) < nextTotWt {
			wtCands = nextTotWt
			numCands++
			s.popMinToMRegion()
		} else {
			break
		}
	}

	s.downsampleCandidateSet(wtCands, numCands)
}

// downsampleCandidateSet downsamples the candidate set to produce final R.
func (s *VarOptItemsSketch[T]) downsampleCandidateSet(wtCands float64, numCands int) {
	if numCands < 2 {
		return
	}

	deleteSlot := s.chooseDeleteSlot(wtCands, numCands)

	leftmostCandSlot := s.h

	// Mark weights for items moving from M to R as -1
	stopIdx := leftmostCandSlot + s.m
	for j := leftmostCandSlot; j < stopIdx; j++ {
		s.weights[j] = -1.0
	}

	// This works even when deleteSlot == leftmostCandSlot
	s.data[deleteSlot] = s.data[leftmostCandSlot]
	if s.marks != nil {
		s.marks[deleteSlot] = s.marks[leftmostCandSlot]
		s.marks[leftmostCandSlot] = false
	}
	var zero T
	s.data[leftmostCandSlot] = zero

	s.m = 0
	s.r = numCands - 1
	s.totalWeightR = wtCands
}

// chooseDeleteSlot randomly selects which item to delete from candidates.
// Only called in estimation mode, so r > 0.
func (s *VarOptItemsSketch[T]) chooseDeleteSlot(wtCands float64, numCands int) int {
	switch s.m {
	case 0:
		// All candidates are in R, pick random slot
		return s.randomRIndex()
	case 1:
		// Check if we keep the item in M or pick one from R
		// p(keep) = (numCands - 1) * wtM / wtCands
		wtMCand := s.weights[s.h] // slot of item in M is h
		if wtCands*s.randFloat64NonZero() < float64(numCands-1)*wtMCand {
			return s.randomRIndex() // keep item in M
		}
		return s.h // delete item in M
	default:
		deleteSlot := s.chooseWeightedDeleteSlot(wtCands, numCands)
		firstRSlot := s.h + s.m
		if deleteSlot == firstRSlot {
			return s.randomRIndex()
		}
		return deleteSlot
	}
}

// chooseWeightedDeleteSlot implements weighted random selection.
func (s *VarOptItemsSketch[T]) chooseWeightedDeleteSlot(wtCands float64, numCands int) int {
	offset := s.h
	finalM := (offset + s.m) - 1
	numToKeep := numCands - 1

	leftSubtotal := 0.0
	rightSubtotal := -wtCands * s.randFloat64NonZero()

	for i := offset; i <= finalM; i++ {
		leftSubtotal += float64(numToKeep) * s.weights[i]
		rightSubtotal += wtCands

		if leftSubtotal < rightSubtotal {
			return i
		}
	}

	// Delete from R
	return finalM + 1
}

// randomRIndex returns a random index from the R region.
func (s *VarOptItemsSketch[T]) randomRIndex() int {
	offset := s.h + s.m
	if s.r == 1 {
		return offset
	}
	return offset + rand.Intn(s.r)
}

// randFloat64NonZero returns a random float64 in (0, 1).
func (s *VarOptItemsSketch[T]) randFloat64NonZero() float64 {
	for {
		r := rand.Float64()
		if r > 0 {
			return r
		}
	}
}

// heapify converts H region to a valid min-heap.
func (s *VarOptItemsSketch[T]) heapify() {
	if s.h < 2 {
		return
	}

	lastSlot := s.h - 1
	lastNonLeaf := ((lastSlot + 1) / 2) - 1

	for j := lastNonLeaf; j >= 0; j-- {
		s.siftDown(j)
	}
}

// siftDown restores heap property by moving element down.
func (s *VarOptItemsSketch[T]) siftDown(slotIn int) {
	lastSlot := s.h - 1
	slot := slotIn
	child := 2*slotIn + 1

	for child <= lastSlot {
		child2 := child + 1
		if child2 <= lastSlot && s.weights[child2] < s.weights[child] {
			child = child2
		}

		if s.weights[slot] <= s.weights[child] {
			break
		}

		s.swap(slot, child)
		slot = child
		child = 2*slot + 1
	}
}

// siftUp restores heap property by moving element up.
func (s *VarOptItemsSketch[T]) siftUp(slotIn int) {
	slot := slotIn
	p := ((slot + 1) / 2) - 1 // parent

	for slot > 0 && s.weights[slot] < s.weights[p] {
		s.swap(slot, p)
		slot = p
		p = ((slot + 1) / 2) - 1
	}
}

// swap exchanges items at two positions.
func (s *VarOptItemsSketch[T]) swap(i, j int) {
	s.data[i], s.data[j] = s.data[j], s.data[i]
	s.weights[i], s.weights[j] = s.weights[j], s.weights[i]
	if s.marks != nil {
		s.marks[i], s.marks[j] = s.marks[j], s.marks[i]
	}
}

// growDataArrays increases the capacity of the slot arrays by the resize factor.
func (s *VarOptItemsSketch[T]) growDataArrays() {
	prevSize := cap(s.data)
	newSize := adjustedSamplingAllocationSize(s.k, prevSize<<int(s.rf))
	if newSize == s.k {
		newSize++ // need space for the gap
	}
	if newSize <= prevSize {
		return
	}

	s.data = slices.Grow(s.data, newSize-len(s.data))
	s.weights = slices.Grow(s.weights, newSize-len(s.weights))
	if s.marks != nil {
		s.marks = slices.Grow(s.marks, newSize-len(s.marks))
	}
}

var errCannotDecreaseK = errors.New("cannot decrease k below 1")

// decreaseKBy1 shrinks the capacity of a gadget by one sample while keeping
// its contents a valid VarOpt sample of the same stream.
func (s *VarOptItemsSketch[T]) decreaseKBy1() error {
	if s.k <= 1 {
		return errCannotDecreaseK
	}

	switch {
	case s.h == 0 && s.r == 0:
		s.k--
	case s.h > 0 && s.r == 0:
		s.k--
		if s.h > s.k {
			s.transitionFromWarmup()
		}
	case s.h > 0 && s.r > 0:
		// Move the final R item into the gap so the array shrinks from the
		// right, then reinsert the last H item through the regular update path.
		oldGapIdx := s.h
		oldFinalRIdx := s.h + s.r
		s.swap(oldFinalRIdx, oldGapIdx)

		pulledIdx := s.h - 1
		pulledItem := s.data[pulledIdx]
		pulledWeight := s.weights[pulledIdx]
		pulledMark := s.isMarked(pulledIdx)
		if pulledMark {
			s.numMarksInH--
		}
		s.weights[pulledIdx] = -1.0

		s.h--
		s.k--
		s.n-- // update increments it again
		s.update(pulledItem, pulledWeight, pulledMark)
	default: // h == 0, r > 0
		rIdxToDelete := 1 + rand.Intn(s.r) // 1 skips the gap
		rightmostRIdx := s.r
		s.swap(rIdxToDelete, rightmostRIdx)
		s.weights[rightmostRIdx] = -1.0
		s.k--
		s.r--
	}
	return nil
}

// copyAndSetN returns a deep copy of the sketch. Marks are carried over only
// when asGadget is set. A nonnegative adjustedN replaces the copy's n.
func (s *VarOptItemsSketch[T]) copyAndSetN(asGadget bool, adjustedN int64) *VarOptItemsSketch[T] {
	c := &VarOptItemsSketch[T]{
		k:            s.k,
		n:            s.n,
		h:            s.h,
		m:            s.m,
		r:            s.r,
		totalWeightR: s.totalWeightR,
		data:         slices.Clone(s.data),
		weights:      slices.Clone(s.weights),
		rf:           s.rf,
	}
	if asGadget && s.marks != nil {
		c.marks = slices.Clone(s.marks)
		c.numMarksInH = s.numMarksInH
	}
	if adjustedN >= 0 {
		c.n = adjustedN
	}
	return c
}

func (s *VarOptItemsSketch[T]) forceSetK(k int) {
	s.k = k
}

func (s *VarOptItemsSketch[T]) stripMarks() {
	s.marks = nil
	s.numMarksInH = 0
}
