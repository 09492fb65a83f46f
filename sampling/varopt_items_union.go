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
	"fmt"

	"go.uber.org/zap"

	"github.com/streamsketch/unions/internal"
)

// VarOptItemsUnion merges VarOpt and reservoir sketches into a single VarOpt
// sample of the combined stream.
//
// Items taken from an input's R region only have an estimated weight. The
// union stores them in a gadget sketch with a mark, and Result moves every
// marked item out of the H region before handing out a sketch.
type VarOptItemsUnion[T any] struct {
	maxK   int
	n      int64
	gadget *VarOptItemsSketch[T]

	// outer tau is the largest tau of any input in estimation mode, tracked
	// as a ratio so that equal taus can be pooled exactly.
	outerTauNumer float64
	outerTauDenom int64

	logger *zap.Logger
}

type varOptUnionConfig struct {
	logger *zap.Logger
}

type VarOptUnionOption func(*varOptUnionConfig)

// WithVarOptUnionLogger sets the logger for debug events such as outer tau
// changes and k-decreasing migrations. The union is silent by default.
func WithVarOptUnionLogger(logger *zap.Logger) VarOptUnionOption {
	return func(c *varOptUnionConfig) {
		c.logger = logger
	}
}

// NewVarOptItemsUnion creates an empty union whose result holds at most maxK samples.
func NewVarOptItemsUnion[T any](maxK int, opts ...VarOptUnionOption) (*VarOptItemsUnion[T], error) {
	cfg := &varOptUnionConfig{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	gadget, err := newVarOptItemsSketch[T](maxK, varOptDefaultResizeFactor, true)
	if err != nil {
		return nil, err
	}
	return &VarOptItemsUnion[T]{
		maxK:   maxK,
		gadget: gadget,
		logger: cfg.logger,
	}, nil
}

// MaxK returns the maximum sample size of the union's result.
func (u *VarOptItemsUnion[T]) MaxK() int { return u.maxK }

// N returns the total number of items seen by all merged sketches.
func (u *VarOptItemsUnion[T]) N() int64 { return u.n }

// OuterTau returns the largest tau among merged inputs in estimation mode, or
// 0 if every input so far was exact.
func (u *VarOptItemsUnion[T]) OuterTau() float64 {
	if u.outerTauDenom == 0 {
		return 0.0
	}
	return u.outerTauNumer / float64(u.outerTauDenom)
}

// Reset returns the union to its just-constructed state.
func (u *VarOptItemsUnion[T]) Reset() {
	u.gadget.Reset()
	u.gadget.k = u.maxK
	u.n = 0
	u.outerTauNumer = 0
	u.outerTauDenom = 0
}

// Update merges a VarOpt sketch into the union. Nil and empty sketches are ignored.
// The input is only read.
func (u *VarOptItemsUnion[T]) Update(sketch *VarOptItemsSketch[T]) {
	if sketch == nil || sketch.n == 0 {
		return
	}
	u.n += sketch.n

	for i := 0; i < sketch.h; i++ {
		u.gadget.update(sketch.data[i], sketch.weights[i], false)
	}
	for sample := range sketch.weightCorrectedR() {
		u.gadget.update(sample.Item, sample.Weight, true)
	}

	if sketch.r > 0 {
		u.resolveOuterTau(sketch.Tau(), sketch.totalWeightR, int64(sketch.r))
	}
}

// UpdateReservoir merges a reservoir sketch into the union. Nil and empty
// sketches are ignored.
func (u *VarOptItemsUnion[T]) UpdateReservoir(sketch *ReservoirItemsSketch[T]) {
	if sketch == nil || sketch.n == 0 {
		return
	}
	u.n += sketch.n

	if sketch.n <= int64(sketch.k) {
		for _, item := range sketch.data {
			u.gadget.update(item, 1.0, false)
		}
		return
	}

	reservoirTau := sketch.ImplicitSampleWeight()
	cumWeight := 0.0
	for i := 0; i < sketch.k-1; i++ {
		u.gadget.update(sketch.data[i], reservoirTau, true)
		cumWeight += reservoirTau
	}
	u.gadget.update(sketch.data[sketch.k-1], float64(sketch.n)-cumWeight, true)

	u.resolveOuterTau(reservoirTau, float64(sketch.n), int64(sketch.k))
}

// UpdateFromSlice decodes a serialized VarOpt sketch and merges it into the union.
func (u *VarOptItemsUnion[T]) UpdateFromSlice(data []byte, serde ItemsSerDe[T]) error {
	if len(data) > familyByte && data[familyByte] != internal.FamilyEnum.VarOptItems.IdByte() {
		return fmt.Errorf("%w: cannot merge family %d into a VarOpt union", ErrFamilyMismatch, data[familyByte])
	}
	sketch, err := NewVarOptItemsSketchFromSlice(data, serde)
	if err != nil {
		return err
	}
	u.Update(sketch)
	return nil
}

func (u *VarOptItemsUnion[T]) resolveOuterTau(inputTau, totalWeight float64, count int64) {
	outerTau := u.OuterTau()
	switch {
	case u.outerTauDenom == 0, inputTau > outerTau:
		u.outerTauNumer = totalWeight
		u.outerTauDenom = count
	case inputTau == outerTau:
		u.outerTauNumer += totalWeight
		u.outerTauDenom += count
	default:
		return
	}
	u.logger.Debug("outer tau changed",
		zap.Float64("previous", outerTau),
		zap.Float64("outerTau", u.OuterTau()),
		zap.Int64("denominator", u.outerTauDenom),
	)
}

// Result returns a VarOpt sketch summarizing everything merged so far. The
// result holds at most MaxK samples, and fewer when a merged input in
// estimation mode had a smaller k. The union is not modified.
func (u *VarOptItemsUnion[T]) Result() (*VarOptItemsSketch[T], error) {
	census := takeSlotCensus(u.gadget.weights, u.gadget.marks, u.gadget.h, u.OuterTau())
	if census.marked == 0 {
		return u.gadget.copyAndSetN(false, u.n), nil
	}
	if u.isPseudoExact(census) {
		return u.markMovingGadgetCoercer(), nil
	}
	return u.migrateMarkedItemsByDecreasingK()
}

// isPseudoExact reports whether the gadget is still exact but every marked
// slot corresponds to an R item of an input at the outer tau, and no unmarked
// item is lighter than that tau.
func (u *VarOptItemsUnion[T]) isPseudoExact(census slotCensus) bool {
	return u.gadget.r == 0 &&
		census.marked > 0 &&
		int64(census.marked) == u.outerTauDenom &&
		census.lighter == 0
}

// markMovingGadgetCoercer moves the marked items into the R region of a new
// full sketch. Unmarked items stay in H with their own weights.
func (u *VarOptItemsUnion[T]) markMovingGadgetCoercer() *VarOptItemsSketch[T] {
	g := u.gadget
	resultK := g.h + g.r
	data := make([]T, resultK+1)
	weights := make([]float64, resultK+1)

	resultH, resultR := 0, 0
	nextRPos := resultK // R is filled from the back
	for i := g.h + 1; i <= g.h+g.r; i++ {
		data[nextRPos] = g.data[i]
		weights[nextRPos] = -1.0
		resultR++
		nextRPos--
	}

	transferredWeight := 0.0
	for i := 0; i < g.h; i++ {
		if g.isMarked(i) {
			data[nextRPos] = g.data[i]
			weights[nextRPos] = -1.0
			transferredWeight += g.weights[i]
			resultR++
			nextRPos--
		} else {
			data[resultH] = g.data[i]
			weights[resultH] = g.weights[i]
			resultH++
		}
	}

	var zero T
	data[resultH] = zero
	weights[resultH] = -1.0

	result := &VarOptItemsSketch[T]{
		k:            resultK,
		n:            u.n,
		h:            resultH,
		r:            resultR,
		totalWeightR: g.totalWeightR + transferredWeight,
		data:         data,
		weights:      weights,
		rf:           g.rf,
	}
	result.heapify()

	u.logger.Debug("moved marked items into R",
		zap.Int("k", resultK),
		zap.Int("h", resultH),
		zap.Int("r", resultR),
	)
	return result
}

// migrateMarkedItemsByDecreasingK works on a copy of the gadget, lowering k
// one step at a time until no marked item is left in H.
func (u *VarOptItemsUnion[T]) migrateMarkedItemsByDecreasingK() (*VarOptItemsSketch[T], error) {
	gcopy := u.gadget.copyAndSetN(true, u.n)

	// a pseudo-exact copy that is not full gets k = h so that decreasing k raises tau
	if gcopy.r == 0 && gcopy.h < gcopy.k {
		gcopy.forceSetK(gcopy.h)
	}
	fromK := gcopy.k

	if err := gcopy.decreaseKBy1(); err != nil {
		return nil, fmt.Errorf("migrating marked items: %w", err)
	}
	for gcopy.numMarksInH > 0 {
		if err := gcopy.decreaseKBy1(); err != nil {
			return nil, fmt.Errorf("migrating marked items: %w", err)
		}
	}
	gcopy.stripMarks()

	u.logger.Debug("decreased k to absorb marked items",
		zap.Int("fromK", fromK),
		zap.Int("toK", gcopy.k),
	)
	return gcopy, nil
}
