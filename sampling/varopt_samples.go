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

// VarOptSamples holds the retained items of a VarOpt sketch with their
// adjusted weights. Items and Weights are index-aligned.
type VarOptSamples[T any] struct {
	Items   []T
	Weights []float64
}

// Len returns the number of samples.
func (v VarOptSamples[T]) Len() int { return len(v.Items) }

// Samples returns a copy of the retained items, H region first. R region items
// carry weight tau.
func (s *VarOptItemsSketch[T]) Samples() VarOptSamples[T] {
	out := VarOptSamples[T]{
		Items:   make([]T, 0, s.NumSamples()),
		Weights: make([]float64, 0, s.NumSamples()),
	}
	for sample := range s.All() {
		out.Items = append(out.Items, sample.Item)
		out.Weights = append(out.Weights, sample.Weight)
	}
	return out
}

// EstimateSubsetSum estimates the total weight of the stream items matching
// predicate.
func (s *VarOptItemsSketch[T]) EstimateSubsetSum(predicate func(T) bool) SampleSubsetSummary {
	if s.n == 0 {
		return SampleSubsetSummary{}
	}

	totalWtH := 0.0
	hTrueWeight := 0.0
	for i := 0; i < s.h; i++ {
		totalWtH += s.weights[i]
		if predicate(s.data[i]) {
			hTrueWeight += s.weights[i]
		}
	}

	if s.r == 0 {
		return SampleSubsetSummary{
			Estimate:          hTrueWeight,
			TotalSketchWeight: totalWtH,
		}
	}

	rTrueCount := 0
	for i := s.h + 1; i <= s.h+s.r; i++ {
		if predicate(s.data[i]) {
			rTrueCount++
		}
	}

	return SampleSubsetSummary{
		Estimate:          hTrueWeight + s.Tau()*float64(rTrueCount),
		TotalSketchWeight: totalWtH + s.totalWeightR,
	}
}
