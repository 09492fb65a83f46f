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

const minLgArrItems = 3

func startingSubMultiple(lgTarget, lgRf, lgMin int) int {
	if lgTarget <= lgMin {
		return lgMin
	}
	if lgRf == 0 {
		return lgTarget
	}
	return (lgTarget-lgMin)%lgRf + lgMin
}

// adjustedSamplingAllocationSize checks target sampling allocation is more than
// 50% of max sampling size. If so, return max sampling size, otherwise passes
// through the target size.
func adjustedSamplingAllocationSize(
	maxSize, resizeTarget int,
) int {
	if maxSize-(resizeTarget<<1) < 0 {
		return maxSize
	}
	return resizeTarget
}

// initialAllocationSize returns the slot capacity reserved for a new sketch of
// size k, leaving room for the gap slot once the sketch is full.
func initialAllocationSize(k int, rf ResizeFactor) int {
	ceilingLgK := 0
	for (1 << ceilingLgK) < k {
		ceilingLgK++
	}
	lgSize := startingSubMultiple(ceilingLgK, int(rf), minLgArrItems)
	size := adjustedSamplingAllocationSize(k, 1<<lgSize)
	if size == k {
		size++
	}
	return size
}

// SampleSubsetSummary captures the result of a subset sum query on a sampling sketch.
type SampleSubsetSummary struct {
	Estimate          float64
	TotalSketchWeight float64
}
