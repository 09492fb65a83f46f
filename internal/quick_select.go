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

package internal

import "cmp"

// SelectKth partially reorders arr so that arr[k] holds the value it would
// hold if arr were sorted. Elements before k are <= arr[k] and elements after
// it are >= arr[k]. The reordered value at k is returned.
func SelectKth[T cmp.Ordered](arr []T, k int) T {
	lo, hi := 0, len(arr)-1
	for lo < hi {
		p := partition(arr, lo, hi)
		switch {
		case p == k:
			return arr[k]
		case p > k:
			hi = p - 1
		default:
			lo = p + 1
		}
	}
	return arr[k]
}

// partition places arr[lo] at its sorted position within [lo, hi] and returns
// that position.
func partition[T cmp.Ordered](arr []T, lo, hi int) int {
	pivot := arr[lo]
	i, j := lo, hi+1
	for {
		for i++; arr[i] < pivot; i++ {
			if i == hi {
				break
			}
		}
		for j--; pivot < arr[j]; j-- {
			if j == lo {
				break
			}
		}
		if i >= j {
			break
		}
		arr[i], arr[j] = arr[j], arr[i]
	}
	arr[lo], arr[j] = arr[j], arr[lo]
	return j
}
