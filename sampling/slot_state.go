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

// slotState describes how far the union trusts the weight held by a gadget slot.
type slotState uint8

const (
	// slotUnmarked holds an item inserted with its true weight.
	slotUnmarked slotState = iota
	// slotMarked holds an item copied out of an input's R region. Its weight is
	// only an estimate bounded by that input's tau.
	slotMarked
	// slotPromoted holds an unmarked item at least as heavy as the outer tau.
	slotPromoted
)

func (s slotState) String() string {
	switch s {
	case slotUnmarked:
		return "unmarked"
	case slotMarked:
		return "marked"
	case slotPromoted:
		return "promoted"
	default:
		return "unknown"
	}
}

// classifySlot places an H-region slot of the gadget relative to outerTau.
// Weights equal to outerTau are promoted.
func classifySlot(weight float64, marked bool, outerTau float64) slotState {
	if marked {
		return slotMarked
	}
	if weight >= outerTau {
		return slotPromoted
	}
	return slotUnmarked
}

// slotCensus counts the states of the H region of a gadget.
type slotCensus struct {
	marked   int
	promoted int
	lighter  int
}

func takeSlotCensus(weights []float64, marks []bool, h int, outerTau float64) slotCensus {
	var c slotCensus
	for i := 0; i < h; i++ {
		marked := marks != nil && marks[i]
		switch classifySlot(weights[i], marked, outerTau) {
		case slotMarked:
			c.marked++
		case slotPromoted:
			c.promoted++
		case slotUnmarked:
			c.lighter++
		}
	}
	return c
}
