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

import "fmt"

const (
	varOptPreambleLongsEmpty  = 1
	varOptPreambleLongsWarmup = 3
	varOptPreambleLongsFull   = 4
	varOptSerVer              = 2
	varOptFlagEmpty           = 0x04
	varOptFlagGadget          = 0x80

	varOptUnionPreambleLongsEmpty = 1
	varOptUnionPreambleLongsFull  = 4
	varOptUnionSerVer             = 2

	preambleLongsByte = 0
	serialVersionByte = 1
	familyByte        = 2
	flagsByte         = 3
	kInt              = 4
	nLong             = 8
	hCountInt         = 16
	rCountInt         = 20
	totalWeightRDbl   = 24
	outerTauNumDbl    = 16
	outerTauDenomLong = 24

	preambleLongsMask = 0x3F
	resizeFactorShift = 6
)

func encodeVarOptResizeFactor(rf ResizeFactor) (byte, error) {
	switch rf {
	case ResizeX1, ResizeX2, ResizeX4, ResizeX8:
		return byte(rf) << resizeFactorShift, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrInvalidResize, rf)
	}
}

func decodeVarOptResizeFactor(preambleByte byte) ResizeFactor {
	return ResizeFactor(preambleByte >> resizeFactorShift)
}

func extractPreambleLongs(data []byte) int {
	return int(data[preambleLongsByte] & preambleLongsMask)
}
