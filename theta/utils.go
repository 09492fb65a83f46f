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
	"fmt"
	"strings"
)

func checkEqual[T comparable](actual, expected T, description string) error {
	if actual != expected {
		return fmt.Errorf("%s mismatch: expected %v, actual %v", description, expected, actual)
	}
	return nil
}

// CheckSerialVersionEqual checks serial version
func CheckSerialVersionEqual(actual, expected uint8) error {
	return checkEqual(actual, expected, "serial version")
}

// CheckSketchFamilyEqual checks sketch family
func CheckSketchFamilyEqual(actual, expected uint8) error {
	return checkEqual(actual, expected, "sketch family")
}

// CheckSeedHashEqual checks seed hash
func CheckSeedHashEqual(actual, expected uint16) error {
	if actual != expected {
		return fmt.Errorf("%w: expected %d, actual %d", ErrSeedHashMismatch, expected, actual)
	}
	return nil
}

func checkLgK(lgK uint8) error {
	if lgK < MinLgK {
		return fmt.Errorf("lg_k must not be less than %d: %d", MinLgK, lgK)
	}
	if lgK > MaxLgK {
		return fmt.Errorf("lg_k must not be greater than %d: %d", MaxLgK, lgK)
	}
	return nil
}

func validateMemorySize(bytes []byte, expectedBytes int) error {
	if actual := len(bytes); actual < expectedBytes {
		return fmt.Errorf("at least %d bytes expected, actual %d", expectedBytes, actual)
	}
	return nil
}

// startingThetaFromP returns the starting theta value from probability p.
// Multiplication is skipped for p == 1 since it might not yield MaxTheta exactly.
func startingThetaFromP(p float32) uint64 {
	if p < 1 {
		return uint64(float64(MaxTheta) * float64(p))
	}
	return MaxTheta
}

// startingSubMultiple returns the lg size a hash table starts with so that
// repeated resizing by lgRf lands exactly on lgTgt.
func startingSubMultiple(lgTgt, lgMin, lgRf uint8) uint8 {
	if lgTgt <= lgMin {
		return lgMin
	}
	if lgRf == 0 {
		return lgTgt
	}
	return ((lgTgt - lgMin) % lgRf) + lgMin
}

func writeSummary(sb *strings.Builder, s Sketch) {
	seedHash, _ := s.SeedHash()
	sb.WriteString("### Theta sketch summary:\n")
	fmt.Fprintf(sb, "   num retained entries : %d\n", s.NumRetained())
	fmt.Fprintf(sb, "   seed hash            : %d\n", seedHash)
	fmt.Fprintf(sb, "   empty?               : %t\n", s.IsEmpty())
	fmt.Fprintf(sb, "   ordered?             : %t\n", s.IsOrdered())
	fmt.Fprintf(sb, "   estimation mode?     : %t\n", s.IsEstimationMode())
	fmt.Fprintf(sb, "   theta (fraction)     : %f\n", s.Theta())
	fmt.Fprintf(sb, "   theta (raw 64-bit)   : %d\n", s.Theta64())
	fmt.Fprintf(sb, "   estimate             : %f\n", s.Estimate())
}

func writeEntries(sb *strings.Builder, s Sketch) {
	sb.WriteString("### Retained entries\n")
	for entry := range s.All() {
		fmt.Fprintf(sb, "%d\n", entry)
	}
	sb.WriteString("### End retained entries\n")
}
