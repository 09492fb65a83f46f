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

import "errors"

var (
	// ErrSeedHashMismatch is returned when sketches hashed with different seeds are combined.
	ErrSeedHashMismatch = errors.New("seed hash mismatch")
	// ErrInsufficientBuffer is returned when a destination buffer cannot hold a serialized result.
	ErrInsufficientBuffer = errors.New("insufficient destination buffer")
	// ErrUpdateEmptyString is returned when an empty string is offered to an update sketch.
	ErrUpdateEmptyString = errors.New("cannot update empty string")
	// ErrDuplicateKey is returned when an update hashes to an entry that is already retained.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrHashExceedsTheta is returned when an update hashes above the current theta.
	ErrHashExceedsTheta = errors.New("hash exceeds theta")
	// ErrZeroHashValue is returned for a zero hash, which marks empty slots in the hash table.
	ErrZeroHashValue = errors.New("zero hash value")

	errTableFull = errors.New("hash table has no empty slots")
)
