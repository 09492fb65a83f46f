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

// Family identifies a serialized sketch or set operation by the id stored
// in byte 2 of every preamble.
type Family struct {
	Id   int
	Name string
}

type families struct {
	Compact     Family
	Union       Family
	VarOptItems Family
	VarOptUnion Family
}

// FamilyEnum lists the families this module reads and writes.
// Ids match the other DataSketches implementations.
var FamilyEnum = &families{
	Compact:     Family{Id: 3, Name: "COMPACT"},
	Union:       Family{Id: 4, Name: "UNION"},
	VarOptItems: Family{Id: 13, Name: "VAROPT"},
	VarOptUnion: Family{Id: 14, Name: "VAROPT_UNION"},
}

func (f Family) String() string {
	return f.Name
}

// IdByte returns the family id as stored in a preamble.
func (f Family) IdByte() byte {
	return byte(f.Id)
}
