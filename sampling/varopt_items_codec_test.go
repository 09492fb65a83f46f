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
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

func TestVarOptItemsSketch_RoundTripEmpty(t *testing.T) {
	sketch, _ := NewVarOptItemsSketch[int64](16, WithResizeFactor(ResizeX2))
	data, err := sketch.ToSlice(Int64SerDe{})
	if err != nil {
		t.Fatalf("serialize failed: %v", err)
	}
	if len(data) != 8 {
		t.Fatalf("expected 8 bytes, got %d", len(data))
	}
	if data[0] != 0x40|varOptPreambleLongsEmpty {
		t.Fatalf("unexpected preamble byte: %#x", data[0])
	}

	restored, err := NewVarOptItemsSketchFromSlice(data, Int64SerDe{})
	if err != nil {
		t.Fatalf("deserialize failed: %v", err)
	}
	if !restored.IsEmpty() || restored.K() != 16 || restored.ResizeFactor() != ResizeX2 {
		t.Fatalf("unexpected restored sketch: k=%d n=%d rf=%d", restored.K(), restored.N(), restored.ResizeFactor())
	}
}

func TestVarOptItemsSketch_RoundTripWarmup(t *testing.T) {
	sketch, _ := NewVarOptItemsSketch[int64](16)
	for i := int64(1); i <= 5; i++ {
		if err := sketch.Update(i, float64(i)); err != nil {
			t.Fatalf("update failed: %v", err)
		}
	}

	buf := &bytes.Buffer{}
	enc := NewVarOptItemsSketchEncoder[int64](buf, Int64SerDe{})
	if err := enc.Encode(sketch); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if buf.Bytes()[0]&preambleLongsMask != varOptPreambleLongsWarmup {
		t.Fatalf("expected warmup preamble, got %d", buf.Bytes()[0]&preambleLongsMask)
	}

	dec := NewVarOptItemsSketchDecoder[int64](bytes.NewReader(buf.Bytes()), Int64SerDe{})
	restored, err := dec.Decode()
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if restored.K() != sketch.K() || restored.N() != sketch.N() {
		t.Fatalf("metadata mismatch: k=%d/%d n=%d/%d", restored.K(), sketch.K(), restored.N(), sketch.N())
	}
	if restored.H() != sketch.H() || restored.R() != sketch.R() {
		t.Fatalf("region mismatch: h=%d/%d r=%d/%d", restored.H(), sketch.H(), restored.R(), sketch.R())
	}
	if sum := sumWeights(restored); math.Abs(sum-15.0) > 1e-12 {
		t.Fatalf("unexpected total weight: %f", sum)
	}

	buf2 := &bytes.Buffer{}
	if err := NewVarOptItemsSketchEncoder[int64](buf2, Int64SerDe{}).Encode(restored); err != nil {
		t.Fatalf("encode after restore failed: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), buf2.Bytes()) {
		t.Fatalf("round-trip bytes mismatch")
	}

	// the restored sketch keeps accepting items past k
	for i := int64(6); i <= 40; i++ {
		if err := restored.Update(i, 1.0); err != nil {
			t.Fatalf("update after restore failed: %v", err)
		}
	}
	if restored.NumSamples() != 16 {
		t.Fatalf("expected 16 samples, got %d", restored.NumSamples())
	}
}

func TestVarOptItemsSketch_RoundTripSampling(t *testing.T) {
	sketch, _ := NewVarOptItemsSketch[int64](32)
	for i := int64(0); i < 100; i++ {
		if err := sketch.Update(i, 1.0); err != nil {
			t.Fatalf("update failed: %v", err)
		}
	}
	if err := sketch.Update(-1, 500.0); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	data, err := sketch.ToSlice(Int64SerDe{})
	if err != nil {
		t.Fatalf("serialize failed: %v", err)
	}
	restored, err := NewVarOptItemsSketchFromSlice(data, Int64SerDe{})
	if err != nil {
		t.Fatalf("deserialize failed: %v", err)
	}

	if restored.K() != sketch.K() || restored.N() != sketch.N() {
		t.Fatalf("metadata mismatch: k=%d/%d n=%d/%d", restored.K(), sketch.K(), restored.N(), sketch.N())
	}
	if restored.H() != 1 || restored.R() != 31 {
		t.Fatalf("region mismatch: h=%d r=%d", restored.H(), restored.R())
	}
	if restored.TotalWeightR() != sketch.TotalWeightR() {
		t.Fatalf("R weight mismatch: %f/%f", restored.TotalWeightR(), sketch.TotalWeightR())
	}
	if sum := sumWeights(restored); math.Abs(sum-600.0) > 1e-9 {
		t.Fatalf("unexpected total weight: %f", sum)
	}

	again, err := restored.ToSlice(Int64SerDe{})
	if err != nil {
		t.Fatalf("serialize after restore failed: %v", err)
	}
	if !bytes.Equal(data, again) {
		t.Fatalf("round-trip bytes mismatch")
	}

	for i := int64(100); i < 200; i++ {
		if err := restored.Update(i, 1.0); err != nil {
			t.Fatalf("update after restore failed: %v", err)
		}
	}
	if sum := sumWeights(restored); math.Abs(sum-700.0) > 1e-9 {
		t.Fatalf("unexpected total weight after more updates: %f", sum)
	}
}

func TestVarOptItemsSketch_GadgetMarksRoundTrip(t *testing.T) {
	g := newGadget(t, 16)
	for i := int64(0); i < 11; i++ {
		g.update(i, float64(i+1), (i&0x1) == 0)
	}

	data, err := g.ToSlice(Int64SerDe{})
	if err != nil {
		t.Fatalf("serialize failed: %v", err)
	}
	if (data[flagsByte] & varOptFlagGadget) == 0 {
		t.Fatalf("expected gadget flag to be set")
	}

	restored, err := NewVarOptItemsSketchFromSlice(data, Int64SerDe{})
	if err != nil {
		t.Fatalf("deserialize failed: %v", err)
	}
	if restored.marks == nil {
		t.Fatalf("expected marks to be allocated")
	}
	if restored.numMarksInH != g.numMarksInH {
		t.Fatalf("mark count mismatch: %d/%d", restored.numMarksInH, g.numMarksInH)
	}
	for i := 0; i < restored.h; i++ {
		if restored.marks[i] != g.marks[i] {
			t.Fatalf("mark mismatch at %d: got %v want %v", i, restored.marks[i], g.marks[i])
		}
	}

	again, err := restored.ToSlice(Int64SerDe{})
	if err != nil {
		t.Fatalf("serialize after restore failed: %v", err)
	}
	if !bytes.Equal(data, again) {
		t.Fatalf("round-trip bytes mismatch")
	}
}

func TestVarOptItemsSketch_DecodeErrors(t *testing.T) {
	sketch, _ := NewVarOptItemsSketch[int64](8)
	for i := int64(0); i < 20; i++ {
		_ = sketch.Update(i, 1.0)
	}
	valid, err := sketch.ToSlice(Int64SerDe{})
	if err != nil {
		t.Fatalf("serialize failed: %v", err)
	}

	corrupt := func(f func([]byte)) []byte {
		data := bytes.Clone(valid)
		f(data)
		return data
	}

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"too short", valid[:6], ErrMalformedData},
		{"wrong version", corrupt(func(b []byte) { b[serialVersionByte] = 1 }), ErrSerialVersion},
		{"wrong family", corrupt(func(b []byte) { b[familyByte] = 11 }), ErrFamilyMismatch},
		{"bad preamble", corrupt(func(b []byte) { b[preambleLongsByte] = 2 }), ErrMalformedData},
		{"zero k", corrupt(func(b []byte) { binary.LittleEndian.PutUint32(b[kInt:], 0) }), ErrInvalidK},
		{"n below sample count", corrupt(func(b []byte) { binary.LittleEndian.PutUint64(b[nLong:], 3) }), ErrMalformedData},
		{"samples do not fill k", corrupt(func(b []byte) { binary.LittleEndian.PutUint32(b[rCountInt:], 5) }), ErrMalformedData},
		{"truncated items", valid[:len(valid)-8], ErrMalformedData},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewVarOptItemsSketchFromSlice(tc.data, Int64SerDe{})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestVarOptItemsSketch_EncoderErrors(t *testing.T) {
	sketch, _ := NewVarOptItemsSketch[int64](8)
	_ = sketch.Update(1, 1.0)

	if err := NewVarOptItemsSketchEncoder[int64](nil, Int64SerDe{}).Encode(sketch); err == nil {
		t.Fatalf("expected error for nil writer")
	}
	if _, err := NewVarOptItemsSketchDecoder[int64](nil, Int64SerDe{}).Decode(); err == nil {
		t.Fatalf("expected error for nil reader")
	}
	if err := NewVarOptItemsSketchEncoder[int64](&bytes.Buffer{}, failingSerDe{}).Encode(sketch); !errors.Is(err, errSerDeFailure) {
		t.Fatalf("expected serde failure, got %v", err)
	}
}
