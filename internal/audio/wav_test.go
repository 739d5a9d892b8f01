/*
Copyright (c) 2025 Bobby Labs

Licensed under the AGPLv3 License.
This file is part of bobby-relay.
*/

package audio

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func sineSamples(n int, freq float64, rate int) []float32 {
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return samples
}

func TestWriteWAV_Header(t *testing.T) {
	samples := sineSamples(160, 440, 16000)
	data := WriteWAV(samples, 16000)

	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Fatal("missing RIFF/WAVE markers")
	}
	if got := binary.LittleEndian.Uint16(data[22:24]); got != 1 {
		t.Errorf("channel count = %d, want mono", got)
	}
	if got := binary.LittleEndian.Uint32(data[24:28]); got != 16000 {
		t.Errorf("sample rate = %d, want 16000", got)
	}
	if got := binary.LittleEndian.Uint16(data[34:36]); got != 16 {
		t.Errorf("bit depth = %d, want 16", got)
	}
	if got := binary.LittleEndian.Uint32(data[40:44]); got != uint32(len(samples)*2) {
		t.Errorf("data chunk length = %d, want %d", got, len(samples)*2)
	}
	if len(data) != 44+len(samples)*2 {
		t.Errorf("total length = %d, want %d", len(data), 44+len(samples)*2)
	}
}

func TestWriteWAV_ClampsOutOfRangeSamples(t *testing.T) {
	data := WriteWAV([]float32{2.0, -2.0}, 16000)

	first := int16(binary.LittleEndian.Uint16(data[44:46]))
	second := int16(binary.LittleEndian.Uint16(data[46:48]))
	if first != 32767 {
		t.Errorf("clipped positive sample = %d, want 32767", first)
	}
	if second != -32767 {
		t.Errorf("clipped negative sample = %d, want -32767", second)
	}
}

func TestEncodeAndReadWAV_RoundTrip(t *testing.T) {
	want := sineSamples(1600, 440, 16000)
	path := filepath.Join(t.TempDir(), "roundtrip.wav")

	if err := EncodeWAVFile(path, want, 16000); err != nil {
		t.Fatalf("EncodeWAVFile() error = %v", err)
	}

	got, rate, err := ReadWAV(path)
	if err != nil {
		t.Fatalf("ReadWAV() error = %v", err)
	}
	if rate != 16000 {
		t.Errorf("ReadWAV() rate = %d, want 16000", rate)
	}
	if len(got) != len(want) {
		t.Fatalf("ReadWAV() returned %d samples, want %d", len(got), len(want))
	}

	// 16-bit quantization bounds the round-trip error.
	for i := range want {
		if diff := math.Abs(float64(got[i] - want[i])); diff > 1.0/16384 {
			t.Fatalf("sample %d differs by %v after round trip", i, diff)
		}
	}
}

func TestReadWAV_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.wav")
	if err := os.WriteFile(path, bytes.Repeat([]byte{0xAB}, 64), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, _, err := ReadWAV(path); err == nil {
		t.Error("ReadWAV() expected error for non-WAV content")
	}
}

func TestReadWAV_MissingFile(t *testing.T) {
	if _, _, err := ReadWAV(filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Error("ReadWAV() expected error for missing file")
	}
}
