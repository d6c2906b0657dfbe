package capture

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
)

func TestEncodeWAVRoundTrip(t *testing.T) {
	samples := []int16{0, 1000, -1000, 32767, -32768, 42}

	path := filepath.Join(t.TempDir(), "chunk.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := EncodeWAV(f, samples, 16000, 1); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	rf, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer rf.Close()

	dec := wav.NewDecoder(rf)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if dec.SampleRate != 16000 {
		t.Errorf("sample rate = %d, want 16000", dec.SampleRate)
	}
	if dec.NumChans != 1 {
		t.Errorf("channels = %d, want 1", dec.NumChans)
	}
	if len(buf.Data) != len(samples) {
		t.Fatalf("decoded %d samples, want %d", len(buf.Data), len(samples))
	}
	for i, s := range samples {
		if buf.Data[i] != int(s) {
			t.Errorf("sample %d = %d, want %d", i, buf.Data[i], s)
		}
	}
}
