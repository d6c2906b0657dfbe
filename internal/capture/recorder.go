package capture

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"
)

// Recorder produces one fixed-duration chunk of audio samples per call.
// RecordChunk blocks for roughly the chunk duration.
type Recorder interface {
	RecordChunk(ctx context.Context, d time.Duration) ([]int16, error)
}

// PortAudioRecorder reads 16-bit samples from the default input device.
type PortAudioRecorder struct {
	sampleRate int
	channels   int

	mu     sync.Mutex
	stream *portaudio.Stream
	buf    []int16
}

// NewPortAudioRecorder initializes PortAudio and opens the default input
// stream. Close must be called to release the device.
func NewPortAudioRecorder(sampleRate, channels int) (*PortAudioRecorder, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init: %w", err)
	}

	buf := make([]int16, 1024*channels)
	stream, err := portaudio.OpenDefaultStream(channels, 0, float64(sampleRate), len(buf)/channels, buf)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("start input stream: %w", err)
	}

	return &PortAudioRecorder{
		sampleRate: sampleRate,
		channels:   channels,
		stream:     stream,
		buf:        buf,
	}, nil
}

// RecordChunk reads samples until d worth of audio has accumulated.
func (r *PortAudioRecorder) RecordChunk(ctx context.Context, d time.Duration) ([]int16, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stream == nil {
		return nil, fmt.Errorf("recorder closed")
	}

	want := int(float64(r.sampleRate)*d.Seconds()) * r.channels
	samples := make([]int16, 0, want)

	for len(samples) < want {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := r.stream.Read(); err != nil {
			return nil, fmt.Errorf("stream read: %w", err)
		}
		samples = append(samples, r.buf...)
	}

	return samples[:want], nil
}

// Close stops the stream and tears down PortAudio.
func (r *PortAudioRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stream == nil {
		return nil
	}
	_ = r.stream.Stop()
	err := r.stream.Close()
	r.stream = nil
	_ = portaudio.Terminate()
	return err
}

// EncodeWAV writes samples as a 16-bit PCM WAV stream, the format the
// transcription engine consumes.
func EncodeWAV(w io.WriteSeeker, samples []int16, sampleRate, channels int) error {
	enc := wav.NewEncoder(w, sampleRate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: channels,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, len(samples)),
		SourceBitDepth: 16,
	}
	for i, s := range samples {
		buf.Data[i] = int(s)
	}
	if err := enc.Write(buf); err != nil {
		_ = enc.Close()
		return fmt.Errorf("write wav: %w", err)
	}
	return enc.Close()
}
