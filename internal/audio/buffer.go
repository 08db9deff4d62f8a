package audio

import "math"

// Buffer is a read-only view of decoded audio addressed in milliseconds.
type Buffer interface {
	// Len returns the length of the audio in whole milliseconds.
	Len() int
	// RMS returns the root-mean-square amplitude of [startMs, endMs).
	// The result is exactly 0 when every sample in the range is zero.
	RMS(startMs, endMs int) float64
}

var _ Buffer = (*PCMBuffer)(nil)

// PCMBuffer holds per-millisecond prefix sums of decoded PCM samples,
// which makes every RMS query O(1) regardless of the range width.
//
// Millisecond i covers frames [floor(i*rate/1000), floor((i+1)*rate/1000)).
// A trailing partial millisecond is dropped.
type PCMBuffer struct {
	sampleRate int
	channels   int
	lengthMs   int

	// energy[i] is the sum of squared normalized samples before ms i.
	energy []float64
	// loud[i] is the count of non-zero samples before ms i.
	loud []uint64
}

// SampleRate returns the frame rate of the decoded audio.
func (b *PCMBuffer) SampleRate() int { return b.sampleRate }

// Channels returns the number of interleaved channels.
func (b *PCMBuffer) Channels() int { return b.channels }

// Len returns the length in whole milliseconds.
func (b *PCMBuffer) Len() int { return b.lengthMs }

// RMS returns the RMS amplitude of [startMs, endMs), clamped to the buffer.
// An empty range yields 0.
func (b *PCMBuffer) RMS(startMs, endMs int) float64 {
	startMs = max(startMs, 0)
	endMs = min(endMs, b.lengthMs)
	if endMs <= startMs {
		return 0
	}
	if b.loud[endMs] == b.loud[startMs] {
		return 0
	}

	frames := b.frameAt(endMs) - b.frameAt(startMs)
	n := float64(frames * int64(b.channels))
	sum := b.energy[endMs] - b.energy[startMs]
	if sum <= 0 {
		// Float cancellation on a long prefix; the range is not silent.
		return math.SmallestNonzeroFloat64
	}
	return math.Sqrt(sum / n)
}

func (b *PCMBuffer) frameAt(ms int) int64 {
	return int64(ms) * int64(b.sampleRate) / 1000
}

// PCMBuilder accumulates interleaved integer samples into a PCMBuffer.
type PCMBuilder struct {
	sampleRate int
	channels   int
	scale      float64

	frames   int64
	channel  int
	boundary int64

	curEnergy float64
	curLoud   uint64
	energy    []float64
	loud      []uint64
}

// NewPCMBuilder returns a builder for samples of the given bit depth.
// Samples are normalized to [-1, 1) by 2^(bitDepth-1).
func NewPCMBuilder(sampleRate, channels, bitDepth int) *PCMBuilder {
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	if channels <= 0 {
		channels = 1
	}
	if bitDepth <= 0 {
		bitDepth = 16
	}
	b := &PCMBuilder{
		sampleRate: sampleRate,
		channels:   channels,
		scale:      1 / math.Exp2(float64(bitDepth-1)),
		energy:     []float64{0},
		loud:       []uint64{0},
	}
	b.boundary = b.frameBoundary(1)
	return b
}

func (b *PCMBuilder) frameBoundary(ms int) int64 {
	return int64(ms) * int64(b.sampleRate) / 1000
}

// Write appends interleaved samples.
func (b *PCMBuilder) Write(samples []int) {
	for _, s := range samples {
		if s != 0 {
			v := float64(s) * b.scale
			b.curEnergy += v * v
			b.curLoud++
		}
		b.channel++
		if b.channel < b.channels {
			continue
		}
		b.channel = 0
		b.frames++
		for b.frames >= b.boundary {
			b.closeMillisecond()
		}
	}
}

func (b *PCMBuilder) closeMillisecond() {
	last := len(b.energy) - 1
	b.energy = append(b.energy, b.energy[last]+b.curEnergy)
	b.loud = append(b.loud, b.loud[last]+b.curLoud)
	b.curEnergy = 0
	b.curLoud = 0
	b.boundary = b.frameBoundary(len(b.energy))
}

// LengthMs returns the number of complete milliseconds written so far.
func (b *PCMBuilder) LengthMs() int { return len(b.energy) - 1 }

// Build returns the accumulated buffer. The builder must not be reused.
func (b *PCMBuilder) Build() *PCMBuffer {
	return &PCMBuffer{
		sampleRate: b.sampleRate,
		channels:   b.channels,
		lengthMs:   len(b.energy) - 1,
		energy:     b.energy,
		loud:       b.loud,
	}
}

// NewPCMBuffer builds a buffer from interleaved samples in one call.
func NewPCMBuffer(sampleRate, channels, bitDepth int, samples []int) *PCMBuffer {
	b := NewPCMBuilder(sampleRate, channels, bitDepth)
	b.Write(samples)
	return b.Build()
}
