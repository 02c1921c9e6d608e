package audio

import (
	"context"
	"math"
	"time"

	"github.com/gordonklaus/portaudio"
)

const (
	SampleRate = 16000
	frameSize  = 320 // 20ms
)

type RecorderOptions struct {
	SilenceRMS float64       // frames below this count as silence
	Trailing   time.Duration // silence after speech that ends a take
	MaxLength  time.Duration
}

func DefaultRecorderOptions() RecorderOptions {
	return RecorderOptions{
		SilenceRMS: 0.015,
		Trailing:   600 * time.Millisecond,
		MaxLength:  10 * time.Second,
	}
}

// Recorder captures one spoken command from the default input device.
type Recorder struct {
	opt RecorderOptions
}

func NewRecorder(opt RecorderOptions) *Recorder {
	return &Recorder{opt: opt}
}

func (r *Recorder) Init() error {
	return portaudio.Initialize()
}

func (r *Recorder) Close() {
	portaudio.Terminate()
}

// Record waits for speech and returns mono 16 kHz samples once the
// speaker goes quiet, the maximum length passes or ctx is done.
func (r *Recorder) Record(ctx context.Context) ([]float32, error) {
	buf := make([]float32, frameSize)

	stream, err := portaudio.OpenDefaultStream(1, 0, SampleRate, len(buf), buf)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, err
	}
	defer stream.Stop()

	seg := newSegmenter(r.opt)
	for !seg.done() {
		select {
		case <-ctx.Done():
			return seg.out, ctx.Err()
		default:
		}

		if err := stream.Read(); err != nil {
			return nil, err
		}
		seg.push(buf)
	}
	return seg.out, nil
}

// segmenter keeps frames from the first loud one until enough trailing
// silence.
type segmenter struct {
	threshold     float64
	trailing      int
	maxFrames     int
	frames        int
	speaking      bool
	silenceFrames int
	out           []float32
}

func newSegmenter(opt RecorderOptions) *segmenter {
	frame := time.Second * frameSize / SampleRate
	return &segmenter{
		threshold: opt.SilenceRMS,
		trailing:  int(opt.Trailing / frame),
		maxFrames: int(opt.MaxLength / frame),
		out:       make([]float32, 0, SampleRate*3),
	}
}

func (s *segmenter) push(frame []float32) {
	s.frames++

	if frameRMS(frame) > s.threshold {
		s.speaking = true
		s.silenceFrames = 0
		s.out = append(s.out, frame...)
		return
	}
	if s.speaking {
		s.silenceFrames++
		s.out = append(s.out, frame...)
	}
}

func (s *segmenter) done() bool {
	if s.frames >= s.maxFrames {
		return true
	}
	return s.speaking && s.silenceFrames >= s.trailing
}

func frameRMS(f []float32) float64 {
	if len(f) == 0 {
		return 0
	}
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}
