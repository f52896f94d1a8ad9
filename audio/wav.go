package audio

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
	"github.com/robmorgan/cadence/logger"
	"github.com/sirupsen/logrus"
)

const resampleQuality = 4

// Output plays a streamer. Lock and Unlock guard state read by the audio
// goroutine.
type Output interface {
	Play(s beep.Streamer)
	Lock()
	Unlock()
}

type speakerOutput struct{}

func (speakerOutput) Play(s beep.Streamer) { speaker.Play(s) }
func (speakerOutput) Lock()                { speaker.Lock() }
func (speakerOutput) Unlock()              { speaker.Unlock() }

// WAVTransport plays a backing track recorded at baseTempo. Tempo changes
// speed the track up or down by resampling, and positions are reported in
// timeline seconds at the current tempo.
type WAVTransport struct {
	mu        sync.Mutex
	out       Output
	stream    beep.StreamSeeker
	closer    io.Closer
	format    beep.Format
	ctrl      *beep.Ctrl
	resampler *beep.Resampler
	baseTempo float64
	tempo     float64
	started   bool
	log       *logrus.Entry
}

// OpenWAV decodes a WAV file and initializes the speaker at its sample rate.
func OpenWAV(path string, baseTempo float64) (*WAVTransport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	streamer, format, err := wav.Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
		streamer.Close()
		return nil, fmt.Errorf("initializing speaker: %w", err)
	}

	t := NewWAVTransport(streamer, format, baseTempo, speakerOutput{})
	t.closer = streamer
	t.log.WithFields(logrus.Fields{
		"path":        path,
		"sample_rate": format.SampleRate,
		"length":      format.SampleRate.D(streamer.Len()),
	}).Info("backing track loaded")
	return t, nil
}

// NewWAVTransport plays stream through out. The track starts paused.
func NewWAVTransport(stream beep.StreamSeeker, format beep.Format, baseTempo float64, out Output) *WAVTransport {
	if baseTempo <= 0 {
		baseTempo = 120
	}
	resampler := beep.ResampleRatio(resampleQuality, 1, stream)
	return &WAVTransport{
		out:       out,
		stream:    stream,
		format:    format,
		ctrl:      &beep.Ctrl{Streamer: resampler, Paused: true},
		resampler: resampler,
		baseTempo: baseTempo,
		tempo:     baseTempo,
		log:       logger.GetComponentLogger("audio").WithField("transport", "wav"),
	}
}

// Close releases the decoded file, if the transport opened one.
func (t *WAVTransport) Close() error {
	t.StopPlayback(context.Background())
	if t.closer != nil {
		return t.closer.Close()
	}
	return nil
}

func (t *WAVTransport) ratio() float64 {
	return t.tempo / t.baseTempo
}

// seekLocked moves the track to timeline time at. The caller holds t.mu and
// the output lock.
func (t *WAVTransport) seekLocked(at float64) error {
	if at < 0 {
		at = 0
	}
	media := time.Duration(at * t.ratio() * float64(time.Second))
	n := t.format.SampleRate.N(media)
	if n > t.stream.Len() {
		n = t.stream.Len()
	}
	return t.stream.Seek(n)
}

func (t *WAVTransport) StartPlayback(ctx context.Context, at float64) error {
	if err := ctx.Err(); err != nil {
		return wrap("start", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.out.Lock()
	err := t.seekLocked(at)
	if err == nil {
		t.ctrl.Paused = false
	}
	t.out.Unlock()
	if err != nil {
		return wrap("start", err)
	}

	if !t.started {
		t.out.Play(t.ctrl)
		t.started = true
	}
	return nil
}

func (t *WAVTransport) PausePlayback(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return wrap("pause", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.out.Lock()
	t.ctrl.Paused = true
	t.out.Unlock()
	return nil
}

func (t *WAVTransport) StopPlayback(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return wrap("stop", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.out.Lock()
	defer t.out.Unlock()
	t.ctrl.Paused = true
	return wrap("stop", t.stream.Seek(0))
}

func (t *WAVTransport) SeekTo(ctx context.Context, at float64) error {
	if err := ctx.Err(); err != nil {
		return wrap("seek", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.out.Lock()
	defer t.out.Unlock()
	return wrap("seek", t.seekLocked(at))
}

func (t *WAVTransport) SetTempo(ctx context.Context, bpm float64) error {
	if err := ctx.Err(); err != nil {
		return wrap("tempo", err)
	}
	if bpm <= 0 {
		return wrap("tempo", fmt.Errorf("tempo must be positive, got %v", bpm))
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.out.Lock()
	t.tempo = bpm
	t.resampler.SetRatio(t.ratio())
	t.out.Unlock()

	t.log.WithFields(logrus.Fields{"tempo": bpm, "ratio": t.ratio()}).Debug("playback rate changed")
	return nil
}

// SetTimeSignature is accepted and ignored; a recording has no meter.
func (t *WAVTransport) SetTimeSignature(ctx context.Context, _, _ int) error {
	return wrap("signature", ctx.Err())
}

// Position reports the playhead in timeline seconds. It is false until
// playback has started once.
func (t *WAVTransport) Position() (float64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.started {
		return 0, false
	}

	t.out.Lock()
	n := t.stream.Position()
	t.out.Unlock()

	media := t.format.SampleRate.D(n).Seconds()
	return media / t.ratio(), true
}
