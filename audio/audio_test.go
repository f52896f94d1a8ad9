package audio

import (
	"context"
	"errors"
	"testing"

	"github.com/faiface/beep"
	"github.com/hypebeast/go-osc/osc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	messages []*osc.Message
	err      error
}

func (s *recordingSender) Send(p osc.Packet) error {
	if s.err != nil {
		return s.err
	}
	s.messages = append(s.messages, p.(*osc.Message))
	return nil
}

func TestNullTransport(t *testing.T) {
	t.Parallel()

	var tr Transport = Null{}
	ctx := context.Background()
	require.NoError(t, tr.StartPlayback(ctx, 1))
	require.NoError(t, tr.SeekTo(ctx, 2))
	require.NoError(t, tr.StopPlayback(ctx))
}

func TestTransportError(t *testing.T) {
	t.Parallel()

	cause := errors.New("unreachable")
	err := wrap("start", cause)

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "start", terr.Op)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "audio transport start: unreachable", err.Error())
	assert.NoError(t, wrap("start", nil))
}

func TestOSCTransportMessages(t *testing.T) {
	t.Parallel()

	s := &recordingSender{}
	tr := newOSCTransport(s)
	ctx := context.Background()

	require.NoError(t, tr.StartPlayback(ctx, 1.5))
	require.NoError(t, tr.SetTempo(ctx, 90))
	require.NoError(t, tr.SetTimeSignature(ctx, 3, 4))
	require.NoError(t, tr.PausePlayback(ctx))

	require.Len(t, s.messages, 4)
	assert.Equal(t, AddrPlay, s.messages[0].Address)
	assert.Equal(t, []interface{}{float32(1.5)}, s.messages[0].Arguments)
	assert.Equal(t, []interface{}{float32(90)}, s.messages[1].Arguments)
	assert.Equal(t, []interface{}{int32(3), int32(4)}, s.messages[2].Arguments)
	assert.Equal(t, AddrPause, s.messages[3].Address)
	assert.Empty(t, s.messages[3].Arguments)
}

func TestOSCTransportFailure(t *testing.T) {
	t.Parallel()

	tr := newOSCTransport(&recordingSender{err: errors.New("connection refused")})
	err := tr.SeekTo(context.Background(), 3)

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "seek", terr.Op)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, newOSCTransport(&recordingSender{}).StopPlayback(ctx), context.Canceled)
}

// silence is an in-memory stream of n silent samples.
type silence struct {
	n, pos int
}

func (s *silence) Stream(samples [][2]float64) (int, bool) {
	if s.pos >= s.n {
		return 0, false
	}
	n := len(samples)
	if s.pos+n > s.n {
		n = s.n - s.pos
	}
	for i := 0; i < n; i++ {
		samples[i] = [2]float64{}
	}
	s.pos += n
	return n, true
}

func (s *silence) Err() error    { return nil }
func (s *silence) Len() int      { return s.n }
func (s *silence) Position() int { return s.pos }

func (s *silence) Seek(p int) error {
	if p < 0 || p > s.n {
		return errors.New("seek out of range")
	}
	s.pos = p
	return nil
}

type fakeOutput struct {
	played []beep.Streamer
}

func (o *fakeOutput) Play(s beep.Streamer) { o.played = append(o.played, s) }
func (o *fakeOutput) Lock()                {}
func (o *fakeOutput) Unlock()              {}

func newTestWAV() (*WAVTransport, *silence, *fakeOutput) {
	stream := &silence{n: 44100 * 30}
	out := &fakeOutput{}
	format := beep.Format{SampleRate: 44100, NumChannels: 2, Precision: 2}
	return NewWAVTransport(stream, format, 120, out), stream, out
}

func TestWAVTransportPlayback(t *testing.T) {
	t.Parallel()

	tr, stream, out := newTestWAV()
	ctx := context.Background()

	_, ok := tr.Position()
	assert.False(t, ok)

	require.NoError(t, tr.StartPlayback(ctx, 2))
	require.NoError(t, tr.StartPlayback(ctx, 2))
	assert.Len(t, out.played, 1)
	assert.Equal(t, 88200, stream.pos)
	assert.False(t, tr.ctrl.Paused)

	pos, ok := tr.Position()
	require.True(t, ok)
	assert.InDelta(t, 2.0, pos, 1e-6)

	require.NoError(t, tr.PausePlayback(ctx))
	assert.True(t, tr.ctrl.Paused)

	require.NoError(t, tr.StopPlayback(ctx))
	assert.Equal(t, 0, stream.pos)
}

func TestWAVTransportTempo(t *testing.T) {
	t.Parallel()

	tr, stream, _ := newTestWAV()
	ctx := context.Background()

	// at double tempo one timeline second covers two seconds of the recording
	require.NoError(t, tr.SetTempo(ctx, 240))
	assert.InDelta(t, 2.0, tr.resampler.Ratio(), 1e-9)

	require.NoError(t, tr.StartPlayback(ctx, 1))
	assert.Equal(t, 88200, stream.pos)

	pos, ok := tr.Position()
	require.True(t, ok)
	assert.InDelta(t, 1.0, pos, 1e-6)

	// seeking past the end of the recording stops at its last sample
	require.NoError(t, tr.SeekTo(ctx, 1000))
	assert.Equal(t, stream.n, stream.pos)

	require.Error(t, tr.SetTempo(ctx, 0))
}
