package audio

import (
	"context"

	"github.com/hypebeast/go-osc/osc"
	"github.com/robmorgan/cadence/logger"
	"github.com/sirupsen/logrus"
)

// OSC addresses understood by the external audio engine.
const (
	AddrPlay      = "/transport/play"
	AddrPause     = "/transport/pause"
	AddrStop      = "/transport/stop"
	AddrSeek      = "/transport/seek"
	AddrTempo     = "/transport/tempo"
	AddrSignature = "/transport/signature"
)

type sender interface {
	Send(packet osc.Packet) error
}

// OSCTransport drives an audio engine that listens for OSC messages, such as
// a DAW or a sampler. It is fire-and-forget: it cannot report a position.
type OSCTransport struct {
	client sender
	log    *logrus.Entry
}

func NewOSCTransport(host string, port int) *OSCTransport {
	return newOSCTransport(osc.NewClient(host, port))
}

func newOSCTransport(client sender) *OSCTransport {
	return &OSCTransport{
		client: client,
		log:    logger.GetComponentLogger("audio").WithField("transport", "osc"),
	}
}

func (t *OSCTransport) send(ctx context.Context, op, addr string, args ...interface{}) error {
	if err := ctx.Err(); err != nil {
		return wrap(op, err)
	}
	msg := osc.NewMessage(addr, args...)
	if err := t.client.Send(msg); err != nil {
		return wrap(op, err)
	}
	t.log.WithFields(logrus.Fields{"address": addr, "args": args}).Trace("sent")
	return nil
}

func (t *OSCTransport) StartPlayback(ctx context.Context, at float64) error {
	return t.send(ctx, "start", AddrPlay, float32(at))
}

func (t *OSCTransport) PausePlayback(ctx context.Context) error {
	return t.send(ctx, "pause", AddrPause)
}

func (t *OSCTransport) StopPlayback(ctx context.Context) error {
	return t.send(ctx, "stop", AddrStop)
}

func (t *OSCTransport) SeekTo(ctx context.Context, at float64) error {
	return t.send(ctx, "seek", AddrSeek, float32(at))
}

func (t *OSCTransport) SetTempo(ctx context.Context, bpm float64) error {
	return t.send(ctx, "tempo", AddrTempo, float32(bpm))
}

func (t *OSCTransport) SetTimeSignature(ctx context.Context, numerator, denominator int) error {
	return t.send(ctx, "signature", AddrSignature, int32(numerator), int32(denominator))
}
