package remote

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/hypebeast/go-osc/osc"
	"github.com/robmorgan/cadence/logger"
	"github.com/robmorgan/cadence/temporal"
	"github.com/sirupsen/logrus"
)

// OSC addresses served by the remote. go-osc matches an incoming address
// anywhere inside a handler address, so none of these may contain another.
const (
	AddrPlay        = "/timeline/play"
	AddrPause       = "/timeline/pause"
	AddrStop        = "/timeline/stop"
	AddrSeek        = "/timeline/time"
	AddrSeekBeat    = "/timeline/beat"
	AddrSeekMeasure = "/timeline/measure"
	AddrTempo       = "/timeline/tempo"
	AddrLoop        = "/timeline/loop"
)

var ErrBadArgument = errors.New("bad osc argument")

// Controller is the part of a timeline the remote drives.
type Controller interface {
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Stop(ctx context.Context) error
	Seek(ctx context.Context, t float64) error
	SeekToBeat(beat float64) error
	SeekToMeasure(measure float64) error
	SetTempo(bpm float64) (temporal.TempoChanged, error)
	SetLoop(enabled bool)
}

// NewDispatcher maps the timeline addresses onto c.
func NewDispatcher(c Controller) (*osc.StandardDispatcher, error) {
	log := logger.GetComponentLogger("remote")
	d := osc.NewStandardDispatcher()

	handle := func(addr string, fn func(msg *osc.Message) error) error {
		return d.AddMsgHandler(addr, func(msg *osc.Message) {
			if err := fn(msg); err != nil {
				log.WithFields(logrus.Fields{"address": msg.Address, "error": err}).Warn("remote command failed")
				return
			}
			log.WithField("address", msg.Address).Debug("remote command")
		})
	}

	withFloat := func(fn func(float64) error) func(*osc.Message) error {
		return func(msg *osc.Message) error {
			v, err := floatArg(msg, 0)
			if err != nil {
				return err
			}
			return fn(v)
		}
	}

	handlers := map[string]func(*osc.Message) error{
		AddrPlay:  func(*osc.Message) error { return c.Play(context.Background()) },
		AddrPause: func(*osc.Message) error { return c.Pause(context.Background()) },
		AddrStop:  func(*osc.Message) error { return c.Stop(context.Background()) },
		AddrSeek: withFloat(func(t float64) error {
			return c.Seek(context.Background(), t)
		}),
		AddrSeekBeat:    withFloat(c.SeekToBeat),
		AddrSeekMeasure: withFloat(c.SeekToMeasure),
		AddrTempo: withFloat(func(bpm float64) error {
			_, err := c.SetTempo(bpm)
			return err
		}),
		AddrLoop: func(msg *osc.Message) error {
			v, err := floatArg(msg, 0)
			if err != nil {
				return err
			}
			c.SetLoop(v != 0)
			return nil
		},
	}
	for addr, fn := range handlers {
		if err := handle(addr, fn); err != nil {
			return nil, fmt.Errorf("registering %s: %w", addr, err)
		}
	}
	return d, nil
}

// floatArg reads a numeric argument of any OSC numeric type.
func floatArg(msg *osc.Message, i int) (float64, error) {
	if i >= len(msg.Arguments) {
		return 0, fmt.Errorf("%w: %s needs argument %d", ErrBadArgument, msg.Address, i)
	}
	switch v := msg.Arguments[i].(type) {
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("%w: %s argument %d has type %T", ErrBadArgument, msg.Address, i, msg.Arguments[i])
}

// Server receives OSC messages on a UDP address and dispatches them to a
// controller.
type Server struct {
	addr       string
	dispatcher osc.Dispatcher
	log        *logrus.Entry
}

func NewServer(addr string, c Controller) (*Server, error) {
	d, err := NewDispatcher(c)
	if err != nil {
		return nil, err
	}
	return &Server{
		addr:       addr,
		dispatcher: d,
		log:        logger.GetComponentLogger("remote"),
	}, nil
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	pc, err := net.ListenPacket("udp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, pc)
}

// Serve reads from pc until ctx is cancelled, then closes it.
func (s *Server) Serve(ctx context.Context, pc net.PacketConn) error {
	server := &osc.Server{Dispatcher: s.dispatcher}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		pc.Close()
	}()

	s.log.WithField("addr", pc.LocalAddr().String()).Info("osc remote listening")
	err := server.Serve(pc)
	if ctx.Err() != nil {
		return nil
	}
	return err
}
