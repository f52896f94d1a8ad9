package export

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/robmorgan/cadence/rhythm"
	"github.com/robmorgan/cadence/track"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
	"golang.org/x/exp/slices"
)

// TicksPerQuarter is the resolution of exported files.
const TicksPerQuarter = 960

const defaultVelocity = 100

type timedMessage struct {
	tick uint32
	off  bool
	msg  midi.Message
}

// ticks converts a timeline time to an absolute tick at the converter's
// tempo. One beat is one quarter note.
func ticks(conv rhythm.Converter, seconds float64) uint32 {
	return uint32(math.Round(conv.SecondsToBeats(seconds) * TicksPerQuarter))
}

// WriteSMF writes the music tracks as a format 1 Standard MIDI File. The
// first track carries tempo and meter. Each music track follows in track id
// order on its own channel.
func WriteSMF(w io.Writer, conv rhythm.Converter, tracks map[string][]track.Note) error {
	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(TicksPerQuarter)

	sig := conv.Signature()
	var tempo smf.Track
	tempo.Add(0, smf.MetaTrackSequenceName("tempo"))
	tempo.Add(0, smf.MetaMeter(uint8(sig.Numerator), uint8(sig.Denominator)))
	tempo.Add(0, smf.MetaTempo(conv.Tempo()))
	tempo.Close(0)
	if err := sm.Add(tempo); err != nil {
		return fmt.Errorf("adding tempo track: %w", err)
	}

	ids := make([]string, 0, len(tracks))
	for id := range tracks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for i, id := range ids {
		channel := uint8(i % 16)
		var messages []timedMessage
		for _, n := range tracks[id] {
			key := n.Note.Pitch
			if key > 127 {
				key = 127
			}
			vel := n.Note.Velocity
			if vel == 0 {
				vel = defaultVelocity
			}
			if vel > 127 {
				vel = 127
			}
			messages = append(messages,
				timedMessage{tick: ticks(conv, n.Time), msg: midi.NoteOn(channel, key, vel)},
				timedMessage{tick: ticks(conv, n.Time+n.Note.Duration), off: true, msg: midi.NoteOff(channel, key)},
			)
		}
		// a note ending on the same tick another starts is released first
		slices.SortStableFunc(messages, func(a, b timedMessage) int {
			switch {
			case a.tick != b.tick:
				if a.tick < b.tick {
					return -1
				}
				return 1
			case a.off && !b.off:
				return -1
			case !a.off && b.off:
				return 1
			}
			return 0
		})

		var tr smf.Track
		tr.Add(0, smf.MetaTrackSequenceName(id))
		var last uint32
		for _, m := range messages {
			tr.Add(m.tick-last, m.msg)
			last = m.tick
		}
		tr.Close(0)
		if err := sm.Add(tr); err != nil {
			return fmt.Errorf("adding track %q: %w", id, err)
		}
	}

	if _, err := sm.WriteTo(w); err != nil {
		return fmt.Errorf("writing midi file: %w", err)
	}
	return nil
}
