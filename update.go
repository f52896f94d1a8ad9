package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/robmorgan/cadence/event"
	"github.com/robmorgan/cadence/playback"
	"github.com/robmorgan/cadence/rhythm"
	"github.com/robmorgan/cadence/track"
)

const (
	midiFile     = "cadence.mid"
	snapshotFile = "cadence.json"
)

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tickMsg:
		return m, tickCmd()
	case eventMsg:
		m.recent = append(m.recent, describe(msg.event))
		if len(m.recent) > maxRecentEvents {
			m.recent = m.recent[len(m.recent)-maxRecentEvents:]
		}
		return m, waitForEvent(m.sub)
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var err error
	tl := m.tl

	switch msg.String() {
	case " ":
		err = tl.TogglePlayback(m.ctx)
	case "s":
		err = tl.Stop(m.ctx)
	case "[":
		_, err = tl.SetTempo(tl.Tempo() - 1)
	case "]":
		_, err = tl.SetTempo(tl.Tempo() + 1)
	case "left":
		err = tl.SeekByBeats(-1)
	case "right":
		err = tl.SeekByBeats(1)
	case "l":
		tl.SetLoop(!tl.Loop())
	case "g":
		on, sub := tl.Snap()
		tl.SetSnap(!on, sub)
	case "k":
		pos := tl.Position()
		_, err = tl.AddKeyframe(animationTrack, tl.CurrentTime(), map[string]any{
			"intensity": float64(pos.Beat) / float64(tl.TimeSignature().Numerator),
			"color":     beatColors[(pos.Beat-1)%len(beatColors)],
		})
	case "n":
		pos := tl.Position()
		_, err = tl.AddNote(musicTrack, tl.CurrentTime(), track.NoteData{
			Pitch:    uint8(60 + 2*(pos.Beat-1)),
			Duration: tl.Converter().BeatInterval().Seconds(),
			Velocity: 100,
		})
	case "c":
		start, end := measureBounds(tl.Converter(), tl.CurrentTime())
		var sel track.Selection
		if sel, err = tl.CopyTimeRange(start, end); err == nil {
			m.clipboard = &sel
			m.status = fmt.Sprintf("copied %d events", sel.Count())
		}
	case "v":
		if m.clipboard == nil {
			m.status = "nothing to paste"
			break
		}
		if _, err = tl.PasteTimeRange(tl.CurrentTime(), *m.clipboard); err == nil {
			m.status = fmt.Sprintf("pasted %d events", m.clipboard.Count())
		}
	case "e":
		err = writeFile(midiFile, m.tl.ExportMIDI)
		if err == nil {
			m.status = "exported " + midiFile
		}
	case "w":
		err = writeFile(snapshotFile, m.tl.WriteJSON)
		if err == nil {
			m.status = "saved " + snapshotFile
		}
	case "q", "ctrl+c":
		m.quitting = true
		m.unsubscribe()
		return m, tea.Quit
	}

	if err != nil {
		m.status = err.Error()
	}
	return m, nil
}

var beatColors = []string{"#ff0000", "#ffaa00", "#00ff66", "#0066ff"}

// measureBounds returns the span of the measure containing t. The end stops
// just short of the next downbeat so copying a measure leaves that downbeat
// out.
func measureBounds(conv rhythm.Converter, t float64) (float64, float64) {
	pos := conv.PositionAt(t)
	start := conv.MeasuresToSeconds(float64(pos.Measure - 1))
	end := conv.MeasuresToSeconds(float64(pos.Measure)) - 1e-6
	return start, end
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func describe(e event.Event) string {
	switch e := e.(type) {
	case event.Rejected:
		return fmt.Sprintf("%s: %s %v", e.Kind(), e.Op, e.Err)
	case playback.TransportDegraded:
		return fmt.Sprintf("%s: %s %v", e.Kind(), e.Op, e.Err)
	}
	return e.Kind().String()
}
