package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/robmorgan/cadence/playback"
	"github.com/robmorgan/cadence/track"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Margin(1, 0)
	beatStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	playheadStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	appStyle      = lipgloss.NewStyle().Margin(1, 2, 0, 2)
)

func (m model) View() string {
	tl := m.tl
	v := tl.Values()
	pos := tl.Position()

	var b strings.Builder
	b.WriteString(titleStyle.Render("cadence") + "\n\n")

	state := tl.PlaybackState()
	indicator := " "
	if state == playback.Playing {
		indicator = m.spinner.View()
	}
	fmt.Fprintf(&b, "%s %s  %s %.1f  %s %s  %s %s\n",
		indicator, state,
		labelStyle.Render("bpm"), v.Tempo,
		labelStyle.Render("sig"), v.Signature,
		labelStyle.Render("pos"), pos.Marker())
	fmt.Fprintf(&b, "  %s %6.2fs / %.2fs  %s %s  %s %s\n\n",
		labelStyle.Render("time"), v.CurrentTime, v.Duration,
		labelStyle.Render("loop"), onOff(tl.Loop()),
		labelStyle.Render("audio"), onOff(tl.AudioActive()))

	progress := 0.0
	if v.Duration > 0 {
		progress = v.CurrentTime / v.Duration
	}
	b.WriteString(m.playhead.ViewAs(progress) + "\n\n")
	b.WriteString(m.beatRuler(pos.Beat, v.Signature.Numerator) + "\n\n")

	fmt.Fprintf(&b, "%s %d animation, %d music  ",
		labelStyle.Render("tracks"),
		len(tl.TrackIDs(track.Animation)), len(tl.TrackIDs(track.Music)))
	fmt.Fprintf(&b, "%s %d keyframes, %d notes\n",
		labelStyle.Render("events"),
		len(tl.Keyframes(animationTrack)), len(tl.Notes(musicTrack)))

	if props, ok := tl.Evaluate(animationTrack, v.CurrentTime); ok {
		fmt.Fprintf(&b, "%s %v\n", labelStyle.Render(animationTrack), props["intensity"])
	}

	if len(m.recent) > 0 {
		b.WriteString("\n")
		for _, line := range m.recent {
			b.WriteString(labelStyle.Render("· ") + line + "\n")
		}
	}
	if m.status != "" {
		b.WriteString("\n" + warnStyle.Render(m.status) + "\n")
	}

	b.WriteString(helpStyle.Render(
		"space play/pause • s stop • [ ] tempo • ←/→ beat • l loop • g snap\n" +
			"k keyframe • n note • c copy measure • v paste • e midi • w save • q quit"))

	if m.quitting {
		b.WriteString("\n")
	}
	return appStyle.Render(b.String())
}

// beatRuler draws one cell per beat of the current measure.
func (m model) beatRuler(beat, beats int) string {
	cells := make([]string, 0, beats)
	for i := 1; i <= beats; i++ {
		cell := fmt.Sprintf("[%d]", i)
		if i == beat {
			cells = append(cells, playheadStyle.Render(cell))
			continue
		}
		cells = append(cells, beatStyle.Render(cell))
	}
	return strings.Join(cells, " ")
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
