package main

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/robmorgan/cadence/event"
	"github.com/robmorgan/cadence/timeline"
	"github.com/robmorgan/cadence/track"
)

const (
	maxRecentEvents = 6
	animationTrack  = "light"
	musicTrack      = "piano"
)

type model struct {
	ctx         context.Context
	tl          *timeline.Timeline
	sub         chan event.Event // where we'll receive timeline notifications
	unsubscribe func()
	spinner     spinner.Model
	playhead    progress.Model
	clipboard   *track.Selection
	recent      []string
	status      string
	quitting    bool
}

func newModel(ctx context.Context, tl *timeline.Timeline) model {
	s := spinner.New()
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))

	sub := make(chan event.Event, 256)
	unsubscribe := tl.Bus().SubscribeAll(func(e event.Event) {
		// time updates arrive every frame and are read on the next redraw
		if e.Kind() == event.TimeUpdate {
			return
		}
		select {
		case sub <- e:
		default:
		}
	})

	return model{
		ctx:         ctx,
		tl:          tl,
		sub:         sub,
		unsubscribe: unsubscribe,
		spinner:     s,
		playhead: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(60),
			progress.WithoutPercentage(),
		),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), m.spinner.Tick, waitForEvent(m.sub))
}

type tickMsg time.Time

type eventMsg struct {
	event event.Event
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second/30, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForEvent(sub chan event.Event) tea.Cmd {
	return func() tea.Msg {
		return eventMsg{event: <-sub}
	}
}
