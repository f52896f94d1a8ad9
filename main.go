package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/robmorgan/cadence/audio"
	"github.com/robmorgan/cadence/config"
	"github.com/robmorgan/cadence/logger"
	"github.com/robmorgan/cadence/remote"
	"github.com/robmorgan/cadence/timeline"
)

func main() {
	// The only argument is an optional config file.
	ctx := context.Background()
	if err := Run(ctx, os.Args[1:]); err != nil {
		fmt.Println("Error running program:", err)
		os.Exit(1)
	}
}

// Run starts a timeline and drives it from the terminal until the user quits.
func Run(ctx context.Context, args []string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg := config.NewConfig()
	if len(args) > 0 {
		var err error
		if cfg, err = config.LoadFile(args[0]); err != nil {
			return err
		}
	}

	// the terminal belongs to the UI, so logs go to a file
	f, err := tea.LogToFile("cadence.log", "cadence")
	if err != nil {
		return err
	}
	defer f.Close()
	logger.SetOutput(f)
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		return err
	}
	log := logger.GetProjectLogger()

	log.Info("Initializing audio transport...")
	transport, closeTransport, err := newTransport(cfg)
	if err != nil {
		return err
	}
	defer closeTransport()

	log.Info("Initializing timeline...")
	tl, err := timeline.New(cfg, timeline.WithTransport(transport))
	if err != nil {
		return err
	}
	defer tl.Close(context.Background())

	if cfg.Remote.Listen != "" {
		srv, err := remote.NewServer(cfg.Remote.Listen, tl)
		if err != nil {
			return err
		}
		go func() {
			if err := srv.ListenAndServe(ctx); err != nil {
				log.WithError(err).Error("osc remote stopped")
			}
		}()
	}

	_, err = tea.NewProgram(newModel(ctx, tl), tea.WithAltScreen()).Run()
	return err
}

func newTransport(cfg config.Config) (audio.Transport, func(), error) {
	switch cfg.Transport.Kind {
	case config.TransportOSC:
		return audio.NewOSCTransport(cfg.Transport.OSCHost, cfg.Transport.OSCPort), func() {}, nil
	case config.TransportWAV:
		t, err := audio.OpenWAV(cfg.Transport.WAVPath, cfg.Transport.BaseTempo)
		if err != nil {
			return nil, nil, err
		}
		return t, func() { t.Close() }, nil
	}
	return audio.Null{}, func() {}, nil
}
