package logger

import (
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	projectLogger *logrus.Entry
	once          sync.Once
)

// GetProjectLogger returns the logger shared by every package in the project.
func GetProjectLogger() *logrus.Entry {
	once.Do(func() {
		l := logrus.New()
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		l.SetLevel(logrus.InfoLevel)
		projectLogger = logrus.NewEntry(l).WithField("app", "cadence")
	})
	return projectLogger
}

// GetComponentLogger returns the project logger tagged with a component name.
func GetComponentLogger(component string) *logrus.Entry {
	return GetProjectLogger().WithField("component", component)
}

// SetLevel parses a logrus level name ("debug", "info", ...) and applies it.
func SetLevel(level string) error {
	if level == "" {
		return nil
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	GetProjectLogger().Logger.SetLevel(lvl)
	return nil
}

// SetOutput redirects log output, e.g. away from a terminal UI.
func SetOutput(w io.Writer) {
	GetProjectLogger().Logger.SetOutput(w)
}
