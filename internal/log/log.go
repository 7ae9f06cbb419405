// Package log builds the logrus logger used by the pcdump commands.
package log

import (
	"fmt"
	"io"

	"github.com/rawbytedev/recast/internal/config"
	"github.com/sirupsen/logrus"
)

// New returns a logger writing to out at the configured level and format.
func New(cfg config.LogConfig, out io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log: %w", err)
	}
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(level)
	switch cfg.Format {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	default:
		return nil, fmt.Errorf("log: unknown format %q", cfg.Format)
	}
	return l, nil
}
