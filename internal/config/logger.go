package config

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// NewLogger creates the process logger writing to out at the given level.
func NewLogger(level string, out io.Writer) (*logrus.Entry, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}

	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(lvl)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return logger.WithField("app", "crashreport"), nil
}
