package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// Apply configures the standard logrus logger to write to out.
func (l LogConfig) Apply(out io.Writer) error {
	level, err := logrus.ParseLevel(l.Level)
	if err != nil {
		return err
	}

	var formatter logrus.Formatter
	switch strings.ToLower(l.Format) {
	case "", "text":
		formatter = &logrus.TextFormatter{FullTimestamp: true}
	case "json":
		formatter = &logrus.JSONFormatter{}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownLogFormat, l.Format)
	}

	logrus.SetLevel(level)
	logrus.SetFormatter(formatter)
	if out != nil {
		logrus.SetOutput(out)
	}
	return nil
}
