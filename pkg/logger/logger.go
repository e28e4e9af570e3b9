package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

var base = newBase()

func newBase() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	if os.Getenv("KAR_DEBUG") == "true" || os.Getenv("DEBUG") == "true" {
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
	return l
}

// NewLogger returns an entry tagged with the given component name. All
// entries share one underlying logger, so SetDebug and SetOutput apply to
// every component.
func NewLogger(component string) *logrus.Entry {
	return base.WithField("component", component)
}

// SetDebug switches debug output on or off.
func SetDebug(enabled bool) {
	if enabled {
		base.SetLevel(logrus.DebugLevel)
		return
	}
	base.SetLevel(logrus.InfoLevel)
}

// DebugEnabled reports whether debug output is on.
func DebugEnabled() bool {
	return base.IsLevelEnabled(logrus.DebugLevel)
}

// SetOutput redirects log output.
func SetOutput(w io.Writer) {
	base.SetOutput(w)
}
