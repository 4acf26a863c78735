package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// Severity tags a log message.
type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarn
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "DEBUG"
	case SeverityInfo:
		return "INFO"
	case SeverityWarn:
		return "WARN"
	case SeverityError:
		return "ERROR"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

func (s Severity) level() logrus.Level {
	switch s {
	case SeverityDebug:
		return logrus.DebugLevel
	case SeverityWarn:
		return logrus.WarnLevel
	case SeverityError:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// Logger is the sink for progress messages and operator alerts.
type Logger interface {
	Log(message string, severity Severity)
	// ReportFatal logs the message and terminates the process.
	ReportFatal(message string)
}

type logrusLogger struct {
	log *logrus.Logger
}

func newLogrusLogger(w io.Writer, level string) (*logrusLogger, error) {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(lvl)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableQuote: true})
	return &logrusLogger{log: l}, nil
}

func (l *logrusLogger) Log(message string, severity Severity) {
	l.log.Log(severity.level(), message)
}

func (l *logrusLogger) ReportFatal(message string) {
	l.log.Fatal(message)
}

// logf formats and logs in one call.
func logf(l Logger, severity Severity, format string, args ...any) {
	l.Log(fmt.Sprintf(format, args...), severity)
}
