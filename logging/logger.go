// Package logging is a small leveled logger in the style this codebase
// has always used: a *log.Logger wrapper with a verbose/silent toggle
// and prefix derivation for scoping logs to one component instance.
package logging

import (
	"fmt"
	"io"
	"log"
)

const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

var levelTags = map[int]string{
	LevelDebug: "[DEBUG]",
	LevelInfo:  "[INFO]",
	LevelWarn:  "[WARN]",
	LevelError: "[ERROR]",
}

type silentWriter struct{}

func (silentWriter) Write(p []byte) (int, error) { return len(p), nil }

// Logger is a leveled wrapper around *log.Logger.
type Logger struct {
	*log.Logger
	w       io.Writer
	verbose bool
}

// New creates a Logger writing to w, with the given prefix. When
// verbose is false, output is discarded but can be turned on later
// with Verbose.
func New(w io.Writer, prefix string, verbose bool) *Logger {
	l := &Logger{Logger: log.New(silentWriter{}, prefix, log.Ldate|log.Ltime), w: w, verbose: verbose}
	if verbose {
		l.SetOutput(w)
	}
	return l
}

// Verbose toggles whether output actually reaches the underlying writer.
func (l *Logger) Verbose(use bool) {
	if use && !l.verbose {
		l.SetOutput(l.w)
	} else if !use && l.verbose {
		l.SetOutput(silentWriter{})
	}
	l.verbose = use
}

// WithPrefix returns a derived logger sharing the same writer and
// verbosity, with prefix appended to the current one. Used to scope
// logs to one client instance.
func (l *Logger) WithPrefix(suffix string) *Logger {
	return New(l.w, fmt.Sprintf("%s%s", l.Prefix(), suffix), l.verbose)
}

func (l *Logger) log(level int, args ...interface{}) {
	l.Printf("%s %s", levelTags[level], fmt.Sprint(args...))
}

func (l *Logger) Debug(args ...interface{}) { l.log(LevelDebug, args...) }
func (l *Logger) Info(args ...interface{})  { l.log(LevelInfo, args...) }
func (l *Logger) Warn(args ...interface{})  { l.log(LevelWarn, args...) }
func (l *Logger) Error(args ...interface{}) { l.log(LevelError, args...) }

func (l *Logger) Debugf(format string, args ...interface{}) { l.log(LevelDebug, fmt.Sprintf(format, args...)) }
func (l *Logger) Infof(format string, args ...interface{})  { l.log(LevelInfo, fmt.Sprintf(format, args...)) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.log(LevelWarn, fmt.Sprintf(format, args...)) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.log(LevelError, fmt.Sprintf(format, args...)) }
