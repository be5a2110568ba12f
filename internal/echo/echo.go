// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package echo is the leveled, colorized logging sink used for command
// echo and diagnostic reports.
package echo

import (
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Level names, from most to least verbose.
const (
	LevelDebug    = "debug"
	LevelInfo     = "info"
	LevelWarn     = "warn"
	LevelError    = "error"
	LevelCritical = "critical"
)

// Levels lists every level name in order.
var Levels = []string{LevelDebug, LevelInfo, LevelWarn, LevelError, LevelCritical}

// DefaultFormat is the line template. {name}, {level} and {message} are
// substituted.
const DefaultFormat = "[{name}]: {message}"

// DefaultName appears in place of {name}.
const DefaultName = "sultan"

// DefaultColors maps each level to its color name.
var DefaultColors = map[string]string{
	LevelDebug:    "cyan",
	LevelInfo:     "green",
	LevelWarn:     "yellow",
	LevelError:    "red",
	LevelCritical: "bold_red",
}

// criticalField tags entries logged through Criticalf.
const criticalField = "critical"

// Options configure a Logger. Zero values select the defaults.
type Options struct {
	Name    string
	Format  string
	Level   string
	Colors  map[string]string
	NoColor bool
	Out     io.Writer
}

// Logger writes formatted lines while activated. It is safe for concurrent
// use.
type Logger struct {
	log          *logrus.Logger
	active       atomic.Bool
	criticalOnly bool
}

// New builds an activated Logger.
func New(opts Options) (*Logger, error) {
	if opts.Name == "" {
		opts.Name = DefaultName
	}
	if opts.Format == "" {
		opts.Format = DefaultFormat
	}
	if opts.Level == "" {
		opts.Level = LevelDebug
	}
	if opts.Out == nil {
		opts.Out = os.Stderr
	}

	level, err := parseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	f := &formatter{name: opts.Name, format: opts.Format, colors: make(map[string]*color.Color)}
	for _, lvl := range Levels {
		name := DefaultColors[lvl]
		if c, ok := opts.Colors[lvl]; ok {
			name = c
		}
		attrs, err := ParseColor(name)
		if err != nil {
			return nil, errors.Wrapf(err, "color for %s", lvl)
		}
		c := color.New(attrs...)
		if opts.NoColor {
			c.DisableColor()
		}
		f.colors[lvl] = c
	}

	lg := logrus.New()
	lg.SetOutput(opts.Out)
	lg.SetFormatter(f)
	lg.SetLevel(level)

	l := &Logger{log: lg, criticalOnly: opts.Level == LevelCritical}
	l.active.Store(true)
	return l, nil
}

// Discard returns a Logger that writes nowhere.
func Discard() *Logger {
	l, _ := New(Options{Out: io.Discard, NoColor: true})
	l.SetActivated(false)
	return l
}

// SetActivated turns output on or off.
func (l *Logger) SetActivated(on bool) { l.active.Store(on) }

// Scoped returns a view that shares l's sink and is active only when both
// l and on are. Toggling the view leaves l untouched.
func (l *Logger) Scoped(on bool) *Logger {
	v := &Logger{log: l.log, criticalOnly: l.criticalOnly}
	v.active.Store(on && l.Activated())
	return v
}

// Activated reports whether output is on.
func (l *Logger) Activated() bool { return l.active.Load() }

func (l *Logger) Debugf(format string, args ...any) {
	if l.Activated() {
		l.log.Debugf(format, args...)
	}
}

func (l *Logger) Infof(format string, args ...any) {
	if l.Activated() {
		l.log.Infof(format, args...)
	}
}

func (l *Logger) Warnf(format string, args ...any) {
	if l.Activated() {
		l.log.Warnf(format, args...)
	}
}

func (l *Logger) Errorf(format string, args ...any) {
	if l.Activated() && !l.criticalOnly {
		l.log.Errorf(format, args...)
	}
}

// Criticalf logs at error severity, tagged and colored as critical.
func (l *Logger) Criticalf(format string, args ...any) {
	if l.Activated() {
		l.log.WithField(criticalField, true).Errorf(format, args...)
	}
}

// Cmd echoes a command line about to run.
func (l *Logger) Cmd(line string) { l.Debugf("%s", line) }

// Log writes msg at info level.
func (l *Logger) Log(msg string) { l.Infof("%s", msg) }

func parseLevel(name string) (logrus.Level, error) {
	switch strings.ToLower(name) {
	case LevelDebug:
		return logrus.DebugLevel, nil
	case LevelInfo:
		return logrus.InfoLevel, nil
	case LevelWarn, "warning":
		return logrus.WarnLevel, nil
	case LevelError, LevelCritical:
		return logrus.ErrorLevel, nil
	}
	return 0, errors.Errorf("unknown log level %q", name)
}

// ValidLevel reports whether name is a known level.
func ValidLevel(name string) bool {
	_, err := parseLevel(name)
	return err == nil
}

type formatter struct {
	name   string
	format string
	colors map[string]*color.Color
}

func (f *formatter) Format(e *logrus.Entry) ([]byte, error) {
	level := levelOf(e)
	line := strings.NewReplacer(
		"{name}", f.name,
		"{level}", level,
		"{message}", e.Message,
	).Replace(f.format)
	if c := f.colors[level]; c != nil {
		line = c.Sprint(line)
	}
	return []byte(line + "\n"), nil
}

func levelOf(e *logrus.Entry) string {
	if v, ok := e.Data[criticalField].(bool); ok && v {
		return LevelCritical
	}
	switch e.Level {
	case logrus.DebugLevel, logrus.TraceLevel:
		return LevelDebug
	case logrus.InfoLevel:
		return LevelInfo
	case logrus.WarnLevel:
		return LevelWarn
	default:
		return LevelError
	}
}
