// Package logger provides logging implementations.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/ideamans/go-l10n"
	"github.com/mattn/go-isatty"
	"github.com/user/framerec/pkg/ports"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorGray   = "\033[90m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorCyan   = "\033[36m"
)

// output is shared by a logger and every logger derived from it, so lines
// written from the capture goroutine and the encoder worker never interleave.
type output struct {
	mu    sync.Mutex
	out   io.Writer
	err   io.Writer
	color bool
}

func (o *output) println(w io.Writer, line string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fmt.Fprintln(w, line)
}

// ConsoleLogger logs messages to the console with color support.
// Debug and Info go to stdout, Warn and Error to stderr.
type ConsoleLogger struct {
	level     ports.LogLevel
	component string
	session   string
	out       *output
}

// NewConsole creates a console logger writing to stdout and stderr.
// Color output is enabled when stdout is a terminal.
func NewConsole(level ports.LogLevel) *ConsoleLogger {
	fd := os.Stdout.Fd()
	color := isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	return NewConsoleTo(os.Stdout, os.Stderr, level, color)
}

// NewConsoleTo creates a console logger with explicit writers.
func NewConsoleTo(out, errOut io.Writer, level ports.LogLevel, color bool) *ConsoleLogger {
	return &ConsoleLogger{
		level: level,
		out:   &output{out: out, err: errOut, color: color},
	}
}

// WithSession returns a logger that tags every line with a short form of
// the recording session id.
func (l *ConsoleLogger) WithSession(id string) *ConsoleLogger {
	if len(id) > 8 {
		id = id[:8]
	}
	return &ConsoleLogger{level: l.level, component: l.component, session: id, out: l.out}
}

// Debug logs a debug message.
func (l *ConsoleLogger) Debug(msg string, args ...interface{}) {
	l.log(ports.LevelDebug, msg, args...)
}

// Info logs an informational message.
func (l *ConsoleLogger) Info(msg string, args ...interface{}) {
	l.log(ports.LevelInfo, msg, args...)
}

// Warn logs a warning message.
func (l *ConsoleLogger) Warn(msg string, args ...interface{}) {
	l.log(ports.LevelWarn, msg, args...)
}

// Error logs an error message.
func (l *ConsoleLogger) Error(msg string, args ...interface{}) {
	l.log(ports.LevelError, msg, args...)
}

// WithComponent returns a logger sharing this one's output, tagged with
// component.
func (l *ConsoleLogger) WithComponent(component string) ports.Logger {
	return &ConsoleLogger{level: l.level, component: component, session: l.session, out: l.out}
}

func (l *ConsoleLogger) log(level ports.LogLevel, msg string, args ...interface{}) {
	if level < l.level {
		return
	}

	line := l10n.F(msg, args...)
	if l.component != "" {
		tag := "[" + l.component + "]"
		if l.out.color {
			tag = colorCyan + tag + colorReset
		}
		line = tag + " " + line
	}
	if l.session != "" {
		line = l.session + " " + line
	}

	if l.out.color {
		switch level {
		case ports.LevelDebug:
			line = colorGray + line + colorReset
		case ports.LevelWarn:
			line = colorYellow + line + colorReset
		case ports.LevelError:
			line = colorRed + line + colorReset
		}
	}

	w := l.out.out
	if level >= ports.LevelWarn {
		w = l.out.err
	}
	l.out.println(w, line)
}
