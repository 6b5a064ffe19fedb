// Package ports defines the boundaries between the recorder core and the
// outside world: the compression engine, the filesystem, capture sources,
// drawing, notification and logging.
package ports

// LogLevel is the minimum severity a logger emits.
type LogLevel int

const (
	// LevelDebug covers per-frame and per-component detail.
	LevelDebug LogLevel = iota
	// LevelInfo covers recording progress: start, format, saved file.
	LevelInfo
	// LevelWarn covers dropped or rejected frames and failed notifications.
	LevelWarn
	// LevelError covers failed recordings.
	LevelError
	// LevelQuiet suppresses all output.
	LevelQuiet
)

var levelNames = [...]string{"debug", "info", "warn", "error", "quiet"}

// String returns the name accepted by ParseLogLevel.
func (l LogLevel) String() string {
	if l < 0 || int(l) >= len(levelNames) {
		return "unknown"
	}
	return levelNames[l]
}

// ParseLogLevel parses a level name. Unknown names give LevelInfo and false.
// "warning" is accepted as an alias of "warn".
func ParseLogLevel(s string) (LogLevel, bool) {
	if s == "warning" {
		return LevelWarn, true
	}
	for i, name := range levelNames {
		if s == name {
			return LogLevel(i), true
		}
	}
	return LevelInfo, false
}

// Logger takes message keys with printf arguments. Implementations may
// translate the key before formatting.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})

	// WithComponent returns a Logger that tags lines with component and
	// shares the receiver's output.
	WithComponent(component string) Logger
}
