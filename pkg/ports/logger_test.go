package ports

import "testing"

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
		ok   bool
	}{
		{"debug", LevelDebug, true},
		{"info", LevelInfo, true},
		{"warn", LevelWarn, true},
		{"warning", LevelWarn, true},
		{"error", LevelError, true},
		{"quiet", LevelQuiet, true},
		{"", LevelInfo, false},
		{"verbose", LevelInfo, false},
	}
	for _, tt := range tests {
		got, ok := ParseLogLevel(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseLogLevel(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestLogLevel_String(t *testing.T) {
	for l := LevelDebug; l <= LevelQuiet; l++ {
		if got, ok := ParseLogLevel(l.String()); !ok || got != l {
			t.Errorf("%v does not parse back", l)
		}
	}
	if LogLevel(42).String() != "unknown" {
		t.Error("out of range level should be unknown")
	}
}
