package logger

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/user/framerec/pkg/ports"
)

func TestConsoleLogger_Levels(t *testing.T) {
	tests := []struct {
		level   ports.LogLevel
		wantOut int
		wantErr int
	}{
		{ports.LevelDebug, 2, 2},
		{ports.LevelInfo, 1, 2},
		{ports.LevelWarn, 0, 2},
		{ports.LevelError, 0, 1},
		{ports.LevelQuiet, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			var out, errOut bytes.Buffer
			log := NewConsoleTo(&out, &errOut, tt.level, false)

			log.Debug("debug")
			log.Info("info")
			log.Warn("warn")
			log.Error("error")

			if n := lines(out.String()); n != tt.wantOut {
				t.Errorf("stdout has %d lines, want %d: %q", n, tt.wantOut, out.String())
			}
			if n := lines(errOut.String()); n != tt.wantErr {
				t.Errorf("stderr has %d lines, want %d: %q", n, tt.wantErr, errOut.String())
			}
		})
	}
}

func TestConsoleLogger_Formatting(t *testing.T) {
	var out bytes.Buffer
	log := NewConsoleTo(&out, &out, ports.LevelDebug, false).
		WithSession("0123456789abcdef").
		WithComponent("muxer")

	log.Info("Wrote %d bytes to %s", 512, "out.mp4")

	want := "01234567 [muxer] Wrote 512 bytes to out.mp4\n"
	if out.String() != want {
		t.Errorf("got %q, want %q", out.String(), want)
	}
}

func TestConsoleLogger_Color(t *testing.T) {
	var out, errOut bytes.Buffer
	log := NewConsoleTo(&out, &errOut, ports.LevelDebug, true).WithComponent("pipeline")

	log.Info("plain")
	log.Error("broken")

	if !strings.Contains(out.String(), colorCyan+"[pipeline]"+colorReset) {
		t.Errorf("component tag is not coloured: %q", out.String())
	}
	if !strings.HasPrefix(errOut.String(), colorRed) {
		t.Errorf("error line is not red: %q", errOut.String())
	}
}

func TestConsoleLogger_ConcurrentWrites(t *testing.T) {
	var out bytes.Buffer
	base := NewConsoleTo(&out, &out, ports.LevelInfo, false)

	var wg sync.WaitGroup
	for _, component := range []string{"encoder", "muxer", "pipeline", "source"} {
		wg.Add(1)
		go func(log ports.Logger) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				log.Info("frame %d", i)
			}
		}(base.WithComponent(component))
	}
	wg.Wait()

	if n := lines(out.String()); n != 200 {
		t.Errorf("got %d lines, want 200", n)
	}
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if !strings.HasPrefix(line, "[") || !strings.Contains(line, "] frame ") {
			t.Fatalf("garbled line %q", line)
		}
	}
}

func TestNoopLogger(t *testing.T) {
	log := NewNoop()
	log.Info("ignored %d", 1)
	if log.WithComponent("x") != ports.Logger(log) {
		t.Error("WithComponent should return the same no-op logger")
	}
}

func lines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n")
}
