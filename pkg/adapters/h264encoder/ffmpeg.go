package h264encoder

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"sync"

	"github.com/user/framerec/pkg/pipeline"
	"github.com/user/framerec/pkg/ports"
)

// customFFmpegPath overrides ffmpeg discovery when set.
var customFFmpegPath string

// SetFFmpegPath sets an explicit ffmpeg binary. An empty path restores
// discovery.
func SetFFmpegPath(path string) {
	customFFmpegPath = path
}

// IsFFmpegAvailable checks if ffmpeg is available on the system.
func IsFFmpegAvailable() bool {
	_, err := FindFFmpeg()
	return err == nil
}

// FindFFmpeg searches for ffmpeg in PATH and common locations.
// Priority: 1) customFFmpegPath (set via SetFFmpegPath), 2) FFMPEG_PATH env, 3) PATH, 4) common locations
func FindFFmpeg() (string, error) {
	if customFFmpegPath != "" {
		if _, err := os.Stat(customFFmpegPath); err == nil {
			return customFFmpegPath, nil
		}
		return "", fmt.Errorf("%w: custom path %s not found", ErrFFmpegNotFound, customFFmpegPath)
	}

	if envPath := os.Getenv("FFMPEG_PATH"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}
		return "", fmt.Errorf("%w: FFMPEG_PATH %s not found", ErrFFmpegNotFound, envPath)
	}

	execName := "ffmpeg"
	if runtime.GOOS == "windows" {
		execName = "ffmpeg.exe"
	}
	if path, err := exec.LookPath(execName); err == nil {
		return path, nil
	}

	var commonPaths []string
	switch runtime.GOOS {
	case "windows":
		commonPaths = []string{
			`C:\ffmpeg\bin\ffmpeg.exe`,
			`C:\Program Files\ffmpeg\bin\ffmpeg.exe`,
		}
	case "darwin":
		commonPaths = []string{
			"/opt/homebrew/bin/ffmpeg",
			"/usr/local/bin/ffmpeg",
		}
	default:
		commonPaths = []string{
			"/usr/bin/ffmpeg",
			"/usr/local/bin/ffmpeg",
			"/snap/bin/ffmpeg",
		}
	}
	for _, p := range commonPaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", ErrFFmpegNotFound
}

// maxAccessUnit bounds a single access unit read from ffmpeg.
const maxAccessUnit = 32 << 20

// FFmpegEngine compresses planar pictures with libx264 in an ffmpeg child
// process. Pictures go in on stdin as raw video; an Annex B elementary
// stream with access unit delimiters comes back on stdout and is cut into
// access units.
//
// B-frames are disabled, so output order equals input order and timestamps
// are assigned first in, first out.
type FFmpegEngine struct {
	log ports.Logger

	mu        sync.Mutex
	cfg       ports.EngineConfig
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stderr    bytes.Buffer
	events    chan ports.EngineEvent
	quit      chan struct{}
	done      chan struct{}
	pts       []int64
	lastPTS   int64
	inClosed  bool
	closed    bool
	closeOnce sync.Once
}

// NewFFmpegEngine creates an engine. Open starts the process.
func NewFFmpegEngine(log ports.Logger) *FFmpegEngine {
	return &FFmpegEngine{
		log:    log,
		events: make(chan ports.EngineEvent),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Args returns the ffmpeg command line for cfg, without the binary.
func (e *FFmpegEngine) Args(cfg ports.EngineConfig) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-f", "rawvideo",
		"-pix_fmt", cfg.Layout.String(),
		"-s", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"-r", strconv.Itoa(cfg.FPS),
		"-i", "pipe:0",
		"-an",
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-tune", "zerolatency",
		"-profile:v", "baseline",
		"-pix_fmt", "yuv420p",
		"-bf", "0",
		"-g", strconv.Itoa(cfg.KeyFrameInterval),
		"-keyint_min", strconv.Itoa(cfg.KeyFrameInterval),
		"-sc_threshold", "0",
		"-b:v", strconv.Itoa(cfg.Bitrate),
		"-bsf:v", "h264_metadata=aud=insert",
		"-f", "h264",
		"pipe:1",
	}
}

// Open starts ffmpeg. The process is killed if ctx is cancelled.
func (e *FFmpegEngine) Open(ctx context.Context, cfg ports.EngineConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cmd != nil || e.closed {
		return fmt.Errorf("%w: already opened", ErrEngineClosed)
	}
	if cfg.Codec != "" && cfg.Codec != "h264" {
		return fmt.Errorf("codec %q not supported by ffmpeg engine", cfg.Codec)
	}
	if cfg.KeyFrameInterval < 1 {
		cfg.KeyFrameInterval = 1
	}

	ffmpegPath, err := FindFFmpeg()
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, ffmpegPath, e.Args(cfg)...)
	cmd.Stderr = &e.stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to get stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to get stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	e.cfg = cfg
	e.cmd = cmd
	e.stdin = stdin
	e.lastPTS = -pipeline.FrameDuration(cfg.FPS)

	e.log.Debug("Started ffmpeg: %s", ffmpegPath)
	go e.read(stdout)
	return nil
}

// Write sends one planar picture to ffmpeg. It blocks while the pipe is full.
func (e *FFmpegEngine) Write(frame []byte, pts int64) error {
	e.mu.Lock()
	if e.stdin == nil || e.inClosed || e.closed {
		e.mu.Unlock()
		return ErrEngineClosed
	}
	want := pipeline.PlanarSize(e.cfg.Width, e.cfg.Height)
	stdin := e.stdin
	e.pts = append(e.pts, pts)
	e.mu.Unlock()

	if len(frame) != want {
		return fmt.Errorf("frame has %d bytes, want %d", len(frame), want)
	}
	if _, err := stdin.Write(frame); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// CloseInput closes ffmpeg's stdin so it flushes the encoder and exits.
func (e *FFmpegEngine) CloseInput() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stdin == nil || e.inClosed {
		return nil
	}
	e.inClosed = true
	return e.stdin.Close()
}

// Events returns the output channel. It is closed when ffmpeg has exited.
func (e *FFmpegEngine) Events() <-chan ports.EngineEvent {
	return e.events
}

// Close kills ffmpeg if it is still running and waits for the reader.
func (e *FFmpegEngine) Close() error {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.closed = true
		started := e.cmd != nil
		if e.stdin != nil && !e.inClosed {
			e.inClosed = true
			e.stdin.Close()
		}
		e.mu.Unlock()

		close(e.quit)
		if !started {
			close(e.events)
			return
		}
		if e.cmd.Process != nil {
			e.cmd.Process.Kill()
		}
		<-e.done
	})
	return nil
}

// read splits stdout into access units until ffmpeg exits.
func (e *FFmpegEngine) read(stdout io.Reader) {
	defer close(e.done)
	defer close(e.events)

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 1<<20), maxAccessUnit)
	scanner.Split(splitAccessUnits)

	formatSent := false
	alive := true
	for alive && scanner.Scan() {
		au := append([]byte(nil), scanner.Bytes()...)

		if !formatSent {
			sps, pps := ParameterSets(au)
			format, err := FormatFromParameterSets(sps, pps, e.cfg.Layout)
			if err != nil {
				e.send(ports.EngineEvent{Err: err})
				e.kill()
				return
			}
			formatSent = true
			if alive = e.send(ports.EngineEvent{Format: format}); !alive {
				break
			}
		}

		alive = e.send(ports.EngineEvent{
			Data:     au,
			PTS:      e.nextPTS(),
			KeyFrame: IsKeyFrame(au),
		})
	}

	if !alive {
		e.kill()
		return
	}

	if err := scanner.Err(); err != nil {
		e.kill()
		e.send(ports.EngineEvent{Err: fmt.Errorf("read ffmpeg output: %w", err)})
		return
	}

	if err := e.cmd.Wait(); err != nil {
		e.mu.Lock()
		expected := e.closed
		stderr := e.stderr.String()
		e.mu.Unlock()
		if !expected {
			e.send(ports.EngineEvent{Err: fmt.Errorf("ffmpeg encoding failed: %w\nstderr: %s", err, stderr)})
		}
		return
	}

	e.send(ports.EngineEvent{EOS: true})
}

// nextPTS pops the oldest pending timestamp.
func (e *FFmpegEngine) nextPTS() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.pts) == 0 {
		e.lastPTS += pipeline.FrameDuration(e.cfg.FPS)
		return e.lastPTS
	}
	pts := e.pts[0]
	e.pts = e.pts[1:]
	e.lastPTS = pts
	return pts
}

// send delivers ev unless the engine is being closed.
func (e *FFmpegEngine) send(ev ports.EngineEvent) bool {
	select {
	case e.events <- ev:
		return true
	case <-e.quit:
		return false
	}
}

func (e *FFmpegEngine) kill() {
	if e.cmd.Process != nil {
		e.cmd.Process.Kill()
	}
	e.cmd.Wait()
}

// Ensure FFmpegEngine implements ports.Engine
var _ ports.Engine = (*FFmpegEngine)(nil)
