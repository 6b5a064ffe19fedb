package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/user/framerec/pkg/adapters/filesink"
	"github.com/user/framerec/pkg/adapters/framesource"
	"github.com/user/framerec/pkg/adapters/ggrenderer"
	"github.com/user/framerec/pkg/adapters/h264encoder"
	"github.com/user/framerec/pkg/adapters/logger"
	"github.com/user/framerec/pkg/adapters/nullsink"
	"github.com/user/framerec/pkg/adapters/osfilesystem"
	"github.com/user/framerec/pkg/adapters/udpnotifier"
	"github.com/user/framerec/pkg/config"
	"github.com/user/framerec/pkg/orchestrator"
	"github.com/user/framerec/pkg/pipeline"
	"github.com/user/framerec/pkg/ports"
	"github.com/user/framerec/pkg/summarizer"
)

func recordCommand() *cli.Command {
	source := l10n.T("Source")
	video := l10n.T("Video and Quality")
	pipe := l10n.T("Pipeline")
	output := l10n.T("Output")
	logging := l10n.T("Logging")
	debug := l10n.T("Debug")

	return &cli.Command{
		Name:  "record",
		Usage: l10n.T("Record frames from a capture source as MP4 video"),
		Description: l10n.T("Capture frames from the selected source and encode them into an MP4 file. " +
			"Press Ctrl-C to stop the capture; the file is still finalized."),
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Category: output, Usage: l10n.T("YAML configuration file")},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Category: output, Usage: l10n.T("Output MP4 file path (default: video_<millis>.mp4)")},
			&cli.StringFlag{Name: "output-dir", Category: output, Usage: l10n.T("Directory for the default output name")},
			&cli.StringFlag{Name: "notify-udp", Category: output, Usage: l10n.T("Send SAVED:<path> to this UDP address when done")},
			&cli.StringFlag{Name: "summary", Category: output, Usage: l10n.T("Write a Markdown summary to this file")},

			&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Category: source, Usage: l10n.T("Capture source (synthetic, dir, raw)")},
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Category: source, Usage: l10n.T("Image directory, or raw frame file (- for stdin)")},
			&cli.IntFlag{Name: "width", Aliases: []string{"W"}, Category: source, Usage: l10n.T("Frame width in pixels (even)")},
			&cli.IntFlag{Name: "height", Aliases: []string{"H"}, Category: source, Usage: l10n.T("Frame height in pixels (even)")},
			&cli.IntFlag{Name: "frames", Aliases: []string{"n"}, Category: source, Usage: l10n.T("Number of frames to capture (0 = until the source ends)")},
			&cli.StringFlag{Name: "pixel-format", Category: source, Usage: l10n.T("Raw pixel format (rgb24, rgba, bgra)")},
			&cli.BoolFlag{Name: "realtime", Category: source, Usage: l10n.T("Pace the capture at the frame rate")},

			&cli.IntFlag{Name: "fps", Aliases: []string{"r"}, Category: video, Usage: l10n.T("Frame rate (default: 30)")},
			&cli.IntFlag{Name: "bitrate", Aliases: []string{"b"}, Category: video, Usage: l10n.T("Target bitrate in bits per second (default: 2000000)")},
			&cli.StringFlag{Name: "layout", Category: video, Usage: l10n.T("Chroma layout fed to the encoder (yuv420p, nv12)")},
			&cli.IntFlag{Name: "keyframe-interval", Category: video, Usage: l10n.T("Seconds between key frames (default: 1)")},
			&cli.StringFlag{Name: "ffmpeg", Category: video, Usage: l10n.T("Path to the ffmpeg executable")},

			&cli.IntFlag{Name: "queue-size", Category: pipe, Usage: l10n.T("Frames buffered between capture and encoder (default: 64)")},
			&cli.StringFlag{Name: "drop-policy", Category: pipe, Usage: l10n.T("What to do when the queue is full (backpressure, drop-oldest)")},

			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Category: debug, Usage: l10n.T("Save captured frames and the result for inspection")},
			&cli.StringFlag{Name: "debug-dir", Value: "./debug", Category: debug, Usage: l10n.T("Directory for debug output")},
			&cli.IntFlag{Name: "debug-every", Value: 1, Category: debug, Usage: l10n.T("Save every n-th captured frame")},

			&cli.StringFlag{Name: "log-level", Aliases: []string{"l"}, Category: logging, Usage: l10n.T("Log level (debug, info, warn, error)")},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Category: logging, Usage: l10n.T("Suppress all log output")},
		},
		Action: runRecord,
	}
}

// loadConfig reads the config file, if any, and applies flag overrides.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Defaults()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = config.LoadFromFile(path); err != nil {
			return cfg, err
		}
	}

	stringFlags := map[string]*string{
		"output":       &cfg.OutputPath,
		"output-dir":   &cfg.OutputDir,
		"notify-udp":   &cfg.NotifyUDP,
		"summary":      &cfg.Summary,
		"source":       &cfg.Source.Kind,
		"input":        &cfg.Source.Input,
		"pixel-format": &cfg.Source.PixelFormat,
		"layout":       &cfg.Layout,
		"ffmpeg":       &cfg.FFmpegPath,
		"drop-policy":  &cfg.DropPolicy,
		"log-level":    &cfg.LogLevel,
	}
	for name, dst := range stringFlags {
		if c.IsSet(name) {
			*dst = c.String(name)
		}
	}

	intFlags := map[string]*int{
		"width":             &cfg.Source.Width,
		"height":            &cfg.Source.Height,
		"frames":            &cfg.Source.Frames,
		"fps":               &cfg.FPS,
		"bitrate":           &cfg.Bitrate,
		"keyframe-interval": &cfg.KeyFrameInterval,
		"queue-size":        &cfg.QueueSize,
	}
	for name, dst := range intFlags {
		if c.IsSet(name) {
			*dst = c.Int(name)
		}
	}

	if c.IsSet("realtime") {
		cfg.Source.Realtime = c.Bool("realtime")
	}
	if c.Bool("quiet") {
		cfg.LogLevel = ports.LevelQuiet.String()
	}
	return cfg, cfg.Validate()
}

func runRecord(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err, 2)
	}

	sessionID := uuid.NewString()

	var log ports.Logger
	if level, _ := ports.ParseLogLevel(cfg.LogLevel); level == ports.LevelQuiet {
		log = logger.NewNoop()
	} else {
		log = logger.NewConsole(level).WithSession(sessionID)
	}
	log.Debug("Session %s", sessionID)

	h264encoder.SetFFmpegPath(cfg.FFmpegPath)
	fs := osfilesystem.New()
	renderer := ggrenderer.New()

	var sink ports.DebugSink = nullsink.New()
	if c.Bool("debug") {
		if err := fs.MkdirAll(c.String("debug-dir")); err != nil {
			return fmt.Errorf("create debug directory: %w", err)
		}
		sink = filesink.New(c.String("debug-dir"), fs, renderer, c.Int("debug-every"))
	}

	deps := orchestrator.Deps{
		Engine: h264encoder.NewFFmpegEngine(log.WithComponent("ffmpeg")),
		FS:     fs,
		Logger: log,
	}
	if cfg.NotifyUDP != "" {
		n, err := udpnotifier.New(cfg.NotifyUDP, log)
		if err != nil {
			return cli.Exit(err, 2)
		}
		deps.Notifier = n
	}

	src, err := framesource.New(cfg.Source.Kind, cfg.Source.Input, framesource.Options{
		Width:      cfg.Source.Width,
		Height:     cfg.Source.Height,
		Format:     pipeline.ParsePixelFormat(cfg.Source.PixelFormat),
		Frames:     cfg.Source.Frames,
		FPS:        cfg.FPS,
		Realtime:   cfg.Source.Realtime,
		Background: config.ParseColor(cfg.Source.Background),
		Foreground: config.ParseColor(cfg.Source.Foreground),
	}, renderer)
	if err != nil {
		return err
	}
	defer src.Close()

	orch := orchestrator.New(cfg.ToOrchestratorConfig(), deps)

	// The first interrupt ends the capture and finalizes the file. A second
	// one discards the recording.
	captureCtx, stopCapture := context.WithCancel(c.Context)
	defer stopCapture()
	pipelineCtx, abort := context.WithCancel(context.Background())
	defer abort()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-sigCh:
		case <-done:
			return
		}
		log.Warn("Interrupted, finishing recording...")
		stopCapture()

		select {
		case <-sigCh:
			log.Warn("Interrupted again, discarding recording")
			abort()
		case <-done:
		}
	}()

	if err := orch.Start(pipelineCtx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(captureCtx)
	g.Go(func() error {
		defer orch.Stop()
		return capture(gctx, src, orch, sink, log, !cfg.Source.Realtime)
	})
	g.Go(func() error {
		select {
		case <-orch.Done():
			stopCapture()
		case <-gctx.Done():
		}
		return nil
	})
	captureErr := g.Wait()
	res := orch.Wait()

	if cfg.Summary != "" {
		writeSummary(cfg, sessionID, res, fs, log)
	}
	if sink.Enabled() {
		if err := sink.SaveRecordingJSON(recordingJSON(sessionID, res)); err != nil {
			log.Warn("Failed to save debug output: %s", err)
		}
	}

	if !res.OK() {
		return cli.Exit(l10n.F("Recording failed: %s", l10n.T(res.Reason)), 1)
	}
	if captureErr != nil {
		return cli.Exit(l10n.F("Capture failed: %s", captureErr), 1)
	}
	fmt.Println(res.Path)
	return nil
}

// capture pulls frames from src until it ends or ctx is cancelled. With
// wait set, every frame waits for queue space, which is right for sources
// read on our own schedule. Otherwise the queue policy applies and a full
// queue rejects the frame.
func capture(ctx context.Context, src ports.FrameSource, orch *orchestrator.Orchestrator, sink ports.DebugSink, log ports.Logger, wait bool) error {
	captured := 0
	for {
		frame, err := src.Next(ctx)
		switch {
		case errors.Is(err, io.EOF), ctx.Err() != nil:
			log.Debug("Capture source ended after %d frames", captured)
			return nil
		case err != nil:
			log.Error("Capture failed: %s", err)
			return err
		}
		if sink.Enabled() {
			if err := sink.SaveRawFrame(captured, framesource.Unpack(frame)); err != nil {
				log.Warn("Failed to save debug output: %s", err)
			}
		}
		captured++

		if wait {
			err = orch.SubmitWait(ctx, frame)
		} else {
			err = orch.Submit(frame)
		}
		switch {
		case err == nil, errors.Is(err, pipeline.ErrQueueFull):
		case errors.Is(err, pipeline.ErrStopped), ctx.Err() != nil:
			return nil
		default:
			return err
		}
	}
}

func writeSummary(cfg config.Config, sessionID string, res orchestrator.Result, fs ports.FileSystem, log ports.Logger) {
	summary := summarizer.NewBuilder().
		WithSession(sessionID).
		WithSettings(summarizer.Settings{
			Source:           cfg.Source.Kind,
			FPS:              cfg.FPS,
			Bitrate:          cfg.Bitrate,
			Codec:            cfg.Codec,
			Layout:           cfg.Layout,
			KeyFrameInterval: time.Duration(cfg.KeyFrameInterval) * time.Second,
			QueueSize:        cfg.QueueSize,
			DropPolicy:       cfg.DropPolicy,
		}).
		WithResult(res).
		Build()

	formatter := summarizer.NewMarkdownFormatter(
		summarizer.WithTranslator(l10n.T),
		summarizer.WithVersion(version),
	)
	if err := summarizer.NewWriter(formatter, fs).Write(cfg.Summary, summary); err != nil {
		log.Warn("Failed to write summary: %s", err)
		return
	}
	log.Info("Summary written to %s", cfg.Summary)
}

type recordingDump struct {
	Session    string `json:"session"`
	Path       string `json:"path"`
	OK         bool   `json:"ok"`
	Reason     string `json:"reason,omitempty"`
	Error      string `json:"error,omitempty"`
	Frames     int    `json:"frames"`
	Samples    int    `json:"samples"`
	KeyFrames  int    `json:"keyFrames"`
	Dropped    int    `json:"dropped"`
	Rejected   int    `json:"rejected"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Codec      string `json:"codec,omitempty"`
	DurationMs int64  `json:"durationMs"`
	Size       int64  `json:"size"`
	ElapsedMs  int64  `json:"elapsedMs"`
}

func recordingJSON(sessionID string, res orchestrator.Result) []byte {
	dump := recordingDump{
		Session:    sessionID,
		Path:       res.Path,
		OK:         res.OK(),
		Reason:     res.Reason,
		Frames:     res.Frames,
		Samples:    res.Samples,
		KeyFrames:  res.KeyFrames,
		Dropped:    res.Dropped,
		Rejected:   res.Rejected,
		Width:      res.Width,
		Height:     res.Height,
		Codec:      res.CodecString,
		DurationMs: res.Duration.Milliseconds(),
		Size:       res.Size,
		ElapsedMs:  res.Elapsed.Milliseconds(),
	}
	if res.Err != nil {
		dump.Error = res.Err.Error()
	}
	data, _ := json.MarshalIndent(dump, "", "  ")
	return data
}
