// Package main provides the CLI entry point for framerec.
package main

import (
	"fmt"
	"os"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/framerec/pkg/adapters/h264encoder"
	"github.com/user/framerec/pkg/adapters/mp4probe"
)

var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "framerec",
		Usage:   l10n.T("Record raw frames into H.264 MP4 files"),
		Version: version,
		Description: l10n.T("framerec encodes frames from a capture source into a fragmented MP4 file " +
			"and finalizes it when the capture stops."),
		Commands: []*cli.Command{
			recordCommand(),
			inspectCommand(),
			versionCommand(),
		},
	}
}

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     l10n.T("Show the video track of an MP4 file"),
		ArgsUsage: "<file.mp4>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "samples", Usage: l10n.T("List every sample")},
			&cli.BoolFlag{Name: "luma", Usage: l10n.T("Decode with ffmpeg and print the average luma of each frame")},
			&cli.StringFlag{Name: "ffmpeg", Usage: l10n.T("Path to the ffmpeg executable")},
		},
		Action: runInspect,
	}
}

func runInspect(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.Exit(l10n.T("An MP4 file is required"), 2)
	}

	info, err := mp4probe.ProbeFile(path)
	if err != nil {
		return err
	}

	layout := l10n.T("progressive")
	if info.Fragmented {
		layout = l10n.F("%d fragments", info.Fragments)
	}
	fmt.Println(l10n.F("File:       %s", path))
	fmt.Println(l10n.F("Codec:      %s (%s)", info.Codec, info.SampleEntry))
	fmt.Println(l10n.F("Size:       %dx%d", info.Width, info.Height))
	fmt.Println(l10n.F("Layout:     %s", layout))
	fmt.Println(l10n.F("Samples:    %d (%d key frames)", len(info.Samples), info.KeyFrames()))
	fmt.Println(l10n.F("Duration:   %.3f s", float64(info.Duration())/1e6))

	if c.Bool("samples") {
		for i, s := range info.Samples {
			key := ""
			if s.KeyFrame {
				key = " key"
			}
			fmt.Printf("%6d  pts=%-10d dur=%-7d size=%-7d%s\n", i, s.PTS, s.Duration, s.Size, key)
		}
	}

	if c.Bool("luma") {
		h264encoder.SetFFmpegPath(c.String("ffmpeg"))
		lumas, err := mp4probe.DecodeLuma(c.Context, path, info.Width, info.Height)
		if err != nil {
			return err
		}
		for i, y := range lumas {
			fmt.Printf("%6d  luma=%.2f\n", i, y)
		}
	}
	return nil
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: l10n.T("Show version information"),
		Action: func(c *cli.Context) error {
			fmt.Println(l10n.F("framerec version %s", version))
			return nil
		},
	}
}
