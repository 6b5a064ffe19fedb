package mp4probe

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"github.com/user/framerec/pkg/adapters/h264encoder"
)

// DecodeLuma decodes the file at path with ffmpeg and returns the average
// luma of every frame. width and height must match the coded picture.
func DecodeLuma(ctx context.Context, path string, width, height int) ([]float64, error) {
	ffmpegPath, err := h264encoder.FindFFmpeg()
	if err != nil {
		return nil, err
	}

	// yuv420p keeps the decoded luma untouched; a gray target would be
	// range-converted.
	cmd := exec.CommandContext(ctx, ffmpegPath,
		"-hide_banner",
		"-loglevel", "error",
		"-i", path,
		"-f", "rawvideo",
		"-pix_fmt", "yuv420p",
		"pipe:1",
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	lumas, readErr := readLuma(bufio.NewReader(stdout), width, height)
	if err := cmd.Wait(); err != nil {
		return nil, fmt.Errorf("ffmpeg decoding failed: %w\nstderr: %s", err, stderr.String())
	}
	if readErr != nil {
		return nil, readErr
	}
	return lumas, nil
}

// readLuma consumes raw yuv420p frames and averages each luma plane.
func readLuma(r io.Reader, width, height int) ([]float64, error) {
	ySize := width * height
	frame := make([]byte, ySize*3/2)

	var lumas []float64
	for {
		_, err := io.ReadFull(r, frame)
		if errors.Is(err, io.EOF) {
			return lumas, nil
		}
		if err != nil {
			return lumas, fmt.Errorf("read decoded frame %d: %w", len(lumas), err)
		}

		var sum uint64
		for _, v := range frame[:ySize] {
			sum += uint64(v)
		}
		lumas = append(lumas, float64(sum)/float64(ySize))
	}
}
