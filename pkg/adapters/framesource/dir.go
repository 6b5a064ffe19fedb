package framesource

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/user/framerec/pkg/pipeline"
	"github.com/user/framerec/pkg/ports"
)

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".bmp":  true,
	".webp": true,
}

// Dir replays the still images of a directory in file name order, scaled
// to the frame size.
type Dir struct {
	renderer ports.Renderer
	files    []string
	opts     Options
	pool     *bufferPool
	pacer    *pacer
	n        int
}

// NewDir lists the images in path.
func NewDir(path string, renderer ports.Renderer, opts Options) (*Dir, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if renderer == nil {
		return nil, fmt.Errorf("directory source needs a renderer")
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, filepath.Join(path, e.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no images in %s", path)
	}
	sort.Strings(files)

	if opts.Frames > 0 && opts.Frames < len(files) {
		files = files[:opts.Frames]
	}
	return &Dir{
		renderer: renderer,
		files:    files,
		opts:     opts,
		pool:     newBufferPool(opts.frameSize()),
		pacer:    newPacer(opts),
	}, nil
}

// Len returns the number of frames the source will produce.
func (d *Dir) Len() int {
	return len(d.files)
}

// Next decodes the next image.
func (d *Dir) Next(ctx context.Context) (pipeline.RawFrame, error) {
	if d.n >= len(d.files) {
		return pipeline.RawFrame{}, io.EOF
	}
	if err := d.pacer.wait(ctx); err != nil {
		return pipeline.RawFrame{}, err
	}

	path := d.files[d.n]
	data, err := os.ReadFile(path)
	if err != nil {
		return pipeline.RawFrame{}, fmt.Errorf("read %s: %w", path, err)
	}
	img, err := d.renderer.DecodeImage(data)
	if err != nil {
		return pipeline.RawFrame{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	img = d.renderer.ResizeImage(img, d.opts.Width, d.opts.Height)

	buf := d.pool.get()
	Pack(buf, img, d.opts.Format)
	d.n++
	return d.pool.frame(buf, d.opts), nil
}

// Close stops the source.
func (d *Dir) Close() error {
	return nil
}

var _ ports.FrameSource = (*Dir)(nil)
