package ggrenderer

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"golang.org/x/image/bmp"

	"github.com/user/framerec/pkg/ports"
)

func TestRenderer_CreateCanvas(t *testing.T) {
	r := New()
	canvas := r.CreateCanvas(100, 50, color.White)

	img := canvas.ToImage()
	bounds := img.Bounds()
	if bounds.Dx() != 100 || bounds.Dy() != 50 {
		t.Errorf("expected 100x50, got %dx%d", bounds.Dx(), bounds.Dy())
	}

	rr, g, b, _ := img.At(50, 25).RGBA()
	if rr != 65535 || g != 65535 || b != 65535 {
		t.Error("expected white background")
	}
}

func TestRenderer_DecodeImage(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 30, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 30; x++ {
			src.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}

	encode := map[string]func(*bytes.Buffer) error{
		"png":  func(b *bytes.Buffer) error { return png.Encode(b, src) },
		"jpeg": func(b *bytes.Buffer) error { return jpeg.Encode(b, src, &jpeg.Options{Quality: 90}) },
		"bmp":  func(b *bytes.Buffer) error { return bmp.Encode(b, src) },
	}

	r := New()
	for name, enc := range encode {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := enc(&buf); err != nil {
				t.Fatalf("encode: %v", err)
			}
			img, err := r.DecodeImage(buf.Bytes())
			if err != nil {
				t.Fatalf("DecodeImage failed: %v", err)
			}
			if b := img.Bounds(); b.Dx() != 30 || b.Dy() != 20 {
				t.Errorf("expected 30x20, got %dx%d", b.Dx(), b.Dy())
			}
			red, _, _, _ := img.At(15, 10).RGBA()
			if red>>8 < 180 {
				t.Errorf("red channel = %d, want about 200", red>>8)
			}
		})
	}
}

func TestRenderer_DecodeImage_Garbage(t *testing.T) {
	r := New()
	if _, err := r.DecodeImage([]byte("not an image")); err == nil {
		t.Error("expected error for garbage input")
	}
}

func TestRenderer_EncodePNG(t *testing.T) {
	r := New()
	canvas := r.CreateCanvas(40, 30, color.RGBA{B: 255, A: 255})

	data, err := r.EncodePNG(canvas.ToImage())
	if err != nil {
		t.Fatalf("EncodePNG failed: %v", err)
	}
	decoded, err := r.DecodeImage(data)
	if err != nil {
		t.Fatalf("DecodeImage failed: %v", err)
	}
	if b := decoded.Bounds(); b.Dx() != 40 || b.Dy() != 30 {
		t.Errorf("expected 40x30, got %dx%d", b.Dx(), b.Dy())
	}
	if _, _, blue, _ := decoded.At(20, 15).RGBA(); blue != 65535 {
		t.Error("expected blue pixel to survive the round trip")
	}
}

func TestRenderer_ResizeImage(t *testing.T) {
	r := New()

	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	resized := r.ResizeImage(img, 50, 40)

	bounds := resized.Bounds()
	if bounds.Dx() != 50 || bounds.Dy() != 40 {
		t.Errorf("expected 50x40, got %dx%d", bounds.Dx(), bounds.Dy())
	}

	if same := r.ResizeImage(img, 100, 100); same != image.Image(img) {
		t.Error("expected image of matching size to be returned unchanged")
	}
}

func TestCanvas_DrawRect(t *testing.T) {
	r := New()
	canvas := r.CreateCanvas(100, 100, color.White)

	canvas.DrawRect(10, 10, 30, 30, color.RGBA{R: 255, A: 255})

	img := canvas.ToImage()
	_, g, _, _ := img.At(20, 20).RGBA()
	if g != 0 {
		t.Error("expected red pixel inside rectangle")
	}
	_, g, _, _ = img.At(60, 60).RGBA()
	if g == 0 {
		t.Error("expected background outside rectangle")
	}
}

func TestCanvas_DrawRoundedRect(t *testing.T) {
	r := New()
	canvas := r.CreateCanvas(100, 100, color.White)

	canvas.DrawRoundedRect(10, 10, 60, 60, 20, color.Black)

	img := canvas.ToImage()
	if rr, _, _, _ := img.At(40, 40).RGBA(); rr != 0 {
		t.Error("expected black pixel in the middle")
	}
	if rr, _, _, _ := img.At(11, 11).RGBA(); rr == 0 {
		t.Error("expected rounded corner to stay background")
	}
}

func TestCanvas_DrawRectStroke(t *testing.T) {
	r := New()
	canvas := r.CreateCanvas(100, 100, color.White)

	canvas.DrawRectStroke(10, 10, 30, 30, color.Black, 2)

	img := canvas.ToImage()
	if rr, _, _, _ := img.At(10, 20).RGBA(); rr == 65535 {
		t.Error("expected dark pixel on border")
	}
	if rr, _, _, _ := img.At(25, 25).RGBA(); rr != 65535 {
		t.Error("expected untouched interior")
	}
}

func TestCanvas_DrawLine(t *testing.T) {
	r := New()
	canvas := r.CreateCanvas(100, 100, color.White)

	canvas.DrawLine(0, 50, 100, 50, color.Black, 2)

	img := canvas.ToImage()
	r1, g1, b1, _ := img.At(50, 50).RGBA()
	if r1 == 65535 && g1 == 65535 && b1 == 65535 {
		t.Error("expected non-white pixel on line")
	}
}

func TestCanvas_DrawText(t *testing.T) {
	r := New()
	canvas := r.CreateCanvas(200, 50, color.White)

	style := ports.TextStyle{
		FontSize: 14,
		Color:    color.Black,
		Align:    ports.AlignCenter,
	}
	canvas.DrawText("frame 42", 100, 25, style)

	img := canvas.ToImage()
	dark := 0
	for y := 0; y < 50; y++ {
		for x := 0; x < 200; x++ {
			if rr, _, _, _ := img.At(x, y).RGBA(); rr < 32768 {
				dark++
			}
		}
	}
	if dark == 0 {
		t.Error("expected text pixels on canvas")
	}
}
