package image

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// encodePNG renders a solid-color source image for the transform tests.
func encodePNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode source: %v", err)
	}
	return buf.Bytes()
}

func decodeJPEG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if format != "jpeg" {
		t.Fatalf("output format = %q, want jpeg", format)
	}
	return img
}

func isBlack(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	// JPEG encoding wobbles pixel values slightly.
	const tol = 0x0800
	return r < tol && g < tol && b < tol
}

func isWhite(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	const tol = 0x0800
	return r > 0xffff-tol && g > 0xffff-tol && b > 0xffff-tol
}

func TestLetterbox_WideSourceCenteredWithBlackBars(t *testing.T) {
	// 16:9 source, white: scales to 600x337, letterboxed top and bottom.
	src := encodePNG(t, 800, 450, color.White)

	out, err := Letterbox(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	img := decodeJPEG(t, out)
	b := img.Bounds()
	if b.Dx() != PosterWidth || b.Dy() != PosterHeight {
		t.Fatalf("output %dx%d, want %dx%d", b.Dx(), b.Dy(), PosterWidth, PosterHeight)
	}

	// Scaled content is 600x337, centered vertically at y0 = 281.
	if !isWhite(img.At(300, 450)) {
		t.Error("center pixel not white")
	}
	if !isWhite(img.At(5, 450)) || !isWhite(img.At(594, 450)) {
		t.Error("content does not span the full width")
	}
	if !isBlack(img.At(300, 100)) {
		t.Error("top letterbox bar not black")
	}
	if !isBlack(img.At(300, 800)) {
		t.Error("bottom letterbox bar not black")
	}
}

func TestLetterbox_TallSourceNotCropped(t *testing.T) {
	// 1:2 source, taller than 2:3: height fills, width is pillarboxed.
	src := encodePNG(t, 300, 600, color.White)

	out, err := Letterbox(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	img := decodeJPEG(t, out)

	// Scaled content is 450x900, centered horizontally at x0 = 75.
	if !isWhite(img.At(300, 5)) || !isWhite(img.At(300, 894)) {
		t.Error("content does not span the full height")
	}
	if !isBlack(img.At(30, 450)) {
		t.Error("left bar not black")
	}
	if !isBlack(img.At(570, 450)) {
		t.Error("right bar not black")
	}
	if !isWhite(img.At(300, 450)) {
		t.Error("center pixel not white")
	}
}

func TestLetterboxImage_IdempotentOnOwnOutput(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 800, 450))
	for y := 0; y < 450; y++ {
		for x := 0; x < 800; x++ {
			src.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}

	once := letterboxImage(src)
	twice := letterboxImage(once)

	// An exactly-fitting source takes the plain copy path, so the second
	// application must be pixel-identical.
	if !bytes.Equal(once.Pix, twice.Pix) {
		t.Fatal("re-applying the letterbox to its own output changed pixels")
	}
}

func TestLetterbox_EmptyAndInvalidInput(t *testing.T) {
	if _, err := Letterbox(nil); err == nil {
		t.Error("expected error for empty input")
	}
	if _, err := Letterbox([]byte("not an image")); err == nil {
		t.Error("expected error for undecodable input")
	}
}
