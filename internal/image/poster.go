package image

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	_ "image/png" // register PNG decoder; Stash screenshots are not always JPEG

	"github.com/pkg/errors"
	xdraw "golang.org/x/image/draw"
)

// Poster dimensions: 600x900 gives the 2:3 aspect ratio Plex poster
// artwork uses.
const (
	PosterWidth  = 600
	PosterHeight = 900

	jpegQuality = 85
)

// Letterbox reformats an arbitrary-ratio source image into a 2:3 poster:
// the source is scaled to fit (no cropping), centered on an opaque black
// canvas, with the longer axis filling its target dimension exactly.
// Output is always JPEG.
func Letterbox(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, errors.New("empty source image")
	}

	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, errors.Wrap(err, "decode source")
	}

	out := letterboxImage(img)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, errors.Wrap(err, "encode poster")
	}
	return buf.Bytes(), nil
}

// letterboxImage performs the geometric transform. Re-applying it to its own
// output is a pixel-identical no-op: an exactly-fitting source takes the
// plain copy path, no resampling.
func letterboxImage(img image.Image) *image.RGBA {
	b := img.Bounds()
	sw, sh := b.Dx(), b.Dy()

	// Scale to fit: the axis with the larger relative size fills its
	// target dimension, the other is derived preserving aspect.
	var tw, th int
	if sw*PosterHeight >= sh*PosterWidth {
		tw = PosterWidth
		th = sh * PosterWidth / sw
	} else {
		th = PosterHeight
		tw = sw * PosterHeight / sh
	}
	if tw < 1 {
		tw = 1
	}
	if th < 1 {
		th = 1
	}

	canvas := image.NewRGBA(image.Rect(0, 0, PosterWidth, PosterHeight))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	x0 := (PosterWidth - tw) / 2
	y0 := (PosterHeight - th) / 2
	target := image.Rect(x0, y0, x0+tw, y0+th)

	if tw == sw && th == sh {
		draw.Draw(canvas, target, img, b.Min, draw.Src)
	} else {
		xdraw.CatmullRom.Scale(canvas, target, img, b, xdraw.Src, nil)
	}
	return canvas
}
