// Package imgproc implements the local image normalization used when the
// remote transformation endpoint cannot serve a request.
package imgproc

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"strings"

	"charmforge/internal/domain"
)

const jpegQuality = 90

// Normalize scales the source so its longer side equals dim, centers it on an
// opaque white dim x dim canvas, converts every pixel to greyscale, and
// re-encodes the result as JPEG.
func Normalize(data []byte, contentType string, dim int) ([]byte, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("imgproc: invalid dimension %d", dim)
	}
	src, err := decode(data, contentType)
	if err != nil {
		return nil, err
	}

	bounds := src.Bounds()
	sw, sh := bounds.Dx(), bounds.Dy()
	if sw == 0 || sh == 0 {
		return nil, fmt.Errorf("imgproc: empty image")
	}

	nw, nh := fitDims(sw, sh, dim)
	resized := resample(src, nw, nh)

	canvas := image.NewRGBA(image.Rect(0, 0, dim, dim))
	fillWhite(canvas)
	offX := (dim - nw) / 2
	offY := (dim - nh) / 2
	for y := 0; y < nh; y++ {
		for x := 0; x < nw; x++ {
			canvas.SetRGBA(offX+x, offY+y, resized.RGBAAt(x, y))
		}
	}

	Greyscale(canvas)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("imgproc: encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func decode(data []byte, contentType string) (image.Image, error) {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/png":
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("imgproc: decode png: %w", err)
		}
		return img, nil
	case "image/jpeg", "image/jpg":
		img, err := jpeg.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("imgproc: decode jpeg: %w", err)
		}
		return img, nil
	default:
		return nil, fmt.Errorf("imgproc: %w: %s", domain.ErrUnsupportedType, contentType)
	}
}

// fitDims scales (sw, sh) uniformly so the longer side equals dim.
func fitDims(sw, sh, dim int) (int, int) {
	if sw >= sh {
		nh := int(math.Round(float64(sh) * float64(dim) / float64(sw)))
		if nh < 1 {
			nh = 1
		}
		return dim, nh
	}
	nw := int(math.Round(float64(sw) * float64(dim) / float64(sh)))
	if nw < 1 {
		nw = 1
	}
	return nw, dim
}

// resample performs bilinear interpolation: each destination pixel blends the
// four nearest source pixels using the fractional offsets in both axes, with
// the second sample clamped to the last valid row/column.
func resample(src image.Image, nw, nh int) *image.RGBA {
	bounds := src.Bounds()
	sw, sh := bounds.Dx(), bounds.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))

	for dy := 0; dy < nh; dy++ {
		srcY := float64(dy) * float64(sh) / float64(nh)
		y0 := int(srcY)
		if y0 > sh-1 {
			y0 = sh - 1
		}
		y1 := y0 + 1
		if y1 > sh-1 {
			y1 = sh - 1
		}
		ty := srcY - float64(y0)

		for dx := 0; dx < nw; dx++ {
			srcX := float64(dx) * float64(sw) / float64(nw)
			x0 := int(srcX)
			if x0 > sw-1 {
				x0 = sw - 1
			}
			x1 := x0 + 1
			if x1 > sw-1 {
				x1 = sw - 1
			}
			tx := srcX - float64(x0)

			c00 := rgbaAt(src, bounds.Min.X+x0, bounds.Min.Y+y0)
			c10 := rgbaAt(src, bounds.Min.X+x1, bounds.Min.Y+y0)
			c01 := rgbaAt(src, bounds.Min.X+x0, bounds.Min.Y+y1)
			c11 := rgbaAt(src, bounds.Min.X+x1, bounds.Min.Y+y1)

			dst.SetRGBA(dx, dy, color.RGBA{
				R: lerp2(c00.R, c10.R, c01.R, c11.R, tx, ty),
				G: lerp2(c00.G, c10.G, c01.G, c11.G, tx, ty),
				B: lerp2(c00.B, c10.B, c01.B, c11.B, tx, ty),
				A: lerp2(c00.A, c10.A, c01.A, c11.A, tx, ty),
			})
		}
	}
	return dst
}

// Greyscale converts img in place using y = round(0.299r + 0.587g + 0.114b)
// applied identically to the R/G/B channels. Alpha is left untouched.
func Greyscale(img *image.RGBA) {
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := img.RGBAAt(x, y)
			g := uint8(math.Round(0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)))
			img.SetRGBA(x, y, color.RGBA{R: g, G: g, B: g, A: c.A})
		}
	}
}

func fillWhite(img *image.RGBA) {
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}
}

func rgbaAt(src image.Image, x, y int) color.RGBA {
	r, g, b, a := src.At(x, y).RGBA()
	return color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a >> 8)}
}

func lerp2(c00, c10, c01, c11 uint8, tx, ty float64) uint8 {
	top := float64(c00)*(1-tx) + float64(c10)*tx
	bottom := float64(c01)*(1-tx) + float64(c11)*tx
	v := math.Round(top*(1-ty) + bottom*ty)
	if v < 0 {
		v = 0
	}
	if v > 255 {
		v = 255
	}
	return uint8(v)
}
