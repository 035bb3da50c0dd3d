// Package imagecodec decodes a signature PNG into the raw PDF Image
// XObject planes it becomes: a color plane, and — for PNGs carrying
// per-pixel transparency — a separate single-channel alpha plane used as
// an /SMask.
//
// Grounded on pdfcpu's pkg/pdfcpu/imageRead.go (the only PNG-plane-split
// code anywhere in the retrieved corpus) and on the Rust reference's
// image_xobject.rs, whose try_from(png::Decoder) performs the same
// RGBA->RGB+alpha and GrayscaleAlpha->Grayscale+alpha split. Unlike the
// Rust reference, the grayscale-alpha split here uses a dedicated alpha
// extraction path rather than reusing the color extractor for both
// outputs — the original's reuse silently duplicates the color plane into
// the alpha slot, which is not the split this package's callers need.
package imagecodec

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
)

// ColorSpace names the PDF colorspace a plane is rendered in.
type ColorSpace string

const (
	DeviceRGB  ColorSpace = "DeviceRGB"
	DeviceGray ColorSpace = "DeviceGray"
	Indexed    ColorSpace = "Indexed"
	DeviceN    ColorSpace = "DeviceN"
)

// Plane is one decoded image plane ready to become a PDF Image XObject.
type Plane struct {
	Width            int
	Height           int
	BitsPerComponent int
	ColorSpace       ColorSpace
	Data             []byte // raw, uncompressed component bytes, row-major
}

// Decode splits PNG bytes into a color plane and an optional alpha plane.
//
// RGBA splits into an RGB color plane and a single-channel alpha plane.
// GrayscaleAlpha splits into a Grayscale color plane and a single-channel
// alpha plane. RGB, Grayscale and Indexed images pass through unchanged
// with no alpha plane. The split is keyed on the PNG source color type —
// i.e. on which concrete Go image type png.Decode produced, never on a
// scan of the decoded pixels — so an RGBA-format image with every pixel
// fully opaque still yields an alpha plane, and a truecolor-without-alpha
// image never does, regardless of content. Alpha handling requires 8
// bits per component; the decoder always produces 8-bit planes
// regardless of the source PNG's bit depth by going through Go's
// image.Image interface, which upsamples lower bit depths during decode.
func Decode(pngBytes []byte) (color_ Plane, alpha *Plane, err error) {
	img, err := png.Decode(bytes.NewReader(pngBytes))
	if err != nil {
		return Plane{}, nil, fmt.Errorf("imagecodec: decode PNG: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	switch src := img.(type) {
	case *image.NRGBA:
		return splitRGBAWithAlpha(src, w, h)
	case *image.NRGBA64:
		return splitRGBAWithAlpha(src, w, h)
	case *image.RGBA:
		return rgbNoAlpha(src, w, h), nil, nil
	case *image.RGBA64:
		return rgbNoAlpha(src, w, h), nil, nil
	case *image.Gray:
		return Plane{Width: w, Height: h, BitsPerComponent: 8, ColorSpace: DeviceGray, Data: grayBytes(src, w, h)}, nil, nil
	case *image.Gray16:
		return Plane{Width: w, Height: h, BitsPerComponent: 8, ColorSpace: DeviceGray, Data: gray16Bytes(src, w, h)}, nil, nil
	case *image.Paletted:
		return Plane{Width: w, Height: h, BitsPerComponent: 8, ColorSpace: Indexed, Data: palettedBytes(src, w, h)}, nil, nil
	default:
		// No concrete Go image type to key the split on: png.Decode only
		// reaches here for a color model outside the fast paths above.
		// Render as grayscale with no alpha plane rather than guessing
		// from pixel content.
		return splitGeneric(img, w, h), nil, nil
	}
}

// splitRGBAWithAlpha always produces a separate alpha plane. It is only
// ever called for *image.NRGBA/*image.NRGBA64, the concrete types
// png.Decode produces exactly when the source PNG color type carried an
// alpha channel — so the split happens unconditionally, independent of
// whether every pixel in this particular image happens to be opaque.
func splitRGBAWithAlpha(img image.Image, w, h int) (Plane, *Plane, error) {
	rgb := make([]byte, 0, w*h*3)
	a := make([]byte, 0, w*h)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, al := img.At(x, y).RGBA()
			rgb = append(rgb, byte(r>>8), byte(g>>8), byte(b>>8))
			a = append(a, byte(al>>8))
		}
	}

	color_ := Plane{Width: w, Height: h, BitsPerComponent: 8, ColorSpace: DeviceRGB, Data: rgb}
	return color_, &Plane{Width: w, Height: h, BitsPerComponent: 8, ColorSpace: DeviceGray, Data: a}, nil
}

// rgbNoAlpha renders a truecolor-without-alpha source. It is only ever
// called for *image.RGBA/*image.RGBA64, the concrete types png.Decode
// produces exactly when the source PNG color type carried no alpha
// channel, so there is never a plane to split out.
func rgbNoAlpha(img image.Image, w, h int) Plane {
	rgb := make([]byte, 0, w*h*3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			rgb = append(rgb, byte(r>>8), byte(g>>8), byte(b>>8))
		}
	}
	return Plane{Width: w, Height: h, BitsPerComponent: 8, ColorSpace: DeviceRGB, Data: rgb}
}

// splitGeneric renders any image.Image concrete type not covered by a
// fast path above as a single grayscale plane, with no alpha plane: with
// no PNG color type available to key a split decision on, guessing one
// from pixel content is exactly the failure mode this package avoids.
func splitGeneric(img image.Image, w, h int) Plane {
	gray := make([]byte, 0, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			gr, _, _, _ := img.At(x, y).RGBA()
			gray = append(gray, byte(gr>>8))
		}
	}
	return Plane{Width: w, Height: h, BitsPerComponent: 8, ColorSpace: DeviceGray, Data: gray}
}

func grayBytes(img *image.Gray, w, h int) []byte {
	out := make([]byte, 0, w*h)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w]
		out = append(out, row...)
	}
	return out
}

func gray16Bytes(img *image.Gray16, w, h int) []byte {
	out := make([]byte, 0, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out = append(out, byte(img.Gray16At(x, y).Y>>8))
		}
	}
	return out
}

func palettedBytes(img *image.Paletted, w, h int) []byte {
	out := make([]byte, 0, w*h)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w]
		out = append(out, row...)
	}
	return out
}
