// Package imaging decodes uploaded leaf photos into model input tensors.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// MaxPixels caps the raster size a header may declare before pixels are decoded.
const MaxPixels = 40_000_000

var (
	ErrNotImage      = errors.New("content is not a supported image")
	ErrTooManyPixels = errors.New("image dimensions exceed the pixel limit")
)

// Normalization maps an 8-bit channel value v to (v*Scale - Mean[c]) / Std[c].
type Normalization struct {
	Scale float32
	Mean  [3]float32
	Std   [3]float32
}

// RawPixels keeps channel values in [0, 255].
var RawPixels = Normalization{Scale: 1, Std: [3]float32{1, 1, 1}}

func (n Normalization) apply(c int, v uint8) float32 {
	std := n.Std[c]
	if std == 0 {
		std = 1
	}
	return (float32(v)*n.Scale - n.Mean[c]) / std
}

// Tensor is a single image in height × width × RGB layout.
type Tensor struct {
	Height int
	Width  int
	Data   []float32
}

// At returns channel c of the pixel at row y, column x.
func (t Tensor) At(y, x, c int) float32 {
	return t.Data[(y*t.Width+x)*3+c]
}

// Nested returns the tensor as [height][width][3] for JSON encoding.
func (t Tensor) Nested() [][][]float32 {
	out := make([][][]float32, t.Height)
	for y := range out {
		row := make([][]float32, t.Width)
		for x := range row {
			i := (y*t.Width + x) * 3
			row[x] = t.Data[i : i+3 : i+3]
		}
		out[y] = row
	}
	return out
}

// DetectContentType sniffs the real type of data from its magic bytes.
func DetectContentType(data []byte) string {
	return mimetype.Detect(data).String()
}

// Decode parses JPEG, PNG, GIF, BMP, TIFF or WebP bytes. Images whose header declares
// more than MaxPixels are rejected with ErrTooManyPixels before the raster is allocated.
func Decode(data []byte) (image.Image, error) {
	if !strings.HasPrefix(DetectContentType(data), "image/") {
		return nil, ErrNotImage
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image header: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooManyPixels, cfg.Width, cfg.Height)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("decode image: empty %s image", format)
	}
	return img, nil
}

// Preprocess resizes img to width × height with bicubic interpolation, drops alpha, and
// normalizes each channel.
func Preprocess(img image.Image, width, height int, norm Normalization) Tensor {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	t := Tensor{Height: height, Width: width, Data: make([]float32, width*height*3)}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			p := dst.Pix[y*dst.Stride+x*4 : y*dst.Stride+x*4+3 : y*dst.Stride+x*4+3]
			i := (y*width + x) * 3
			t.Data[i] = norm.apply(0, p[0])
			t.Data[i+1] = norm.apply(1, p[1])
			t.Data[i+2] = norm.apply(2, p[2])
		}
	}
	return t
}

// Load decodes data and preprocesses it in one step.
func Load(data []byte, width, height int, norm Normalization) (Tensor, error) {
	img, err := Decode(data)
	if err != nil {
		return Tensor{}, err
	}
	return Preprocess(img, width, height, norm), nil
}
