// Package imaging handles frame ingestion: transport decoding, grayscale
// derivation and the photometric measures used by the quality evaluator.
package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"strings"

	"golang.org/x/image/draw"
)

// FromBase64 decodes a transport-encoded still image. A data-URI scheme
// marker ("data:image/jpeg;base64,...") is stripped if present.
func FromBase64(data string) ([]byte, error) {
	if idx := strings.Index(data, "base64,"); idx >= 0 {
		data = data[idx+len("base64,"):]
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode base64 image: %w", err)
	}
	return raw, nil
}

// Decode parses image bytes into a pixel buffer. JPEG is the common case;
// anything else goes through the registered generic decoders.
func Decode(data []byte) (image.Image, error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err == nil {
		return img, nil
	}
	img, _, err = image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// Grayscale converts an image to 8-bit luminance.
func Grayscale(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, img, bounds.Min, draw.Src)
	return gray
}

// Brightness is the mean pixel intensity of a grayscale image on a 0-255
// scale, truncated to an integer.
func Brightness(gray *image.Gray) int {
	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return 0
	}

	var sum uint64
	for y := 0; y < h; y++ {
		row := gray.Pix[y*gray.Stride : y*gray.Stride+w]
		for _, p := range row {
			sum += uint64(p)
		}
	}
	return int(sum / uint64(w*h))
}

// Sharpness is the variance of the 4-neighbour Laplacian over the interior
// of a grayscale image, truncated to an integer. Flat images score 0; a
// focused frame with real edges scores well above the blur threshold.
func Sharpness(gray *image.Gray) int {
	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w < 3 || h < 3 {
		return 0
	}

	n := (w - 2) * (h - 2)
	var sum, sumSq float64
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			c := float64(gray.Pix[y*gray.Stride+x])
			up := float64(gray.Pix[(y-1)*gray.Stride+x])
			down := float64(gray.Pix[(y+1)*gray.Stride+x])
			left := float64(gray.Pix[y*gray.Stride+x-1])
			right := float64(gray.Pix[y*gray.Stride+x+1])

			lap := up + down + left + right - 4*c
			sum += lap
			sumSq += lap * lap
		}
	}

	mean := sum / float64(n)
	variance := sumSq/float64(n) - mean*mean
	if variance < 0 {
		variance = 0
	}
	return int(variance)
}

// EncodeJPEG encodes an image as JPEG with the given quality.
func EncodeJPEG(img image.Image, quality int) []byte {
	var buf bytes.Buffer
	_ = jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality})
	return buf.Bytes()
}

// Resize scales an image to the target dimensions with bilinear filtering.
func Resize(img image.Image, targetW, targetH int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}
