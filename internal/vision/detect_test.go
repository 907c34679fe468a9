package vision

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIOU(t *testing.T) {
	a := image.Rect(0, 0, 100, 100)

	assert.Equal(t, 1.0, iou(a, a))
	assert.Equal(t, 0.0, iou(a, image.Rect(200, 200, 300, 300)))

	// Half-overlapping boxes: intersection 5000, union 15000.
	b := image.Rect(50, 0, 150, 100)
	assert.InDelta(t, 1.0/3.0, iou(a, b), 0.001)
}

func TestSuppressOverlaps(t *testing.T) {
	faces := []Face{
		{Box: image.Rect(0, 0, 100, 100), Confidence: 0.9},
		{Box: image.Rect(5, 5, 105, 105), Confidence: 0.8},
		{Box: image.Rect(300, 300, 400, 400), Confidence: 0.7},
	}

	kept := suppressOverlaps(faces, 0.4)
	assert.Len(t, kept, 2)
	assert.Equal(t, float32(0.9), kept[0].Confidence)
	assert.Equal(t, float32(0.7), kept[1].Confidence)
}

func TestSuppressOverlapsKeepsDisjoint(t *testing.T) {
	faces := []Face{
		{Box: image.Rect(0, 0, 50, 50), Confidence: 0.6},
		{Box: image.Rect(100, 100, 150, 150), Confidence: 0.5},
	}
	assert.Len(t, suppressOverlaps(faces, 0.4), 2)
}

func TestNormalize(t *testing.T) {
	v := []float32{3, 4}
	normalize(v)
	assert.InDelta(t, 0.6, v[0], 0.001)
	assert.InDelta(t, 0.8, v[1], 0.001)
}

func TestNormalizeZeroVector(t *testing.T) {
	v := []float32{0, 0, 0}
	normalize(v)
	assert.Equal(t, []float32{0, 0, 0}, v)
}

func TestCosineDistance(t *testing.T) {
	assert.InDelta(t, 0.0, cosineDistance([]float32{1, 0}, []float32{1, 0}), 0.001)
	assert.InDelta(t, 1.0, cosineDistance([]float32{1, 0}, []float32{0, 1}), 0.001)
	assert.InDelta(t, 2.0, cosineDistance([]float32{1, 0}, []float32{-1, 0}), 0.001)
}

func TestCropFace(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 200, 200))

	crop := cropFace(img, image.Rect(50, 50, 150, 150))
	// 10% padding on each side of a 100px box.
	assert.Equal(t, 120, crop.Bounds().Dx())
	assert.Equal(t, 120, crop.Bounds().Dy())
}

func TestCropFaceDegenerateBox(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 200, 200))
	assert.Nil(t, cropFace(img, image.Rect(50, 50, 50, 50)))
}

func TestCropFaceClampsToBounds(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))

	crop := cropFace(img, image.Rect(-20, -20, 50, 50))
	assert.NotNil(t, crop)
	assert.LessOrEqual(t, crop.Bounds().Dx(), 100)
}

func TestClampF(t *testing.T) {
	assert.Equal(t, float32(0), clampF(-5, 0, 100))
	assert.Equal(t, float32(100), clampF(200, 0, 100))
	assert.Equal(t, float32(42), clampF(42, 0, 100))
}
