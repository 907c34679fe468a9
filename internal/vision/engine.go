// Package vision wraps the ONNX face detection and embedding models behind
// the two primitives the rest of the service consumes: face detection on a
// decoded frame, and pairwise identity comparison.
package vision

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/your-org/presenca/internal/config"
	"github.com/your-org/presenca/internal/imaging"
	"github.com/your-org/presenca/internal/observability"
)

// ErrNoFace reports that no face was detectable in an input image. Callers
// branch on it with errors.Is rather than matching message text.
var ErrNoFace = errors.New("no face detected")

// Match is the outcome of one pairwise identity comparison.
type Match struct {
	Verified  bool
	Distance  float64
	Threshold float64
}

// Engine owns the ONNX sessions. Session tensors are reused across calls, so
// a mutex serializes inference; everything around it is safe for concurrent
// use.
type Engine struct {
	mu        sync.Mutex
	detector  *detector
	embedder  *embedder
	minFace   int
	threshold float64
}

// NewEngine loads the detection and embedding models from cfg.ModelsDir.
func NewEngine(cfg config.VisionConfig) (*Engine, error) {
	detPath := filepath.Join(cfg.ModelsDir, "det_10g.onnx")
	embPath := filepath.Join(cfg.ModelsDir, "w600k_r50.onnx")

	slog.Info("loading detection model", "path", detPath)
	det, err := newDetector(detPath, float32(cfg.DetectionThreshold))
	if err != nil {
		return nil, fmt.Errorf("load detector: %w", err)
	}

	slog.Info("loading embedding model", "path", embPath)
	emb, err := newEmbedder(embPath)
	if err != nil {
		det.close()
		return nil, fmt.Errorf("load embedder: %w", err)
	}

	return &Engine{
		detector:  det,
		embedder:  emb,
		minFace:   cfg.MinFaceSize,
		threshold: cfg.VerifyThreshold,
	}, nil
}

// DetectFaces returns all faces in the image whose box meets the configured
// minimum side length, highest confidence first.
func (e *Engine) DetectFaces(img image.Image) ([]Face, error) {
	bounds := img.Bounds()
	input := imageToCHW(img, e.detector.inputW, e.detector.inputH, 127.5, 128.0)

	start := time.Now()
	e.mu.Lock()
	faces, err := e.detector.detect(input, bounds.Dx(), bounds.Dy())
	e.mu.Unlock()
	observability.InferenceDuration.WithLabelValues("detect").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	kept := faces[:0]
	for _, f := range faces {
		if f.Box.Dx() >= e.minFace && f.Box.Dy() >= e.minFace {
			kept = append(kept, f)
		}
	}
	return kept, nil
}

// Compare embeds the probe image stored at probePath and the reference image
// bytes, and classifies the pair by cosine distance against the configured
// threshold. Either image failing face detection yields ErrNoFace.
func (e *Engine) Compare(ctx context.Context, probePath string, reference []byte) (Match, error) {
	probe, err := os.ReadFile(probePath)
	if err != nil {
		return Match{}, fmt.Errorf("read probe image: %w", err)
	}

	probeEmb, err := e.embedImage(probe)
	if err != nil {
		return Match{}, fmt.Errorf("probe image: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return Match{}, err
	}

	refEmb, err := e.embedImage(reference)
	if err != nil {
		return Match{}, fmt.Errorf("reference image: %w", err)
	}

	distance := cosineDistance(probeEmb, refEmb)
	return Match{
		Verified:  distance <= e.threshold,
		Distance:  distance,
		Threshold: e.threshold,
	}, nil
}

// embedImage detects the most confident face in raw image bytes and returns
// its embedding.
func (e *Engine) embedImage(data []byte) ([]float32, error) {
	img, err := imaging.Decode(data)
	if err != nil {
		return nil, err
	}

	faces, err := e.DetectFaces(img)
	if err != nil {
		return nil, err
	}
	if len(faces) == 0 {
		return nil, ErrNoFace
	}

	best := faces[0]
	for _, f := range faces[1:] {
		if f.Confidence > best.Confidence {
			best = f
		}
	}

	crop := cropFace(img, best.Box)
	if crop == nil {
		return nil, ErrNoFace
	}

	input := imageToCHW(crop, e.embedder.inputW, e.embedder.inputH, 127.5, 127.5)

	start := time.Now()
	e.mu.Lock()
	embedding, err := e.embedder.extract(input)
	e.mu.Unlock()
	observability.InferenceDuration.WithLabelValues("embed").Observe(time.Since(start).Seconds())

	return embedding, err
}

// Close releases all ONNX sessions.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.detector != nil {
		e.detector.close()
	}
	if e.embedder != nil {
		e.embedder.close()
	}
}

// imageToCHW resizes an image and converts it to CHW float32 layout with
// (pixel - mean) / std normalization applied per channel.
func imageToCHW(img image.Image, targetW, targetH int, mean, std float32) []float32 {
	resized := imaging.Resize(img, targetW, targetH)
	bounds := resized.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	data := make([]float32, 3*h*w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := resized.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()

			idx := y*w + x
			data[0*h*w+idx] = (float32(r>>8) - mean) / std
			data[1*h*w+idx] = (float32(g>>8) - mean) / std
			data[2*h*w+idx] = (float32(b>>8) - mean) / std
		}
	}

	return data
}

// cropFace extracts the face region with 10% padding on each side, clamped
// to the image bounds. Returns nil for a degenerate box.
func cropFace(img image.Image, box image.Rectangle) image.Image {
	if box.Dx() <= 0 || box.Dy() <= 0 {
		return nil
	}

	padW := box.Dx() / 10
	padH := box.Dy() / 10
	padded := image.Rect(box.Min.X-padW, box.Min.Y-padH, box.Max.X+padW, box.Max.Y+padH)
	padded = padded.Intersect(img.Bounds())
	if padded.Empty() {
		return nil
	}

	crop := image.NewRGBA(image.Rect(0, 0, padded.Dx(), padded.Dy()))
	for y := padded.Min.Y; y < padded.Max.Y; y++ {
		for x := padded.Min.X; x < padded.Max.X; x++ {
			crop.Set(x-padded.Min.X, y-padded.Min.Y, img.At(x, y))
		}
	}
	return crop
}
