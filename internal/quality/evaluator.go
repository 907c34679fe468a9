// Package quality scores candidate camera frames against the acceptance
// criteria a frame must meet before it is worth sending for identity
// verification. Evaluation is read-only and cheap enough to run per frame
// for live positioning feedback.
package quality

import (
	"image"

	"github.com/your-org/presenca/internal/imaging"
	"github.com/your-org/presenca/internal/observability"
	"github.com/your-org/presenca/internal/vision"
)

// Acceptance thresholds. These are part of the evaluator's contract with the
// capture frontend, not per-call tunables.
const (
	minFaceRatio  = 0.05
	maxFaceRatio  = 0.5
	minBrightness = 50
	maxBrightness = 200
	minSharpness  = 50
	maxCenterOff  = 0.2
)

// Detector finds faces in a decoded frame.
type Detector interface {
	DetectFaces(img image.Image) ([]vision.Face, error)
}

// FaceBox is the accepted face's bounding box in frame pixel coordinates.
type FaceBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Details carries the measurements behind a verdict. Fields beyond FaceCount
// are populated as far as evaluation progressed.
type Details struct {
	FaceCount  int      `json:"faceCount"`
	FaceRatio  *float64 `json:"faceRatio,omitempty"`
	Brightness *int     `json:"brightness,omitempty"`
	Sharpness  *int     `json:"sharpness,omitempty"`
	Centered   *bool    `json:"centered,omitempty"`
	FaceBox    *FaceBox `json:"faceBox,omitempty"`
}

// Verdict is the structured result of scoring one frame. Message names the
// first failing criterion; a frame is Valid only when every check passed.
type Verdict struct {
	Valid   bool    `json:"valid"`
	Message string  `json:"message"`
	Details Details `json:"details"`
}

// Evaluator scores frames using an injected face detector.
type Evaluator struct {
	detector Detector
}

func NewEvaluator(detector Detector) *Evaluator {
	return &Evaluator{detector: detector}
}

// Evaluate runs the acceptance checks in priority order and short-circuits
// on the first failure. It never returns an error: undecodable input is a
// normal verdict outcome, not a fault.
func (e *Evaluator) Evaluate(frame []byte) Verdict {
	img, err := imaging.Decode(frame)
	if err != nil {
		observability.FramesEvaluated.WithLabelValues("decode_error").Inc()
		return Verdict{Valid: false, Message: "image decode error"}
	}

	gray := imaging.Grayscale(img)
	brightness := imaging.Brightness(gray)
	sharpness := imaging.Sharpness(gray)

	faces, err := e.detector.DetectFaces(img)
	if err != nil {
		observability.FramesEvaluated.WithLabelValues("detect_error").Inc()
		return Verdict{Valid: false, Message: "image decode error"}
	}

	v := e.score(img, faces, brightness, sharpness)
	if v.Valid {
		observability.FramesEvaluated.WithLabelValues("valid").Inc()
	} else {
		observability.FramesEvaluated.WithLabelValues("rejected").Inc()
	}
	return v
}

func (e *Evaluator) score(img image.Image, faces []vision.Face, brightness, sharpness int) Verdict {
	details := Details{
		FaceCount:  len(faces),
		Brightness: &brightness,
		Sharpness:  &sharpness,
	}

	if len(faces) == 0 {
		return Verdict{Valid: false, Message: "no face detected", Details: details}
	}
	if len(faces) > 1 {
		return Verdict{Valid: false, Message: "multiple faces detected", Details: details}
	}

	bounds := img.Bounds()
	imgW, imgH := bounds.Dx(), bounds.Dy()
	box := faces[0].Box

	ratio := round3(float64(box.Dx()*box.Dy()) / float64(imgW*imgH))
	details.FaceRatio = &ratio

	if ratio < minFaceRatio {
		return Verdict{Valid: false, Message: "face too distant", Details: details}
	}
	if ratio > maxFaceRatio {
		return Verdict{Valid: false, Message: "face too close", Details: details}
	}

	if brightness < minBrightness {
		return Verdict{Valid: false, Message: "lighting too low", Details: details}
	}
	if brightness > maxBrightness {
		return Verdict{Valid: false, Message: "lighting too high", Details: details}
	}

	if sharpness < minSharpness {
		return Verdict{Valid: false, Message: "image blurred", Details: details}
	}

	// Face-box center offset from the frame center, normalized per axis.
	centerX := float64(box.Min.X) + float64(box.Dx())/2
	centerY := float64(box.Min.Y) + float64(box.Dy())/2
	xOffset := abs(centerX-float64(bounds.Min.X)-float64(imgW)/2) / float64(imgW)
	yOffset := abs(centerY-float64(bounds.Min.Y)-float64(imgH)/2) / float64(imgH)

	centered := xOffset <= maxCenterOff && yOffset <= maxCenterOff
	details.Centered = &centered
	if !centered {
		return Verdict{Valid: false, Message: "center your face", Details: details}
	}

	details.FaceBox = &FaceBox{
		X:      box.Min.X - bounds.Min.X,
		Y:      box.Min.Y - bounds.Min.Y,
		Width:  box.Dx(),
		Height: box.Dy(),
	}

	return Verdict{Valid: true, Message: "perfect positioning", Details: details}
}

func round3(v float64) float64 {
	return float64(int(v*1000+0.5)) / 1000
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
