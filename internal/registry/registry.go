// Package registry manages reference photos: at most one enrolled image per
// process, stored only after a face has been confirmed present in it.
package registry

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net/url"
	"strings"
	"time"

	"github.com/your-org/presenca/internal/imaging"
	"github.com/your-org/presenca/internal/storage"
	"github.com/your-org/presenca/internal/vision"
)

var (
	// ErrNoFaceDetected reports that the submitted photo had no detectable
	// face; nothing is stored in that case.
	ErrNoFaceDetected = errors.New("no face detected in image")

	// ErrNotFound reports a process with no enrolled reference.
	ErrNotFound = errors.New("reference not found")
)

const (
	keySuffix   = ".jpg"
	jpegQuality = 95
)

// Detector finds faces in a decoded image.
type Detector interface {
	DetectFaces(img image.Image) ([]vision.Face, error)
}

// Registration is one enrolled process in a listing.
type Registration struct {
	Processo     string
	RegisteredAt time.Time
}

// Registry enforces the one-reference-per-process invariant over a blob
// store, gating every registration on strict face detection.
type Registry struct {
	store    storage.BlobStore
	detector Detector
}

func New(store storage.BlobStore, detector Detector) *Registry {
	return &Registry{store: store, detector: detector}
}

// Register enrolls image as the reference photo for processo, replacing any
// prior reference. The image must contain at least one detectable face;
// otherwise nothing is stored and ErrNoFaceDetected is returned. On success
// the storage key is returned.
func (r *Registry) Register(ctx context.Context, processo string, imageData []byte) (string, error) {
	img, err := imaging.Decode(imageData)
	if err != nil {
		return "", fmt.Errorf("decode reference photo: %w", err)
	}

	faces, err := r.detector.DetectFaces(img)
	if err != nil {
		return "", fmt.Errorf("detect face: %w", err)
	}
	if len(faces) == 0 {
		return "", ErrNoFaceDetected
	}

	key := encodeKey(processo)
	if err := r.store.Put(ctx, key, imaging.EncodeJPEG(img, jpegQuality)); err != nil {
		return "", fmt.Errorf("store reference photo: %w", err)
	}
	return key, nil
}

// Load returns the stored reference photo for processo.
func (r *Registry) Load(ctx context.Context, processo string) ([]byte, error) {
	data, err := r.store.Get(ctx, encodeKey(processo))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Exists reports whether a reference photo is enrolled for processo.
func (r *Registry) Exists(ctx context.Context, processo string) (bool, error) {
	return r.store.Exists(ctx, encodeKey(processo))
}

// Delete removes the reference photo for processo.
func (r *Registry) Delete(ctx context.Context, processo string) error {
	err := r.store.Delete(ctx, encodeKey(processo))
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// List enumerates enrolled processes with their registration times.
func (r *Registry) List(ctx context.Context) ([]Registration, error) {
	entries, err := r.store.List(ctx)
	if err != nil {
		return nil, err
	}

	regs := make([]Registration, 0, len(entries))
	for _, e := range entries {
		processo, ok := decodeKey(e.Key)
		if !ok {
			continue
		}
		regs = append(regs, Registration{Processo: processo, RegisteredAt: e.ModTime})
	}
	return regs, nil
}

// encodeKey turns a process identifier into a storage key. Percent-encoding
// keeps the mapping collision-free and invertible even when the identifier
// contains path separators (e.g. "2024/001").
func encodeKey(processo string) string {
	return url.PathEscape(processo) + keySuffix
}

func decodeKey(key string) (string, bool) {
	if !strings.HasSuffix(key, keySuffix) {
		return "", false
	}
	processo, err := url.PathUnescape(strings.TrimSuffix(key, keySuffix))
	if err != nil {
		return "", false
	}
	return processo, true
}
