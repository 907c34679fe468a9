// Package attendance turns a positive identity match into a time-boxed,
// confirmable attendance record.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/your-org/presenca/internal/audit"
	"github.com/your-org/presenca/internal/observability"
	"github.com/your-org/presenca/internal/registry"
	"github.com/your-org/presenca/internal/session"
	"github.com/your-org/presenca/internal/vision"
)

var (
	// ErrReferenceNotFound reports a process with no enrolled reference photo.
	ErrReferenceNotFound = errors.New("no reference photo for process")

	// ErrSessionNotFound reports an unknown, already confirmed, or expired
	// confirmation token.
	ErrSessionNotFound = errors.New("session not found or expired")
)

// Matcher performs one pairwise identity comparison between the probe image
// stored at probePath and the reference photo bytes.
type Matcher interface {
	Compare(ctx context.Context, probePath string, reference []byte) (vision.Match, error)
}

// Result is the outcome of one verification call. A non-verified Result is a
// successful negative answer, not an error. SessionID is set only when the
// identity was confirmed.
type Result struct {
	Verified   bool
	Confidence float64
	Distance   float64
	Threshold  float64
	Message    string
	SessionID  string
}

// Service orchestrates verification against the registry and the issuing and
// consumption of attendance sessions.
type Service struct {
	registry   *registry.Registry
	matcher    Matcher
	sessions   *session.Cache
	auditLog   *audit.Logger
	uploadsDir string
}

func NewService(reg *registry.Registry, matcher Matcher, sessions *session.Cache, auditLog *audit.Logger, uploadsDir string) (*Service, error) {
	if err := os.MkdirAll(uploadsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir %s: %w", uploadsDir, err)
	}
	return &Service{
		registry:   reg,
		matcher:    matcher,
		sessions:   sessions,
		auditLog:   auditLog,
		uploadsDir: uploadsDir,
	}, nil
}

// Verify compares a submitted frame against the reference enrolled for
// processo. The frame is written to a scratch file with a collision-free
// name for the comparison and removed on every exit path.
//
// Error kinds callers branch on: ErrReferenceNotFound when no reference is
// enrolled, vision.ErrNoFace when the submitted frame has no detectable
// face; anything else is a generic verification failure.
func (s *Service) Verify(ctx context.Context, processo string, frame []byte) (*Result, error) {
	reference, err := s.registry.Load(ctx, processo)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return nil, ErrReferenceNotFound
		}
		return nil, fmt.Errorf("load reference: %w", err)
	}

	scratch := filepath.Join(s.uploadsDir, "temp_"+uuid.NewString()+".jpg")
	if err := os.WriteFile(scratch, frame, 0o644); err != nil {
		return nil, fmt.Errorf("write scratch image: %w", err)
	}
	defer func() {
		if err := os.Remove(scratch); err != nil && !os.IsNotExist(err) {
			slog.Warn("remove scratch image", "path", scratch, "error", err)
		}
	}()

	match, err := s.matcher.Compare(ctx, scratch, reference)
	if err != nil {
		if errors.Is(err, vision.ErrNoFace) {
			observability.Verifications.WithLabelValues("no_face").Inc()
			return nil, err
		}
		observability.Verifications.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("compare faces: %w", err)
	}

	confidence := (1 - match.Distance) * 100

	s.auditLog.Append(audit.Entry{
		Processo:   processo,
		Action:     audit.ActionVerificacao,
		Success:    &match.Verified,
		Confidence: &confidence,
		Distance:   &match.Distance,
	})

	result := &Result{
		Verified:   match.Verified,
		Confidence: confidence,
		Distance:   match.Distance,
		Threshold:  match.Threshold,
	}

	if match.Verified {
		result.SessionID = s.sessions.Create(processo, confidence)
		result.Message = "identity confirmed"
		observability.Verifications.WithLabelValues("verified").Inc()
		slog.Info("identity verified", "processo", processo,
			"confidence", confidence, "session", result.SessionID)
	} else {
		result.Message = "face not recognized, retry or see an attendant"
		observability.Verifications.WithLabelValues("rejected").Inc()
		slog.Info("identity rejected", "processo", processo, "confidence", confidence)
	}

	return result, nil
}

// Confirm consumes the session for sessionID, exactly once, and records the
// final attendance event.
func (s *Service) Confirm(_ context.Context, sessionID string) error {
	sess, ok := s.sessions.Take(sessionID)
	if !ok {
		observability.Confirmations.WithLabelValues("not_found").Inc()
		return ErrSessionNotFound
	}

	s.auditLog.Append(audit.Entry{
		Processo:         sess.Processo,
		Action:           audit.ActionConfirmado,
		Metodo:           sess.Method,
		ComparecimentoID: sess.ID,
	})

	observability.Confirmations.WithLabelValues("confirmed").Inc()
	slog.Info("attendance confirmed", "processo", sess.Processo, "session", sess.ID)
	return nil
}
