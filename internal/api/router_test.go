package api_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/presenca/internal/api"
	"github.com/your-org/presenca/internal/attendance"
	"github.com/your-org/presenca/internal/audit"
	"github.com/your-org/presenca/internal/quality"
	"github.com/your-org/presenca/internal/registry"
	"github.com/your-org/presenca/internal/session"
	"github.com/your-org/presenca/internal/storage"
	"github.com/your-org/presenca/internal/vision"
)

// stubDetector satisfies both the quality and registry Detector interfaces.
type stubDetector struct {
	faces []vision.Face
}

func (d *stubDetector) DetectFaces(img image.Image) ([]vision.Face, error) {
	return d.faces, nil
}

type stubMatcher struct {
	match vision.Match
	err   error
}

func (m *stubMatcher) Compare(ctx context.Context, probePath string, reference []byte) (vision.Match, error) {
	return m.match, m.err
}

type testServer struct {
	router   http.Handler
	detector *stubDetector
	matcher  *stubMatcher
}

func newTestServer(t *testing.T, apiKey string) *testServer {
	t.Helper()

	store, err := storage.NewFSStore(t.TempDir())
	require.NoError(t, err)

	auditLog, err := audit.New(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(auditLog.Close)

	detector := &stubDetector{faces: []vision.Face{
		{Box: image.Rect(100, 100, 250, 250), Confidence: 0.92},
	}}
	matcher := &stubMatcher{match: vision.Match{Verified: true, Distance: 0.2, Threshold: 0.68}}

	reg := registry.New(store, detector)
	sessions := session.NewCache(0)
	svc, err := attendance.NewService(reg, matcher, sessions, auditLog, t.TempDir())
	require.NoError(t, err)

	router := api.NewRouter(api.RouterConfig{
		APIKey:     apiKey,
		Evaluator:  quality.NewEvaluator(detector),
		Registry:   reg,
		AuditLog:   auditLog,
		Attendance: svc,
	})

	return &testServer{router: router, detector: detector, matcher: matcher}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// faceJPEG returns a base64-encoded JPEG that decodes cleanly. The stub
// detector decides face placement, so pixel content is irrelevant.
func faceJPEG(t *testing.T) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 400, 400))
	for y := 0; y < 400; y++ {
		for x := 0; x < 400; x++ {
			img.Set(x, y, color.Gray{Y: 120})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, "")

	rec := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "facial-recognition", body["service"])
}

func TestAPIKeyRequired(t *testing.T) {
	s := newTestServer(t, "secret")

	rec := s.do(t, http.MethodGet, "/listar-cadastros", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Health stays open.
	rec = s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/listar-cadastros", nil)
	req.Header.Set("X-API-Key", "wrong")
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/listar-cadastros", nil)
	req.Header.Set("X-API-Key", "secret")
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestValidateFrameMissingImage(t *testing.T) {
	s := newTestServer(t, "")

	rec := s.do(t, http.MethodPost, "/validar-frame", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "image required", decodeBody(t, rec)["message"])
}

func TestValidateFrameUndecodable(t *testing.T) {
	s := newTestServer(t, "")

	rec := s.do(t, http.MethodPost, "/validar-frame", map[string]string{"image": "!!!not-base64!!!"})
	assert.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, false, body["valid"])
	assert.Equal(t, "image decode error", body["message"])
}

func TestValidateFrameNoFace(t *testing.T) {
	s := newTestServer(t, "")
	s.detector.faces = nil

	rec := s.do(t, http.MethodPost, "/validar-frame", map[string]string{"image": faceJPEG(t)})
	assert.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, false, body["valid"])
	assert.Equal(t, "no face detected", body["message"])
}

func TestEnrollListDelete(t *testing.T) {
	s := newTestServer(t, "")
	img := faceJPEG(t)

	rec := s.do(t, http.MethodPost, "/salvar-rosto", map[string]string{"processo": "2024/001", "image": img})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "reference photo registered", decodeBody(t, rec)["message"])

	rec = s.do(t, http.MethodGet, "/listar-cadastros", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(1), body["total"])
	cadastros := body["cadastros"].([]any)
	require.Len(t, cadastros, 1)
	assert.Equal(t, "2024/001", cadastros[0].(map[string]any)["processo"])

	// Wildcard route carries the slash in the identifier literally.
	rec = s.do(t, http.MethodDelete, "/deletar-cadastro/2024/001", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodDelete, "/deletar-cadastro/2024/001", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "registration not found", decodeBody(t, rec)["message"])

	rec = s.do(t, http.MethodGet, "/listar-cadastros", nil)
	assert.Equal(t, float64(0), decodeBody(t, rec)["total"])
}

func TestEnrollRejectsMissingFields(t *testing.T) {
	s := newTestServer(t, "")

	rec := s.do(t, http.MethodPost, "/salvar-rosto", map[string]string{"processo": "123"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "processo and image are required", decodeBody(t, rec)["message"])
}

func TestEnrollNoFace(t *testing.T) {
	s := newTestServer(t, "")
	s.detector.faces = nil

	rec := s.do(t, http.MethodPost, "/salvar-rosto", map[string]string{"processo": "123", "image": faceJPEG(t)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "no face was detected in the image, please take another photo", decodeBody(t, rec)["message"])
}

func TestVerifyAndConfirmFlow(t *testing.T) {
	s := newTestServer(t, "")
	img := faceJPEG(t)

	rec := s.do(t, http.MethodPost, "/salvar-rosto", map[string]string{"processo": "proc-7", "image": img})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/verificar-rosto", map[string]string{"processo": "proc-7", "image": img})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["verified"])
	assert.Equal(t, 80.0, body["confidence"])
	sessionID, _ := body["comparecimento_id"].(string)
	require.NotEmpty(t, sessionID)

	rec = s.do(t, http.MethodPost, "/confirmar-comparecimento/"+sessionID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "attendance recorded", decodeBody(t, rec)["message"])

	// Tokens are single-use.
	rec = s.do(t, http.MethodPost, "/confirmar-comparecimento/"+sessionID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "attendance session not found or expired", decodeBody(t, rec)["message"])
}

func TestVerifyMismatchHasNoSession(t *testing.T) {
	s := newTestServer(t, "")
	s.matcher.match = vision.Match{Verified: false, Distance: 0.81, Threshold: 0.68}
	img := faceJPEG(t)

	rec := s.do(t, http.MethodPost, "/salvar-rosto", map[string]string{"processo": "proc-8", "image": img})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/verificar-rosto", map[string]string{"processo": "proc-8", "image": img})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, false, body["verified"])
	assert.Equal(t, 19.0, body["confidence"])
	_, present := body["comparecimento_id"]
	assert.False(t, present)
}

func TestVerifyUnknownProcess(t *testing.T) {
	s := newTestServer(t, "")

	rec := s.do(t, http.MethodPost, "/verificar-rosto", map[string]string{"processo": "nobody", "image": faceJPEG(t)})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "no reference photo registered for this process", decodeBody(t, rec)["message"])
}

func TestVerifyNoFaceInFrame(t *testing.T) {
	s := newTestServer(t, "")
	s.matcher.err = vision.ErrNoFace
	img := faceJPEG(t)

	rec := s.do(t, http.MethodPost, "/salvar-rosto", map[string]string{"processo": "proc-9", "image": img})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/verificar-rosto", map[string]string{"processo": "proc-9", "image": img})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "no face detected, position yourself in front of the camera", decodeBody(t, rec)["message"])
}
