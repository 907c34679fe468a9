// Package ws serves the realtime frame-feedback channel: the capture
// frontend streams candidate frames over one socket and gets a quality
// verdict back for each, avoiding per-frame HTTP round trips.
package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/your-org/presenca/internal/imaging"
	"github.com/your-org/presenca/internal/quality"
	"github.com/your-org/presenca/pkg/dto"
)

const maxFrameBytes = 8 << 20

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// FeedbackHandler evaluates frames received over a WebSocket connection.
type FeedbackHandler struct {
	evaluator *quality.Evaluator
}

func NewFeedbackHandler(evaluator *quality.Evaluator) *FeedbackHandler {
	return &FeedbackHandler{evaluator: evaluator}
}

// Handle upgrades the connection and answers each incoming frame message
// with a verdict. A message is either a JSON {"image": "..."} object or a
// bare base64 payload.
func (h *FeedbackHandler) Handle(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("websocket upgrade", "error", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(maxFrameBytes)

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("websocket read", "error", err)
			}
			return
		}

		verdict := h.evaluate(payload)
		if err := conn.WriteJSON(verdict); err != nil {
			slog.Warn("websocket write", "error", err)
			return
		}
	}
}

func (h *FeedbackHandler) evaluate(payload []byte) quality.Verdict {
	encoded := string(payload)

	var req dto.FrameRequest
	if err := json.Unmarshal(payload, &req); err == nil && req.Image != "" {
		encoded = req.Image
	}

	frame, err := imaging.FromBase64(encoded)
	if err != nil {
		return quality.Verdict{Valid: false, Message: "image decode error"}
	}
	return h.evaluator.Evaluate(frame)
}
