package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/fertilizer-advisor/internal/domain"
	"github.com/fertilizer-advisor/internal/middleware"
)

const (
	streamReadLimit   = 4096
	streamIdleTimeout = 60 * time.Second
	streamWriteWait   = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin policy is enforced by the CORS middleware.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// streamError is the reply sent for a message that could not be served.
type streamError struct {
	Error *domain.APIError `json:"error"`
}

// handleStream serves recommendations over a websocket: every text message
// is a soil sample and every reply a recommendation or an error. Each message
// counts against the client's rate limit.
func (s *Server) handleStream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	correlationID := c.GetString(middleware.CorrelationIDKey)
	logger := s.logger.WithField("correlation_id", correlationID)
	logger.Debug("Websocket stream opened")

	conn.SetReadLimit(streamReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(streamIdleTimeout))

	ctx := requestContext(c)
	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.WithError(err).Warn("Websocket stream closed unexpectedly")
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(streamIdleTimeout))
		if messageType != websocket.TextMessage {
			continue
		}

		var reply interface{}
		var req soilRequest
		if s.limiter != nil && !s.limiter.Allow(c.ClientIP()) {
			reply = streamError{domain.NewAPIError(domain.ErrCodeRateLimit, "Too many requests", "", correlationID)}
		} else if err := json.Unmarshal(payload, &req); err != nil {
			reply = streamError{domain.NewAPIError(domain.ErrCodeInvalidInput, "Invalid message", err.Error(), correlationID)}
		} else if missing := req.missingField(); missing != "" {
			reply = streamError{domain.NewAPIError(domain.ErrCodeInvalidInput, "Invalid message", missing+" is required", correlationID)}
		} else if result, err := s.recommender.Recommend(ctx, req.sample()); err != nil {
			logger.WithError(err).Debug("Stream recommendation failed")
			reply = streamError{streamAPIError(err, correlationID)}
		} else {
			reply = newRecommendResponse(result)
		}

		_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
		if err := conn.WriteJSON(reply); err != nil {
			logger.WithError(err).Warn("Websocket write failed")
			return
		}
	}
}

func streamAPIError(err error, correlationID string) *domain.APIError {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return domain.NewAPIError(domain.ErrCodeValidation, "Invalid soil sample", verr.Error(), correlationID)
	case errors.Is(err, domain.ErrModelUnavailable):
		return domain.NewAPIError(domain.ErrCodeModelUnavailable, "Models not loaded", err.Error(), correlationID)
	default:
		return domain.NewAPIError(domain.ErrCodeInternalServer, "Internal server error", "", correlationID)
	}
}

// missingField names the first absent required field, or "".
func (r soilRequest) missingField() string {
	switch {
	case r.Nitrogen == nil:
		return "nitrogen"
	case r.Phosphorus == nil:
		return "phosphorus"
	case r.Potassium == nil:
		return "potassium"
	case r.PH == nil:
		return "ph"
	case r.Moisture == nil:
		return "moisture"
	case r.Temperature == nil:
		return "temperature"
	case r.CropType == "":
		return "crop_type"
	}
	return ""
}
