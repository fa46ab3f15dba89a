package websocket

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/juju/errors"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/pronounce/domain"
	"github.com/satriahrh/pronounce/domain/repositories"
	"github.com/satriahrh/pronounce/internal/api"
	"github.com/satriahrh/pronounce/usecase"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Handler serves the feedback stream over a WebSocket. The client sends an
// optional start message and then the recording as one binary frame. The
// server answers with fragment messages followed by a done message.
type Handler struct {
	feedback *usecase.FeedbackService
	logger   *zap.Logger
}

// NewHandler creates a new WebSocket feedback handler
func NewHandler(feedback *usecase.FeedbackService, logger *zap.Logger) *Handler {
	return &Handler{
		feedback: feedback,
		logger:   logger,
	}
}

// Handle upgrades the request and runs one feedback exchange
func (h *Handler) Handle(c echo.Context) error {
	userID, err := api.ParseID(c.Param("user_id"), "user_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: api.CodeInvalidRequest, Message: err.Error()})
	}
	sentenceID, err := api.ParseID(c.Param("sentence_id"), "sentence_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: api.CodeInvalidRequest, Message: err.Error()})
	}

	logger := api.RequestLogger(c, h.logger).With(
		zap.Int64("userID", userID),
		zap.Int64("sentenceID", sentenceID))

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return nil
	}

	s := &session{
		conn:       conn,
		userID:     userID,
		sentenceID: sentenceID,
		logger:     logger,
	}
	s.run(c.Request().Context(), h.feedback)
	return nil
}

// session is one connected client. Only the goroutine running run writes
// data frames; the ping loop uses WriteControl, which may run concurrently.
type session struct {
	conn       *websocket.Conn
	userID     int64
	sentenceID int64
	logger     *zap.Logger
}

func (s *session) run(parent context.Context, feedback *usecase.FeedbackService) {
	defer s.conn.Close()

	s.conn.SetReadLimit(api.MaxAudioBytes + 1024)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	audio, config, err := s.readRecording()
	if err != nil {
		if errors.Is(err, errors.NotValid) {
			s.sendError(err)
			s.close(websocket.CloseUnsupportedData, "invalid request")
		}
		s.logger.Info("No recording received", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(parent)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.readUntilClosed(cancel)
	}()
	go func() {
		defer wg.Done()
		s.pingLoop(ctx)
	}()
	defer func() {
		cancel()
		s.conn.Close()
		wg.Wait()
	}()

	prepared, err := feedback.Prepare(ctx, usecase.AnalysisRequest{
		UserID:      s.userID,
		SentenceID:  s.sentenceID,
		Audio:       audio,
		AudioConfig: config,
	})
	if err != nil {
		s.logger.Warn("Pronunciation analysis failed", zap.Error(err))
		s.sendError(err)
		s.close(websocket.CloseNormalClosure, "")
		return
	}
	if ctx.Err() != nil {
		// Peer left during analysis.
		prepared.Discard()
		s.logger.Info("Client gone before feedback started")
		return
	}

	_, err = feedback.Stream(ctx, prepared, &wsSink{conn: s.conn})
	switch {
	case err == nil:
		s.close(websocket.CloseNormalClosure, "")
	case errors.Is(err, usecase.ErrClientGone):
	default:
		// No close frame, the client sees an abnormal closure.
		s.logger.Error("Feedback stream aborted", zap.Error(err))
	}
}

// readRecording waits for the binary audio frame, accepting a start message
// before it.
func (s *session) readRecording() ([]byte, repositories.AudioConfig, error) {
	var start *StartMessage
	for {
		messageType, message, err := s.conn.ReadMessage()
		if err != nil {
			return nil, repositories.AudioConfig{}, err
		}

		switch messageType {
		case websocket.TextMessage:
			start, err = ParseStartMessage(message)
			if err != nil {
				return nil, repositories.AudioConfig{}, err
			}
		case websocket.BinaryMessage:
			s.logger.Info("Received recording", zap.Int("size", len(message)))
			return message, start.AudioConfig(), nil
		}
	}
}

// readUntilClosed keeps reading so control frames are processed, and cancels
// the exchange once the client goes away.
func (s *session) readUntilClosed(cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.logger.Warn("WebSocket error", zap.Error(err))
			}
			return
		}
	}
}

func (s *session) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (s *session) sendError(err error) {
	_, code := api.Classify(err)
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if werr := s.conn.WriteJSON(domain.ErrorEvent(code, err.Error())); werr != nil {
		s.logger.Debug("Failed to send error event", zap.Error(werr))
	}
}

func (s *session) close(code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	if err := s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
		s.logger.Debug("Failed to send close frame", zap.Error(err))
	}
}

// wsSink writes stream events as JSON text frames
type wsSink struct {
	conn *websocket.Conn
}

var _ usecase.EventSink = (*wsSink)(nil)

func (w *wsSink) Open() error { return nil }

func (w *wsSink) Fragment(text string) error {
	return w.write(domain.FragmentEvent(text))
}

func (w *wsSink) Done() error {
	return w.write(domain.DoneEvent())
}

func (w *wsSink) write(event domain.StreamEvent) error {
	w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return w.conn.WriteJSON(event)
}
