package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/pronounce/usecase"
)

// Dependencies are the services the HTTP routes dispatch to
type Dependencies struct {
	Feedback  *usecase.FeedbackService
	Results   *usecase.ResultService
	Metrics   http.Handler
	WebSocket echo.HandlerFunc
	Logger    *zap.Logger
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, deps Dependencies) {
	h := &handler{
		feedback: deps.Feedback,
		results:  deps.Results,
		logger:   deps.Logger,
	}

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "pronounce-server",
		})
	})
	if deps.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(deps.Metrics))
	}

	feedback := e.Group("/feedback")
	feedback.POST("/:user_id/:sentence_id", h.analyzePronunciation)
	feedback.GET("/:user_id/score", h.scoreSummary)
	feedback.GET("/:user_id/:sentence_id/score", h.scoreSummary)
	feedback.GET("/:user_id/:sentence_id", h.latestResult)

	speech := e.Group("/speech")
	speech.GET("/situationType/all", h.sentencesBySituation)
	speech.GET("/:sentence_id", h.sentence)
	speech.POST("/:user_id/results", h.pronunciationResult)

	if deps.WebSocket != nil {
		e.GET("/ws/feedback/:user_id/:sentence_id", deps.WebSocket)
	}
}
