package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/juju/errors"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/pronounce/domain/repositories"
	"github.com/satriahrh/pronounce/usecase"
)

// MaxAudioBytes bounds an uploaded recording
const MaxAudioBytes = 10 << 20

// RequestLogger adds the id assigned by the RequestID middleware, or sent by
// the client, to logger.
func RequestLogger(c echo.Context, logger *zap.Logger) *zap.Logger {
	id := c.Response().Header().Get(echo.HeaderXRequestID)
	if id == "" {
		id = c.Request().Header.Get(echo.HeaderXRequestID)
	}
	if id == "" {
		return logger
	}
	return logger.With(zap.String("requestID", id))
}

type handler struct {
	feedback *usecase.FeedbackService
	results  *usecase.ResultService
	logger   *zap.Logger
}

// analyzePronunciation scores the uploaded recording and streams feedback
// back as Server-Sent Events. Failures before the first byte is sent are
// plain JSON errors. Failures after that end the stream without the
// terminal event.
func (h *handler) analyzePronunciation(c echo.Context) error {
	userID, err := ParseID(c.Param("user_id"), "user_id")
	if err != nil {
		return errorJSON(c, err)
	}
	sentenceID, err := ParseID(c.Param("sentence_id"), "sentence_id")
	if err != nil {
		return errorJSON(c, err)
	}

	audio, err := readAudio(c)
	if err != nil {
		return errorJSON(c, err)
	}

	config, err := ParseAudioConfig(c.FormValue("sample_rate"), c.FormValue("encoding"), c.FormValue("language"))
	if err != nil {
		return errorJSON(c, err)
	}

	logger := RequestLogger(c, h.logger).With(
		zap.Int64("userID", userID),
		zap.Int64("sentenceID", sentenceID))

	ctx := c.Request().Context()
	prepared, err := h.feedback.Prepare(ctx, usecase.AnalysisRequest{
		UserID:      userID,
		SentenceID:  sentenceID,
		Audio:       audio,
		AudioConfig: config,
	})
	if err != nil {
		logger.Warn("Pronunciation analysis failed", zap.Error(err))
		return errorJSON(c, err)
	}

	if _, err := h.feedback.Stream(ctx, prepared, newSSESink(c.Response())); err != nil {
		if !c.Response().Committed {
			return errorJSON(c, err)
		}
		if !errors.Is(err, usecase.ErrClientGone) {
			logger.Error("Feedback stream aborted", zap.Error(err))
		}
	}
	return nil
}

func (h *handler) scoreSummary(c echo.Context) error {
	userID, err := ParseID(c.Param("user_id"), "user_id")
	if err != nil {
		return errorJSON(c, err)
	}

	summary, err := h.results.ScoreSummary(c.Request().Context(), userID)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "score summary retrieved",
		Data:    summary,
	})
}

func (h *handler) latestResult(c echo.Context) error {
	userID, err := ParseID(c.Param("user_id"), "user_id")
	if err != nil {
		return errorJSON(c, err)
	}
	sentenceID, err := ParseID(c.Param("sentence_id"), "sentence_id")
	if err != nil {
		return errorJSON(c, err)
	}

	result, err := h.results.LatestResult(c.Request().Context(), userID, sentenceID)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "latest result retrieved",
		Data:    result,
	})
}

// pronunciationResult takes the sentence from the query string
func (h *handler) pronunciationResult(c echo.Context) error {
	userID, err := ParseID(c.Param("user_id"), "user_id")
	if err != nil {
		return errorJSON(c, err)
	}
	sentenceID, err := ParseID(c.QueryParam("sentence_id"), "sentence_id")
	if err != nil {
		return errorJSON(c, err)
	}

	result, err := h.results.LatestResult(c.Request().Context(), userID, sentenceID)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "pronunciation result retrieved",
		Data: PronunciationResultResponse{
			Accuracy: result.Accuracy,
			Feedback: result.Feedback,
			Content:  result.Content,
		},
	})
}

func (h *handler) sentencesBySituation(c echo.Context) error {
	sentences, err := h.results.SentencesBySituation(c.Request().Context(), c.QueryParam("situation"))
	if err != nil {
		return errorJSON(c, err)
	}

	contents := make([]string, 0, len(sentences))
	for _, s := range sentences {
		contents = append(contents, s.Content)
	}
	return c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "sentences retrieved",
		Data:    contents,
	})
}

func (h *handler) sentence(c echo.Context) error {
	sentenceID, err := ParseID(c.Param("sentence_id"), "sentence_id")
	if err != nil {
		return errorJSON(c, err)
	}

	sentence, err := h.results.Sentence(c.Request().Context(), sentenceID)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "sentence retrieved",
		Data: SentenceResponse{
			Content:   sentence.Content,
			Situation: sentence.Situation,
			VoiceURL:  sentence.VoiceURL,
		},
	})
}

// ParseID parses a positive path or query identifier
func ParseID(raw, name string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.NotValidf("%s %q", name, raw)
	}
	return id, nil
}

// ParseAudioConfig reads the optional audio form fields. Empty fields keep
// the server defaults.
func ParseAudioConfig(sampleRate, encoding, language string) (repositories.AudioConfig, error) {
	config := repositories.AudioConfig{
		Encoding: encoding,
		Language: language,
	}
	if sampleRate != "" {
		rate, err := strconv.Atoi(sampleRate)
		if err != nil || rate <= 0 {
			return config, errors.NotValidf("sample_rate %q", sampleRate)
		}
		config.SampleRate = rate
	}
	return config, nil
}

func readAudio(c echo.Context) ([]byte, error) {
	file, err := c.FormFile("audio_file")
	if err != nil {
		return nil, errors.NotValidf("missing audio_file")
	}
	if file.Size > MaxAudioBytes {
		return nil, errors.NotValidf("audio_file of %d bytes", file.Size)
	}

	src, err := file.Open()
	if err != nil {
		return nil, errors.Annotate(err, "opening audio_file")
	}
	defer src.Close()

	audio, err := io.ReadAll(io.LimitReader(src, MaxAudioBytes+1))
	if err != nil {
		return nil, errors.Annotate(err, "reading audio_file")
	}
	if len(audio) > MaxAudioBytes {
		return nil, errors.NotValidf("audio_file larger than %d bytes", MaxAudioBytes)
	}
	return audio, nil
}
