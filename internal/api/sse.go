package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/satriahrh/pronounce/domain"
	"github.com/satriahrh/pronounce/usecase"
)

// sseSink writes the feedback stream as Server-Sent Events. Every write is
// flushed so the client sees fragments as they are produced.
type sseSink struct {
	res *echo.Response
}

var _ usecase.EventSink = (*sseSink)(nil)

func newSSESink(res *echo.Response) *sseSink {
	return &sseSink{res: res}
}

func (s *sseSink) Open() error {
	h := s.res.Header()
	h.Set(echo.HeaderContentType, "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	s.res.WriteHeader(http.StatusOK)
	s.res.Flush()
	return nil
}

// Fragment sends text as one event. A fragment spanning several lines is
// split into several data lines, which the client joins back with newlines.
func (s *sseSink) Fragment(text string) error {
	var b strings.Builder
	for _, line := range strings.Split(text, "\n") {
		b.WriteString("data: ")
		b.WriteString(strings.TrimSuffix(line, "\r"))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return s.write(b.String())
}

func (s *sseSink) Done() error {
	return s.write("event: " + domain.EventDone + "\ndata: " + domain.DoneMarker + "\n\n")
}

func (s *sseSink) write(frame string) error {
	if _, err := s.res.Write([]byte(frame)); err != nil {
		return err
	}
	s.res.Flush()
	return nil
}
