package api

import (
	"net/http"

	"github.com/juju/errors"
	"github.com/labstack/echo/v4"

	"github.com/satriahrh/pronounce/domain"
)

// Error codes reported in ErrorResponse.Error
const (
	CodeInvalidRequest = "invalid_request"
	CodeNotFound       = "not_found"
	CodeConflict       = "conflict"
	CodeUpstream       = "upstream_failure"
	CodeStorage        = "storage_failure"
	CodeInternal       = "internal_error"
)

// Classify maps an error from the usecase layer to an HTTP status and code
func Classify(err error) (int, string) {
	switch {
	case errors.Is(err, errors.NotValid):
		return http.StatusBadRequest, CodeInvalidRequest
	case errors.Is(err, errors.NotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, errors.AlreadyExists):
		return http.StatusConflict, CodeConflict
	case domain.IsUpstream(err):
		return http.StatusBadGateway, CodeUpstream
	case domain.IsStorage(err):
		return http.StatusServiceUnavailable, CodeStorage
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func errorJSON(c echo.Context, err error) error {
	status, code := Classify(err)
	message := err.Error()
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		message = http.StatusText(status)
	}
	return c.JSON(status, ErrorResponse{
		Error:   code,
		Message: message,
	})
}
