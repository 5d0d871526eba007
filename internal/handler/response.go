package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	middlewarepkg "github.com/octobees/directory-leads/internal/middleware"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// APIResponse is the JSON envelope shared by every endpoint.
// RequestID echoes X-Request-ID so a failed scrape can be matched to its log lines.
type APIResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// Success writes data in the envelope. A zero status means 200.
func Success(c echo.Context, status int, message string, data any) error {
	if status == 0 {
		status = http.StatusOK
	}
	return respond(c, status, APIResponse{Status: statusSuccess, Message: message, Data: data})
}

// Error writes message in the envelope. A zero status means 500.
func Error(c echo.Context, status int, message string) error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return respond(c, status, APIResponse{Status: statusError, Message: message})
}

func respond(c echo.Context, status int, payload APIResponse) error {
	payload.RequestID = middlewarepkg.RequestIDFromContext(c)
	return c.JSON(status, payload)
}
