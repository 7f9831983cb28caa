package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/routegate/internal/core/domain"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // bad_request, upstream_error, upstream_timeout, bad_gateway, internal_error
	Message   string `json:"message"` // Human-readable message
	Stage     string `json:"stage,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusNotFound, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusInternalServerError, "internal_error", msg)
}

// classify maps a pipeline error to an HTTP status and error code.
func classify(err error) (int, string) {
	var (
		ve *domain.ValidationError
		ue *domain.UpstreamError
	)
	switch {
	case errors.As(err, &ve):
		return fiber.StatusBadRequest, "bad_request"
	case errors.As(err, &ue):
		switch {
		case !ue.Transport():
			return ue.StatusCode, "upstream_error"
		case ue.Timeout():
			return fiber.StatusGatewayTimeout, "upstream_timeout"
		default:
			return fiber.StatusBadGateway, "bad_gateway"
		}
	default:
		// Response shape, polyline decode and anything unexpected.
		return fiber.StatusInternalServerError, "internal_error"
	}
}

// errFromDomain writes err using the pipeline error taxonomy.
func errFromDomain(c *fiber.Ctx, err error) error {
	status, code := classify(err)
	stage := domain.StageOf(err)
	c.Locals(stageLocal, stage)
	if status >= 500 {
		LoggerFromCtx(c.UserContext()).Error("request failed", "status", status, "error", err)
	}

	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   err.Error(),
		Stage:     stage,
		RequestID: reqID,
	})
}
