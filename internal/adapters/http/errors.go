package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/planpresso/internal/core/domain"
	"github.com/samirrijal/planpresso/internal/core/validation"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // bad_request, not_found, conflict, unprocessable, internal_error
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
	// Report is set when a plan was refused for validation errors.
	Report *validation.Report `json:"report,omitempty"`
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
	return newError(c, 400, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, 404, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, 500, "internal_error", msg)
}

// errConflict returns a 409 error.
func errConflict(c *fiber.Ctx, msg string) error {
	return newError(c, 409, "conflict", msg)
}

// errUnprocessable returns a 422 error carrying the validation report.
func errUnprocessable(c *fiber.Ctx, r validation.Report) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(422).JSON(APIError{
		Status:    422,
		Code:      "unprocessable",
		Message:   domain.ErrInvalidPlan.Error(),
		RequestID: reqID,
		Report:    &r,
	})
}

// badRequest is returned from inside handlers that answer through a shared
// wrapper.
type badRequest string

func (e badRequest) Error() string { return string(e) }

// errFromDomain maps service errors onto the error envelope. Anything
// unrecognised is logged and reported as a 500 without its details.
func errFromDomain(c *fiber.Ctx, err error) error {
	if r, ok := validation.AsReport(err); ok {
		return errUnprocessable(c, r)
	}

	var (
		perr *domain.ParseError
		breq badRequest
	)
	switch {
	case errors.As(err, &breq):
		return errBadRequest(c, string(breq))
	case errors.As(err, &perr):
		// Refused view switch: the text view stays active.
		return errConflict(c, validation.ParseMessage(perr.Err))
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrPlanNotFound):
		return errNotFound(c, err.Error())
	case errors.Is(err, domain.ErrWrongView):
		return errConflict(c, err.Error())
	case errors.Is(err, domain.ErrIndexOutOfRange),
		errors.Is(err, domain.ErrUnknownField),
		errors.Is(err, domain.ErrUnknownView),
		errors.Is(err, domain.ErrUnknownAction),
		errors.Is(err, domain.ErrUnknownContext),
		errors.Is(err, domain.ErrInvalidSharePlan):
		return errBadRequest(c, err.Error())
	}

	LoggerFromCtx(c.UserContext()).Error("request failed", "path", c.Path(), "error", err)
	return errInternal(c, "internal error")
}
