package web

import (
	"errors"

	"github.com/dukex/docflow/pkg/services"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(fiber.StatusBadRequest).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func forbidden(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(fiber.StatusForbidden).
		WithInstance(c.Path()).
		WithType(services.CodeForbidden).
		WithDetail(detail)

	return c.Status(fiber.StatusForbidden).JSON(problem)
}

// statusOf maps a service error kind to its HTTP status.
func statusOf(err error) int {
	switch services.KindOf(err) {
	case services.ErrInvalidRequest:
		return fiber.StatusBadRequest
	case services.ErrForbidden:
		return fiber.StatusForbidden
	case services.ErrNotFound:
		return fiber.StatusNotFound
	case services.ErrAlreadyDecided:
		return fiber.StatusConflict
	case services.ErrExpired:
		return fiber.StatusGone
	case services.ErrQuotaExceeded:
		return fiber.StatusPaymentRequired
	case services.ErrConfiguration:
		return fiber.StatusUnprocessableEntity
	case services.ErrDocumentBackend, services.ErrDataSource:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// handleServiceError renders a service error as a problem+json body. Internal errors
// hide their cause.
func handleServiceError(c fiber.Ctx, err error) error {
	problem := problemOf(c, err)

	return c.Status(problem.Status).JSON(problem)
}

// ExecutionProblem is the problem body of a trigger that failed after its run was
// recorded. The run is named by top-level extension members.
type ExecutionProblem struct {
	problems.Problem

	ExecutionID     string `json:"execution_id"`
	ExecutionStatus string `json:"execution_status"`
}

// handleExecutionError renders err like handleServiceError and names the failed run
// when one was recorded.
func handleExecutionError(c fiber.Ctx, result *services.Result, err error) error {
	if result == nil || result.Execution == nil {
		return handleServiceError(c, err)
	}

	problem := ExecutionProblem{
		Problem:         *problemOf(c, err),
		ExecutionID:     result.Execution.ID,
		ExecutionStatus: string(result.Execution.Status),
	}

	return c.Status(problem.Status).JSON(problem)
}

func problemOf(c fiber.Ctx, err error) *problems.Problem {
	status := statusOf(err)
	problem := problems.NewStatusProblem(status).WithInstance(c.Path())

	var serviceErr *services.ServiceError
	if errors.As(err, &serviceErr) && serviceErr.Code != "" {
		problem = problem.WithType(serviceErr.Code)
	}

	if status == fiber.StatusInternalServerError {
		return problem.WithType("internal_error").WithDetail("internal server error")
	}

	return problem.WithDetail(err.Error())
}
