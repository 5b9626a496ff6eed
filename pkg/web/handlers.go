// Package web provides HTTP handlers and REST API endpoints for document generation.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/dukex/docflow/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// OrganizationHeader scopes tenant reads.
const OrganizationHeader = "X-Organization-ID"

// Enqueuer hands a trigger to a background worker.
type Enqueuer interface {
	Enqueue(ctx context.Context, input services.TriggerInput) error
}

// Services are the collaborators of the handlers. Queue is optional; without it async
// triggers run in a goroutine of the API process.
type Services struct {
	Workflow          *services.Workflow
	Dispatcher        *services.Dispatcher
	Approvals         *services.Approvals
	SignatureWebhooks *services.SignatureWebhooks
	Queue             Enqueuer
}

type APIHandlers struct {
	services  Services
	validator *validator.Validate
	logger    *slog.Logger
	inflight  sync.WaitGroup
}

func NewAPIHandlers(services Services, validator *validator.Validate, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		services:  services,
		validator: validator,
		logger:    logger.With("module", "api"),
	}
}

// Register mounts every route on router.
func (h *APIHandlers) Register(router fiber.Router) {
	router.Get("/health", h.HealthCheck)

	w := router.Group("/workflows")
	w.Post("/:id/executions", h.TriggerExecution)
	w.Get("/:id/executions", h.ListExecutions)
	w.Get("/:id/approvals", h.ListApprovals)
	w.Put("/:id/field-mappings", h.ReplaceFieldMappings)
	w.Post("/:id/activate", h.ActivateWorkflow)

	router.Get("/executions/:id", h.GetExecution)

	a := router.Group("/approvals")
	a.Get("/:token", h.GetApproval)
	a.Post("/:token/approve", h.ApproveApproval)
	a.Post("/:token/reject", h.RejectApproval)

	router.Post("/webhooks/signatures/:provider", h.SignatureWebhook)
}

// Drain waits for async runs started by this process.
func (h *APIHandlers) Drain() {
	h.inflight.Wait()
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, ok := h.services.Workflow.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Docflow API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if ok {
		status = "healthy"
		message = "Docflow API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) TriggerExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req TriggerExecutionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	input := services.TriggerInput{
		WorkflowID:     id,
		SourceObjectID: req.SourceObjectID,
		SourceData:     req.SourceData,
		TriggeredBy:    req.TriggeredBy,
		TriggerType:    services.TriggerTypeManual,
	}

	if req.Async {
		return h.triggerAsync(c, input)
	}

	result, err := h.services.Dispatcher.Dispatch(c.Context(), input)
	if err != nil {
		return handleExecutionError(c, result, err)
	}

	status := fiber.StatusCreated
	if result.Awaiting() {
		status = fiber.StatusAccepted
	}

	return c.Status(status).JSON(TransformResult(result))
}

func (h *APIHandlers) triggerAsync(c fiber.Ctx, input services.TriggerInput) error {
	if _, err := h.services.Workflow.FetchByID(c.Context(), input.WorkflowID); err != nil {
		return handleServiceError(c, err)
	}

	if h.services.Queue != nil {
		if err := h.services.Queue.Enqueue(c.Context(), input); err != nil {
			return handleServiceError(c, err)
		}

		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "queued", "workflow_id": input.WorkflowID})
	}

	// The request context is recycled once the handler returns.
	h.inflight.Add(1)

	go func() {
		defer h.inflight.Done()

		ctx := context.Background()

		result, err := h.services.Dispatcher.Dispatch(ctx, input)
		if err != nil {
			logger := h.logger.With("workflow_id", input.WorkflowID)
			if result != nil && result.Execution != nil {
				logger = logger.With("execution_id", result.Execution.ID)
			}

			logger.ErrorContext(ctx, "async execution failed", "error", err)

			return
		}

		h.logger.InfoContext(ctx, "async execution finished",
			"workflow_id", input.WorkflowID, "execution_id", result.Execution.ID, "status", result.Execution.Status)
	}()

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "accepted", "workflow_id": input.WorkflowID})
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	execution, err := h.services.Workflow.FetchExecution(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(execution)
}

func (h *APIHandlers) ListExecutions(c fiber.Ctx) error {
	organizationID := c.Get(OrganizationHeader)
	if organizationID == "" {
		return forbidden(c, OrganizationHeader+" header is required")
	}

	executions, err := h.services.Workflow.ListExecutionsForOrganization(c.Context(), c.Params("id"), organizationID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(executions)
}

func (h *APIHandlers) ListApprovals(c fiber.Ctx) error {
	organizationID := c.Get(OrganizationHeader)
	if organizationID == "" {
		return forbidden(c, OrganizationHeader+" header is required")
	}

	approvals, err := h.services.Approvals.ListByWorkflow(c.Context(), c.Params("id"), organizationID)
	if err != nil {
		return handleServiceError(c, err)
	}

	response := make([]*ApprovalResponse, 0, len(approvals))
	for _, approval := range approvals {
		response = append(response, TransformApproval(approval))
	}

	return c.JSON(response)
}

func (h *APIHandlers) ReplaceFieldMappings(c fiber.Ctx) error {
	var req ReplaceFieldMappingsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	stored, err := h.services.Workflow.ReplaceFieldMappings(c.Context(), c.Params("id"), TransformMappings(req.Mappings))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(stored)
}

func (h *APIHandlers) ActivateWorkflow(c fiber.Ctx) error {
	workflow, err := h.services.Workflow.Activate(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) GetApproval(c fiber.Ctx) error {
	approval, err := h.services.Approvals.Status(c.Context(), c.Params("token"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(TransformApproval(approval))
}

func (h *APIHandlers) ApproveApproval(c fiber.Ctx) error {
	decision, err := h.services.Approvals.Approve(c.Context(), c.Params("token"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(transformDecision(decision))
}

func (h *APIHandlers) RejectApproval(c fiber.Ctx) error {
	var req RejectApprovalRequest

	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	decision, err := h.services.Approvals.Reject(c.Context(), c.Params("token"), req.Comment)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(transformDecision(decision))
}

func transformDecision(decision *services.Decision) DecisionResponse {
	response := DecisionResponse{
		Approval:  TransformApproval(decision.Approval),
		Execution: TransformResult(decision.Resumed),
	}

	if decision.ResumeErr != nil {
		response.ResumeError = decision.ResumeErr.Error()
	}

	return response
}

func (h *APIHandlers) SignatureWebhook(c fiber.Ctx) error {
	document, err := h.services.SignatureWebhooks.Handle(c.Context(), c.Params("provider"), c.Body())
	if err != nil {
		return handleServiceError(c, err)
	}

	if document == nil {
		return c.JSON(fiber.Map{"status": "ignored"})
	}

	return c.JSON(fiber.Map{"status": "updated", "document_id": document.ID, "document_status": document.Status})
}
