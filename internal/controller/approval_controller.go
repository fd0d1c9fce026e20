package controller

import (
	"sentinel-be/internal/dto"
	"sentinel-be/internal/pkg/serverutils"
	"sentinel-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IApprovalController interface {
	RegisterRoutes(r fiber.Router)
	Approve(ctx *fiber.Ctx) error
	ExecuteSuggestion(ctx *fiber.Ctx) error
}

type approvalController struct {
	service service.IApprovalService
}

func NewApprovalController(service service.IApprovalService) IApprovalController {
	return &approvalController{service: service}
}

func (c *approvalController) RegisterRoutes(r fiber.Router) {
	r.Post("/approval/:case_id", serverutils.JwtMiddleware, c.Approve)
	r.Post("/suggestion/:case_id/execute", serverutils.JwtMiddleware, c.ExecuteSuggestion)
}

func (c *approvalController) Approve(ctx *fiber.Ctx) error {
	var req dto.ApprovalRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}
	// A token-bound reviewer wins over whatever the body claims
	if reviewer := serverutils.Reviewer(ctx); reviewer != "" {
		req.ReviewerName = reviewer
	}

	res, err := c.service.ApplyApproval(ctx.UserContext(), ctx.Params("case_id"), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success apply approval", res))
}

func (c *approvalController) ExecuteSuggestion(ctx *fiber.Ctx) error {
	var req dto.SuggestionExecuteRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}
	if operator := serverutils.Reviewer(ctx); operator != "" && req.OperatorName == "" {
		req.OperatorName = operator
	}

	res, err := c.service.ExecuteSuggestion(ctx.UserContext(), ctx.Params("case_id"), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success execute suggestion", res))
}
