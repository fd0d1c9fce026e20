package controller

import (
	"sentinel-be/internal/dto"
	"sentinel-be/internal/pkg/serverutils"
	"sentinel-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IRunController interface {
	RegisterRoutes(r fiber.Router)
	Start(ctx *fiber.Ctx) error
	Status(ctx *fiber.Ctx) error
}

type runController struct {
	service service.IRunService
}

func NewRunController(service service.IRunService) IRunController {
	return &runController{service: service}
}

func (c *runController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/run")
	h.Post("/start", c.Start)
	h.Get("/:run_id/status", c.Status)
}

func (c *runController) Start(ctx *fiber.Ctx) error {
	var req dto.StartRunRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.StartRun(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success start run", res))
}

func (c *runController) Status(ctx *fiber.Ctx) error {
	res, err := c.service.GetRunStatus(ctx.UserContext(), ctx.Params("run_id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get run status", res))
}
