package controller

import (
	"sentinel-be/internal/pkg/serverutils"
	"sentinel-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IDashboardController interface {
	RegisterRoutes(r fiber.Router)
	Dashboard(ctx *fiber.Ctx) error
	CaseDetail(ctx *fiber.Ctx) error
}

type dashboardController struct {
	dashboardService service.IDashboardService
	caseService      service.ICaseService
}

func NewDashboardController(dashboardService service.IDashboardService, caseService service.ICaseService) IDashboardController {
	return &dashboardController{
		dashboardService: dashboardService,
		caseService:      caseService,
	}
}

func (c *dashboardController) RegisterRoutes(r fiber.Router) {
	r.Get("/dashboard", c.Dashboard)
	r.Get("/case/:case_id", c.CaseDetail)
}

func (c *dashboardController) Dashboard(ctx *fiber.Ctx) error {
	res, err := c.dashboardService.GetDashboard(ctx.UserContext())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get dashboard", res))
}

func (c *dashboardController) CaseDetail(ctx *fiber.Ctx) error {
	res, err := c.caseService.GetCaseDetail(ctx.UserContext(), ctx.Params("case_id"), ctx.Query("run_id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get case detail", res))
}
