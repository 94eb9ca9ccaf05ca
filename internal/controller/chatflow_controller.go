package controller

import (
	"chatproxy-be/internal/pkg/serverutils"
	"chatproxy-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IChatflowController interface {
	RegisterRoutes(r fiber.Router)
	GetAll(ctx *fiber.Ctx) error
	Sync(ctx *fiber.Ctx) error
}

type chatflowController struct {
	service   service.IChatflowSyncService
	jwtSecret string
}

func NewChatflowController(service service.IChatflowSyncService, jwtSecret string) IChatflowController {
	return &chatflowController{service: service, jwtSecret: jwtSecret}
}

func (c *chatflowController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chatflow/v1")
	h.Use(serverutils.JwtMiddleware(c.jwtSecret))
	h.Get("", c.GetAll)
	h.Post("/sync", serverutils.AdminOnly, c.Sync)
}

// GetAll lists the mirror. Non-admins only see deployed chatflows.
func (c *chatflowController) GetAll(ctx *fiber.Ctx) error {
	deployedOnly := !callerFrom(ctx).IsAdmin() || ctx.QueryBool("deployed")

	res, err := c.service.ListChatflows(ctx.UserContext(), deployedOnly)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get chatflows", res))
}

func (c *chatflowController) Sync(ctx *fiber.Ctx) error {
	result, err := c.service.Sync(ctx.UserContext())
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Chatflow sync finished", result.ToResponse()))
}
