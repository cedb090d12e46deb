package rest

import (
	"github.com/gofiber/fiber/v2"

	domainAutoReply "github.com/multiwa/multiwa/domains/autoreply"
	"github.com/multiwa/multiwa/pkg/utils"
)

type AutoReply struct {
	Service domainAutoReply.IAutoReplyUsecase
}

func InitRestAutoReply(app fiber.Router, service domainAutoReply.IAutoReplyUsecase) AutoReply {
	rest := AutoReply{Service: service}
	app.Post("/auto-replies", rest.Create)
	app.Get("/auto-replies", rest.List)
	app.Put("/auto-replies/:id", rest.Update)
	app.Delete("/auto-replies/:id", rest.Delete)

	return rest
}

func (handler *AutoReply) Create(c *fiber.Ctx) error {
	var request domainAutoReply.CreateRequest
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)

	response, err := handler.Service.Create(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Auto reply rule created",
		Results: response,
	})
}

// List optionally filters by session through ?session_id=.
func (handler *AutoReply) List(c *fiber.Ctx) error {
	response, err := handler.Service.List(c.UserContext(), c.Query("session_id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Auto reply rules fetched",
		Results: response,
	})
}

func (handler *AutoReply) Update(c *fiber.Ctx) error {
	var request domainAutoReply.UpdateRequest
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)

	response, err := handler.Service.Update(c.UserContext(), c.Params("id"), request)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Auto reply rule updated",
		Results: response,
	})
}

func (handler *AutoReply) Delete(c *fiber.Ctx) error {
	err := handler.Service.Delete(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Auto reply rule deleted",
		Results: nil,
	})
}
