package rest

import (
	"github.com/gofiber/fiber/v2"

	domainSession "github.com/multiwa/multiwa/domains/session"
	"github.com/multiwa/multiwa/pkg/utils"
)

type Session struct {
	Service domainSession.ISessionUsecase
}

func InitRestSession(app fiber.Router, service domainSession.ISessionUsecase) Session {
	rest := Session{Service: service}
	app.Post("/sessions", rest.Create)
	app.Get("/sessions", rest.List)
	app.Get("/sessions/:id", rest.Get)
	app.Post("/sessions/:id/messages", rest.SendMessage)
	app.Post("/sessions/:id/disconnect", rest.Disconnect)
	app.Delete("/sessions/:id", rest.Delete)

	return rest
}

func (handler *Session) Create(c *fiber.Ctx) error {
	var request domainSession.CreateRequest
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)

	response, err := handler.Service.Create(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Session created, waiting for QR scan",
		Results: response,
	})
}

func (handler *Session) List(c *fiber.Ctx) error {
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Sessions fetched",
		Results: handler.Service.List(c.UserContext()),
	})
}

func (handler *Session) Get(c *fiber.Ctx) error {
	response, err := handler.Service.Get(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Session fetched",
		Results: response,
	})
}

func (handler *Session) SendMessage(c *fiber.Ctx) error {
	var request domainSession.SendMessageRequest
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)
	request.SessionID = c.Params("id")

	response, err := handler.Service.SendMessage(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Message sent",
		Results: response,
	})
}

func (handler *Session) Disconnect(c *fiber.Ctx) error {
	err := handler.Service.Disconnect(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Session disconnected",
		Results: nil,
	})
}

func (handler *Session) Delete(c *fiber.Ctx) error {
	err := handler.Service.Delete(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Session deleted",
		Results: nil,
	})
}
