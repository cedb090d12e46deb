package rest

import (
	"context"

	"github.com/gofiber/fiber/v2"

	domainCampaign "github.com/multiwa/multiwa/domains/campaign"
	"github.com/multiwa/multiwa/pkg/utils"
)

type Campaign struct {
	Service domainCampaign.ICampaignUsecase
}

func InitRestCampaign(app fiber.Router, service domainCampaign.ICampaignUsecase) Campaign {
	rest := Campaign{Service: service}
	app.Post("/campaigns", rest.Create)
	app.Get("/campaigns", rest.List)
	app.Get("/campaigns/:id", rest.Get)
	app.Post("/campaigns/:id/start", rest.Start)
	app.Post("/campaigns/:id/pause", rest.Pause)
	app.Post("/campaigns/:id/resume", rest.Resume)
	app.Post("/campaigns/:id/stop", rest.Stop)

	return rest
}

func (handler *Campaign) Create(c *fiber.Ctx) error {
	var request domainCampaign.CreateRequest
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)

	response, err := handler.Service.Create(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Campaign created",
		Results: response,
	})
}

func (handler *Campaign) List(c *fiber.Ctx) error {
	response, err := handler.Service.List(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Campaigns fetched",
		Results: response,
	})
}

func (handler *Campaign) Get(c *fiber.Ctx) error {
	campaign, recipients, err := handler.Service.Get(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Campaign fetched",
		Results: map[string]any{
			"campaign":   campaign,
			"recipients": recipients,
		},
	})
}

func (handler *Campaign) Start(c *fiber.Ctx) error {
	return handler.applyAction(c, handler.Service.Start, "Campaign started")
}

func (handler *Campaign) Pause(c *fiber.Ctx) error {
	return handler.applyAction(c, handler.Service.Pause, "Campaign paused")
}

func (handler *Campaign) Resume(c *fiber.Ctx) error {
	return handler.applyAction(c, handler.Service.Resume, "Campaign resumed")
}

func (handler *Campaign) Stop(c *fiber.Ctx) error {
	return handler.applyAction(c, handler.Service.Stop, "Campaign stopped")
}

func (handler *Campaign) applyAction(c *fiber.Ctx, action func(ctx context.Context, campaignID string) error, message string) error {
	err := action(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: message,
		Results: nil,
	})
}
