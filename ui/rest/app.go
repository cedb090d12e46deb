package rest

import (
	"github.com/gofiber/fiber/v2"

	"github.com/multiwa/multiwa/core/config"
	domainApp "github.com/multiwa/multiwa/domains/app"
	"github.com/multiwa/multiwa/pkg/utils"
)

type App struct {
	Service domainApp.IAppUsecase
}

func InitRestApp(app fiber.Router, service domainApp.IAppUsecase) App {
	rest := App{Service: service}
	app.Get("/app/settings", rest.GetSettings)
	app.Put("/app/settings", rest.UpdateSettings)
	app.Get("/app/version", rest.GetVersion)

	return rest
}

func (handler *App) GetVersion(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"version":     config.Global.App.Version,
		"environment": config.Global.App.Environment,
	})
}

func (handler *App) GetSettings(c *fiber.Ctx) error {
	response, err := handler.Service.GetSettings(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Settings fetched",
		Results: response,
	})
}

func (handler *App) UpdateSettings(c *fiber.Ctx) error {
	var request domainApp.UpdateSettingsRequest
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)

	response, err := handler.Service.UpdateSettings(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Settings updated",
		Results: response,
	})
}
