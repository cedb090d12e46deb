package rest

import (
	"github.com/gofiber/fiber/v2"

	"github.com/multiwa/multiwa/pkg/utils"
	"github.com/multiwa/multiwa/repository"
)

type History struct {
	Logs *repository.MessageLogStore
}

func InitRestHistory(app fiber.Router, logs *repository.MessageLogStore) History {
	rest := History{Logs: logs}
	app.Get("/sessions/:id/messages", rest.Messages)
	app.Get("/sessions/:id/auto-replies", rest.AutoReplies)

	return rest
}

func (handler *History) Messages(c *fiber.Ctx) error {
	records, err := handler.Logs.RecentMessages(c.UserContext(), c.Params("id"), c.QueryInt("limit"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Message history fetched",
		Results: records,
	})
}

func (handler *History) AutoReplies(c *fiber.Ctx) error {
	logs, err := handler.Logs.RecentAutoReplies(c.UserContext(), c.Params("id"), c.QueryInt("limit"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Auto reply history fetched",
		Results: logs,
	})
}
