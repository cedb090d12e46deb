package rest

import (
	"github.com/gofiber/fiber/v2"

	"github.com/multiwa/multiwa/core/database"
	domainSession "github.com/multiwa/multiwa/domains/session"
	"github.com/multiwa/multiwa/pkg/utils"
)

type Health struct {
	Sessions domainSession.ISessionUsecase
}

func InitRestHealth(app fiber.Router, sessions domainSession.ISessionUsecase) Health {
	rest := Health{Sessions: sessions}
	app.Get("/health", rest.Check)

	return rest
}

func (handler *Health) Check(c *fiber.Ctx) error {
	dbStatus := "ok"
	if sqlDB, err := database.GetSQLDB(); err != nil {
		dbStatus = "unavailable"
	} else if err := sqlDB.Ping(); err != nil {
		dbStatus = "unreachable"
	}

	all := handler.Sessions.List(c.UserContext())
	connected := 0
	for _, sess := range all {
		if sess.Status == domainSession.StatusConnected {
			connected++
		}
	}

	status := 200
	if dbStatus != "ok" {
		status = 503
	}

	return c.Status(status).JSON(utils.ResponseData{
		Status:  status,
		Code:    "SUCCESS",
		Message: "Health checked",
		Results: map[string]any{
			"database":           dbStatus,
			"sessions_total":     len(all),
			"sessions_connected": connected,
		},
	})
}
