package kitchenstock

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"mkitchen-backend/internal/httpapi"
	"mkitchen-backend/internal/models"
)

// GET /api/kitchen/stock?date=
func ViewHandler(s *Service, logger *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		date := c.Query("date")
		if date == "" {
			date = models.Today(s.now())
		}
		rows, err := s.View(c.UserContext(), date)
		if err != nil {
			return httpapi.Fail(logger, "kitchenstock", "ViewHandler", err)
		}
		return c.JSON(rows)
	}
}

type SaveBody struct {
	Date  string     `json:"date" validate:"required,datetime=2006-01-02"`
	Items []SaveItem `json:"items" validate:"required,min=1,dive"`
}

// POST /api/kitchen/stock
func SaveHandler(s *Service, logger *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body SaveBody
		if err := httpapi.Bind(c, &body); err != nil {
			return err
		}
		rows, err := s.Save(c.UserContext(), body.Date, body.Items, httpapi.Actor(c))
		if err != nil {
			return httpapi.Fail(logger, "kitchenstock", "SaveHandler", err)
		}
		return c.JSON(fiber.Map{"message": "Stock saved", "rows": rows})
	}
}
