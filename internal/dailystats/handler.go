package dailystats

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"mkitchen-backend/internal/httpapi"
	"mkitchen-backend/internal/models"
)

type UpsertBody struct {
	Date  string `json:"date" validate:"required,datetime=2006-01-02"`
	Items []Item `json:"items" validate:"required,min=1,dive"`
}

// POST /api/kitchen/daily-stats
func UpsertHandler(s *Service, logger *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body UpsertBody
		if err := httpapi.Bind(c, &body); err != nil {
			return err
		}
		n, err := s.Upsert(c.UserContext(), body.Date, body.Items, httpapi.Actor(c))
		if err != nil {
			return httpapi.Fail(logger, "dailystats", "UpsertHandler", err)
		}
		return c.JSON(fiber.Map{"success": true, "rows": n})
	}
}

// GET /api/kitchen/daily-stats?date=
func ListHandler(s *Service, logger *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		date := c.Query("date")
		if date == "" {
			date = models.Today(s.now())
		}
		stats, err := s.List(c.UserContext(), date)
		if err != nil {
			return httpapi.Fail(logger, "dailystats", "ListHandler", err)
		}
		return c.JSON(stats)
	}
}
