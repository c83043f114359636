package dispatch

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"mkitchen-backend/internal/httpapi"
	"mkitchen-backend/internal/models"
)

type ResolveRequest struct {
	Date    string `json:"date" validate:"required,datetime=2006-01-02"`
	Session string `json:"session" validate:"required,oneof=Lunch Dinner"`
}

// POST /api/dispatches/resolve
func ResolveHandler(r *Registry, logger *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ResolveRequest
		if err := httpapi.Bind(c, &body); err != nil {
			return err
		}
		d, err := r.GetOrCreate(c.UserContext(), body.Date, models.Session(body.Session))
		if err != nil {
			return httpapi.Fail(logger, "dispatch", "ResolveHandler", err)
		}
		return c.JSON(d)
	}
}

// GET /api/dispatches?date=2025-03-01
func ListByDateHandler(r *Registry, logger *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		date, err := models.ParseDate(c.Query("date"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		list, err := r.ListByDate(c.UserContext(), date)
		if err != nil {
			return httpapi.Fail(logger, "dispatch", "ListByDateHandler", err)
		}
		return c.JSON(list)
	}
}

// POST /api/dispatches/:id/dispatch
func MarkDispatchedHandler(r *Registry, logger *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpapi.ParamUint(c, "id")
		if err != nil {
			return err
		}
		d, err := r.MarkDispatched(c.UserContext(), id, httpapi.Actor(c))
		if err != nil {
			return httpapi.Fail(logger, "dispatch", "MarkDispatchedHandler", err)
		}
		return c.JSON(fiber.Map{"success": true, "dispatch": d})
	}
}

// GET /api/dashboard/:year/:month
func DashboardHandler(r *Registry, logger *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		year, err1 := c.ParamsInt("year")
		month, err2 := c.ParamsInt("month")
		if err1 != nil || err2 != nil {
			return fiber.NewError(fiber.StatusBadRequest, "year and month must be numbers")
		}
		days, err := r.MonthStatus(c.UserContext(), year, month)
		if err != nil {
			return httpapi.Fail(logger, "dispatch", "DashboardHandler", err)
		}
		return c.JSON(days)
	}
}
