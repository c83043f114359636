package catalog

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"mkitchen-backend/internal/httpapi"
)

// GET /api/branches
func ListBranchesHandler(s *Service, logger *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		branches, err := s.Branches(c.UserContext())
		if err != nil {
			return httpapi.Fail(logger, "catalog", "ListBranchesHandler", err)
		}
		return c.JSON(branches)
	}
}

// GET /api/dishes
func ListDishesHandler(s *Service, logger *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dishes, err := s.Dishes(c.UserContext())
		if err != nil {
			return httpapi.Fail(logger, "catalog", "ListDishesHandler", err)
		}
		return c.JSON(dishes)
	}
}

// GET /api/dishes/:code
func GetDishHandler(s *Service, logger *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		code := c.Params("code")
		dish, err := s.Dish(c.UserContext(), code)
		if err != nil {
			return httpapi.Fail(logger, "catalog", "GetDishHandler", err)
		}
		if dish == nil {
			return fiber.NewError(fiber.StatusNotFound, "dish "+code+" not found")
		}
		return c.JSON(dish)
	}
}

// GET /api/raw-items
func ListRawItemsHandler(s *Service, logger *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		items, err := s.RawItems(c.UserContext())
		if err != nil {
			return httpapi.Fail(logger, "catalog", "ListRawItemsHandler", err)
		}
		return c.JSON(items)
	}
}
