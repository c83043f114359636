package reports

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"mkitchen-backend/internal/httpapi"
)

// GET /api/kitchen-statement?date=
func KitchenStatementHandler(s *Service, logger *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		st, err := s.KitchenStatement(c.UserContext(), c.Query("date"))
		if err != nil {
			return httpapi.Fail(logger, "reports", "KitchenStatementHandler", err)
		}
		return c.JSON(st)
	}
}

// GET /api/kitchen/day-analysis?date=
func DayAnalysisHandler(s *Service, logger *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lines, err := s.DayAnalysis(c.UserContext(), c.Query("date"))
		if err != nil {
			return httpapi.Fail(logger, "reports", "DayAnalysisHandler", err)
		}
		return c.JSON(lines)
	}
}

// GET /api/kitchen/reports/unified?type=month&value=2025-03&branch_id=all
func UnifiedHandler(s *Service, logger *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := UnifiedQuery{
			Type:  PeriodType(c.Query("type")),
			Value: c.Query("value"),
			Start: c.Query("startDate"),
			End:   c.Query("endDate"),
		}
		if b := c.Query("branch_id"); b != "" && b != "all" {
			id, err := httpapi.QueryUint(c, "branch_id")
			if err != nil {
				return err
			}
			q.BranchID = id
		}
		report, err := s.Unified(c.UserContext(), q)
		if err != nil {
			return httpapi.Fail(logger, "reports", "UnifiedHandler", err)
		}
		return c.JSON(report)
	}
}

// GET /api/kitchen/product-report?item_code=&from=&to=
func ProductReportHandler(s *Service, logger *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lines, err := s.ProductReport(c.UserContext(), c.Query("item_code"), c.Query("from"), c.Query("to"))
		if err != nil {
			return httpapi.Fail(logger, "reports", "ProductReportHandler", err)
		}
		return c.JSON(lines)
	}
}
