package orders

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"mkitchen-backend/internal/httpapi"
	"mkitchen-backend/internal/models"
)

type BatchBody struct {
	Date     string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Session  string `json:"session" validate:"required,oneof=Lunch Dinner"`
	BranchID uint   `json:"branch_id" validate:"required"`
	Items    []Item `json:"items" validate:"dive"`
}

func (b BatchBody) request(c *fiber.Ctx) BatchRequest {
	return BatchRequest{
		Date:     b.Date,
		Session:  models.Session(b.Session),
		BranchID: b.BranchID,
		Items:    b.Items,
		Actor:    httpapi.Actor(c),
	}
}

// POST /api/orders/quick-batch
func QuickBatchHandler(l *Ledger, logger *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body BatchBody
		if err := httpapi.Bind(c, &body); err != nil {
			return err
		}
		res, err := l.AddIncremental(c.UserContext(), body.request(c))
		if err != nil {
			return httpapi.Fail(logger, "orders", "QuickBatchHandler", err)
		}
		return c.JSON(fiber.Map{"success": true, "dispatch_id": res.DispatchID, "rows": res.Rows})
	}
}

// POST /api/kitchen/orders/save
func SaveOrdersHandler(l *Ledger, logger *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body BatchBody
		if err := httpapi.Bind(c, &body); err != nil {
			return err
		}
		res, err := l.SaveReplace(c.UserContext(), body.request(c))
		if err != nil {
			return httpapi.Fail(logger, "orders", "SaveOrdersHandler", err)
		}
		return c.JSON(fiber.Map{"success": true, "dispatch_id": res.DispatchID, "rows": res.Rows})
	}
}

// GET /api/kitchen/orders/:date/:session/:branch
func EntrySheetHandler(l *Ledger, logger *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := httpapi.ParamUint(c, "branch")
		if err != nil {
			return err
		}
		sheet, err := l.EntrySheet(c.UserContext(), c.Params("date"), models.Session(c.Params("session")), branchID)
		if err != nil {
			return httpapi.Fail(logger, "orders", "EntrySheetHandler", err)
		}
		return c.JSON(sheet)
	}
}

// GET /api/kitchen/view-orders?date=
func ReceivedTodayHandler(l *Ledger, logger *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lines, err := l.ReceivedToday(c.UserContext(), dateOrToday(c, l))
		if err != nil {
			return httpapi.Fail(logger, "orders", "ReceivedTodayHandler", err)
		}
		return c.JSON(lines)
	}
}

type ConfirmDateBody struct {
	Date string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// POST /api/kitchen/dispatch-orders
// The body is optional; without one the date comes from ?date= or today.
func ConfirmDateHandler(l *Ledger, logger *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ConfirmDateBody
		if len(c.Body()) > 0 {
			if err := httpapi.Bind(c, &body); err != nil {
				return err
			}
		}
		date := body.Date
		if date == "" {
			date = dateOrToday(c, l)
		}
		n, err := l.ConfirmDate(c.UserContext(), date, httpapi.Actor(c))
		if err != nil {
			return httpapi.Fail(logger, "orders", "ConfirmDateHandler", err)
		}
		return c.JSON(fiber.Map{"success": true, "dispatched": n})
	}
}

// GET /api/kitchen/dispatch-orders?date=
func PendingHandler(l *Ledger, logger *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		groups, err := l.Pending(c.UserContext(), dateOrToday(c, l))
		if err != nil {
			return httpapi.Fail(logger, "orders", "PendingHandler", err)
		}
		return c.JSON(groups)
	}
}

// GET /api/kitchen/dispatch-orders/view?dispatch_id=&branch_id=
func DispatchItemsHandler(l *Ledger, logger *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dispatchID, err := httpapi.QueryUint(c, "dispatch_id")
		if err != nil {
			return err
		}
		branchID, err := httpapi.QueryUint(c, "branch_id")
		if err != nil {
			return err
		}
		lines, err := l.DispatchItems(c.UserContext(), dispatchID, branchID)
		if err != nil {
			return httpapi.Fail(logger, "orders", "DispatchItemsHandler", err)
		}
		return c.JSON(lines)
	}
}

type ConfirmBranchBody struct {
	DispatchID uint   `json:"dispatch_id" validate:"required"`
	BranchID   uint   `json:"branch_id" validate:"required"`
	Items      []Item `json:"items" validate:"dive"`
}

// POST /api/kitchen/dispatch/confirm
func ConfirmBranchHandler(l *Ledger, logger *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ConfirmBranchBody
		if err := httpapi.Bind(c, &body); err != nil {
			return err
		}
		res, err := l.ConfirmBranch(c.UserContext(), ConfirmRequest{
			DispatchID: body.DispatchID,
			BranchID:   body.BranchID,
			Overrides:  body.Items,
			Actor:      httpapi.Actor(c),
		})
		if err != nil {
			return httpapi.Fail(logger, "orders", "ConfirmBranchHandler", err)
		}
		return c.JSON(fiber.Map{"success": true, "updated": res.Updated, "dispatched": res.Dispatched})
	}
}

// GET /api/kitchen/dispatch-history?date=
func HistoryHandler(l *Ledger, logger *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		groups, err := l.History(c.UserContext(), dateOrToday(c, l))
		if err != nil {
			return httpapi.Fail(logger, "orders", "HistoryHandler", err)
		}
		return c.JSON(groups)
	}
}

// GET /api/hotel/dispatches?branch_id=
func BranchHistoryHandler(l *Ledger, logger *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var branchID uint
		if c.Query("branch_id") != "" {
			id, err := httpapi.QueryUint(c, "branch_id")
			if err != nil {
				return err
			}
			branchID = id
		}
		groups, err := l.BranchHistory(c.UserContext(), branchID)
		if err != nil {
			return httpapi.Fail(logger, "orders", "BranchHistoryHandler", err)
		}
		return c.JSON(groups)
	}
}

func dateOrToday(c *fiber.Ctx, l *Ledger) string {
	if d := c.Query("date"); d != "" {
		return d
	}
	return models.Today(l.now())
}
