package salereport

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"mkitchen-backend/internal/httpapi"
	"mkitchen-backend/internal/models"
)

type SubmitBody struct {
	BranchID uint   `json:"branch_id" validate:"required"`
	Date     string `json:"date" validate:"required,datetime=2006-01-02"`
	Session  string `json:"session" validate:"required,oneof=Lunch Dinner"`
	Items    []Line `json:"items" validate:"required,min=1,dive"`
}

func (b SubmitBody) request(c *fiber.Ctx) SubmitRequest {
	return SubmitRequest{
		Key:   Key{BranchID: b.BranchID, Date: b.Date, Session: models.Session(b.Session)},
		Lines: b.Items,
		Actor: httpapi.Actor(c),
	}
}

// POST /api/sale-report/send
func SubmitHandler(l *Ledger, logger *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body SubmitBody
		if err := httpapi.Bind(c, &body); err != nil {
			return err
		}
		res, err := l.Submit(c.UserContext(), body.request(c))
		if err != nil {
			return httpapi.Fail(logger, "salereport", "SubmitHandler", err)
		}
		return c.JSON(fiber.Map{"success": true, "dispatch_id": res.DispatchID, "rows": res.Rows})
	}
}

// POST /api/kitchen/sale-report/receive
func ReceiveHandler(l *Ledger, logger *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body SubmitBody
		if err := httpapi.Bind(c, &body); err != nil {
			return err
		}
		res, err := l.Receive(c.UserContext(), body.request(c))
		if err != nil {
			return httpapi.Fail(logger, "salereport", "ReceiveHandler", err)
		}
		return c.JSON(fiber.Map{"success": true, "dispatch_id": res.DispatchID, "rows": res.Rows})
	}
}

func keyFromQuery(c *fiber.Ctx) (Key, error) {
	branchID, err := httpapi.QueryUint(c, "branch_id")
	if err != nil {
		return Key{}, err
	}
	return Key{BranchID: branchID, Date: c.Query("date"), Session: models.Session(c.Query("session"))}, nil
}

// GET /api/sale-report/get?branch_id=&date=&session=
func GetHandler(l *Ledger, logger *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		k, err := keyFromQuery(c)
		if err != nil {
			return err
		}
		rows, err := l.Get(c.UserContext(), k)
		if err != nil {
			return httpapi.Fail(logger, "salereport", "GetHandler", err)
		}
		return c.JSON(rows)
	}
}

// GET /api/hotel/received-items?branch_id=&date=&session=
func ReceivedItemsHandler(l *Ledger, logger *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		k, err := keyFromQuery(c)
		if err != nil {
			return err
		}
		items, err := l.ReceivedItems(c.UserContext(), k)
		if err != nil {
			return httpapi.Fail(logger, "salereport", "ReceivedItemsHandler", err)
		}
		return c.JSON(items)
	}
}

// GET /api/hotel/opening-balance?branch_id=&date=&session=
func OpeningBalanceHandler(l *Ledger, logger *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		k, err := keyFromQuery(c)
		if err != nil {
			return err
		}
		ob, err := l.OpeningBalance(c.UserContext(), k)
		if err != nil {
			return httpapi.Fail(logger, "salereport", "OpeningBalanceHandler", err)
		}
		return c.JSON(ob)
	}
}
