package audit

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"mkitchen-backend/internal/httpapi"
	"mkitchen-backend/internal/models"
)

type AuditLogResponse struct {
	ID          uint               `json:"id"`
	CreatedAt   string             `json:"created_at"`
	BranchID    *uint              `json:"branch_id"`
	Actor       string             `json:"actor"`
	EntityType  string             `json:"entity_type"`
	EntityID    uint               `json:"entity_id"`
	Action      models.AuditAction `json:"action"`
	Description string             `json:"description"`
}

// GET /api/audit-logs?entity_type=branch_order&entity_id=1&branch_id=1&limit=50
func ListAuditLogsHandler(db *gorm.DB, logger *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var f Filter
		if v := c.Query("branch_id"); v != "" {
			if bid, err := strconv.ParseUint(v, 10, 64); err == nil && bid > 0 {
				b := uint(bid)
				f.BranchID = &b
			}
		}
		f.EntityType = c.Query("entity_type")
		if v := c.Query("entity_id"); v != "" {
			if eid, err := strconv.ParseUint(v, 10, 64); err == nil {
				f.EntityID = uint(eid)
			}
		}
		f.Limit = c.QueryInt("limit", 200)

		logs, err := List(c.UserContext(), db, f)
		if err != nil {
			return httpapi.Fail(logger, "audit", "ListAuditLogsHandler", err)
		}

		resp := make([]AuditLogResponse, 0, len(logs))
		for _, log := range logs {
			resp = append(resp, AuditLogResponse{
				ID:          log.ID,
				CreatedAt:   log.CreatedAt.Format("2006-01-02 15:04:05"),
				BranchID:    log.BranchID,
				Actor:       log.Actor,
				EntityType:  log.EntityType,
				EntityID:    log.EntityID,
				Action:      log.Action,
				Description: log.Description,
			})
		}

		return c.JSON(resp)
	}
}
