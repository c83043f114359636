package main

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"mkitchen-backend/internal/audit"
	"mkitchen-backend/internal/catalog"
	"mkitchen-backend/internal/config"
	"mkitchen-backend/internal/dailystats"
	"mkitchen-backend/internal/database"
	"mkitchen-backend/internal/dispatch"
	"mkitchen-backend/internal/httpapi"
	"mkitchen-backend/internal/kitchenstock"
	"mkitchen-backend/internal/lock"
	"mkitchen-backend/internal/logging"
	"mkitchen-backend/internal/orders"
	"mkitchen-backend/internal/reports"
	"mkitchen-backend/internal/salereport"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg)
	database.Init(cfg, logger)

	mapping, err := kitchenstock.LoadMapping(cfg.ConsumptionMappingPath)
	if err != nil {
		logger.Fatalf("could not load consumption mapping: %v", err)
	}

	var cache catalog.Cache
	var locker lock.Locker = lock.Noop{}
	if cfg.RedisAddress != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddress})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warnf("redis at %s not reachable (%v); cache and locks fall back to the database", cfg.RedisAddress, err)
		}
		cancel()
		cache = catalog.NewRedisCache(rdb, cfg.CatalogCacheTTL)
		locker = lock.NewRedis(rdb, logger)
	}

	app := newApp(deps{
		db:      database.DB,
		logger:  logger,
		cache:   cache,
		locker:  locker,
		mapping: mapping,
		now:     time.Now,
		origins: cfg.CORSOrigins,
	})

	logger.Info("server listening on port " + cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		logger.Fatal(err)
	}
}

type deps struct {
	db      *gorm.DB
	logger  *logrus.Logger
	cache   catalog.Cache
	locker  lock.Locker
	mapping *kitchenstock.Mapping
	now     func() time.Time
	origins string
}

func newApp(d deps) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: httpapi.ErrorHandler(d.logger)})

	corsOrigins := strings.Split(d.origins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, X-Actor",
		AllowMethods: "GET,POST,OPTIONS",
	}))
	app.Use(logging.Middleware(d.logger))

	cat := catalog.New(d.db, d.cache, d.logger)
	registry := dispatch.NewRegistry(d.db, d.now)
	ledger := orders.NewLedger(d.db, cat, d.now)
	sales := salereport.NewLedger(d.db, cat)
	stats := dailystats.NewService(d.db, cat, d.now)
	stock := kitchenstock.NewService(d.db, cat, d.mapping, d.locker, d.now)
	reads := reports.NewService(d.db, cat)
	log := d.logger

	api := app.Group("/api")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "time": d.now().Format(time.DateTime)})
	})

	// Catalog
	api.Get("/branches", catalog.ListBranchesHandler(cat, log))
	api.Get("/dishes", catalog.ListDishesHandler(cat, log))
	api.Get("/dishes/:code", catalog.GetDishHandler(cat, log))
	api.Get("/raw-items", catalog.ListRawItemsHandler(cat, log))

	// Dispatches
	api.Post("/dispatches/resolve", dispatch.ResolveHandler(registry, log))
	api.Get("/dispatches", dispatch.ListByDateHandler(registry, log))
	api.Post("/dispatches/:id/dispatch", dispatch.MarkDispatchedHandler(registry, log))
	api.Get("/dashboard/:year/:month", dispatch.DashboardHandler(registry, log))

	// Branch orders
	api.Post("/orders/quick-batch", orders.QuickBatchHandler(ledger, log))
	api.Post("/kitchen/orders/save", orders.SaveOrdersHandler(ledger, log))
	api.Get("/kitchen/orders/:date/:session/:branch", orders.EntrySheetHandler(ledger, log))
	api.Get("/kitchen/view-orders", orders.ReceivedTodayHandler(ledger, log))
	api.Post("/kitchen/dispatch-orders", orders.ConfirmDateHandler(ledger, log))
	api.Get("/kitchen/dispatch-orders", orders.PendingHandler(ledger, log))
	api.Get("/kitchen/dispatch-orders/view", orders.DispatchItemsHandler(ledger, log))
	api.Post("/kitchen/dispatch/confirm", orders.ConfirmBranchHandler(ledger, log))
	api.Get("/kitchen/dispatch-history", orders.HistoryHandler(ledger, log))
	api.Get("/hotel/dispatches", orders.BranchHistoryHandler(ledger, log))

	// Sale reports
	api.Post("/sale-report/send", salereport.SubmitHandler(sales, log))
	api.Post("/kitchen/sale-report/receive", salereport.ReceiveHandler(sales, log))
	api.Get("/sale-report/get", salereport.GetHandler(sales, log))
	api.Get("/hotel/received-items", salereport.ReceivedItemsHandler(sales, log))
	api.Get("/hotel/opening-balance", salereport.OpeningBalanceHandler(sales, log))

	// Daily stats & raw stock
	api.Post("/kitchen/daily-stats", dailystats.UpsertHandler(stats, log))
	api.Get("/kitchen/daily-stats", dailystats.ListHandler(stats, log))
	api.Get("/kitchen/stock", kitchenstock.ViewHandler(stock, log))
	api.Post("/kitchen/stock", kitchenstock.SaveHandler(stock, log))

	// Read models
	api.Get("/kitchen-statement", reports.KitchenStatementHandler(reads, log))
	api.Get("/kitchen/day-analysis", reports.DayAnalysisHandler(reads, log))
	api.Get("/kitchen/reports/unified", reports.UnifiedHandler(reads, log))
	api.Get("/kitchen/product-report", reports.ProductReportHandler(reads, log))

	// Audit logs
	api.Get("/audit-logs", audit.ListAuditLogsHandler(d.db, log))

	return app
}
