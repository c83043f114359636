// Package catalog reads the externally owned reference data: dishes,
// branches and raw items. Ledger packages call the Require* checks before
// they open a write transaction.
package catalog

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"mkitchen-backend/internal/apperr"
	"mkitchen-backend/internal/logging"
	"mkitchen-backend/internal/models"
)

type Service struct {
	db     *gorm.DB
	cache  Cache
	logger *logrus.Logger
}

// New builds the service; cache may be nil.
func New(db *gorm.DB, cache Cache, logger *logrus.Logger) *Service {
	return &Service{db: db, cache: cache, logger: logger}
}

func (s *Service) Dishes(ctx context.Context) ([]models.Dish, error) {
	var dishes []models.Dish
	if s.fromCache(ctx, "dishes", &dishes) {
		return dishes, nil
	}
	if err := s.db.WithContext(ctx).Order("sort_order, code").Find(&dishes).Error; err != nil {
		return nil, apperr.Storage("list dishes", err)
	}
	s.toCache(ctx, "dishes", dishes)
	return dishes, nil
}

func (s *Service) Branches(ctx context.Context) ([]models.Branch, error) {
	var branches []models.Branch
	if s.fromCache(ctx, "branches", &branches) {
		return branches, nil
	}
	if err := s.db.WithContext(ctx).Order("id").Find(&branches).Error; err != nil {
		return nil, apperr.Storage("list branches", err)
	}
	s.toCache(ctx, "branches", branches)
	return branches, nil
}

func (s *Service) RawItems(ctx context.Context) ([]models.RawItem, error) {
	var items []models.RawItem
	if s.fromCache(ctx, "raw_items", &items) {
		return items, nil
	}
	if err := s.db.WithContext(ctx).Order("id").Find(&items).Error; err != nil {
		return nil, apperr.Storage("list raw items", err)
	}
	s.toCache(ctx, "raw_items", items)
	return items, nil
}

// Dish looks a dish up by code; a missing dish is (nil, nil).
func (s *Service) Dish(ctx context.Context, code string) (*models.Dish, error) {
	dishes, err := s.Dishes(ctx)
	if err != nil {
		return nil, err
	}
	for i := range dishes {
		if dishes[i].Code == code {
			return &dishes[i], nil
		}
	}
	return nil, nil
}

func (s *Service) RequireBranch(ctx context.Context, id uint) error {
	branches, err := s.Branches(ctx)
	if err != nil {
		return err
	}
	for _, b := range branches {
		if b.ID == id {
			return nil
		}
	}
	return apperr.Reference("branch %d", id)
}

// RequireDishes fails on the first code not in the catalog, in sorted order
// so the message is stable.
func (s *Service) RequireDishes(ctx context.Context, codes []string) error {
	dishes, err := s.Dishes(ctx)
	if err != nil {
		return err
	}
	known := make(map[string]struct{}, len(dishes))
	for _, d := range dishes {
		known[d.Code] = struct{}{}
	}
	return missing(known, codes, "dish")
}

func (s *Service) RequireRawItems(ctx context.Context, codes []string) error {
	items, err := s.RawItems(ctx)
	if err != nil {
		return err
	}
	known := make(map[string]struct{}, len(items))
	for _, it := range items {
		known[it.Code] = struct{}{}
	}
	return missing(known, codes, "raw item")
}

func missing(known map[string]struct{}, codes []string, kind string) error {
	var unknown []string
	for _, c := range codes {
		if _, ok := known[c]; !ok {
			unknown = append(unknown, c)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return apperr.Reference("%s %s", kind, unknown[0])
}

func (s *Service) fromCache(ctx context.Context, key string, dest any) bool {
	if s.cache == nil {
		return false
	}
	ok, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		logging.LogError(s.logger, "catalog", "fromCache", "cache get", key, err)
		return false
	}
	return ok
}

func (s *Service) toCache(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value); err != nil {
		logging.LogError(s.logger, "catalog", "toCache", "cache set", key, err)
	}
}
