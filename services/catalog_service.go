package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pos/apperror"
	"github.com/yeremiapane/restaurant-pos/cart"
	"github.com/yeremiapane/restaurant-pos/events"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// CatalogService owns menu items and their categories.
type CatalogService struct {
	DB       *gorm.DB
	Notifier events.Notifier
}

func NewCatalogService(db *gorm.DB, notifier events.Notifier) *CatalogService {
	if notifier == nil {
		notifier = events.Nop{}
	}
	return &CatalogService{DB: db, Notifier: notifier}
}

type MenuFilter struct {
	CategoryID      *uint
	AvailableOnly   bool
	IncludeInactive bool
}

type MenuInput struct {
	CategoryID  uint
	Name        string
	Price       int64
	Available   *bool
	Description string
}

type MenuPatch struct {
	CategoryID  *uint
	Name        *string
	Price       *int64
	Available   *bool
	Active      *bool
	Description *string
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]models.MenuCategory, error) {
	var categories []models.MenuCategory
	if err := s.DB.WithContext(ctx).Order("sort_order asc, id asc").Find(&categories).Error; err != nil {
		return nil, apperror.Internal("list categories", err)
	}
	return categories, nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, name string, sortOrder int) (*models.MenuCategory, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.Validation("category name is required")
	}
	db := s.DB.WithContext(ctx)
	var dup int64
	if err := db.Model(&models.MenuCategory{}).Where("name = ?", name).Count(&dup).Error; err != nil {
		return nil, apperror.Internal("check category name", err)
	}
	if dup > 0 {
		return nil, apperror.Conflict("category %q already exists", name)
	}
	category := &models.MenuCategory{Name: name, SortOrder: sortOrder}
	if err := db.Create(category).Error; err != nil {
		return nil, apperror.Internal("create category", err)
	}
	return category, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id uint, name *string, sortOrder *int) (*models.MenuCategory, error) {
	db := s.DB.WithContext(ctx)
	var category models.MenuCategory
	if err := db.First(&category, id).Error; err != nil {
		return nil, lookupErr(err, "category", id)
	}
	if name != nil {
		n := strings.TrimSpace(*name)
		if n == "" {
			return nil, apperror.Validation("category name is required")
		}
		category.Name = n
	}
	if sortOrder != nil {
		category.SortOrder = *sortOrder
	}
	if err := db.Save(&category).Error; err != nil {
		return nil, apperror.Internal("update category", err)
	}
	return &category, nil
}

// DeleteCategory is refused while menu items still point at the category.
func (s *CatalogService) DeleteCategory(ctx context.Context, id uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var category models.MenuCategory
		if err := tx.First(&category, id).Error; err != nil {
			return lookupErr(err, "category", id)
		}
		var n int64
		if err := tx.Model(&models.Menu{}).Where("category_id = ?", id).Count(&n).Error; err != nil {
			return apperror.Internal("count category items", err)
		}
		if n > 0 {
			return apperror.Conflict("category %q still has %d menu items", category.Name, n)
		}
		if err := tx.Delete(&category).Error; err != nil {
			return apperror.Internal("delete category", err)
		}
		return nil
	})
}

func (s *CatalogService) ListMenu(ctx context.Context, f MenuFilter) ([]models.Menu, error) {
	q := s.DB.WithContext(ctx).Preload("Category").Order("category_id asc, name asc")
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if !f.IncludeInactive {
		q = q.Where("active = ?", true)
	}
	if f.AvailableOnly {
		q = q.Where("available = ?", true)
	}
	var menus []models.Menu
	if err := q.Find(&menus).Error; err != nil {
		return nil, apperror.Internal("list menu", err)
	}
	return menus, nil
}

func (s *CatalogService) GetMenu(ctx context.Context, id uint) (*models.Menu, error) {
	var menu models.Menu
	if err := s.DB.WithContext(ctx).Preload("Category").First(&menu, id).Error; err != nil {
		return nil, lookupErr(err, "menu item", id)
	}
	return &menu, nil
}

func (s *CatalogService) CreateMenu(ctx context.Context, in MenuInput) (*models.Menu, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperror.Validation("menu item name is required")
	}
	if in.Price < 0 {
		return nil, apperror.Validation("price must not be negative")
	}
	db := s.DB.WithContext(ctx)
	if err := db.First(&models.MenuCategory{}, in.CategoryID).Error; err != nil {
		return nil, lookupErr(err, "category", in.CategoryID)
	}
	available := true
	if in.Available != nil {
		available = *in.Available
	}
	menu := &models.Menu{
		CategoryID:  in.CategoryID,
		Name:        name,
		Price:       in.Price,
		Available:   available,
		Active:      true,
		Description: in.Description,
	}
	// Select keeps false booleans from being replaced by column defaults.
	if err := db.Select("CategoryID", "Name", "Price", "Available", "Active", "Description", "CreatedAt", "UpdatedAt").
		Create(menu).Error; err != nil {
		return nil, apperror.Internal("create menu item", err)
	}
	s.Notifier.Notify(ctx, events.New(events.MenuUpdated, menu))
	return menu, nil
}

func (s *CatalogService) UpdateMenu(ctx context.Context, id uint, p MenuPatch) (*models.Menu, error) {
	db := s.DB.WithContext(ctx)
	var menu models.Menu
	if err := db.First(&menu, id).Error; err != nil {
		return nil, lookupErr(err, "menu item", id)
	}
	fields := map[string]interface{}{}
	if p.CategoryID != nil {
		if err := db.First(&models.MenuCategory{}, *p.CategoryID).Error; err != nil {
			return nil, lookupErr(err, "category", *p.CategoryID)
		}
		fields["category_id"] = *p.CategoryID
	}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return nil, apperror.Validation("menu item name is required")
		}
		fields["name"] = name
	}
	if p.Price != nil {
		if *p.Price < 0 {
			return nil, apperror.Validation("price must not be negative")
		}
		fields["price"] = *p.Price
	}
	if p.Available != nil {
		fields["available"] = *p.Available
	}
	if p.Active != nil {
		fields["active"] = *p.Active
	}
	if p.Description != nil {
		fields["description"] = *p.Description
	}
	if len(fields) > 0 {
		if err := db.Model(&menu).Updates(fields).Error; err != nil {
			return nil, apperror.Internal("update menu item", err)
		}
	}
	updated, err := s.GetMenu(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Notifier.Notify(ctx, events.New(events.MenuUpdated, updated))
	return updated, nil
}

// DeleteMenuItem removes a menu item. Without force it is refused while
// order lines reference it (deactivating is the non-destructive option).
// With force every order containing the item is deleted and tables whose open
// order disappeared are released.
func (s *CatalogService) DeleteMenuItem(ctx context.Context, id uint, force bool) (err error) {
	ctx, span := startSpan(ctx, "CatalogService.DeleteMenuItem")
	defer func() { endSpan(span, err) }()

	var released []models.Table
	var removed int
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var menu models.Menu
		if err := tx.First(&menu, id).Error; err != nil {
			return lookupErr(err, "menu item", id)
		}
		var orderIDs []uint
		if err := tx.Model(&models.OrderItem{}).Where("menu_id = ?", id).
			Distinct().Pluck("order_id", &orderIDs).Error; err != nil {
			return apperror.Internal("list orders for menu item", err)
		}
		if len(orderIDs) > 0 && !force {
			return apperror.Conflict("menu item is referenced by %d orders", len(orderIDs)).
				WithMetadata("menu_id", fmt.Sprint(id))
		}

		var orders []models.Order
		if len(orderIDs) > 0 {
			if err := tx.Where("id IN ?", orderIDs).Find(&orders).Error; err != nil {
				return apperror.Internal("load orders for menu item", err)
			}
			if err := deleteOrdersTx(tx, orderIDs); err != nil {
				return err
			}
			removed = len(orderIDs)
		}
		seen := map[uint]bool{}
		for _, o := range orders {
			if o.Status != models.OrderPending || seen[o.TableID] {
				continue
			}
			seen[o.TableID] = true
			t, err := releaseTableIfIdle(tx, o.TableID, 0)
			if err != nil {
				return err
			}
			if t != nil {
				released = append(released, *t)
			}
		}
		if err := tx.Delete(&models.Menu{}, id).Error; err != nil {
			return apperror.Internal("delete menu item", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	utils.InfoLogger.WithFields(logrus.Fields{"menu_id": id, "force": force, "orders_removed": removed}).
		Info("Menu item deleted")
	for i := range released {
		s.Notifier.Notify(ctx, events.New(events.TableUpdated, &released[i]))
	}
	s.Notifier.Notify(ctx, events.New(events.MenuUpdated, map[string]interface{}{"deleted_id": id}))
	return nil
}

// Catalog snapshots active menu items for cart pricing.
func (s *CatalogService) Catalog(ctx context.Context) (cart.MapCatalog, error) {
	var menus []models.Menu
	if err := s.DB.WithContext(ctx).Where("active = ?", true).Find(&menus).Error; err != nil {
		return nil, apperror.Internal("load catalog", err)
	}
	catalog := make(cart.MapCatalog, len(menus))
	for _, m := range menus {
		catalog[m.ID] = cart.Item{ID: m.ID, Name: m.Name, Price: m.Price, Available: m.Sellable()}
	}
	return catalog, nil
}
