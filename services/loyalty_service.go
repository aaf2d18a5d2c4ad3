package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pos/apperror"
	"github.com/yeremiapane/restaurant-pos/events"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// Tier thresholds on the point balance.
const (
	SilverThreshold int64 = 500
	GoldThreshold   int64 = 2000
)

// TierFor maps a balance to its loyalty tier.
func TierFor(balance int64) string {
	switch {
	case balance >= GoldThreshold:
		return models.TierGold
	case balance >= SilverThreshold:
		return models.TierSilver
	default:
		return models.TierBronze
	}
}

// LoyaltyService keeps customers and their additive points ledger.
type LoyaltyService struct {
	DB       *gorm.DB
	Notifier events.Notifier
	// PointsUnit is the amount of spend that earns one point.
	PointsUnit int64
}

func NewLoyaltyService(db *gorm.DB, notifier events.Notifier, pointsUnit int64) *LoyaltyService {
	if notifier == nil {
		notifier = events.Nop{}
	}
	if pointsUnit <= 0 {
		pointsUnit = 10000
	}
	return &LoyaltyService{DB: db, Notifier: notifier, PointsUnit: pointsUnit}
}

type CustomerInput struct {
	Name  string
	Phone *string
}

func normalizePhone(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}

func (s *LoyaltyService) ListCustomers(ctx context.Context, search string) ([]models.Customer, error) {
	q := s.DB.WithContext(ctx).Order("name asc, id asc")
	if search = strings.TrimSpace(search); search != "" {
		like := "%" + search + "%"
		q = q.Where("name LIKE ? OR phone LIKE ?", like, like)
	}
	var customers []models.Customer
	if err := q.Find(&customers).Error; err != nil {
		return nil, apperror.Internal("list customers", err)
	}
	return customers, nil
}

func (s *LoyaltyService) GetCustomer(ctx context.Context, id uint) (*models.Customer, error) {
	var c models.Customer
	if err := s.DB.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, lookupErr(err, "customer", id)
	}
	return &c, nil
}

func (s *LoyaltyService) phoneTaken(db *gorm.DB, phone *string, exceptID uint) (bool, error) {
	if phone == nil {
		return false, nil
	}
	var n int64
	if err := db.Model(&models.Customer{}).Where("phone = ? AND id <> ?", *phone, exceptID).Count(&n).Error; err != nil {
		return false, apperror.Internal("check phone", err)
	}
	return n > 0, nil
}

func (s *LoyaltyService) CreateCustomer(ctx context.Context, in CustomerInput) (*models.Customer, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperror.Validation("customer name is required")
	}
	phone := normalizePhone(in.Phone)
	db := s.DB.WithContext(ctx)
	taken, err := s.phoneTaken(db, phone, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperror.Conflict("phone %s is already registered", *phone)
	}
	c := &models.Customer{Name: name, Phone: phone, Tier: models.TierBronze}
	if err := db.Create(c).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperror.Conflict("phone %s is already registered", *phone)
		}
		return nil, apperror.Internal("create customer", err)
	}
	return c, nil
}

func (s *LoyaltyService) UpdateCustomer(ctx context.Context, id uint, in CustomerInput) (*models.Customer, error) {
	db := s.DB.WithContext(ctx)
	c, err := s.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		c.Name = name
	}
	if in.Phone != nil {
		phone := normalizePhone(in.Phone)
		taken, err := s.phoneTaken(db, phone, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperror.Conflict("phone %s is already registered", *phone)
		}
		c.Phone = phone
	}
	if err := db.Save(c).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperror.Conflict("phone %s is already registered", *c.Phone)
		}
		return nil, apperror.Internal("update customer", err)
	}
	return c, nil
}

// DeleteCustomer detaches the customer from past orders and drops the ledger.
func (s *LoyaltyService) DeleteCustomer(ctx context.Context, id uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&models.Customer{}, id).Error; err != nil {
			return lookupErr(err, "customer", id)
		}
		if err := tx.Model(&models.Order{}).Where("customer_id = ?", id).Update("customer_id", nil).Error; err != nil {
			return apperror.Internal("detach customer orders", err)
		}
		if err := tx.Where("customer_id = ?", id).Delete(&models.PointTransaction{}).Error; err != nil {
			return apperror.Internal("delete ledger", err)
		}
		if err := tx.Delete(&models.Customer{}, id).Error; err != nil {
			return apperror.Internal("delete customer", err)
		}
		return nil
	})
}

// GetBalance sums the ledger: EARNED minus SPENT.
func (s *LoyaltyService) GetBalance(ctx context.Context, customerID uint) (int64, error) {
	db := s.DB.WithContext(ctx)
	if err := db.First(&models.Customer{}, customerID).Error; err != nil {
		return 0, lookupErr(err, "customer", customerID)
	}
	return balanceTx(db, customerID)
}

func balanceTx(tx *gorm.DB, customerID uint) (int64, error) {
	var balance int64
	err := tx.Model(&models.PointTransaction{}).
		Where("customer_id = ?", customerID).
		Select("COALESCE(SUM(CASE WHEN type = ? THEN delta ELSE -delta END), 0)", models.PointsEarned).
		Row().Scan(&balance)
	if err != nil {
		return 0, apperror.Internal("sum points", err)
	}
	return balance, nil
}

func (s *LoyaltyService) History(ctx context.Context, customerID uint) ([]models.PointTransaction, error) {
	db := s.DB.WithContext(ctx)
	if err := db.First(&models.Customer{}, customerID).Error; err != nil {
		return nil, lookupErr(err, "customer", customerID)
	}
	var entries []models.PointTransaction
	if err := db.Where("customer_id = ?", customerID).Order("created_at desc, id desc").Find(&entries).Error; err != nil {
		return nil, apperror.Internal("list ledger", err)
	}
	return entries, nil
}

// AddPoints appends a ledger entry and refreshes the cached balance and tier.
func (s *LoyaltyService) AddPoints(ctx context.Context, customerID uint, delta int64, reason, typ string) (entry *models.PointTransaction, customer *models.Customer, err error) {
	ctx, span := startSpan(ctx, "LoyaltyService.AddPoints")
	defer func() { endSpan(span, err) }()

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var e error
		entry, customer, e = addPointsTx(tx, customerID, nil, delta, reason, typ)
		return e
	})
	if err != nil {
		return nil, nil, err
	}
	s.Notifier.Notify(ctx, events.New(events.LoyaltyUpdated, customer))
	return entry, customer, nil
}

func addPointsTx(tx *gorm.DB, customerID uint, orderID *uint, delta int64, reason, typ string) (*models.PointTransaction, *models.Customer, error) {
	if delta <= 0 {
		return nil, nil, apperror.Validation("points delta must be positive")
	}
	if typ != models.PointsEarned && typ != models.PointsSpent {
		return nil, nil, apperror.Validation("points type must be %s or %s", models.PointsEarned, models.PointsSpent)
	}
	var customer models.Customer
	if err := tx.First(&customer, customerID).Error; err != nil {
		return nil, nil, lookupErr(err, "customer", customerID)
	}
	balance, err := balanceTx(tx, customerID)
	if err != nil {
		return nil, nil, err
	}
	if typ == models.PointsSpent {
		if delta > balance {
			return nil, nil, apperror.Conflict("insufficient points: balance %d, requested %d", balance, delta)
		}
		balance -= delta
	} else {
		balance += delta
	}

	entry := &models.PointTransaction{
		CustomerID: customerID,
		OrderID:    orderID,
		Delta:      delta,
		Type:       typ,
		Reason:     reason,
	}
	if err := tx.Create(entry).Error; err != nil {
		return nil, nil, apperror.Internal("create ledger entry", err)
	}
	customer.Points = balance
	customer.Tier = TierFor(balance)
	if err := tx.Model(&customer).Updates(map[string]interface{}{
		"points": customer.Points,
		"tier":   customer.Tier,
	}).Error; err != nil {
		return nil, nil, apperror.Internal("update customer balance", err)
	}
	return entry, &customer, nil
}

// awardOrderTx credits points for a completed order once.
func (s *LoyaltyService) awardOrderTx(tx *gorm.DB, order *models.Order) (*models.Customer, error) {
	if order.CustomerID == nil {
		return nil, nil
	}
	var already int64
	if err := tx.Model(&models.PointTransaction{}).
		Where("order_id = ? AND type = ?", order.ID, models.PointsEarned).
		Count(&already).Error; err != nil {
		return nil, apperror.Internal("check order points", err)
	}
	points := order.Total / s.PointsUnit
	if already > 0 || points <= 0 {
		return nil, nil
	}
	orderID := order.ID
	_, customer, err := addPointsTx(tx, *order.CustomerID, &orderID, points, fmt.Sprintf("order %s", order.OrderNumber), models.PointsEarned)
	if err != nil {
		return nil, err
	}
	utils.InfoLogger.WithFields(logrus.Fields{"customer_id": customer.ID, "order_id": order.ID, "points": points}).
		Info("Loyalty points earned")
	return customer, nil
}
